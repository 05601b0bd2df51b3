package gateway

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/url"
	"sort"
	"testing"
)

func signPayload(authToken, requestURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	payload := requestURL
	for _, k := range keys {
		payload += k + form.Get(k)
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestValidateSignature_Valid(t *testing.T) {
	form := url.Values{}
	form.Set("From", "whatsapp:+96899999999")
	form.Set("Body", "25 OMR, ready in 2 days")
	form.Set("NumMedia", "0")

	requestURL := "https://example.com/api/whatsapp/webhook"
	signature := signPayload("secret-token", requestURL, form)

	if !ValidateSignature("secret-token", requestURL, form, signature) {
		t.Fatalf("valid signature rejected")
	}
}

func TestValidateSignature_WrongToken(t *testing.T) {
	form := url.Values{}
	form.Set("Body", "hello")

	requestURL := "https://example.com/api/whatsapp/webhook"
	signature := signPayload("other-token", requestURL, form)

	if ValidateSignature("secret-token", requestURL, form, signature) {
		t.Fatalf("signature with wrong token accepted")
	}
}

func TestValidateSignature_TamperedBody(t *testing.T) {
	form := url.Values{}
	form.Set("Body", "25 OMR")

	requestURL := "https://example.com/api/whatsapp/webhook"
	signature := signPayload("secret-token", requestURL, form)

	form.Set("Body", "1 OMR")
	if ValidateSignature("secret-token", requestURL, form, signature) {
		t.Fatalf("tampered form accepted")
	}
}

func TestValidateSignature_Garbage(t *testing.T) {
	form := url.Values{}
	if ValidateSignature("secret-token", "https://example.com/", form, "not-base64!") {
		t.Fatalf("garbage signature accepted")
	}
}
