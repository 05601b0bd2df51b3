package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func twilioSign(authToken, requestURL string, form url.Values) string {
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

func TestTwilioSignature_ValidPassesThrough(t *testing.T) {
	form := url.Values{}
	form.Set("From", "whatsapp:+96811111111")
	form.Set("Body", "25 OMR")

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	mw := TwilioSignature("secret-token", zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "http://example.com/api/whatsapp/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", twilioSign("secret-token", "http://example.com/api/whatsapp/webhook", form))
	rec := httptest.NewRecorder()

	mw(next).ServeHTTP(rec, req)

	if !called {
		t.Fatalf("next handler not called for valid signature")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestTwilioSignature_InvalidRejected(t *testing.T) {
	form := url.Values{}
	form.Set("Body", "25 OMR")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler must not be called for invalid signature")
	})

	mw := TwilioSignature("secret-token", zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "http://example.com/api/whatsapp/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", "bogus")
	rec := httptest.NewRecorder()

	mw(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestTwilioSignature_ForwardedProto(t *testing.T) {
	form := url.Values{}
	form.Set("Body", "hello")

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	mw := TwilioSignature("secret-token", zap.NewNop())

	// Подпись считается по внешнему https-адресу, как делает Twilio за прокси.
	req := httptest.NewRequest(http.MethodPost, "http://example.com/api/whatsapp/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Twilio-Signature", twilioSign("secret-token", "https://example.com/api/whatsapp/webhook", form))
	rec := httptest.NewRecorder()

	mw(next).ServeHTTP(rec, req)

	if !called {
		t.Fatalf("next handler not called when X-Forwarded-Proto matches signature")
	}
}
