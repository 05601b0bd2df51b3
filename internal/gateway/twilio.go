package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oalbalushi/tendering-system/internal/model"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// Максимальный размер скачиваемого голосового сообщения.
const maxMediaBytes = 16 << 20

// TwilioGateway инкапсулирует HTTP-взаимодействие с Messages API Twilio.
type TwilioGateway struct {
	accountSID string
	authToken  string
	fromPhone  string
	apiBase    string
	httpClient *http.Client
}

// NewTwilioGateway создаёт шлюз отправки сообщений с указанными реквизитами Twilio.
func NewTwilioGateway(accountSID, authToken, fromPhone string) *TwilioGateway {
	return &TwilioGateway{
		accountSID: accountSID,
		authToken:  authToken,
		fromPhone:  normalizeAddress(fromPhone),
		apiBase:    twilioAPIBase,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type twilioMessageResponse struct {
	SID     string `json:"sid"`
	To      string `json:"to"`
	Message string `json:"message"`
}

// SendMessage отправляет текстовое WhatsApp-сообщение на указанный адрес.
func (g *TwilioGateway) SendMessage(ctx context.Context, to, body string) (*Delivery, error) {
	form := url.Values{}
	form.Set("To", normalizeAddress(to))
	form.Set("From", g.fromPhone)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", g.apiBase, g.accountSID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(g.accountSID, g.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	var result twilioMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("twilio status %d: %s", resp.StatusCode, result.Message)
	}

	return &Delivery{
		SID:    result.SID,
		To:     result.To,
		Status: model.NotificationStatusSent,
	}, nil
}

// DownloadMedia скачивает вложение входящего сообщения. Медиа-ссылки Twilio
// требуют basic-авторизации теми же реквизитами аккаунта.
func (g *TwilioGateway) DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(g.accountSID, g.authToken)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download media: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		return nil, fmt.Errorf("read media body: %w", err)
	}

	return data, nil
}

func normalizeAddress(to string) string {
	if to == "" || strings.HasPrefix(to, "whatsapp:") {
		return to
	}
	return "whatsapp:" + to
}
