package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/oalbalushi/tendering-system/internal/model"
)

// MockGateway пишет исходящие сообщения в лог вместо реальной отправки.
// Используется, когда реквизиты Twilio не заданы.
type MockGateway struct {
	logger     *zap.Logger
	httpClient *http.Client
	counter    atomic.Int64
}

// NewMockGateway создаёт мок-шлюз уведомлений.
func NewMockGateway(logger *zap.Logger) *MockGateway {
	return &MockGateway{
		logger: logger,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// SendMessage пишет сообщение в лог и возвращает фиктивный идентификатор доставки.
func (g *MockGateway) SendMessage(_ context.Context, to, body string) (*Delivery, error) {
	n := g.counter.Add(1)

	g.logger.Info("mock whatsapp message",
		zap.String("to", normalizeAddress(to)),
		zap.String("body", body),
	)

	return &Delivery{
		SID:    fmt.Sprintf("MOCK_SID_%d", n),
		To:     normalizeAddress(to),
		Status: model.NotificationStatusMocked,
	}, nil
}

// DownloadMedia скачивает вложение без авторизации: в демо-режиме
// симулятор может передать произвольную ссылку.
func (g *MockGateway) DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

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
