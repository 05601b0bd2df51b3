package engine

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"unicode"
)

var (
	priceRe        = regexp.MustCompile(`(?i)(\d{2,})\s*(OMR|USD|EUR)?`)
	deliveryRe     = regexp.MustCompile(`(?i)(\d+\s*days?|next week|tomorrow)`)
	availabilityRe = regexp.MustCompile(`(?i)ready|available|stock`)
)

var mockTranscriptions = []string{
	"25 OMR, ready in 2 days",
	"30 OMR, available next week",
	"20 OMR, can deliver tomorrow",
}

// MockEngine извлекает поля предложения регулярными выражениями без обращения
// к внешней модели. Используется, когда ключ API не задан.
type MockEngine struct {
	defaultCurrency string
	voiceCounter    atomic.Int64
}

// NewMockEngine создаёт мок-движок извлечения с указанной валютой по умолчанию.
func NewMockEngine(defaultCurrency string) *MockEngine {
	return &MockEngine{defaultCurrency: defaultCurrency}
}

// ProcessText обрабатывает текстовое сообщение: определяет язык и извлекает поля предложения.
func (e *MockEngine) ProcessText(_ context.Context, text string) (*ProcessedMessage, error) {
	return &ProcessedMessage{
		Original:   text,
		Translated: text,
		Language:   detectScript(text),
		Bid:        e.extract(text),
	}, nil
}

// ProcessVoice обрабатывает голосовое сообщение. Транскрипция берётся из
// фиксированного набора образцов по кругу.
func (e *MockEngine) ProcessVoice(ctx context.Context, _ []byte) (*ProcessedMessage, error) {
	n := e.voiceCounter.Add(1)
	text := mockTranscriptions[int(n-1)%len(mockTranscriptions)]
	return e.ProcessText(ctx, text)
}

func (e *MockEngine) extract(text string) BidInfo {
	info := BidInfo{
		Currency:   e.defaultCurrency,
		Confidence: ConfidenceLow,
	}

	if m := priceRe.FindStringSubmatch(text); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			info.Price = &v
			info.Confidence = ConfidenceHigh
		}
		if m[2] != "" {
			info.Currency = strings.ToUpper(m[2])
		}
	}

	if m := deliveryRe.FindString(text); m != "" {
		info.DeliveryTime = m
	}

	if availabilityRe.MatchString(text) {
		info.Availability = "ready"
	}

	return info
}

func detectScript(text string) string {
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Arabic, r):
			return "arabic"
		case unicode.Is(unicode.Devanagari, r):
			return "hindi"
		}
	}
	return "english"
}
