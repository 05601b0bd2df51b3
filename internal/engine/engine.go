// Package engine реализует языковой конвейер обработки входящих сообщений:
// транскрипция голоса, перевод на английский и извлечение полей предложения.
package engine

// BidInfo содержит структурированные поля, извлечённые из сообщения поставщика.
// Price равен nil, если цену извлечь не удалось.
type BidInfo struct {
	Price        *float64 `json:"price"`
	Currency     string   `json:"currency"`
	DeliveryTime string   `json:"delivery_time"`
	Availability string   `json:"availability"`
	Confidence   string   `json:"confidence"`
}

// Уровни уверенности извлечения.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// ProcessedMessage — единый результат обработки текстового или голосового сообщения.
type ProcessedMessage struct {
	Original   string
	Translated string
	Language   string
	Bid        BidInfo
}
