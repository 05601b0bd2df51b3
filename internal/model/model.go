// Package model содержит доменные сущности системы тендеров.
package model

import "time"

// TenderStatus описывает статус тендера.
type TenderStatus string

const (
	TenderStatusActive TenderStatus = "active"
	TenderStatusClosed TenderStatus = "closed"
)

// Tender описывает запрос на поставку товара, рассылаемый поставщикам.
type Tender struct {
	TenderID    string
	Title       string
	Description string
	Category    string
	Quantity    int
	Unit        string
	ClosingDate time.Time
	Status      TenderStatus
	ClientPhone string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsActive сообщает, открыт ли тендер для приёма предложений.
// Предикат вычисляется каждый раз заново, в БД он не хранится.
func (t *Tender) IsActive(now time.Time) bool {
	return t.Status == TenderStatusActive && t.ClosingDate.After(now)
}

// BidStatus описывает статус предложения поставщика.
type BidStatus string

const (
	BidStatusPending  BidStatus = "pending"
	BidStatusWinner   BidStatus = "winner"
	BidStatusRejected BidStatus = "rejected"
)

// Bid описывает предложение поставщика по конкретному тендеру.
type Bid struct {
	BidID          string
	TenderID       string
	SupplierPhone  string
	SupplierName   string
	Price          float64
	Currency       string
	DeliveryTime   string
	Availability   string
	Language       string
	OriginalText   string
	TranslatedText string
	Status         BidStatus
	CreatedAt      time.Time
}

// Supplier описывает зарегистрированного поставщика.
type Supplier struct {
	SupplierID string
	Phone      string
	Name       string
	Email      string
	Categories []string
	Language   string
	IsActive   bool
	CreatedAt  time.Time
}

// NotificationStatus описывает исход отправки уведомления.
type NotificationStatus string

const (
	NotificationStatusSent   NotificationStatus = "sent"
	NotificationStatusMocked NotificationStatus = "mocked"
	NotificationStatusFailed NotificationStatus = "failed"
)

// Типы уведомлений, записываемых в журнал.
const (
	NotificationTenderAlert     = "tender_alert"
	NotificationBidReceived     = "bid_received"
	NotificationBidConfirmation = "bid_confirmation"
	NotificationWinningBid      = "winning_bid"
	NotificationReply           = "reply"
)

// Notification описывает запись журнала отправленных уведомлений.
// Журнал только дописывается, записи не изменяются.
type Notification struct {
	ID        int64
	Type      string
	Recipient string
	Message   string
	Status    NotificationStatus
	SentAt    time.Time
}
