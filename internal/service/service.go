// Package service реализует бизнес-логику системы тендеров: жизненный цикл
// тендера, конвейер приёма предложений и исполнение административных команд.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oalbalushi/tendering-system/internal/engine"
	"github.com/oalbalushi/tendering-system/internal/gateway"
	"github.com/oalbalushi/tendering-system/internal/model"
	"github.com/oalbalushi/tendering-system/internal/repository"
)

// ErrValidation возвращается при неверных входных данных. Проверка выполняется
// до любых записей в хранилище.
var ErrValidation = errors.New("validation error")

const digestLimit = 10

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateTender(ctx context.Context, t *model.Tender) error
	GetTender(ctx context.Context, tenderID string) (*model.Tender, error)
	ListTenders(ctx context.Context, limit int) ([]model.Tender, error)
	FindActiveTender(ctx context.Context) (*model.Tender, error)
	CreateBid(ctx context.Context, b *model.Bid) error
	GetBid(ctx context.Context, bidID string) (*model.Bid, error)
	ListBids(ctx context.Context, limit int) ([]model.Bid, error)
	FindBidsByTender(ctx context.Context, tenderID string) ([]model.Bid, error)
	UpdateBidStatus(ctx context.Context, bidID string, status model.BidStatus) error
	CreateSupplier(ctx context.Context, s *model.Supplier) error
	ListSuppliers(ctx context.Context) ([]model.Supplier, error)
	FindActiveSuppliers(ctx context.Context) ([]model.Supplier, error)
	CreateNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, limit int) ([]model.Notification, error)
}

// Gateway описывает контракт шлюза уведомлений.
type Gateway interface {
	SendMessage(ctx context.Context, to, body string) (*gateway.Delivery, error)
	DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error)
}

// Engine описывает контракт языкового движка извлечения.
type Engine interface {
	ProcessText(ctx context.Context, text string) (*engine.ProcessedMessage, error)
	ProcessVoice(ctx context.Context, audio []byte) (*engine.ProcessedMessage, error)
}

// Service содержит бизнес-логику системы тендеров.
type Service struct {
	repo            Repository
	gw              Gateway
	eng             Engine
	logger          *zap.Logger
	adminPhone      string
	defaultCurrency string
}

// NewService создаёт сервис с указанными репозиторием, шлюзом и движком.
func NewService(repo Repository, gw Gateway, eng Engine, logger *zap.Logger, adminPhone, defaultCurrency string) *Service {
	return &Service{
		repo:            repo,
		gw:              gw,
		eng:             eng,
		logger:          logger,
		adminPhone:      adminPhone,
		defaultCurrency: defaultCurrency,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// CreateTenderInput содержит поля для создания тендера.
type CreateTenderInput struct {
	Title       string
	Description string
	Category    string
	Quantity    int
	Unit        string
	ClosingDate time.Time
	ClientPhone string
}

// CreateTender проверяет поля, сохраняет тендер и рассылает оповещение
// активным поставщикам. Сбой рассылки не отменяет создание тендера.
func (s *Service) CreateTender(ctx context.Context, in CreateTenderInput) (*model.Tender, []AlertResult, error) {
	if in.Title == "" || in.Category == "" || in.Unit == "" {
		return nil, nil, fmt.Errorf("%w: title, category and unit are required", ErrValidation)
	}
	if in.Quantity <= 0 {
		return nil, nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if !in.ClosingDate.After(time.Now()) {
		return nil, nil, fmt.Errorf("%w: closing date must be in the future", ErrValidation)
	}

	description := in.Description
	if description == "" {
		description = in.Title
	}

	tender := &model.Tender{
		TenderID:    "tender-" + uuid.NewString(),
		Title:       in.Title,
		Description: description,
		Category:    in.Category,
		Quantity:    in.Quantity,
		Unit:        in.Unit,
		ClosingDate: in.ClosingDate,
		Status:      model.TenderStatusActive,
		ClientPhone: in.ClientPhone,
	}

	if err := s.repo.CreateTender(ctx, tender); err != nil {
		return nil, nil, err
	}

	results, err := s.BroadcastAlert(ctx, tender)
	if err != nil {
		// Рассылка не фатальна: тендер уже создан.
		s.logger.Error("tender alert broadcast failed",
			zap.Error(err), zap.String("tenderID", tender.TenderID))
	}

	return tender, results, nil
}

// ListTenders возвращает тендеры, от новых к старым.
func (s *Service) ListTenders(ctx context.Context, limit int) ([]model.Tender, error) {
	if limit <= 0 {
		limit = digestLimit
	}
	return s.repo.ListTenders(ctx, limit)
}

// GetTender возвращает тендер по идентификатору.
func (s *Service) GetTender(ctx context.Context, tenderID string) (*model.Tender, error) {
	return s.repo.GetTender(ctx, tenderID)
}

// GetActiveTender возвращает самый свежий открытый тендер —
// неявную цель входящих предложений без явного идентификатора.
func (s *Service) GetActiveTender(ctx context.Context) (*model.Tender, error) {
	return s.repo.FindActiveTender(ctx)
}

// AlertResult описывает исход оповещения одного поставщика.
type AlertResult struct {
	SupplierPhone string
	Success       bool
	Error         string
}

// BroadcastAlert последовательно рассылает оповещение о тендере всем активным
// поставщикам. Сбой отправки одному получателю не прерывает рассылку;
// каждый исход записывается в журнал уведомлений, плюс одна сводная запись.
func (s *Service) BroadcastAlert(ctx context.Context, tender *model.Tender) ([]AlertResult, error) {
	suppliers, err := s.repo.FindActiveSuppliers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active suppliers: %w", err)
	}

	body := tenderAlertMessage(tender)

	results := make([]AlertResult, 0, len(suppliers))
	for _, sup := range suppliers {
		err := s.notify(ctx, model.NotificationTenderAlert, sup.Phone, body)
		res := AlertResult{SupplierPhone: sup.Phone, Success: err == nil}
		if err != nil {
			res.Error = err.Error()
			s.logger.Warn("tender alert delivery failed",
				zap.String("supplier", sup.Phone),
				zap.String("tenderID", tender.TenderID),
				zap.Error(err))
		}
		results = append(results, res)
	}

	summary := &model.Notification{
		Type:      model.NotificationTenderAlert,
		Recipient: "all_suppliers",
		Message:   fmt.Sprintf("Tender alert sent for %s: %d/%d delivered", tender.TenderID, countSuccesses(results), len(results)),
		Status:    model.NotificationStatusSent,
	}
	if err := s.repo.CreateNotification(ctx, summary); err != nil {
		s.logger.Error("write alert summary notification", zap.Error(err))
	}

	return results, nil
}

func countSuccesses(results []AlertResult) int {
	n := 0
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}

// notify отправляет сообщение через шлюз и дописывает исход в журнал
// уведомлений. Ошибка отправки возвращается вызывающему, но запись
// в журнале делается в любом случае.
func (s *Service) notify(ctx context.Context, notifType, to, body string) error {
	delivery, sendErr := s.gw.SendMessage(ctx, to, body)

	n := &model.Notification{
		Type:      notifType,
		Recipient: to,
		Message:   body,
	}
	if sendErr != nil {
		n.Status = model.NotificationStatusFailed
	} else {
		n.Status = delivery.Status
	}

	if err := s.repo.CreateNotification(ctx, n); err != nil {
		s.logger.Error("write notification log", zap.Error(err), zap.String("recipient", to))
	}

	return sendErr
}

// reply отправляет ответ отправителю входящего сообщения. Сбой доставки
// только логируется: исходная операция уже завершена.
func (s *Service) reply(ctx context.Context, to, body string) {
	if err := s.notify(ctx, model.NotificationReply, to, body); err != nil {
		s.logger.Warn("reply delivery failed", zap.String("to", to), zap.Error(err))
	}
}

// InboundMessage описывает одно входящее сообщение из транспорта.
type InboundMessage struct {
	From     string
	Body     string
	MediaURL string
}

// ProcessInbound обрабатывает входящее сообщение: административные команды,
// голосовые и текстовые предложения. Ошибки не поднимаются в транспортный
// слой — отправитель всегда получает ответ, в худшем случае извинение.
func (s *Service) ProcessInbound(ctx context.Context, msg InboundMessage) {
	switch {
	case isAdminCommand(msg.Body):
		if err := s.handleAdminCommand(ctx, msg.From, msg.Body); err != nil {
			s.logger.Error("admin command failed", zap.String("from", msg.From), zap.Error(err))
			s.reply(ctx, msg.From, msgAdminError)
		}
	case msg.MediaURL != "":
		if err := s.handleVoiceMessage(ctx, msg.From, msg.MediaURL); err != nil {
			s.logger.Error("voice message failed", zap.String("from", msg.From), zap.Error(err))
			s.reply(ctx, msg.From, msgVoiceError)
		}
	case msg.Body != "":
		if err := s.handleTextMessage(ctx, msg.From, msg.Body); err != nil {
			s.logger.Error("text message failed", zap.String("from", msg.From), zap.Error(err))
			s.reply(ctx, msg.From, msgTextError)
		}
	}
}

// handleTextMessage проводит текстовое сообщение через конвейер приёма:
// извлечение, проверка активного тендера, сохранение, уведомления.
func (s *Service) handleTextMessage(ctx context.Context, from, body string) error {
	processed, err := s.eng.ProcessText(ctx, body)
	if err != nil {
		return fmt.Errorf("process text: %w", err)
	}

	tender, err := s.activeTenderOrNil(ctx)
	if err != nil {
		return err
	}

	if tender == nil || processed.Bid.Price == nil {
		s.reply(ctx, from, msgTextHelp)
		return nil
	}

	bid, err := s.saveBid(ctx, from, processed, tender)
	if err != nil {
		return err
	}

	s.confirmBid(ctx, from, bidConfirmationMessage(bid, tender), bid, tender)
	return nil
}

// handleVoiceMessage скачивает вложение и проводит его через голосовой конвейер.
func (s *Service) handleVoiceMessage(ctx context.Context, from, mediaURL string) error {
	audio, err := s.gw.DownloadMedia(ctx, mediaURL)
	if err != nil {
		return fmt.Errorf("download media: %w", err)
	}

	processed, err := s.eng.ProcessVoice(ctx, audio)
	if err != nil {
		return fmt.Errorf("process voice: %w", err)
	}

	tender, err := s.activeTenderOrNil(ctx)
	if err != nil {
		return err
	}

	if tender == nil || processed.Bid.Price == nil {
		s.reply(ctx, from, msgVoiceHelp)
		return nil
	}

	bid, err := s.saveBid(ctx, from, processed, tender)
	if err != nil {
		return err
	}

	s.confirmBid(ctx, from, voiceBidConfirmationMessage(bid, tender), bid, tender)
	return nil
}

// activeTenderOrNil отличает «активного тендера нет» от ошибки хранилища.
func (s *Service) activeTenderOrNil(ctx context.Context) (*model.Tender, error) {
	tender, err := s.repo.FindActiveTender(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrTenderNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active tender: %w", err)
	}
	return tender, nil
}

func (s *Service) saveBid(ctx context.Context, from string, processed *engine.ProcessedMessage, tender *model.Tender) (*model.Bid, error) {
	currency := processed.Bid.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}

	bid := &model.Bid{
		BidID:          "bid-" + uuid.NewString(),
		TenderID:       tender.TenderID,
		SupplierPhone:  from,
		Price:          *processed.Bid.Price,
		Currency:       currency,
		DeliveryTime:   processed.Bid.DeliveryTime,
		Availability:   processed.Bid.Availability,
		Language:       processed.Language,
		OriginalText:   processed.Original,
		TranslatedText: processed.Translated,
		Status:         model.BidStatusPending,
	}

	if err := s.repo.CreateBid(ctx, bid); err != nil {
		return nil, fmt.Errorf("save bid: %w", err)
	}

	return bid, nil
}

// confirmBid отправляет подтверждение поставщику и уведомление владельцу
// тендера (или администратору, если владелец не указан) с просьбой принять
// решение о победителе. Сбои доставки не фатальны.
func (s *Service) confirmBid(ctx context.Context, from, confirmation string, bid *model.Bid, tender *model.Tender) {
	if err := s.notify(ctx, model.NotificationBidConfirmation, from, confirmation); err != nil {
		s.logger.Warn("bid confirmation delivery failed", zap.String("to", from), zap.Error(err))
	}

	recipient := tender.ClientPhone
	if recipient == "" {
		recipient = s.adminPhone
	}
	if recipient == "" {
		return
	}

	if err := s.notify(ctx, model.NotificationBidReceived, recipient, bidReceivedMessage(bid, tender)); err != nil {
		s.logger.Warn("bid notification delivery failed", zap.String("to", recipient), zap.Error(err))
	}
}

// CreateBidInput содержит поля для создания предложения через HTTP API.
type CreateBidInput struct {
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
}

// CreateBid сохраняет предложение, созданное через HTTP API, минуя языковой конвейер.
func (s *Service) CreateBid(ctx context.Context, in CreateBidInput) (*model.Bid, error) {
	if in.TenderID == "" || in.SupplierPhone == "" {
		return nil, fmt.Errorf("%w: tender_id and supplier_phone are required", ErrValidation)
	}
	if in.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrValidation)
	}

	currency := in.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}

	bid := &model.Bid{
		BidID:          "bid-" + uuid.NewString(),
		TenderID:       in.TenderID,
		SupplierPhone:  in.SupplierPhone,
		SupplierName:   in.SupplierName,
		Price:          in.Price,
		Currency:       currency,
		DeliveryTime:   in.DeliveryTime,
		Availability:   in.Availability,
		Language:       in.Language,
		OriginalText:   in.OriginalText,
		TranslatedText: in.TranslatedText,
		Status:         model.BidStatusPending,
	}

	if err := s.repo.CreateBid(ctx, bid); err != nil {
		return nil, err
	}

	return bid, nil
}

// GetBid возвращает предложение по идентификатору.
func (s *Service) GetBid(ctx context.Context, bidID string) (*model.Bid, error) {
	return s.repo.GetBid(ctx, bidID)
}

// ListBids возвращает предложения, при необходимости в рамках одного тендера.
func (s *Service) ListBids(ctx context.Context, tenderID string, limit int) ([]model.Bid, error) {
	if limit <= 0 {
		limit = digestLimit
	}
	if tenderID == "" {
		return s.repo.ListBids(ctx, limit)
	}

	bids, err := s.repo.FindBidsByTender(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	if len(bids) > limit {
		bids = bids[:limit]
	}
	return bids, nil
}

// SelectWinner переводит предложение в статус winner. Это единственный путь
// к статусу winner; предложение обязано принадлежать указанному тендеру.
func (s *Service) SelectWinner(ctx context.Context, tenderID, bidID string) (*model.Bid, *model.Tender, error) {
	bid, err := s.repo.GetBid(ctx, bidID)
	if err != nil {
		return nil, nil, err
	}
	if bid.TenderID != tenderID {
		return nil, nil, fmt.Errorf("%w: %s does not belong to tender %s", repository.ErrBidNotFound, bidID, tenderID)
	}

	tender, err := s.repo.GetTender(ctx, tenderID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.repo.UpdateBidStatus(ctx, bidID, model.BidStatusWinner); err != nil {
		return nil, nil, err
	}
	bid.Status = model.BidStatusWinner

	if err := s.notify(ctx, model.NotificationWinningBid, bid.SupplierPhone, winningBidMessage(bid, tender)); err != nil {
		s.logger.Warn("winning notification delivery failed",
			zap.String("to", bid.SupplierPhone), zap.Error(err))
	}

	return bid, tender, nil
}

// CreateSupplier регистрирует поставщика. Повторная регистрация того же
// номера обновляет данные поставщика.
func (s *Service) CreateSupplier(ctx context.Context, sup *model.Supplier) error {
	if sup.Phone == "" {
		return fmt.Errorf("%w: phone is required", ErrValidation)
	}
	if sup.SupplierID == "" {
		sup.SupplierID = "supplier-" + uuid.NewString()
	}
	if sup.Language == "" {
		sup.Language = "English"
	}
	return s.repo.CreateSupplier(ctx, sup)
}

// ListSuppliers возвращает всех поставщиков.
func (s *Service) ListSuppliers(ctx context.Context) ([]model.Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

// ListNotifications возвращает записи журнала уведомлений.
func (s *Service) ListNotifications(ctx context.Context, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = digestLimit
	}
	return s.repo.ListNotifications(ctx, limit)
}

// Summary содержит счётчики для сводки дашборда.
type Summary struct {
	Tenders       int `json:"tenders"`
	Bids          int `json:"bids"`
	Suppliers     int `json:"suppliers"`
	Notifications int `json:"notifications"`
}

// GetSummary возвращает сводку по числу сущностей для дашборда.
func (s *Service) GetSummary(ctx context.Context) (*Summary, error) {
	const summaryLimit = 1000

	tenders, err := s.repo.ListTenders(ctx, summaryLimit)
	if err != nil {
		return nil, err
	}
	bids, err := s.repo.ListBids(ctx, summaryLimit)
	if err != nil {
		return nil, err
	}
	suppliers, err := s.repo.ListSuppliers(ctx)
	if err != nil {
		return nil, err
	}
	notifications, err := s.repo.ListNotifications(ctx, summaryLimit)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Tenders:       len(tenders),
		Bids:          len(bids),
		Suppliers:     len(suppliers),
		Notifications: len(notifications),
	}, nil
}
