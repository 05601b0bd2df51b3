// Package handler содержит HTTP-обработчики API системы тендеров.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/oalbalushi/tendering-system/internal/model"
	"github.com/oalbalushi/tendering-system/internal/repository"
	"github.com/oalbalushi/tendering-system/internal/service"
)

// twimlAck — фиксированный ответ транспорту. Вебхук отвечает им всегда,
// независимо от исхода обработки, чтобы Twilio не перепосылал сообщение.
const twimlAck = "<Response></Response>"

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	ProcessInbound(ctx context.Context, msg service.InboundMessage)
	CreateTender(ctx context.Context, in service.CreateTenderInput) (*model.Tender, []service.AlertResult, error)
	ListTenders(ctx context.Context, limit int) ([]model.Tender, error)
	GetTender(ctx context.Context, tenderID string) (*model.Tender, error)
	CreateBid(ctx context.Context, in service.CreateBidInput) (*model.Bid, error)
	GetBid(ctx context.Context, bidID string) (*model.Bid, error)
	ListBids(ctx context.Context, tenderID string, limit int) ([]model.Bid, error)
	SelectWinner(ctx context.Context, tenderID, bidID string) (*model.Bid, *model.Tender, error)
	CreateSupplier(ctx context.Context, s *model.Supplier) error
	ListSuppliers(ctx context.Context) ([]model.Supplier, error)
	ListNotifications(ctx context.Context, limit int) ([]model.Notification, error)
	GetSummary(ctx context.Context) (*service.Summary, error)
}

// Handler реализует HTTP-обработчики API системы тендеров.
type Handler struct {
	service         Service
	logger          *zap.Logger
	twilioAuthToken string
	production      bool
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, twilioAuthToken string, production bool) *Handler {
	return &Handler{
		service:         s,
		logger:          logger,
		twilioAuthToken: twilioAuthToken,
		production:      production,
	}
}

// Health возвращает состояние сервиса.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "WhatsApp Tendering System",
	})
}

// Webhook принимает входящее сообщение от Twilio. Ответ — всегда пустой TwiML
// со статусом 200: все внутренние сбои остаются на стороне сервиса.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Warn("malformed webhook form", zap.Error(err))
		h.writeTwiML(w, http.StatusOK)
		return
	}

	h.service.ProcessInbound(r.Context(), inboundFromForm(r))
	h.writeTwiML(w, http.StatusOK)
}

func inboundFromForm(r *http.Request) service.InboundMessage {
	msg := service.InboundMessage{
		From: r.PostForm.Get("From"),
		Body: r.PostForm.Get("Body"),
	}
	if r.PostForm.Get("NumMedia") != "" && r.PostForm.Get("NumMedia") != "0" {
		msg.MediaURL = r.PostForm.Get("MediaUrl0")
	}
	return msg
}

type simulateRequest struct {
	From     string `json:"From"`
	Body     string `json:"Body"`
	MediaURL string `json:"MediaUrl0"`
	NumMedia int    `json:"NumMedia"`
}

// Simulate прогоняет сообщение через тот же конвейер, что и вебхук,
// без проверки подписи. Используется для ручного тестирования.
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	msg := service.InboundMessage{From: req.From, Body: req.Body}
	if req.NumMedia > 0 {
		msg.MediaURL = req.MediaURL
	}

	h.service.ProcessInbound(r.Context(), msg)

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Simulation completed",
	})
}

type createTenderRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Quantity    int    `json:"quantity"`
	Unit        string `json:"unit"`
	ClosingDate string `json:"closing_date"`
	ClientPhone string `json:"client_phone"`
}

type tenderResponse struct {
	TenderID    string `json:"tender_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Quantity    int    `json:"quantity"`
	Unit        string `json:"unit"`
	ClosingDate string `json:"closing_date"`
	Status      string `json:"status"`
	ClientPhone string `json:"client_phone,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toTenderResponse(t *model.Tender) tenderResponse {
	return tenderResponse{
		TenderID:    t.TenderID,
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Quantity:    t.Quantity,
		Unit:        t.Unit,
		ClosingDate: t.ClosingDate.Format(time.RFC3339),
		Status:      string(t.Status),
		ClientPhone: t.ClientPhone,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   t.UpdatedAt.Format(time.RFC3339),
	}
}

// CreateTender создаёт тендер через HTTP API.
func (h *Handler) CreateTender(w http.ResponseWriter, r *http.Request) {
	var req createTenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	closingDate, err := parseDate(req.ClosingDate)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "closing_date must be YYYY-MM-DD or RFC3339")
		return
	}

	tender, _, err := h.service.CreateTender(r.Context(), service.CreateTenderInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		ClosingDate: closingDate,
		ClientPhone: req.ClientPhone,
	})
	if err != nil {
		h.handleServiceError(w, err, "create tender")
		return
	}

	h.writeJSON(w, http.StatusCreated, toTenderResponse(tender))
}

// ListTenders возвращает список тендеров.
func (h *Handler) ListTenders(w http.ResponseWriter, r *http.Request) {
	tenders, err := h.service.ListTenders(r.Context(), listLimit)
	if err != nil {
		h.handleServiceError(w, err, "list tenders")
		return
	}

	resp := make([]tenderResponse, 0, len(tenders))
	for i := range tenders {
		resp = append(resp, toTenderResponse(&tenders[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetTender возвращает тендер по идентификатору.
func (h *Handler) GetTender(w http.ResponseWriter, r *http.Request) {
	tender, err := h.service.GetTender(r.Context(), pathParam(r, "tenderID"))
	if err != nil {
		h.handleServiceError(w, err, "get tender")
		return
	}

	h.writeJSON(w, http.StatusOK, toTenderResponse(tender))
}

type createBidRequest struct {
	TenderID          string  `json:"tender_id"`
	SupplierPhone     string  `json:"supplier_phone"`
	SupplierName      string  `json:"supplier_name"`
	Price             float64 `json:"price"`
	Currency          string  `json:"currency"`
	DeliveryTime      string  `json:"delivery_time"`
	Availability      string  `json:"availability"`
	Language          string  `json:"language"`
	OriginalMessage   string  `json:"original_message"`
	TranslatedMessage string  `json:"translated_message"`
}

type bidResponse struct {
	BidID             string  `json:"bid_id"`
	TenderID          string  `json:"tender_id"`
	SupplierPhone     string  `json:"supplier_phone"`
	SupplierName      string  `json:"supplier_name,omitempty"`
	Price             float64 `json:"price"`
	Currency          string  `json:"currency"`
	DeliveryTime      string  `json:"delivery_time,omitempty"`
	Availability      string  `json:"availability,omitempty"`
	Language          string  `json:"language,omitempty"`
	OriginalMessage   string  `json:"original_message,omitempty"`
	TranslatedMessage string  `json:"translated_message,omitempty"`
	Status            string  `json:"status"`
	CreatedAt         string  `json:"created_at"`
}

func toBidResponse(b *model.Bid) bidResponse {
	return bidResponse{
		BidID:             b.BidID,
		TenderID:          b.TenderID,
		SupplierPhone:     b.SupplierPhone,
		SupplierName:      b.SupplierName,
		Price:             b.Price,
		Currency:          b.Currency,
		DeliveryTime:      b.DeliveryTime,
		Availability:      b.Availability,
		Language:          b.Language,
		OriginalMessage:   b.OriginalText,
		TranslatedMessage: b.TranslatedText,
		Status:            string(b.Status),
		CreatedAt:         b.CreatedAt.Format(time.RFC3339),
	}
}

// CreateBid создаёт предложение через HTTP API.
func (h *Handler) CreateBid(w http.ResponseWriter, r *http.Request) {
	var req createBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	bid, err := h.service.CreateBid(r.Context(), service.CreateBidInput{
		TenderID:       req.TenderID,
		SupplierPhone:  req.SupplierPhone,
		SupplierName:   req.SupplierName,
		Price:          req.Price,
		Currency:       req.Currency,
		DeliveryTime:   req.DeliveryTime,
		Availability:   req.Availability,
		Language:       req.Language,
		OriginalText:   req.OriginalMessage,
		TranslatedText: req.TranslatedMessage,
	})
	if err != nil {
		h.handleServiceError(w, err, "create bid")
		return
	}

	h.writeJSON(w, http.StatusCreated, toBidResponse(bid))
}

// ListBids возвращает список предложений, при необходимости по одному тендеру.
func (h *Handler) ListBids(w http.ResponseWriter, r *http.Request) {
	bids, err := h.service.ListBids(r.Context(), r.URL.Query().Get("tender_id"), listLimit)
	if err != nil {
		h.handleServiceError(w, err, "list bids")
		return
	}

	resp := make([]bidResponse, 0, len(bids))
	for i := range bids {
		resp = append(resp, toBidResponse(&bids[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetBid возвращает предложение по идентификатору.
func (h *Handler) GetBid(w http.ResponseWriter, r *http.Request) {
	bid, err := h.service.GetBid(r.Context(), pathParam(r, "bidID"))
	if err != nil {
		h.handleServiceError(w, err, "get bid")
		return
	}

	h.writeJSON(w, http.StatusOK, toBidResponse(bid))
}

type selectWinnerRequest struct {
	TenderID string `json:"tender_id"`
	BidID    string `json:"bid_id"`
}

// SelectWinner отмечает предложение победившим — API-эквивалент команды /winner.
func (h *Handler) SelectWinner(w http.ResponseWriter, r *http.Request) {
	var req selectWinnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.TenderID == "" || req.BidID == "" {
		h.writeError(w, http.StatusBadRequest, "tender_id and bid_id are required")
		return
	}

	bid, _, err := h.service.SelectWinner(r.Context(), req.TenderID, req.BidID)
	if err != nil {
		h.handleServiceError(w, err, "select winner")
		return
	}

	h.writeJSON(w, http.StatusOK, toBidResponse(bid))
}

type supplierRequest struct {
	Phone      string   `json:"phone"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Categories []string `json:"categories"`
	Language   string   `json:"language"`
	IsActive   *bool    `json:"is_active"`
}

type supplierResponse struct {
	SupplierID string   `json:"supplier_id"`
	Phone      string   `json:"phone"`
	Name       string   `json:"name,omitempty"`
	Email      string   `json:"email,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Language   string   `json:"language"`
	IsActive   bool     `json:"is_active"`
	CreatedAt  string   `json:"created_at"`
}

// CreateSupplier регистрирует или обновляет поставщика.
func (h *Handler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sup := &model.Supplier{
		Phone:      req.Phone,
		Name:       req.Name,
		Email:      req.Email,
		Categories: req.Categories,
		Language:   req.Language,
		IsActive:   true,
	}
	if req.IsActive != nil {
		sup.IsActive = *req.IsActive
	}

	if err := h.service.CreateSupplier(r.Context(), sup); err != nil {
		h.handleServiceError(w, err, "create supplier")
		return
	}

	h.writeJSON(w, http.StatusCreated, toSupplierResponse(sup))
}

func toSupplierResponse(s *model.Supplier) supplierResponse {
	return supplierResponse{
		SupplierID: s.SupplierID,
		Phone:      s.Phone,
		Name:       s.Name,
		Email:      s.Email,
		Categories: s.Categories,
		Language:   s.Language,
		IsActive:   s.IsActive,
		CreatedAt:  s.CreatedAt.Format(time.RFC3339),
	}
}

// ListSuppliers возвращает всех поставщиков.
func (h *Handler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.service.ListSuppliers(r.Context())
	if err != nil {
		h.handleServiceError(w, err, "list suppliers")
		return
	}

	resp := make([]supplierResponse, 0, len(suppliers))
	for i := range suppliers {
		resp = append(resp, toSupplierResponse(&suppliers[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type notificationResponse struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
	Status    string `json:"status"`
	SentAt    string `json:"sent_at"`
}

// ListNotifications возвращает журнал уведомлений.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.service.ListNotifications(r.Context(), notificationsLimit)
	if err != nil {
		h.handleServiceError(w, err, "list notifications")
		return
	}

	resp := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		resp = append(resp, notificationResponse{
			ID:        n.ID,
			Type:      n.Type,
			Recipient: n.Recipient,
			Message:   n.Message,
			Status:    string(n.Status),
			SentAt:    n.SentAt.Format(time.RFC3339),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// Summary возвращает сводку дашборда.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetSummary(r.Context())
	if err != nil {
		h.handleServiceError(w, err, "dashboard summary")
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

const (
	listLimit          = 10
	notificationsLimit = 50
)

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func pathParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrTenderNotFound):
		h.writeError(w, http.StatusNotFound, "tender not found")
	case errors.Is(err, repository.ErrBidNotFound):
		h.writeError(w, http.StatusNotFound, "bid not found")
	case errors.Is(err, repository.ErrSupplierNotFound):
		h.writeError(w, http.StatusNotFound, "supplier not found")
	default:
		h.logger.Error(op+" error", zap.Error(err))
		msg := "internal server error"
		if !h.production {
			msg = err.Error()
		}
		h.writeError(w, http.StatusInternalServerError, msg)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeTwiML(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(twimlAck)); err != nil {
		h.logger.Error("write twiml response", zap.Error(err))
	}
}
