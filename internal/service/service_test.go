package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/oalbalushi/tendering-system/internal/engine"
	"github.com/oalbalushi/tendering-system/internal/gateway"
	"github.com/oalbalushi/tendering-system/internal/model"
	"github.com/oalbalushi/tendering-system/internal/repository"
)

type sentMessage struct {
	to   string
	body string
}

type stubGateway struct {
	sent    []sentMessage
	failFor map[string]bool
	media   []byte
}

func (g *stubGateway) SendMessage(ctx context.Context, to, body string) (*gateway.Delivery, error) {
	if g.failFor[to] {
		return nil, errors.New("delivery failed")
	}
	g.sent = append(g.sent, sentMessage{to: to, body: body})
	return &gateway.Delivery{SID: "SM_TEST", To: to, Status: model.NotificationStatusSent}, nil
}

func (g *stubGateway) DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	return g.media, nil
}

type stubEngine struct {
	processed *engine.ProcessedMessage
	err       error
}

func (e *stubEngine) ProcessText(ctx context.Context, text string) (*engine.ProcessedMessage, error) {
	return e.processed, e.err
}

func (e *stubEngine) ProcessVoice(ctx context.Context, audio []byte) (*engine.ProcessedMessage, error) {
	return e.processed, e.err
}

type stubRepo struct {
	activeTender    *model.Tender
	activeTenderErr error

	getBid    *model.Bid
	getBidErr error

	getTender    *model.Tender
	getTenderErr error

	suppliers []model.Supplier

	createdBids          []model.Bid
	createdTenders       []model.Tender
	createdNotifications []model.Notification
	statusUpdates        map[string]model.BidStatus
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateTender(ctx context.Context, t *model.Tender) error {
	s.createdTenders = append(s.createdTenders, *t)
	return nil
}

func (s *stubRepo) GetTender(ctx context.Context, tenderID string) (*model.Tender, error) {
	return s.getTender, s.getTenderErr
}

func (s *stubRepo) ListTenders(ctx context.Context, limit int) ([]model.Tender, error) {
	return s.createdTenders, nil
}

func (s *stubRepo) FindActiveTender(ctx context.Context) (*model.Tender, error) {
	if s.activeTenderErr != nil {
		return nil, s.activeTenderErr
	}
	if s.activeTender == nil {
		return nil, repository.ErrTenderNotFound
	}
	return s.activeTender, nil
}

func (s *stubRepo) CreateBid(ctx context.Context, b *model.Bid) error {
	s.createdBids = append(s.createdBids, *b)
	return nil
}

func (s *stubRepo) GetBid(ctx context.Context, bidID string) (*model.Bid, error) {
	return s.getBid, s.getBidErr
}

func (s *stubRepo) ListBids(ctx context.Context, limit int) ([]model.Bid, error) {
	return s.createdBids, nil
}

func (s *stubRepo) FindBidsByTender(ctx context.Context, tenderID string) ([]model.Bid, error) {
	var res []model.Bid
	for _, b := range s.createdBids {
		if b.TenderID == tenderID {
			res = append(res, b)
		}
	}
	return res, nil
}

func (s *stubRepo) UpdateBidStatus(ctx context.Context, bidID string, status model.BidStatus) error {
	if s.statusUpdates == nil {
		s.statusUpdates = map[string]model.BidStatus{}
	}
	s.statusUpdates[bidID] = status
	return nil
}

func (s *stubRepo) CreateSupplier(ctx context.Context, sup *model.Supplier) error { return nil }

func (s *stubRepo) ListSuppliers(ctx context.Context) ([]model.Supplier, error) {
	return s.suppliers, nil
}

func (s *stubRepo) FindActiveSuppliers(ctx context.Context) ([]model.Supplier, error) {
	var res []model.Supplier
	for _, sup := range s.suppliers {
		if sup.IsActive {
			res = append(res, sup)
		}
	}
	return res, nil
}

func (s *stubRepo) CreateNotification(ctx context.Context, n *model.Notification) error {
	s.createdNotifications = append(s.createdNotifications, *n)
	return nil
}

func (s *stubRepo) ListNotifications(ctx context.Context, limit int) ([]model.Notification, error) {
	return s.createdNotifications, nil
}

const testAdmin = "whatsapp:+96890000000"

func newTestService(repo Repository, gw Gateway, eng Engine) *Service {
	return NewService(repo, gw, eng, zap.NewNop(), testAdmin, "OMR")
}

func ptrFloat(v float64) *float64 { return &v }

func TestCreateTender_Validation(t *testing.T) {
	svc := newTestService(&stubRepo{}, &stubGateway{}, &stubEngine{})

	tests := []struct {
		name string
		in   CreateTenderInput
	}{
		{"empty title", CreateTenderInput{Category: "c", Quantity: 1, Unit: "u", ClosingDate: time.Now().Add(time.Hour)}},
		{"zero quantity", CreateTenderInput{Title: "t", Category: "c", Unit: "u", ClosingDate: time.Now().Add(time.Hour)}},
		{"closing in the past", CreateTenderInput{Title: "t", Category: "c", Quantity: 1, Unit: "u", ClosingDate: time.Now().Add(-time.Hour)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.CreateTender(context.Background(), tt.in)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestCreateTender_BroadcastPartialFailure(t *testing.T) {
	repo := &stubRepo{
		suppliers: []model.Supplier{
			{Phone: "whatsapp:+96811111111", IsActive: true},
			{Phone: "whatsapp:+96822222222", IsActive: true},
		},
	}
	gw := &stubGateway{failFor: map[string]bool{"whatsapp:+96822222222": true}}
	svc := newTestService(repo, gw, &stubEngine{})

	tender, results, err := svc.CreateTender(context.Background(), CreateTenderInput{
		Title:       "A4 Paper",
		Category:    "Stationery",
		Quantity:    100,
		Unit:        "packs",
		ClosingDate: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateTender error: %v", err)
	}
	if !strings.HasPrefix(tender.TenderID, "tender-") {
		t.Errorf("TenderID = %q, want tender- prefix", tender.TenderID)
	}

	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	successes := 0
	for _, r := range results {
		if r.Success {
			successes++
		} else if r.Error == "" {
			t.Errorf("failed result for %s has empty error", r.SupplierPhone)
		}
	}
	if successes != 1 {
		t.Fatalf("successes = %d, want 1", successes)
	}

	// Две записи по поставщикам плюс сводная запись рассылки.
	if len(repo.createdNotifications) != 3 {
		t.Fatalf("notifications = %d, want 3", len(repo.createdNotifications))
	}
	summary := repo.createdNotifications[len(repo.createdNotifications)-1]
	if summary.Recipient != "all_suppliers" {
		t.Errorf("summary recipient = %q, want all_suppliers", summary.Recipient)
	}
	if !strings.Contains(summary.Message, "1/2 delivered") {
		t.Errorf("summary message = %q, want 1/2 delivered", summary.Message)
	}
}

func TestProcessInbound_AccessDenied(t *testing.T) {
	repo := &stubRepo{}
	gw := &stubGateway{}
	svc := newTestService(repo, gw, &stubEngine{})

	svc.ProcessInbound(context.Background(), InboundMessage{
		From: "whatsapp:+96811111111",
		Body: "/listtenders",
	})

	if len(gw.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(gw.sent))
	}
	if gw.sent[0].body != msgAccessDenied {
		t.Errorf("reply = %q, want access denied", gw.sent[0].body)
	}
	if len(repo.createdTenders) != 0 || len(repo.createdBids) != 0 {
		t.Fatalf("denied command must not touch tenders or bids")
	}
}

func TestHandleText_NoActiveTender(t *testing.T) {
	repo := &stubRepo{}
	gw := &stubGateway{}
	eng := &stubEngine{processed: &engine.ProcessedMessage{
		Original:   "25 OMR, ready in 2 days",
		Translated: "25 OMR, ready in 2 days",
		Language:   "english",
		Bid:        engine.BidInfo{Price: ptrFloat(25), Currency: "OMR"},
	}}
	svc := newTestService(repo, gw, eng)

	svc.ProcessInbound(context.Background(), InboundMessage{
		From: "whatsapp:+96811111111",
		Body: "25 OMR, ready in 2 days",
	})

	if len(repo.createdBids) != 0 {
		t.Fatalf("bids = %d, want 0 without an active tender", len(repo.createdBids))
	}
	if len(gw.sent) != 1 || gw.sent[0].body != msgTextHelp {
		t.Fatalf("expected a single help reply, got %+v", gw.sent)
	}
}

func TestHandleText_NoPrice(t *testing.T) {
	repo := &stubRepo{
		activeTender: &model.Tender{TenderID: "tender-1", Title: "A4 Paper", ClosingDate: time.Now().Add(time.Hour), Status: model.TenderStatusActive},
	}
	gw := &stubGateway{}
	eng := &stubEngine{processed: &engine.ProcessedMessage{
		Original:   "do you have paper?",
		Translated: "do you have paper?",
		Language:   "english",
		Bid:        engine.BidInfo{Confidence: engine.ConfidenceLow},
	}}
	svc := newTestService(repo, gw, eng)

	svc.ProcessInbound(context.Background(), InboundMessage{
		From: "whatsapp:+96811111111",
		Body: "do you have paper?",
	})

	if len(repo.createdBids) != 0 {
		t.Fatalf("bids = %d, want 0 without a parseable price", len(repo.createdBids))
	}
	if len(gw.sent) != 1 || gw.sent[0].body != msgTextHelp {
		t.Fatalf("expected a single help reply, got %+v", gw.sent)
	}
}

func TestHandleText_SavesBidAndNotifies(t *testing.T) {
	admin := testAdmin
	repo := &stubRepo{
		activeTender: &model.Tender{
			TenderID:    "tender-1",
			Title:       "A4 Paper",
			ClosingDate: time.Now().Add(time.Hour),
			Status:      model.TenderStatusActive,
			ClientPhone: admin,
		},
	}
	gw := &stubGateway{}
	eng := &stubEngine{processed: &engine.ProcessedMessage{
		Original:   "25 OMR, ready in 2 days",
		Translated: "25 OMR, ready in 2 days",
		Language:   "english",
		Bid:        engine.BidInfo{Price: ptrFloat(25), DeliveryTime: "2 days", Confidence: engine.ConfidenceHigh},
	}}
	svc := newTestService(repo, gw, eng)

	supplier := "whatsapp:+96811111111"
	svc.ProcessInbound(context.Background(), InboundMessage{From: supplier, Body: "25 OMR, ready in 2 days"})

	if len(repo.createdBids) != 1 {
		t.Fatalf("bids = %d, want 1", len(repo.createdBids))
	}
	bid := repo.createdBids[0]
	if !strings.HasPrefix(bid.BidID, "bid-") {
		t.Errorf("BidID = %q, want bid- prefix", bid.BidID)
	}
	if bid.Currency != "OMR" {
		t.Errorf("Currency = %q, want default OMR", bid.Currency)
	}
	if bid.Status != model.BidStatusPending {
		t.Errorf("Status = %q, want pending", bid.Status)
	}

	if len(gw.sent) != 2 {
		t.Fatalf("sent = %d, want confirmation and admin notification", len(gw.sent))
	}
	if gw.sent[0].to != supplier {
		t.Errorf("first message to %q, want supplier", gw.sent[0].to)
	}
	if gw.sent[1].to != admin {
		t.Errorf("second message to %q, want tender owner", gw.sent[1].to)
	}
	if !strings.Contains(gw.sent[1].body, "/winner tender-1 "+bid.BidID) {
		t.Errorf("owner notification must include the winner command: %q", gw.sent[1].body)
	}
}

func TestSelectWinner_BidFromAnotherTender(t *testing.T) {
	repo := &stubRepo{
		getBid: &model.Bid{BidID: "bid-1", TenderID: "tender-other"},
	}
	svc := newTestService(repo, &stubGateway{}, &stubEngine{})

	_, _, err := svc.SelectWinner(context.Background(), "tender-1", "bid-1")
	if !errors.Is(err, repository.ErrBidNotFound) {
		t.Fatalf("error = %v, want ErrBidNotFound", err)
	}
	if len(repo.statusUpdates) != 0 {
		t.Fatalf("status updates = %v, want none", repo.statusUpdates)
	}
}

func TestSelectWinner_Success(t *testing.T) {
	supplier := "whatsapp:+96811111111"
	repo := &stubRepo{
		getBid:    &model.Bid{BidID: "bid-1", TenderID: "tender-1", SupplierPhone: supplier, Price: 25, Currency: "OMR", Status: model.BidStatusPending},
		getTender: &model.Tender{TenderID: "tender-1", Title: "A4 Paper", ClosingDate: time.Now().Add(time.Hour), Status: model.TenderStatusActive},
	}
	gw := &stubGateway{}
	svc := newTestService(repo, gw, &stubEngine{})

	bid, tender, err := svc.SelectWinner(context.Background(), "tender-1", "bid-1")
	if err != nil {
		t.Fatalf("SelectWinner error: %v", err)
	}
	if bid.Status != model.BidStatusWinner {
		t.Errorf("bid status = %q, want winner", bid.Status)
	}
	if tender.TenderID != "tender-1" {
		t.Errorf("tender = %q", tender.TenderID)
	}
	if repo.statusUpdates["bid-1"] != model.BidStatusWinner {
		t.Fatalf("status update = %v, want winner", repo.statusUpdates)
	}
	if len(gw.sent) != 1 || gw.sent[0].to != supplier {
		t.Fatalf("winner notification = %+v, want one message to supplier", gw.sent)
	}
}

func TestCreateBid_Validation(t *testing.T) {
	svc := newTestService(&stubRepo{}, &stubGateway{}, &stubEngine{})

	_, err := svc.CreateBid(context.Background(), CreateBidInput{TenderID: "tender-1", SupplierPhone: "whatsapp:+968", Price: 0})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}

	_, err = svc.CreateBid(context.Background(), CreateBidInput{Price: 10})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

// Сквозной сценарий на репозитории в памяти и мок-компонентах: администратор
// создаёт тендер командой, поставщик присылает текстовое предложение,
// администратор выбирает победителя.
func TestEndToEnd_TenderBidWinner(t *testing.T) {
	repo := repository.NewMemoryRepository()
	gw := gateway.NewMockGateway(zap.NewNop())
	eng := engine.NewMockEngine("OMR")
	svc := NewService(repo, gw, eng, zap.NewNop(), testAdmin, "OMR")

	ctx := context.Background()
	closing := time.Now().Add(48 * time.Hour).Format("2006-01-02")

	svc.ProcessInbound(ctx, InboundMessage{
		From: testAdmin,
		Body: `/newtender "100 A4 Paper Packs" "Stationery" "100" "packs" "` + closing + `"`,
	})

	tenders, err := repo.ListTenders(ctx, 10)
	if err != nil {
		t.Fatalf("ListTenders error: %v", err)
	}
	if len(tenders) != 1 {
		t.Fatalf("tenders = %d, want 1", len(tenders))
	}
	tender := tenders[0]

	supplier := "whatsapp:+96811111111"
	svc.ProcessInbound(ctx, InboundMessage{From: supplier, Body: "25 OMR, ready in 2 days"})

	bids, err := repo.FindBidsByTender(ctx, tender.TenderID)
	if err != nil {
		t.Fatalf("FindBidsByTender error: %v", err)
	}
	if len(bids) != 1 {
		t.Fatalf("bids = %d, want 1", len(bids))
	}
	bid := bids[0]
	if bid.Price != 25 || bid.Currency != "OMR" {
		t.Errorf("bid = %v %s, want 25 OMR", bid.Price, bid.Currency)
	}
	if bid.SupplierPhone != supplier {
		t.Errorf("SupplierPhone = %q", bid.SupplierPhone)
	}
	if bid.Status != model.BidStatusPending {
		t.Errorf("Status = %q, want pending", bid.Status)
	}

	svc.ProcessInbound(ctx, InboundMessage{
		From: testAdmin,
		Body: "/winner " + tender.TenderID + " " + bid.BidID,
	})

	got, err := repo.GetBid(ctx, bid.BidID)
	if err != nil {
		t.Fatalf("GetBid error: %v", err)
	}
	if got.Status != model.BidStatusWinner {
		t.Fatalf("bid status = %q, want winner", got.Status)
	}

	notifications, err := repo.ListNotifications(ctx, 100)
	if err != nil {
		t.Fatalf("ListNotifications error: %v", err)
	}
	if len(notifications) == 0 {
		t.Fatalf("expected notification log entries")
	}

	var winnerNotified bool
	for _, n := range notifications {
		if n.Type == model.NotificationWinningBid && n.Recipient == supplier {
			winnerNotified = true
		}
	}
	if !winnerNotified {
		t.Fatalf("winning notification to supplier not found")
	}
}

// Голосовое сообщение проходит тот же конвейер, что и текст: мок-движок
// возвращает фиксированную транскрипцию с ценой.
func TestEndToEnd_VoiceBid(t *testing.T) {
	repo := repository.NewMemoryRepository()
	eng := engine.NewMockEngine("OMR")
	gw := &stubGateway{media: []byte("OggS fake audio")}
	svc := NewService(repo, gw, eng, zap.NewNop(), testAdmin, "OMR")

	ctx := context.Background()

	if _, _, err := svc.CreateTender(ctx, CreateTenderInput{
		Title:       "Office Chairs",
		Category:    "Furniture",
		Quantity:    20,
		Unit:        "pieces",
		ClosingDate: time.Now().Add(24 * time.Hour),
	}); err != nil {
		t.Fatalf("CreateTender error: %v", err)
	}

	supplier := "whatsapp:+96822222222"
	svc.ProcessInbound(ctx, InboundMessage{From: supplier, MediaURL: "https://media.example/ME1"})

	bids, err := repo.ListBids(ctx, 10)
	if err != nil {
		t.Fatalf("ListBids error: %v", err)
	}
	if len(bids) != 1 {
		t.Fatalf("bids = %d, want 1", len(bids))
	}
	if bids[0].OriginalText == "" || bids[0].Price <= 0 {
		t.Fatalf("voice bid not extracted: %+v", bids[0])
	}
}

func TestGetSummary_Counts(t *testing.T) {
	repo := &stubRepo{
		suppliers: []model.Supplier{{Phone: "whatsapp:+968", IsActive: true}},
		createdTenders: []model.Tender{
			{TenderID: "tender-1"},
		},
		createdBids: []model.Bid{
			{BidID: "bid-1"}, {BidID: "bid-2"},
		},
	}
	svc := newTestService(repo, &stubGateway{}, &stubEngine{})

	summary, err := svc.GetSummary(context.Background())
	if err != nil {
		t.Fatalf("GetSummary error: %v", err)
	}
	if summary.Tenders != 1 || summary.Bids != 2 || summary.Suppliers != 1 {
		t.Fatalf("summary = %+v", summary)
	}
}
