package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oalbalushi/tendering-system/internal/model"
)

func newTestTender(id string, closing time.Time) *model.Tender {
	return &model.Tender{
		TenderID:    id,
		Title:       "A4 Paper",
		Description: "A4 Paper",
		Category:    "Stationery",
		Quantity:    100,
		Unit:        "packs",
		ClosingDate: closing,
		Status:      model.TenderStatusActive,
	}
}

func TestMemoryRepository_SeededSuppliers(t *testing.T) {
	repo := NewMemoryRepository()

	suppliers, err := repo.ListSuppliers(context.Background())
	if err != nil {
		t.Fatalf("ListSuppliers error: %v", err)
	}
	if len(suppliers) != 3 {
		t.Fatalf("seeded suppliers = %d, want 3", len(suppliers))
	}

	active, err := repo.FindActiveSuppliers(context.Background())
	if err != nil {
		t.Fatalf("FindActiveSuppliers error: %v", err)
	}
	if len(active) != 3 {
		t.Fatalf("active suppliers = %d, want 3", len(active))
	}
}

func TestMemoryRepository_TenderLifecycle(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	tender := newTestTender("tender-1", time.Now().Add(24*time.Hour))
	if err := repo.CreateTender(ctx, tender); err != nil {
		t.Fatalf("CreateTender error: %v", err)
	}

	if err := repo.CreateTender(ctx, newTestTender("tender-1", time.Now().Add(time.Hour))); !errors.Is(err, ErrTenderExists) {
		t.Fatalf("duplicate CreateTender error = %v, want ErrTenderExists", err)
	}

	got, err := repo.GetTender(ctx, "tender-1")
	if err != nil {
		t.Fatalf("GetTender error: %v", err)
	}
	if got.Title != "A4 Paper" {
		t.Errorf("Title = %q", got.Title)
	}

	if _, err := repo.GetTender(ctx, "tender-missing"); !errors.Is(err, ErrTenderNotFound) {
		t.Fatalf("GetTender(missing) error = %v, want ErrTenderNotFound", err)
	}
}

func TestMemoryRepository_FindActiveTenderNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if _, err := repo.FindActiveTender(ctx); !errors.Is(err, ErrTenderNotFound) {
		t.Fatalf("FindActiveTender on empty store error = %v, want ErrTenderNotFound", err)
	}

	old := newTestTender("tender-old", time.Now().Add(time.Hour))
	fresh := newTestTender("tender-fresh", time.Now().Add(2*time.Hour))
	closed := newTestTender("tender-closed", time.Now().Add(3*time.Hour))
	closed.Status = model.TenderStatusClosed

	for _, tn := range []*model.Tender{old, fresh, closed} {
		if err := repo.CreateTender(ctx, tn); err != nil {
			t.Fatalf("CreateTender(%s) error: %v", tn.TenderID, err)
		}
	}

	active, err := repo.FindActiveTender(ctx)
	if err != nil {
		t.Fatalf("FindActiveTender error: %v", err)
	}
	if active.TenderID != "tender-fresh" {
		t.Fatalf("active tender = %s, want tender-fresh", active.TenderID)
	}
}

func TestMemoryRepository_ExpiredTenderNotActive(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	expired := newTestTender("tender-expired", time.Now().Add(-time.Hour))
	if err := repo.CreateTender(ctx, expired); err != nil {
		t.Fatalf("CreateTender error: %v", err)
	}

	if _, err := repo.FindActiveTender(ctx); !errors.Is(err, ErrTenderNotFound) {
		t.Fatalf("FindActiveTender error = %v, want ErrTenderNotFound", err)
	}
}

func TestMemoryRepository_BidRequiresTender(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	bid := &model.Bid{BidID: "bid-1", TenderID: "tender-missing", SupplierPhone: "whatsapp:+968", Price: 25, Currency: "OMR"}
	if err := repo.CreateBid(ctx, bid); !errors.Is(err, ErrTenderNotFound) {
		t.Fatalf("CreateBid error = %v, want ErrTenderNotFound", err)
	}
}

func TestMemoryRepository_BidsByTender(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if err := repo.CreateTender(ctx, newTestTender("tender-1", time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("CreateTender error: %v", err)
	}
	if err := repo.CreateTender(ctx, newTestTender("tender-2", time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("CreateTender error: %v", err)
	}

	bids := []*model.Bid{
		{BidID: "bid-1", TenderID: "tender-1", SupplierPhone: "whatsapp:+9681", Price: 25, Currency: "OMR", Status: model.BidStatusPending},
		{BidID: "bid-2", TenderID: "tender-2", SupplierPhone: "whatsapp:+9682", Price: 30, Currency: "OMR", Status: model.BidStatusPending},
		{BidID: "bid-3", TenderID: "tender-1", SupplierPhone: "whatsapp:+9683", Price: 20, Currency: "OMR", Status: model.BidStatusPending},
	}
	for _, b := range bids {
		if err := repo.CreateBid(ctx, b); err != nil {
			t.Fatalf("CreateBid(%s) error: %v", b.BidID, err)
		}
	}

	res, err := repo.FindBidsByTender(ctx, "tender-1")
	if err != nil {
		t.Fatalf("FindBidsByTender error: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("bids = %d, want 2", len(res))
	}
	if res[0].BidID != "bid-3" || res[1].BidID != "bid-1" {
		t.Fatalf("order = %s, %s, want bid-3, bid-1", res[0].BidID, res[1].BidID)
	}
}

func TestMemoryRepository_UpdateBidStatus(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if err := repo.CreateTender(ctx, newTestTender("tender-1", time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("CreateTender error: %v", err)
	}
	bid := &model.Bid{BidID: "bid-1", TenderID: "tender-1", SupplierPhone: "whatsapp:+968", Price: 25, Currency: "OMR", Status: model.BidStatusPending}
	if err := repo.CreateBid(ctx, bid); err != nil {
		t.Fatalf("CreateBid error: %v", err)
	}

	if err := repo.UpdateBidStatus(ctx, "bid-1", model.BidStatusWinner); err != nil {
		t.Fatalf("UpdateBidStatus error: %v", err)
	}

	got, err := repo.GetBid(ctx, "bid-1")
	if err != nil {
		t.Fatalf("GetBid error: %v", err)
	}
	if got.Status != model.BidStatusWinner {
		t.Fatalf("Status = %q, want %q", got.Status, model.BidStatusWinner)
	}

	if err := repo.UpdateBidStatus(ctx, "bid-missing", model.BidStatusWinner); !errors.Is(err, ErrBidNotFound) {
		t.Fatalf("UpdateBidStatus(missing) error = %v, want ErrBidNotFound", err)
	}
}

func TestMemoryRepository_SupplierUpsert(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	sup := &model.Supplier{SupplierID: "supplier-x", Phone: "whatsapp:+96844444444", Name: "New Supplier", Language: "English", IsActive: true}
	if err := repo.CreateSupplier(ctx, sup); err != nil {
		t.Fatalf("CreateSupplier error: %v", err)
	}

	update := &model.Supplier{SupplierID: "supplier-y", Phone: "whatsapp:+96844444444", Name: "Renamed Supplier", Language: "Arabic", IsActive: true}
	if err := repo.CreateSupplier(ctx, update); err != nil {
		t.Fatalf("CreateSupplier (update) error: %v", err)
	}
	if update.SupplierID != "supplier-x" {
		t.Errorf("upsert must keep original SupplierID, got %q", update.SupplierID)
	}

	suppliers, err := repo.ListSuppliers(ctx)
	if err != nil {
		t.Fatalf("ListSuppliers error: %v", err)
	}
	if len(suppliers) != 4 {
		t.Fatalf("suppliers = %d, want 4", len(suppliers))
	}

	var found *model.Supplier
	for i := range suppliers {
		if suppliers[i].Phone == "whatsapp:+96844444444" {
			found = &suppliers[i]
		}
	}
	if found == nil || found.Name != "Renamed Supplier" {
		t.Fatalf("updated supplier not found: %+v", found)
	}
}

func TestMemoryRepository_NotificationsNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for _, msg := range []string{"first", "second", "third"} {
		n := &model.Notification{Type: model.NotificationReply, Recipient: "whatsapp:+968", Message: msg, Status: model.NotificationStatusMocked}
		if err := repo.CreateNotification(ctx, n); err != nil {
			t.Fatalf("CreateNotification error: %v", err)
		}
	}

	res, err := repo.ListNotifications(ctx, 2)
	if err != nil {
		t.Fatalf("ListNotifications error: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("notifications = %d, want 2", len(res))
	}
	if res[0].Message != "third" || res[1].Message != "second" {
		t.Fatalf("order = %q, %q, want third, second", res[0].Message, res[1].Message)
	}
	if res[0].ID <= res[1].ID {
		t.Errorf("IDs must be increasing with insertion order: %d, %d", res[0].ID, res[1].ID)
	}
}
