package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oalbalushi/tendering-system/internal/model"
)

// MemoryRepository хранит данные в памяти процесса. Используется в демо-режиме,
// когда DATABASE_URI не задан. Состояние не переживает перезапуск.
type MemoryRepository struct {
	mu            sync.RWMutex
	tenders       []model.Tender
	bids          []model.Bid
	suppliers     []model.Supplier
	notifications []model.Notification
	nextNotifID   int64
}

// NewMemoryRepository создаёт репозиторий в памяти с тремя демо-поставщиками,
// как в начальных данных SQL-миграций.
func NewMemoryRepository() *MemoryRepository {
	now := time.Now()
	return &MemoryRepository{
		suppliers: []model.Supplier{
			{SupplierID: "supplier-demo-1", Phone: "whatsapp:+96811111111", Name: "Supplier One", Language: "English", IsActive: true, CreatedAt: now},
			{SupplierID: "supplier-demo-2", Phone: "whatsapp:+96822222222", Name: "Supplier Two", Language: "Arabic", IsActive: true, CreatedAt: now},
			{SupplierID: "supplier-demo-3", Phone: "whatsapp:+96833333333", Name: "Supplier Three", Language: "Hindi", IsActive: true, CreatedAt: now},
		},
		nextNotifID: 1,
	}
}

// Close ничего не делает: репозиторию в памяти нечего освобождать.
func (r *MemoryRepository) Close() error {
	return nil
}

// CreateTender сохраняет новый тендер.
func (r *MemoryRepository) CreateTender(_ context.Context, t *model.Tender) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.tenders {
		if r.tenders[i].TenderID == t.TenderID {
			return fmt.Errorf("%w: %s", ErrTenderExists, t.TenderID)
		}
	}

	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	r.tenders = append(r.tenders, *t)
	return nil
}

// GetTender возвращает тендер по идентификатору.
func (r *MemoryRepository) GetTender(_ context.Context, tenderID string) (*model.Tender, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.tenders {
		if r.tenders[i].TenderID == tenderID {
			t := r.tenders[i]
			return &t, nil
		}
	}
	return nil, ErrTenderNotFound
}

// ListTenders возвращает тендеры, отсортированные от новых к старым.
func (r *MemoryRepository) ListTenders(_ context.Context, limit int) ([]model.Tender, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var res []model.Tender
	for i := len(r.tenders) - 1; i >= 0 && len(res) < limit; i-- {
		res = append(res, r.tenders[i])
	}
	return res, nil
}

// FindActiveTender возвращает самый свежий тендер, открытый для приёма предложений.
func (r *MemoryRepository) FindActiveTender(_ context.Context) (*model.Tender, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	for i := len(r.tenders) - 1; i >= 0; i-- {
		if r.tenders[i].IsActive(now) {
			t := r.tenders[i]
			return &t, nil
		}
	}
	return nil, ErrTenderNotFound
}

// CreateBid сохраняет новое предложение. Тендер должен существовать на момент записи.
func (r *MemoryRepository) CreateBid(_ context.Context, b *model.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := false
	for i := range r.tenders {
		if r.tenders[i].TenderID == b.TenderID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrTenderNotFound, b.TenderID)
	}

	b.CreatedAt = time.Now()
	r.bids = append(r.bids, *b)
	return nil
}

// GetBid возвращает предложение по идентификатору.
func (r *MemoryRepository) GetBid(_ context.Context, bidID string) (*model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.bids {
		if r.bids[i].BidID == bidID {
			b := r.bids[i]
			return &b, nil
		}
	}
	return nil, ErrBidNotFound
}

// ListBids возвращает предложения, отсортированные от новых к старым.
func (r *MemoryRepository) ListBids(_ context.Context, limit int) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var res []model.Bid
	for i := len(r.bids) - 1; i >= 0 && len(res) < limit; i-- {
		res = append(res, r.bids[i])
	}
	return res, nil
}

// FindBidsByTender возвращает предложения по конкретному тендеру, от новых к старым.
func (r *MemoryRepository) FindBidsByTender(_ context.Context, tenderID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var res []model.Bid
	for i := len(r.bids) - 1; i >= 0; i-- {
		if r.bids[i].TenderID == tenderID {
			res = append(res, r.bids[i])
		}
	}
	return res, nil
}

// UpdateBidStatus переводит предложение в указанный статус.
func (r *MemoryRepository) UpdateBidStatus(_ context.Context, bidID string, status model.BidStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.bids {
		if r.bids[i].BidID == bidID {
			r.bids[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrBidNotFound, bidID)
}

// CreateSupplier сохраняет поставщика. Повторная запись по тому же номеру обновляет данные.
func (r *MemoryRepository) CreateSupplier(_ context.Context, s *model.Supplier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.suppliers {
		if r.suppliers[i].Phone == s.Phone {
			s.SupplierID = r.suppliers[i].SupplierID
			s.CreatedAt = r.suppliers[i].CreatedAt
			r.suppliers[i] = *s
			return nil
		}
	}

	s.CreatedAt = time.Now()
	r.suppliers = append(r.suppliers, *s)
	return nil
}

// ListSuppliers возвращает всех поставщиков.
func (r *MemoryRepository) ListSuppliers(_ context.Context) ([]model.Supplier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]model.Supplier, len(r.suppliers))
	copy(res, r.suppliers)
	return res, nil
}

// FindActiveSuppliers возвращает поставщиков, участвующих в рассылках.
func (r *MemoryRepository) FindActiveSuppliers(_ context.Context) ([]model.Supplier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var res []model.Supplier
	for _, s := range r.suppliers {
		if s.IsActive {
			res = append(res, s)
		}
	}
	return res, nil
}

// CreateNotification дописывает запись в журнал уведомлений.
func (r *MemoryRepository) CreateNotification(_ context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n.ID = r.nextNotifID
	r.nextNotifID++
	n.SentAt = time.Now()
	r.notifications = append(r.notifications, *n)
	return nil
}

// ListNotifications возвращает записи журнала уведомлений, от новых к старым.
func (r *MemoryRepository) ListNotifications(_ context.Context, limit int) ([]model.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var res []model.Notification
	for i := len(r.notifications) - 1; i >= 0 && len(res) < limit; i-- {
		res = append(res, r.notifications[i])
	}
	return res, nil
}
