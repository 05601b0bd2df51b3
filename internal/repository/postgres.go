// Package repository содержит реализации хранилища данных системы тендеров.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/oalbalushi/tendering-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrTenderNotFound возвращается, если тендер не найден.
var (
	ErrTenderNotFound = errors.New("tender not found")
	// ErrBidNotFound возвращается, если предложение не найдено.
	ErrBidNotFound = errors.New("bid not found")
	// ErrSupplierNotFound возвращается, если поставщик не найден.
	ErrSupplierNotFound = errors.New("supplier not found")
	// ErrTenderExists возвращается при попытке создать тендер с уже занятым идентификатором.
	ErrTenderExists = errors.New("tender already exists")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateTender сохраняет новый тендер.
func (r *PostgresRepository) CreateTender(ctx context.Context, t *model.Tender) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO tenders (tender_id, title, description, category, quantity, unit, closing_date, status, client_phone)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at, updated_at`,
		t.TenderID, t.Title, t.Description, t.Category, t.Quantity, t.Unit,
		t.ClosingDate, string(t.Status), t.ClientPhone,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrTenderExists, t.TenderID)
		}
		return fmt.Errorf("insert tender: %w", err)
	}
	return nil
}

// GetTender возвращает тендер по идентификатору.
func (r *PostgresRepository) GetTender(ctx context.Context, tenderID string) (*model.Tender, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT tender_id, title, description, category, quantity, unit, closing_date, status, COALESCE(client_phone, ''), created_at, updated_at
		 FROM tenders
		 WHERE tender_id = $1`,
		tenderID,
	)
	return scanTender(row)
}

// ListTenders возвращает тендеры, отсортированные от новых к старым.
func (r *PostgresRepository) ListTenders(ctx context.Context, limit int) ([]model.Tender, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT tender_id, title, description, category, quantity, unit, closing_date, status, COALESCE(client_phone, ''), created_at, updated_at
		 FROM tenders
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select tenders: %w", err)
	}
	defer rows.Close()

	var tenders []model.Tender
	for rows.Next() {
		t, err := scanTender(rows)
		if err != nil {
			return nil, err
		}
		tenders = append(tenders, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tenders, nil
}

// FindActiveTender возвращает самый свежий тендер, открытый для приёма предложений.
// Предикат активности вычисляется в запросе, а не читается из хранимого поля.
func (r *PostgresRepository) FindActiveTender(ctx context.Context) (*model.Tender, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT tender_id, title, description, category, quantity, unit, closing_date, status, COALESCE(client_phone, ''), created_at, updated_at
		 FROM tenders
		 WHERE status = $1 AND closing_date > now()
		 ORDER BY created_at DESC
		 LIMIT 1`,
		string(model.TenderStatusActive),
	)
	return scanTender(row)
}

func scanTender(row pgx.Row) (*model.Tender, error) {
	var t model.Tender
	var status string
	err := row.Scan(&t.TenderID, &t.Title, &t.Description, &t.Category, &t.Quantity,
		&t.Unit, &t.ClosingDate, &status, &t.ClientPhone, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenderNotFound
		}
		return nil, fmt.Errorf("scan tender: %w", err)
	}
	t.Status = model.TenderStatus(status)
	return &t, nil
}

// CreateBid сохраняет новое предложение. Тендер должен существовать на момент записи.
func (r *PostgresRepository) CreateBid(ctx context.Context, b *model.Bid) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO bids (bid_id, tender_id, supplier_phone, supplier_name, price, currency,
		                   delivery_time, availability, language, original_message, translated_message, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING created_at`,
		b.BidID, b.TenderID, b.SupplierPhone, b.SupplierName, b.Price, b.Currency,
		b.DeliveryTime, b.Availability, b.Language, b.OriginalText, b.TranslatedText, string(b.Status),
	).Scan(&b.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return fmt.Errorf("%w: %s", ErrTenderNotFound, b.TenderID)
		}
		return fmt.Errorf("insert bid: %w", err)
	}
	return nil
}

// GetBid возвращает предложение по идентификатору.
func (r *PostgresRepository) GetBid(ctx context.Context, bidID string) (*model.Bid, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT bid_id, tender_id, supplier_phone, COALESCE(supplier_name, ''), price, currency,
		        COALESCE(delivery_time, ''), COALESCE(availability, ''), COALESCE(language, ''),
		        COALESCE(original_message, ''), COALESCE(translated_message, ''), status, created_at
		 FROM bids
		 WHERE bid_id = $1`,
		bidID,
	)
	return scanBid(row)
}

// ListBids возвращает предложения, отсортированные от новых к старым.
func (r *PostgresRepository) ListBids(ctx context.Context, limit int) ([]model.Bid, error) {
	return r.queryBids(ctx,
		`SELECT bid_id, tender_id, supplier_phone, COALESCE(supplier_name, ''), price, currency,
		        COALESCE(delivery_time, ''), COALESCE(availability, ''), COALESCE(language, ''),
		        COALESCE(original_message, ''), COALESCE(translated_message, ''), status, created_at
		 FROM bids
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
}

// FindBidsByTender возвращает предложения по конкретному тендеру, от новых к старым.
func (r *PostgresRepository) FindBidsByTender(ctx context.Context, tenderID string) ([]model.Bid, error) {
	return r.queryBids(ctx,
		`SELECT bid_id, tender_id, supplier_phone, COALESCE(supplier_name, ''), price, currency,
		        COALESCE(delivery_time, ''), COALESCE(availability, ''), COALESCE(language, ''),
		        COALESCE(original_message, ''), COALESCE(translated_message, ''), status, created_at
		 FROM bids
		 WHERE tender_id = $1
		 ORDER BY created_at DESC`,
		tenderID,
	)
}

func (r *PostgresRepository) queryBids(ctx context.Context, query string, args ...any) ([]model.Bid, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select bids: %w", err)
	}
	defer rows.Close()

	var bids []model.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return bids, nil
}

func scanBid(row pgx.Row) (*model.Bid, error) {
	var b model.Bid
	var status string
	err := row.Scan(&b.BidID, &b.TenderID, &b.SupplierPhone, &b.SupplierName, &b.Price, &b.Currency,
		&b.DeliveryTime, &b.Availability, &b.Language, &b.OriginalText, &b.TranslatedText,
		&status, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBidNotFound
		}
		return nil, fmt.Errorf("scan bid: %w", err)
	}
	b.Status = model.BidStatus(status)
	return &b, nil
}

// UpdateBidStatus переводит предложение в указанный статус.
func (r *PostgresRepository) UpdateBidStatus(ctx context.Context, bidID string, status model.BidStatus) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE bids SET status = $2 WHERE bid_id = $1`,
		bidID, string(status),
	)
	if err != nil {
		return fmt.Errorf("update bid status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrBidNotFound, bidID)
	}
	return nil
}

// CreateSupplier сохраняет поставщика. Повторная запись по тому же номеру обновляет данные.
func (r *PostgresRepository) CreateSupplier(ctx context.Context, s *model.Supplier) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO suppliers (supplier_id, phone, name, email, categories, language, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (phone) DO UPDATE
		 SET name = EXCLUDED.name, email = EXCLUDED.email, categories = EXCLUDED.categories,
		     language = EXCLUDED.language, is_active = EXCLUDED.is_active
		 RETURNING supplier_id, created_at`,
		s.SupplierID, s.Phone, s.Name, s.Email, s.Categories, s.Language, s.IsActive,
	).Scan(&s.SupplierID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert supplier: %w", err)
	}
	return nil
}

// ListSuppliers возвращает всех поставщиков.
func (r *PostgresRepository) ListSuppliers(ctx context.Context) ([]model.Supplier, error) {
	return r.querySuppliers(ctx,
		`SELECT supplier_id, phone, COALESCE(name, ''), COALESCE(email, ''), COALESCE(categories, '{}'), language, is_active, created_at
		 FROM suppliers
		 ORDER BY created_at`,
	)
}

// FindActiveSuppliers возвращает поставщиков, участвующих в рассылках.
func (r *PostgresRepository) FindActiveSuppliers(ctx context.Context) ([]model.Supplier, error) {
	return r.querySuppliers(ctx,
		`SELECT supplier_id, phone, COALESCE(name, ''), COALESCE(email, ''), COALESCE(categories, '{}'), language, is_active, created_at
		 FROM suppliers
		 WHERE is_active = true
		 ORDER BY created_at`,
	)
}

func (r *PostgresRepository) querySuppliers(ctx context.Context, query string, args ...any) ([]model.Supplier, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []model.Supplier
	for rows.Next() {
		var s model.Supplier
		if err := rows.Scan(&s.SupplierID, &s.Phone, &s.Name, &s.Email, &s.Categories,
			&s.Language, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		suppliers = append(suppliers, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return suppliers, nil
}

// CreateNotification дописывает запись в журнал уведомлений.
func (r *PostgresRepository) CreateNotification(ctx context.Context, n *model.Notification) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO notifications (type, recipient, message, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, sent_at`,
		n.Type, n.Recipient, n.Message, string(n.Status),
	).Scan(&n.ID, &n.SentAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotifications возвращает записи журнала уведомлений, от новых к старым.
func (r *PostgresRepository) ListNotifications(ctx context.Context, limit int) ([]model.Notification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, type, recipient, message, status, sent_at
		 FROM notifications
		 ORDER BY sent_at DESC, id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select notifications: %w", err)
	}
	defer rows.Close()

	var res []model.Notification
	for rows.Next() {
		var n model.Notification
		var status string
		if err := rows.Scan(&n.ID, &n.Type, &n.Recipient, &n.Message, &status, &n.SentAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Status = model.NotificationStatus(status)
		res = append(res, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
