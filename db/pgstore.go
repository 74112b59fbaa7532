package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/sparkgate/sparkgate/db/models"
)

// PostgresStore is the durable InvoiceStore backend. The pending->paid
// transition is guarded by a conditional UPDATE so overlapping scan passes
// cannot both observe the transition.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	now := time.Now()
	invoice.CreatedAt = now
	invoice.UpdatedAt = now
	invoice.Paid = false
	invoice.SendingAddress = nil

	_, err := s.db.NewInsert().Model(invoice).Exec(ctx)
	if err != nil {
		return storageError(err)
	}
	return nil
}

func (s *PostgresStore) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.NewSelect().Model(&invoice).Where("invoice.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storageError(err)
	}
	return &invoice, nil
}

func (s *PostgresStore) MarkPaid(ctx context.Context, id string, sendingAddress string) (bool, error) {
	var sender *string
	if sendingAddress != "" {
		sender = &sendingAddress
	}
	// The paid = false guard makes this a compare-and-swap: only one caller
	// ever sees a row affected for a given id.
	res, err := s.db.NewUpdate().Model((*models.Invoice)(nil)).
		Set("paid = TRUE").
		Set("sending_address = ?", sender).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("paid = FALSE").
		Exec(ctx)
	if err != nil {
		return false, storageError(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, storageError(err)
	}
	return rows == 1, nil
}

func (s *PostgresStore) ListPending(ctx context.Context, now time.Time) ([]models.Invoice, error) {
	invoices := []models.Invoice{}
	err := s.db.NewSelect().Model(&invoices).
		Where("paid = FALSE").
		Where("expires_at > ?", now).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	return invoices, nil
}

var _ InvoiceStore = (*PostgresStore)(nil)
