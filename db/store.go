package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sparkgate/sparkgate/db/models"
)

// ErrNotFound is returned by point lookups for unknown invoice ids.
var ErrNotFound = errors.New("invoice not found")

// ErrStorage wraps failures of the persistence backend itself. The scanner
// treats these as "skip this invoice, continue others".
var ErrStorage = errors.New("storage unavailable")

// InvoiceStore is the persistence contract for invoices. Both backends
// (Postgres and in-process memory) satisfy it; the API layer and the scanner
// are agnostic to which one is active.
type InvoiceStore interface {
	// CreateInvoice persists a new invoice. An id is allocated when none is
	// supplied, created/updated timestamps are stamped and paid starts false.
	CreateInvoice(ctx context.Context, invoice *models.Invoice) error
	// GetInvoice is a point lookup with no side effects. Expired and paid
	// invoices remain reachable here indefinitely.
	GetInvoice(ctx context.Context, id string) (*models.Invoice, error)
	// MarkPaid flips paid to true and records the sending address in the same
	// transition. It reports true only for the caller that performed the
	// pending->paid transition; callers that find the invoice already paid or
	// missing get false and must not proceed to sweep or notify.
	MarkPaid(ctx context.Context, id string, sendingAddress string) (bool, error)
	// ListPending returns every invoice with paid=false and expires_at
	// strictly after now.
	ListPending(ctx context.Context, now time.Time) ([]models.Invoice, error)
}

func storageError(err error) error {
	return fmt.Errorf("%w: %v", ErrStorage, err)
}
