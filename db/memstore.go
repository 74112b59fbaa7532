package db

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sparkgate/sparkgate/db/models"
)

// MemoryStore is the volatile InvoiceStore backend used for development and
// tests. It keeps a separate pending index that ListPending opportunistically
// prunes; the primary map is never pruned so point lookups keep working for
// paid and expired invoices.
type MemoryStore struct {
	mu       sync.RWMutex
	invoices map[string]*models.Invoice
	pending  map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		invoices: make(map[string]*models.Invoice),
		pending:  make(map[string]struct{}),
	}
}

func (s *MemoryStore) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	now := time.Now()
	invoice.CreatedAt = now
	invoice.UpdatedAt = now
	invoice.Paid = false
	invoice.SendingAddress = nil

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *invoice
	s.invoices[invoice.ID] = &stored
	s.pending[invoice.ID] = struct{}{}
	return nil
}

func (s *MemoryStore) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	invoice, ok := s.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *invoice
	return &copied, nil
}

func (s *MemoryStore) MarkPaid(ctx context.Context, id string, sendingAddress string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	invoice, ok := s.invoices[id]
	if !ok {
		return false, nil
	}
	if invoice.Paid {
		return false, nil
	}
	invoice.Paid = true
	if sendingAddress != "" {
		sender := sendingAddress
		invoice.SendingAddress = &sender
	}
	invoice.UpdatedAt = time.Now()
	delete(s.pending, id)
	return true, nil
}

func (s *MemoryStore) ListPending(ctx context.Context, now time.Time) ([]models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []models.Invoice{}
	for id := range s.pending {
		invoice, ok := s.invoices[id]
		if !ok || invoice.Paid || !invoice.ExpiresAt.After(now) {
			delete(s.pending, id)
			continue
		}
		result = append(result, *invoice)
	}
	return result, nil
}

var _ InvoiceStore = (*MemoryStore)(nil)
