package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/sparkgate/sparkgate/db/models"
	"github.com/sparkgate/sparkgate/oracle"
)

// StartInvoiceScanner runs the settlement reconciliation loop until ctx is
// done. Each pass re-reads the pending set from the store; the scanner keeps
// no per-invoice state of its own, so overlapping passes and process restarts
// converge on the store's paid flag.
func (svc *SparkgateService) StartInvoiceScanner(ctx context.Context) {
	interval := time.Duration(svc.Config.ScanInterval) * time.Second
	svc.Logger.Infof("Starting invoice scanner with %s interval", interval)
	for {
		select {
		case <-ctx.Done():
			svc.Logger.Info("Invoice scanner stopped")
			return
		default:
		}
		svc.scanPendingInvoices(ctx)
		select {
		case <-ctx.Done():
			svc.Logger.Info("Invoice scanner stopped")
			return
		case <-time.After(interval):
		}
	}
}

func (svc *SparkgateService) scanPendingInvoices(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			svc.Logger.Errorf("Recovered scan pass panic: %v", r)
			sentry.CaptureException(fmt.Errorf("scan pass panic: %v", r))
		}
	}()

	invoices, err := svc.Store.ListPending(ctx, time.Now())
	if err != nil {
		svc.Logger.Errorf("Error listing pending invoices: %v", err)
		sentry.CaptureException(err)
		return
	}
	if len(invoices) == 0 {
		return
	}
	svc.Logger.Debugf("Scanning %d pending invoice(s)", len(invoices))

	semaphore := make(chan struct{}, svc.Config.ScanConcurrency)
	var wg sync.WaitGroup
	for i := range invoices {
		invoice := invoices[i]
		wg.Add(1)
		semaphore <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-semaphore }()
			if err := svc.settleInvoice(ctx, &invoice); err != nil {
				svc.Logger.Errorf("Error while scanning invoice %s: %v", invoice.ID, err)
				sentry.CaptureException(err)
			}
		}()
	}
	wg.Wait()
}

// settleInvoice evaluates one invoice: oracle pre-filter, authoritative offer
// check, then the mark-paid / sweep / notify saga. Returning nil means "leave
// pending, revisit next cycle".
func (svc *SparkgateService) settleInvoice(ctx context.Context, invoice *models.Invoice) error {
	start := time.Now()
	count, err := svc.Oracle.TransactionCount(ctx, invoice.SparkAddress, invoice.Network)
	svc.Timing.Record("scanner.prefilter", time.Since(start))
	if err != nil {
		if errors.Is(err, oracle.ErrInconclusive) {
			svc.Logger.Warnf("Oracle inconclusive for invoice %s, retrying next cycle: %v", invoice.ID, err)
			svc.oracleBackoff()
			return nil
		}
		return err
	}
	if count == 0 {
		// no activity on the escrow address yet
		svc.oracleBackoff()
		return nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, svc.EscrowTimeout())
	defer cancel()
	start = time.Now()
	status, err := svc.Escrow.CheckOffers(checkCtx, invoice.Mnemonic, invoice.Network, invoice.Offers)
	svc.Timing.Record("scanner.check_offers", time.Since(start))
	if err != nil {
		return err
	}
	if !status.Paid {
		return nil
	}

	settled, err := svc.Store.MarkPaid(ctx, invoice.ID, status.SendingAddress)
	if err != nil {
		return err
	}
	if !settled {
		// another pass got here first; it owns the sweep and the webhook
		svc.Logger.Debugf("Invoice %s already settled by a concurrent pass", invoice.ID)
		return nil
	}
	svc.Logger.Infof("Invoice %s settled, sweeping escrow to %s", invoice.ID, invoice.SweepAddress)
	if status.SendingAddress != "" {
		invoice.SendingAddress = &status.SendingAddress
	}
	invoice.Paid = true
	invoice.UpdatedAt = time.Now()

	sweepCtx, cancel := context.WithTimeout(ctx, svc.EscrowTimeout())
	defer cancel()
	err = svc.Timing.Track("scanner.sweep", func() error {
		return svc.Escrow.SweepAll(sweepCtx, invoice.Mnemonic, invoice.Network, invoice.SweepAddress)
	})
	if err != nil {
		// settlement stands; the funds stay in escrow until swept manually
		return fmt.Errorf("sweep failed for settled invoice %s: %w", invoice.ID, err)
	}

	if svc.RabbitMQPublisher != nil {
		if err := svc.RabbitMQPublisher.PublishInvoicePaid(ctx, invoice); err != nil {
			svc.Logger.Errorf("Error publishing settled invoice %s: %v", invoice.ID, err)
		}
	}

	if invoice.WebhookURL != "" {
		svc.postToWebhook(invoice)
	}
	return nil
}

func (svc *SparkgateService) oracleBackoff() {
	time.Sleep(time.Duration(svc.Config.OracleBackoff) * time.Millisecond)
}
