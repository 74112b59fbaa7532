package service

import (
	"context"
	"errors"
	"time"

	"github.com/sparkgate/sparkgate/db/models"
)

// ErrDuplicateOffer is returned when two offers in one request share the same
// (asset, token identifier) key.
var ErrDuplicateOffer = errors.New("Duplicate asset/tokenIdentifier detected")

type CreateInvoiceRequest struct {
	Network      string         `json:"network" validate:"required,oneof=MAINNET REGTEST"`
	WebhookURL   string         `json:"webhook_url" validate:"omitempty,url"`
	SweepAddress string         `json:"sweep_address" validate:"required"`
	Offers       []models.Offer `json:"offers" validate:"required,min=1,dive"`
}

// CreateInvoice allocates a fresh escrow wallet, creates a Lightning receive
// invoice when a BITCOIN offer is present, and persists the pending record.
// The scanner picks it up from there.
func (svc *SparkgateService) CreateInvoice(ctx context.Context, req *CreateInvoiceRequest) (*models.Invoice, error) {
	if err := validateOffers(req.Offers); err != nil {
		return nil, err
	}

	escrowCtx, cancel := context.WithTimeout(ctx, svc.EscrowTimeout())
	defer cancel()
	mnemonic, sparkAddress, err := svc.Escrow.Initialize(escrowCtx, req.Network)
	if err != nil {
		return nil, err
	}

	// Generate a Lightning invoice for the first Bitcoin offer.
	lightningInvoice := ""
	for _, offer := range req.Offers {
		if offer.Asset == models.AssetBitcoin {
			invoiceCtx, cancel := context.WithTimeout(ctx, svc.EscrowTimeout())
			lightningInvoice, err = svc.Escrow.CreateLightningInvoice(invoiceCtx, mnemonic, req.Network, offer.Amount)
			cancel()
			if err != nil {
				return nil, err
			}
			break
		}
	}

	invoice := &models.Invoice{
		Network:          req.Network,
		Mnemonic:         mnemonic,
		Offers:           req.Offers,
		WebhookURL:       req.WebhookURL,
		SweepAddress:     req.SweepAddress,
		SparkAddress:     sparkAddress,
		LightningInvoice: lightningInvoice,
		ExpiresAt:        time.Now().Add(time.Duration(svc.Config.InvoiceExpiry) * time.Second),
	}
	if err := svc.Store.CreateInvoice(ctx, invoice); err != nil {
		return nil, err
	}
	svc.Logger.Infof("Created invoice %s on %s with %d offer(s)", invoice.ID, invoice.Network, len(invoice.Offers))
	return invoice, nil
}

// FindInvoice is the read side of the check operation.
func (svc *SparkgateService) FindInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	return svc.Store.GetInvoice(ctx, id)
}

func validateOffers(offers []models.Offer) error {
	seenKeys := make(map[string]struct{}, len(offers))
	for _, offer := range offers {
		key := offer.Key()
		if _, seen := seenKeys[key]; seen {
			return ErrDuplicateOffer
		}
		seenKeys[key] = struct{}{}
	}
	return nil
}
