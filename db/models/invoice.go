package models

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

const (
	AssetBitcoin = "BITCOIN"
	AssetToken   = "TOKEN"
)

// Offer is one acceptable payment condition for an invoice: an asset class
// plus the minimum amount of that asset that settles the invoice. Token
// offers additionally carry the token identifier.
type Offer struct {
	Asset           string `json:"asset" validate:"required,oneof=BITCOIN TOKEN"`
	Amount          int64  `json:"amount" validate:"required,gt=0"`
	TokenIdentifier string `json:"token_identifier,omitempty"`
}

// Key returns the uniqueness key of the offer within an invoice.
func (o Offer) Key() string {
	if o.Asset == AssetToken {
		return fmt.Sprintf("%s:%s", AssetToken, o.TokenIdentifier)
	}
	return AssetBitcoin
}

// Invoice : Invoice Model
type Invoice struct {
	bun.BaseModel `bun:"table:invoices"`

	ID               string    `json:"id" bun:",pk"`
	Network          string    `json:"network" bun:",notnull"`
	Mnemonic         string    `json:"-" bun:",notnull"`
	Offers           []Offer   `json:"offers" bun:"offers,type:jsonb,notnull"`
	WebhookURL       string    `json:"webhook_url" bun:",nullzero"`
	SweepAddress     string    `json:"sweep_address" bun:",notnull"`
	SparkAddress     string    `json:"spark_address" bun:",notnull"`
	LightningInvoice string    `json:"lightning_invoice" bun:",nullzero"`
	SendingAddress   *string   `json:"sending_address"`
	Paid             bool      `json:"paid" bun:",notnull,default:false"`
	CreatedAt        time.Time `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time `json:"updated_at" bun:",nullzero,notnull,default:current_timestamp"`
	ExpiresAt        time.Time `json:"expires_at" bun:",notnull"`
}

func (i *Invoice) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		i.UpdatedAt = time.Now()
	}
	return nil
}

var _ bun.BeforeAppendModelHook = (*Invoice)(nil)
