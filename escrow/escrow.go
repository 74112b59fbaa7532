// Package escrow models the Spark wallet capability consumed by the gateway.
// The settlement-network SDK itself lives behind the bridge daemon; this
// package only defines the narrow interface the gateway needs and an
// isolation layer that keeps capability instability away from the scanner.
package escrow

import (
	"context"
	"fmt"

	"github.com/sparkgate/sparkgate/db/models"
)

// TokenBalance is the escrow's holding of one token asset.
type TokenBalance struct {
	TokenIdentifier string `json:"token_identifier"`
	Balance         int64  `json:"balance"`
}

// Balance is the full holdings of an escrow wallet.
type Balance struct {
	Address string         `json:"address"`
	Sats    int64          `json:"sats"`
	Tokens  []TokenBalance `json:"tokens"`
}

// DepositUtxo is one on-chain output sitting on a wallet's static deposit
// address.
type DepositUtxo struct {
	TxHash        string `json:"tx_hash"`
	Vout          int64  `json:"vout"`
	AmountSats    int64  `json:"amount_sats"`
	Confirmations int64  `json:"confirmations"`
	Claimed       bool   `json:"claimed"`
}

// DepositClaim is the result of claiming one static deposit: the gross
// deposit, the fee taken, and the net amount credited to the wallet.
type DepositClaim struct {
	TxHash            string `json:"tx_hash"`
	Vout              int64  `json:"vout"`
	DepositAmountSats int64  `json:"deposit_amount_sats"`
	FeeSats           int64  `json:"fee_sats"`
	ClaimedAmountSats int64  `json:"claimed_amount_sats"`
}

// DepositClaims aggregates a claim-everything sweep of a deposit address.
type DepositClaims struct {
	Claims           []DepositClaim `json:"claims"`
	TotalClaimedSats int64          `json:"total_claimed_sats"`
}

// CoopExitRequest describes a cooperative exit to Bitcoin L1. ExitSpeed is
// fast, medium or slow and trades confirmation time against fees.
type CoopExitRequest struct {
	OnchainAddress                string
	AmountSats                    int64
	ExitSpeed                     string
	DeductFeeFromWithdrawalAmount bool
}

// CoopExitResult is the accepted withdrawal, identified for later tracking.
type CoopExitResult struct {
	ID             string `json:"id"`
	OnchainAddress string `json:"onchain_address"`
	AmountSats     int64  `json:"amount_sats"`
	FeeSats        int64  `json:"fee_sats"`
	ExitSpeed      string `json:"exit_speed"`
	Status         string `json:"status"`
}

// ThirdPartyInvoiceRequest creates a Lightning invoice paying out to another
// Spark user, identified by pubkey; no wallet mnemonic is involved.
type ThirdPartyInvoiceRequest struct {
	ReceiverIdentityPubkey string
	AmountSats             int64
	Memo                   string
	ExpirySeconds          int64
}

// OfferStatus is the authoritative answer to "has any offer been satisfied".
// Offers are evaluated in list order; the first satisfied offer settles the
// invoice. SendingAddress is empty when the payer could not be identified.
type OfferStatus struct {
	Paid           bool   `json:"paid"`
	SendingAddress string `json:"sending_address"`
}

// Capability is the escrow wallet contract. Every call is bounded by its
// context; implementations open and tear down the underlying wallet session
// per invocation, never sharing one across invoices or scan cycles.
type Capability interface {
	// Initialize allocates a fresh wallet and returns its secret mnemonic and
	// escrow address.
	Initialize(ctx context.Context, network string) (mnemonic string, address string, err error)
	CreateLightningInvoice(ctx context.Context, mnemonic, network string, amountSats int64) (string, error)
	GetBalance(ctx context.Context, mnemonic, network string) (*Balance, error)
	Transfer(ctx context.Context, mnemonic, network string, amountSats int64, receiverAddress string) (string, error)
	TransferTokens(ctx context.Context, mnemonic, network, tokenIdentifier string, amount int64, receiverAddress string) (string, error)
	PayLightningInvoice(ctx context.Context, mnemonic, network, invoice string, maxFeeSats int64) (string, error)
	// CreateThirdPartyLightningInvoice needs no mnemonic; the invoice pays
	// out to the identified Spark user directly.
	CreateThirdPartyLightningInvoice(ctx context.Context, network string, req ThirdPartyInvoiceRequest) (string, error)
	GetStaticDepositAddress(ctx context.Context, mnemonic, network string) (string, error)
	GetDepositUtxos(ctx context.Context, mnemonic, network, depositAddress string, includeClaimed bool) ([]DepositUtxo, error)
	ClaimStaticDeposit(ctx context.Context, mnemonic, network, txHash string, vout int64) (*DepositClaim, error)
	ClaimAllStaticDeposits(ctx context.Context, mnemonic, network string) (*DepositClaims, error)
	CoopExit(ctx context.Context, mnemonic, network string, req CoopExitRequest) (*CoopExitResult, error)
	// CheckOffers evaluates every offer against actual received funds.
	CheckOffers(ctx context.Context, mnemonic, network string, offers []models.Offer) (*OfferStatus, error)
	// SweepAll transfers every held asset to the receiver, not only the asset
	// that satisfied an offer.
	SweepAll(ctx context.Context, mnemonic, network, receiverAddress string) error
}

// CapabilityError wraps any escrow-layer failure. Client-facing operations
// surface it as a 400 with the diagnostic text; the scanner logs it and
// retries the invoice next cycle.
type CapabilityError struct {
	Op  string
	Err error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("escrow %s: %v", e.Op, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CapabilityError{Op: op, Err: err}
}
