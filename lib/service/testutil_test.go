package service

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"github.com/ziflex/lecho/v3"

	"github.com/sparkgate/sparkgate/db"
	"github.com/sparkgate/sparkgate/db/models"
	"github.com/sparkgate/sparkgate/escrow"
	"github.com/sparkgate/sparkgate/lib/idempotency"
	"github.com/sparkgate/sparkgate/lib/security"
	"github.com/sparkgate/sparkgate/lib/timing"
	"github.com/sparkgate/sparkgate/oracle"
)

// fakeEscrow scripts the capability per test and counts side effects.
type fakeEscrow struct {
	offerStatus    *escrow.OfferStatus
	offerErr       error
	initializeErr  error
	sweepErr       error
	checkCalls     atomic.Int64
	sweepCalls     atomic.Int64
	lastSweepTo    atomic.Value
	transfersSats  atomic.Int64
	lightningCalls atomic.Int64
}

func (f *fakeEscrow) Initialize(ctx context.Context, network string) (string, string, error) {
	if f.initializeErr != nil {
		return "", "", f.initializeErr
	}
	return "test mnemonic words", "sp1escrowaddress", nil
}

func (f *fakeEscrow) CreateLightningInvoice(ctx context.Context, mnemonic, network string, amountSats int64) (string, error) {
	f.lightningCalls.Add(1)
	return "lnbc1000n1fake", nil
}

func (f *fakeEscrow) GetBalance(ctx context.Context, mnemonic, network string) (*escrow.Balance, error) {
	return &escrow.Balance{Address: "sp1escrowaddress", Sats: 1000}, nil
}

func (f *fakeEscrow) Transfer(ctx context.Context, mnemonic, network string, amountSats int64, receiverAddress string) (string, error) {
	f.transfersSats.Add(amountSats)
	return "tx-transfer", nil
}

func (f *fakeEscrow) TransferTokens(ctx context.Context, mnemonic, network, tokenIdentifier string, amount int64, receiverAddress string) (string, error) {
	return "tx-token", nil
}

func (f *fakeEscrow) PayLightningInvoice(ctx context.Context, mnemonic, network, invoice string, maxFeeSats int64) (string, error) {
	return "tx-pay", nil
}

func (f *fakeEscrow) CreateThirdPartyLightningInvoice(ctx context.Context, network string, req escrow.ThirdPartyInvoiceRequest) (string, error) {
	return "lnbc2000n1fake", nil
}

func (f *fakeEscrow) GetStaticDepositAddress(ctx context.Context, mnemonic, network string) (string, error) {
	return "bc1qstaticdeposit", nil
}

func (f *fakeEscrow) GetDepositUtxos(ctx context.Context, mnemonic, network, depositAddress string, includeClaimed bool) ([]escrow.DepositUtxo, error) {
	return nil, nil
}

func (f *fakeEscrow) ClaimStaticDeposit(ctx context.Context, mnemonic, network, txHash string, vout int64) (*escrow.DepositClaim, error) {
	return &escrow.DepositClaim{TxHash: txHash, Vout: vout}, nil
}

func (f *fakeEscrow) ClaimAllStaticDeposits(ctx context.Context, mnemonic, network string) (*escrow.DepositClaims, error) {
	return &escrow.DepositClaims{}, nil
}

func (f *fakeEscrow) CoopExit(ctx context.Context, mnemonic, network string, req escrow.CoopExitRequest) (*escrow.CoopExitResult, error) {
	return &escrow.CoopExitResult{ID: "exit-1", Status: "PENDING"}, nil
}

func (f *fakeEscrow) CheckOffers(ctx context.Context, mnemonic, network string, offers []models.Offer) (*escrow.OfferStatus, error) {
	f.checkCalls.Add(1)
	if f.offerErr != nil {
		return nil, f.offerErr
	}
	if f.offerStatus != nil {
		return f.offerStatus, nil
	}
	return &escrow.OfferStatus{}, nil
}

func (f *fakeEscrow) SweepAll(ctx context.Context, mnemonic, network, receiverAddress string) error {
	if f.sweepErr != nil {
		return f.sweepErr
	}
	f.sweepCalls.Add(1)
	f.lastSweepTo.Store(receiverAddress)
	return nil
}

var _ escrow.Capability = (*fakeEscrow)(nil)

func newTestService(store db.InvoiceStore, cap escrow.Capability, oracleURL string) *SparkgateService {
	encodedKey, err := security.GenerateSigningKey()
	if err != nil {
		panic(err)
	}
	signer, err := security.NewWebhookSigner(encodedKey)
	if err != nil {
		panic(err)
	}
	return &SparkgateService{
		Config: &Config{
			EscrowTimeout:   5,
			OracleBackoff:   1,
			ScanInterval:    1,
			ScanConcurrency: 4,
			InvoiceExpiry:   3600,
			IdempotencyTTL:  60,
		},
		Store:            store,
		Escrow:           cap,
		Oracle:           oracle.NewClient(oracleURL, time.Second),
		Logger:           lecho.New(os.Stdout),
		Signer:           signer,
		IdempotencyCache: idempotency.NewMemoryCache(),
		Timing:           timing.NewCollector(),
	}
}
