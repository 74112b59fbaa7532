package escrow

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkgate/sparkgate/db/models"
)

// stubCapability lets each test script the underlying wallet behavior.
type stubCapability struct {
	initialize  func(ctx context.Context) (string, string, error)
	checkOffers func(ctx context.Context) (*OfferStatus, error)
	transferred atomic.Int64
}

func (s *stubCapability) Initialize(ctx context.Context, network string) (string, string, error) {
	if s.initialize != nil {
		return s.initialize(ctx)
	}
	return "mnemonic words", "sp1escrow", nil
}

func (s *stubCapability) CreateLightningInvoice(ctx context.Context, mnemonic, network string, amountSats int64) (string, error) {
	return "lnbc1000n1stub", nil
}

func (s *stubCapability) GetBalance(ctx context.Context, mnemonic, network string) (*Balance, error) {
	return &Balance{Address: "sp1escrow", Sats: 1000}, nil
}

func (s *stubCapability) Transfer(ctx context.Context, mnemonic, network string, amountSats int64, receiverAddress string) (string, error) {
	s.transferred.Add(1)
	return "tx-1", nil
}

func (s *stubCapability) TransferTokens(ctx context.Context, mnemonic, network, tokenIdentifier string, amount int64, receiverAddress string) (string, error) {
	return "tx-2", nil
}

func (s *stubCapability) PayLightningInvoice(ctx context.Context, mnemonic, network, invoice string, maxFeeSats int64) (string, error) {
	return "tx-3", nil
}

func (s *stubCapability) CreateThirdPartyLightningInvoice(ctx context.Context, network string, req ThirdPartyInvoiceRequest) (string, error) {
	return "lnbc2000n1stub", nil
}

func (s *stubCapability) GetStaticDepositAddress(ctx context.Context, mnemonic, network string) (string, error) {
	return "bc1qstaticdeposit", nil
}

func (s *stubCapability) GetDepositUtxos(ctx context.Context, mnemonic, network, depositAddress string, includeClaimed bool) ([]DepositUtxo, error) {
	return []DepositUtxo{{TxHash: "aa11", AmountSats: 5000}}, nil
}

func (s *stubCapability) ClaimStaticDeposit(ctx context.Context, mnemonic, network, txHash string, vout int64) (*DepositClaim, error) {
	return &DepositClaim{TxHash: txHash, Vout: vout}, nil
}

func (s *stubCapability) ClaimAllStaticDeposits(ctx context.Context, mnemonic, network string) (*DepositClaims, error) {
	return &DepositClaims{}, nil
}

func (s *stubCapability) CoopExit(ctx context.Context, mnemonic, network string, req CoopExitRequest) (*CoopExitResult, error) {
	return &CoopExitResult{ID: "exit-1", Status: "PENDING"}, nil
}

func (s *stubCapability) CheckOffers(ctx context.Context, mnemonic, network string, offers []models.Offer) (*OfferStatus, error) {
	if s.checkOffers != nil {
		return s.checkOffers(ctx)
	}
	return &OfferStatus{}, nil
}

func (s *stubCapability) SweepAll(ctx context.Context, mnemonic, network, receiverAddress string) error {
	return nil
}

func TestPoolForwardsCalls(t *testing.T) {
	pool := NewPool(&stubCapability{}, 2, time.Second, nil, nil)
	defer pool.Close()

	mnemonic, address, err := pool.Initialize(context.Background(), "MAINNET")
	require.NoError(t, err)
	assert.Equal(t, "mnemonic words", mnemonic)
	assert.Equal(t, "sp1escrow", address)

	invoice, err := pool.CreateLightningInvoice(context.Background(), mnemonic, "MAINNET", 1000)
	require.NoError(t, err)
	assert.Equal(t, "lnbc1000n1stub", invoice)
}

func TestPoolRecoversFromCapabilityPanic(t *testing.T) {
	stub := &stubCapability{
		initialize: func(ctx context.Context) (string, string, error) {
			panic("sdk exploded")
		},
	}
	pool := NewPool(stub, 1, time.Second, nil, nil)
	defer pool.Close()

	_, _, err := pool.Initialize(context.Background(), "MAINNET")
	var capErr *CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "initialize", capErr.Op)

	// the worker survived the panic and keeps serving requests
	status, err := pool.CheckOffers(context.Background(), "m", "MAINNET", nil)
	require.NoError(t, err)
	assert.False(t, status.Paid)
}

func TestPoolEnforcesCallTimeout(t *testing.T) {
	stub := &stubCapability{
		checkOffers: func(ctx context.Context) (*OfferStatus, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	pool := NewPool(stub, 1, 50*time.Millisecond, nil, nil)
	defer pool.Close()

	start := time.Now()
	_, err := pool.CheckOffers(context.Background(), "m", "MAINNET", nil)
	var capErr *CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPoolPropagatesCapabilityErrors(t *testing.T) {
	wantErr := errors.New("insufficient funds")
	stub := &stubCapability{
		checkOffers: func(ctx context.Context) (*OfferStatus, error) {
			return nil, wantErr
		},
	}
	pool := NewPool(stub, 1, time.Second, nil, nil)
	defer pool.Close()

	_, err := pool.CheckOffers(context.Background(), "m", "MAINNET", nil)
	assert.ErrorIs(t, err, wantErr)
}

func TestPoolCanceledCallerDoesNotWedgeWorkers(t *testing.T) {
	blocked := make(chan struct{})
	stub := &stubCapability{
		checkOffers: func(ctx context.Context) (*OfferStatus, error) {
			<-blocked
			return &OfferStatus{}, nil
		},
	}
	pool := NewPool(stub, 1, time.Minute, nil, nil)
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := pool.CheckOffers(ctx, "m", "MAINNET", nil)
	assert.ErrorIs(t, err, context.Canceled)

	// release the worker; subsequent calls still get served
	close(blocked)
	_, getErr := pool.GetBalance(context.Background(), "m", "MAINNET")
	assert.NoError(t, getErr)
}
