package controllers

import (
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkgate/sparkgate/lib/idempotency"
)

func TestBatchInitialize(t *testing.T) {
	stub := &stubEscrow{}
	e, svc := newTestApp(t, stub)
	e.GET("/v2/wallet/batch-initialize", NewWalletController(svc).BatchInitialize)

	rec := performJSON(e, http.MethodGet, "/v2/wallet/batch-initialize?count=3", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var wallets []map[string]string
	require.NoError(t, jsonDecode(rec, &wallets))
	require.Len(t, wallets, 3)
	assert.Equal(t, "sp1escrowaddress", wallets[0]["address"])
	assert.Equal(t, int32(3), atomic.LoadInt32(&stub.initializeCalls))
}

func TestBatchInitializeDefaultsToOneWallet(t *testing.T) {
	stub := &stubEscrow{}
	e, svc := newTestApp(t, stub)
	e.GET("/v2/wallet/batch-initialize", NewWalletController(svc).BatchInitialize)

	rec := performJSON(e, http.MethodGet, "/v2/wallet/batch-initialize", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var wallets []map[string]string
	require.NoError(t, jsonDecode(rec, &wallets))
	require.Len(t, wallets, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.initializeCalls))
}

func TestBatchInitializeRejectsBadCount(t *testing.T) {
	stub := &stubEscrow{}
	e, svc := newTestApp(t, stub)
	e.GET("/v2/wallet/batch-initialize", NewWalletController(svc).BatchInitialize)

	for _, count := range []string{"0", "-2", "three"} {
		rec := performJSON(e, http.MethodGet, "/v2/wallet/batch-initialize?count="+count, "", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
	assert.Zero(t, atomic.LoadInt32(&stub.initializeCalls))
}

func TestCreateThirdPartyInvoiceNeedsNoMnemonic(t *testing.T) {
	e, svc := newTestApp(t, &stubEscrow{})
	e.POST("/v2/wallet/create-invoice-for-user", NewWalletController(svc).CreateThirdPartyLightningInvoice)

	rec := performJSON(e, http.MethodPost, "/v2/wallet/create-invoice-for-user", `{
		"receiver_identity_pubkey": "02abcdef",
		"amount_sats": 2000
	}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"invoice": "lnbc20n1thirdpartyinvoice"}`, rec.Body.String())
}

func TestCreateThirdPartyInvoiceRequiresReceiver(t *testing.T) {
	e, svc := newTestApp(t, &stubEscrow{})
	e.POST("/v2/wallet/create-invoice-for-user", NewWalletController(svc).CreateThirdPartyLightningInvoice)

	rec := performJSON(e, http.MethodPost, "/v2/wallet/create-invoice-for-user", `{"amount_sats": 2000}`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStaticDepositAddress(t *testing.T) {
	e, svc := newTestApp(t, &stubEscrow{})
	e.GET("/v2/wallet/static-deposit-address", NewWalletController(svc).StaticDepositAddress)

	header := http.Header{}
	header.Set(mnemonicHeader, "abandon ability able about above absent")
	rec := performJSON(e, http.MethodGet, "/v2/wallet/static-deposit-address", "", header)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deposit_address": "bc1qstaticdeposit"}`, rec.Body.String())

	rec = performJSON(e, http.MethodGet, "/v2/wallet/static-deposit-address", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDepositUtxosIncludesClaimedByDefault(t *testing.T) {
	e, svc := newTestApp(t, &stubEscrow{})
	e.GET("/v2/wallet/deposit-utxos", NewWalletController(svc).DepositUtxos)

	header := http.Header{}
	header.Set(mnemonicHeader, "abandon ability able about above absent")

	rec := performJSON(e, http.MethodGet, "/v2/wallet/deposit-utxos?deposit_address=bc1qstaticdeposit", "", header)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tx_hash":"aa11"`)
	assert.Contains(t, rec.Body.String(), `"tx_hash":"bb22"`)

	rec = performJSON(e, http.MethodGet, "/v2/wallet/deposit-utxos?deposit_address=bc1qstaticdeposit&include_claimed=false", "", header)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"tx_hash":"aa11"`)
	assert.Contains(t, rec.Body.String(), `"tx_hash":"bb22"`)
}

func TestDepositUtxosRequiresDepositAddress(t *testing.T) {
	e, svc := newTestApp(t, &stubEscrow{})
	e.GET("/v2/wallet/deposit-utxos", NewWalletController(svc).DepositUtxos)

	header := http.Header{}
	header.Set(mnemonicHeader, "abandon ability able about above absent")
	rec := performJSON(e, http.MethodGet, "/v2/wallet/deposit-utxos", "", header)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClaimStaticDeposit(t *testing.T) {
	e, svc := newTestApp(t, &stubEscrow{})
	e.POST("/v2/wallet/claim-static-deposit", NewWalletController(svc).ClaimStaticDeposit)

	header := http.Header{}
	header.Set(mnemonicHeader, "abandon ability able about above absent")
	rec := performJSON(e, http.MethodPost, "/v2/wallet/claim-static-deposit", `{"tx_hash": "bb22", "vout": 1}`, header)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tx_hash":"bb22"`)
	assert.Contains(t, rec.Body.String(), `"claimed_amount_sats":6900`)
}

func TestClaimAllStaticDepositsReplaysIdempotencyKey(t *testing.T) {
	stub := &stubEscrow{}
	e, svc := newTestApp(t, stub)
	e.POST("/v2/wallet/claim-all-static-deposits", NewWalletController(svc).ClaimAllStaticDeposits)

	header := http.Header{}
	header.Set(mnemonicHeader, "abandon ability able about above absent")
	header.Set(idempotency.HeaderKey, "claim-all-key-1")

	first := performJSON(e, http.MethodPost, "/v2/wallet/claim-all-static-deposits", "", header)
	second := performJSON(e, http.MethodPost, "/v2/wallet/claim-all-static-deposits", "", header)

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Contains(t, first.Body.String(), `"total_claimed_sats":6900`)
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.claimAllCalls))
}

func TestCoopExitDefaultsToFastExit(t *testing.T) {
	e, svc := newTestApp(t, &stubEscrow{})
	e.POST("/v2/wallet/coop-exit", NewWalletController(svc).CoopExit)

	header := http.Header{}
	header.Set(mnemonicHeader, "abandon ability able about above absent")
	rec := performJSON(e, http.MethodPost, "/v2/wallet/coop-exit", `{
		"onchain_address": "bc1qwithdrawal",
		"amount_sats": 50000
	}`, header)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"exit_speed":"fast"`)
	assert.Contains(t, rec.Body.String(), `"onchain_address":"bc1qwithdrawal"`)
}

func TestCoopExitCachesCapabilityFailure(t *testing.T) {
	stub := &stubEscrow{coopExitErr: errInsufficientFunds}
	e, svc := newTestApp(t, stub)
	e.POST("/v2/wallet/coop-exit", NewWalletController(svc).CoopExit)

	header := http.Header{}
	header.Set(mnemonicHeader, "abandon ability able about above absent")
	header.Set(idempotency.HeaderKey, "coop-exit-key-1")
	body := `{"onchain_address": "bc1qwithdrawal", "amount_sats": 50000}`

	first := performJSON(e, http.MethodPost, "/v2/wallet/coop-exit", body, header)
	require.Equal(t, http.StatusBadRequest, first.Code)
	assert.Contains(t, first.Body.String(), "insufficient funds")

	stub.coopExitErr = nil
	second := performJSON(e, http.MethodPost, "/v2/wallet/coop-exit", body, header)
	require.Equal(t, http.StatusBadRequest, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.coopExitCalls))
}

func TestCoopExitRejectsUnknownExitSpeed(t *testing.T) {
	stub := &stubEscrow{}
	e, svc := newTestApp(t, stub)
	e.POST("/v2/wallet/coop-exit", NewWalletController(svc).CoopExit)

	header := http.Header{}
	header.Set(mnemonicHeader, "abandon ability able about above absent")
	rec := performJSON(e, http.MethodPost, "/v2/wallet/coop-exit", `{
		"onchain_address": "bc1qwithdrawal",
		"amount_sats": 50000,
		"exit_speed": "immediate"
	}`, header)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, atomic.LoadInt32(&stub.coopExitCalls))
}

func TestCreateLightningInvoiceReplaysIdempotencyKey(t *testing.T) {
	e, svc := newTestApp(t, &stubEscrow{})
	e.POST("/v2/wallet/create-invoice", NewWalletController(svc).CreateLightningInvoice)

	header := http.Header{}
	header.Set(mnemonicHeader, "abandon ability able about above absent")
	header.Set(idempotency.HeaderKey, "create-invoice-key-1")
	body := `{"amount_sats": 1000}`

	first := performJSON(e, http.MethodPost, "/v2/wallet/create-invoice", body, header)
	second := performJSON(e, http.MethodPost, "/v2/wallet/create-invoice", body, header)

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
}
