package escrow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sparkgate/sparkgate/db/models"
)

// BridgeClient talks to the Spark wallet bridge daemon over HTTP. The bridge
// owns the actual SDK; one bridge request corresponds to one wallet session.
type BridgeClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewBridgeClient(baseURL string, timeout time.Duration) *BridgeClient {
	return &BridgeClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type bridgeError struct {
	Error string `json:"error"`
}

func (c *BridgeClient) post(ctx context.Context, op, path string, request, response interface{}) error {
	body, err := json.Marshal(request)
	if err != nil {
		return wrapError(op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return wrapError(op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		var bridgeErr bridgeError
		if json.Unmarshal(raw, &bridgeErr) == nil && bridgeErr.Error != "" {
			return wrapError(op, fmt.Errorf("%s", bridgeErr.Error))
		}
		return wrapError(op, fmt.Errorf("bridge status %d: %s", resp.StatusCode, raw))
	}
	if response == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return wrapError(op, err)
	}
	return nil
}

func (c *BridgeClient) Initialize(ctx context.Context, network string) (string, string, error) {
	var result struct {
		Mnemonic string `json:"mnemonic"`
		Address  string `json:"address"`
	}
	err := c.post(ctx, "initialize", "/v1/wallet/initialize", map[string]string{"network": network}, &result)
	if err != nil {
		return "", "", err
	}
	return result.Mnemonic, result.Address, nil
}

func (c *BridgeClient) CreateLightningInvoice(ctx context.Context, mnemonic, network string, amountSats int64) (string, error) {
	var result struct {
		Invoice string `json:"invoice"`
	}
	err := c.post(ctx, "createLightningInvoice", "/v1/wallet/create-invoice", map[string]interface{}{
		"mnemonic":   mnemonic,
		"network":    network,
		"amountSats": amountSats,
	}, &result)
	if err != nil {
		return "", err
	}
	return result.Invoice, nil
}

func (c *BridgeClient) GetBalance(ctx context.Context, mnemonic, network string) (*Balance, error) {
	var result Balance
	err := c.post(ctx, "getBalance", "/v1/wallet/balance", map[string]string{
		"mnemonic": mnemonic,
		"network":  network,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *BridgeClient) Transfer(ctx context.Context, mnemonic, network string, amountSats int64, receiverAddress string) (string, error) {
	var result struct {
		ID string `json:"id"`
	}
	err := c.post(ctx, "transfer", "/v1/wallet/transfer", map[string]interface{}{
		"mnemonic":        mnemonic,
		"network":         network,
		"amountSats":      amountSats,
		"receiverAddress": receiverAddress,
	}, &result)
	if err != nil {
		return "", err
	}
	return result.ID, nil
}

func (c *BridgeClient) TransferTokens(ctx context.Context, mnemonic, network, tokenIdentifier string, amount int64, receiverAddress string) (string, error) {
	var result struct {
		ID string `json:"id"`
	}
	err := c.post(ctx, "transferTokens", "/v1/wallet/transfer-tokens", map[string]interface{}{
		"mnemonic":        mnemonic,
		"network":         network,
		"tokenIdentifier": tokenIdentifier,
		"tokenAmount":     amount,
		"receiverAddress": receiverAddress,
	}, &result)
	if err != nil {
		return "", err
	}
	return result.ID, nil
}

func (c *BridgeClient) PayLightningInvoice(ctx context.Context, mnemonic, network, invoice string, maxFeeSats int64) (string, error) {
	var result struct {
		ID string `json:"id"`
	}
	err := c.post(ctx, "payLightningInvoice", "/v1/wallet/pay-invoice", map[string]interface{}{
		"mnemonic":   mnemonic,
		"network":    network,
		"invoice":    invoice,
		"maxFeeSats": maxFeeSats,
	}, &result)
	if err != nil {
		return "", err
	}
	return result.ID, nil
}

func (c *BridgeClient) CreateThirdPartyLightningInvoice(ctx context.Context, network string, req ThirdPartyInvoiceRequest) (string, error) {
	var result struct {
		Invoice string `json:"invoice"`
	}
	err := c.post(ctx, "createThirdPartyLightningInvoice", "/v1/wallet/create-invoice-for-user", map[string]interface{}{
		"network":                network,
		"receiverIdentityPubkey": req.ReceiverIdentityPubkey,
		"amountSats":             req.AmountSats,
		"memo":                   req.Memo,
		"expirySeconds":          req.ExpirySeconds,
	}, &result)
	if err != nil {
		return "", err
	}
	return result.Invoice, nil
}

func (c *BridgeClient) GetStaticDepositAddress(ctx context.Context, mnemonic, network string) (string, error) {
	var result struct {
		DepositAddress string `json:"deposit_address"`
	}
	err := c.post(ctx, "getStaticDepositAddress", "/v1/wallet/static-deposit-address", map[string]string{
		"mnemonic": mnemonic,
		"network":  network,
	}, &result)
	if err != nil {
		return "", err
	}
	return result.DepositAddress, nil
}

func (c *BridgeClient) GetDepositUtxos(ctx context.Context, mnemonic, network, depositAddress string, includeClaimed bool) ([]DepositUtxo, error) {
	var result struct {
		Utxos []DepositUtxo `json:"utxos"`
	}
	err := c.post(ctx, "getDepositUtxos", "/v1/wallet/deposit-utxos", map[string]interface{}{
		"mnemonic":       mnemonic,
		"network":        network,
		"depositAddress": depositAddress,
		"includeClaimed": includeClaimed,
	}, &result)
	if err != nil {
		return nil, err
	}
	return result.Utxos, nil
}

func (c *BridgeClient) ClaimStaticDeposit(ctx context.Context, mnemonic, network, txHash string, vout int64) (*DepositClaim, error) {
	var result DepositClaim
	err := c.post(ctx, "claimStaticDeposit", "/v1/wallet/claim-static-deposit", map[string]interface{}{
		"mnemonic": mnemonic,
		"network":  network,
		"txHash":   txHash,
		"vout":     vout,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *BridgeClient) ClaimAllStaticDeposits(ctx context.Context, mnemonic, network string) (*DepositClaims, error) {
	var result DepositClaims
	err := c.post(ctx, "claimAllStaticDeposits", "/v1/wallet/claim-all-static-deposits", map[string]string{
		"mnemonic": mnemonic,
		"network":  network,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *BridgeClient) CoopExit(ctx context.Context, mnemonic, network string, req CoopExitRequest) (*CoopExitResult, error) {
	var result CoopExitResult
	err := c.post(ctx, "coopExit", "/v1/wallet/coop-exit", map[string]interface{}{
		"mnemonic":                      mnemonic,
		"network":                       network,
		"onchainAddress":                req.OnchainAddress,
		"amountSats":                    req.AmountSats,
		"exitSpeed":                     req.ExitSpeed,
		"deductFeeFromWithdrawalAmount": req.DeductFeeFromWithdrawalAmount,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *BridgeClient) CheckOffers(ctx context.Context, mnemonic, network string, offers []models.Offer) (*OfferStatus, error) {
	var result OfferStatus
	err := c.post(ctx, "checkOffers", "/v1/wallet/check-offers", map[string]interface{}{
		"mnemonic": mnemonic,
		"network":  network,
		"offers":   offers,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *BridgeClient) SweepAll(ctx context.Context, mnemonic, network, receiverAddress string) error {
	return c.post(ctx, "sweepAll", "/v1/wallet/sweep-all", map[string]string{
		"mnemonic":        mnemonic,
		"network":         network,
		"receiverAddress": receiverAddress,
	}, nil)
}

var _ Capability = (*BridgeClient)(nil)
