package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sparkgate/sparkgate/escrow"
	"github.com/sparkgate/sparkgate/lib/responses"
	"github.com/sparkgate/sparkgate/lib/service"
)

const (
	mnemonicHeader = "Spark-Mnemonic"
	networkHeader  = "Spark-Network"
)

// WalletController exposes direct wallet operations against the escrow
// bridge. The mutating ones honor idempotency keys; a capability failure is
// cached too, so a retried key replays the failure instead of re-issuing the
// transfer blindly.
type WalletController struct {
	svc *service.SparkgateService
}

func NewWalletController(svc *service.SparkgateService) *WalletController {
	return &WalletController{svc: svc}
}

func (controller *WalletController) escrowContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), controller.svc.EscrowTimeout())
}

func (controller *WalletController) network(c echo.Context) string {
	network := c.Request().Header.Get(networkHeader)
	if network == "" {
		network = "MAINNET"
	}
	return network
}

func (controller *WalletController) mnemonic(c echo.Context) (string, bool) {
	mnemonic := c.Request().Header.Get(mnemonicHeader)
	return mnemonic, mnemonic != ""
}

func capabilityErrorResponse(err error) (responses.ErrorResponse, bool) {
	var capErr *escrow.CapabilityError
	if errors.As(err, &capErr) {
		return responses.ErrorResponse{Error: capErr.Error()}, true
	}
	return responses.ErrorResponse{}, false
}

// Initialize : Allocate a fresh wallet
func (controller *WalletController) Initialize(c echo.Context) error {
	ctx, cancel := controller.escrowContext(c)
	defer cancel()
	mnemonic, address, err := controller.svc.Escrow.Initialize(ctx, controller.network(c))
	if err != nil {
		if body, ok := capabilityErrorResponse(err); ok {
			return c.JSON(http.StatusBadRequest, body)
		}
		return c.JSON(http.StatusInternalServerError, responses.GeneralServerError)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"mnemonic": mnemonic,
		"address":  address,
	})
}

// Balance : Report the full holdings of a wallet
func (controller *WalletController) Balance(c echo.Context) error {
	mnemonic, ok := controller.mnemonic(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	ctx, cancel := controller.escrowContext(c)
	defer cancel()
	balance, err := controller.svc.Escrow.GetBalance(ctx, mnemonic, controller.network(c))
	if err != nil {
		if body, ok := capabilityErrorResponse(err); ok {
			return c.JSON(http.StatusBadRequest, body)
		}
		return c.JSON(http.StatusInternalServerError, responses.GeneralServerError)
	}
	return c.JSON(http.StatusOK, balance)
}

type TransferRequestBody struct {
	AmountSats      int64  `json:"amount_sats" validate:"required,gt=0"`
	ReceiverAddress string `json:"receiver_address" validate:"required"`
}

// Transfer : Send sats from a wallet
func (controller *WalletController) Transfer(c echo.Context) error {
	mnemonic, ok := controller.mnemonic(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	var body TransferRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	if replayed, err := replayCachedResponse(c, controller.svc, "transfer"); replayed {
		return err
	}

	ctx, cancel := controller.escrowContext(c)
	defer cancel()
	id, err := controller.svc.Escrow.Transfer(ctx, mnemonic, controller.network(c), body.AmountSats, body.ReceiverAddress)
	if err != nil {
		if errBody, ok := capabilityErrorResponse(err); ok {
			return cacheAndRespond(c, controller.svc, "transfer", http.StatusBadRequest, errBody)
		}
		return c.JSON(http.StatusInternalServerError, responses.GeneralServerError)
	}
	return cacheAndRespond(c, controller.svc, "transfer", http.StatusOK, echo.Map{"id": id})
}

type TransferTokensRequestBody struct {
	TokenIdentifier string `json:"token_identifier" validate:"required"`
	TokenAmount     int64  `json:"token_amount" validate:"required,gt=0"`
	ReceiverAddress string `json:"receiver_address" validate:"required"`
}

// TransferTokens : Send a token asset from a wallet
func (controller *WalletController) TransferTokens(c echo.Context) error {
	mnemonic, ok := controller.mnemonic(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	var body TransferTokensRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	if replayed, err := replayCachedResponse(c, controller.svc, "tokenTransfer"); replayed {
		return err
	}

	ctx, cancel := controller.escrowContext(c)
	defer cancel()
	id, err := controller.svc.Escrow.TransferTokens(ctx, mnemonic, controller.network(c), body.TokenIdentifier, body.TokenAmount, body.ReceiverAddress)
	if err != nil {
		if errBody, ok := capabilityErrorResponse(err); ok {
			return cacheAndRespond(c, controller.svc, "tokenTransfer", http.StatusBadRequest, errBody)
		}
		return c.JSON(http.StatusInternalServerError, responses.GeneralServerError)
	}
	return cacheAndRespond(c, controller.svc, "tokenTransfer", http.StatusOK, echo.Map{"id": id})
}

type PayInvoiceRequestBody struct {
	Invoice    string `json:"invoice" validate:"required"`
	MaxFeeSats int64  `json:"max_fee_sats" validate:"gte=0"`
}

// PayInvoice : Pay a Lightning invoice from a wallet
func (controller *WalletController) PayInvoice(c echo.Context) error {
	mnemonic, ok := controller.mnemonic(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	var body PayInvoiceRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	if replayed, err := replayCachedResponse(c, controller.svc, "payLightningInvoice"); replayed {
		return err
	}

	ctx, cancel := controller.escrowContext(c)
	defer cancel()
	id, err := controller.svc.Escrow.PayLightningInvoice(ctx, mnemonic, controller.network(c), body.Invoice, body.MaxFeeSats)
	if err != nil {
		if errBody, ok := capabilityErrorResponse(err); ok {
			return cacheAndRespond(c, controller.svc, "payLightningInvoice", http.StatusBadRequest, errBody)
		}
		return c.JSON(http.StatusInternalServerError, responses.GeneralServerError)
	}
	return cacheAndRespond(c, controller.svc, "payLightningInvoice", http.StatusOK, echo.Map{"id": id})
}

type CreateLightningInvoiceRequestBody struct {
	AmountSats int64 `json:"amount_sats" validate:"required,gt=0"`
}

// CreateLightningInvoice : Create a raw Lightning receive invoice on a wallet
func (controller *WalletController) CreateLightningInvoice(c echo.Context) error {
	mnemonic, ok := controller.mnemonic(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	var body CreateLightningInvoiceRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	if replayed, err := replayCachedResponse(c, controller.svc, "createLightningInvoice"); replayed {
		return err
	}

	ctx, cancel := controller.escrowContext(c)
	defer cancel()
	invoice, err := controller.svc.Escrow.CreateLightningInvoice(ctx, mnemonic, controller.network(c), body.AmountSats)
	if err != nil {
		if errBody, ok := capabilityErrorResponse(err); ok {
			return cacheAndRespond(c, controller.svc, "createLightningInvoice", http.StatusBadRequest, errBody)
		}
		return c.JSON(http.StatusInternalServerError, responses.GeneralServerError)
	}
	return cacheAndRespond(c, controller.svc, "createLightningInvoice", http.StatusOK, echo.Map{"invoice": invoice})
}

// BatchInitialize : Allocate several fresh wallets in one call
func (controller *WalletController) BatchInitialize(c echo.Context) error {
	count := int64(1)
	if raw := c.QueryParam("count"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 {
			return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
		}
		count = parsed
	}
	ctx, cancel := controller.escrowContext(c)
	defer cancel()
	wallets := make([]echo.Map, 0, count)
	for i := int64(0); i < count; i++ {
		mnemonic, address, err := controller.svc.Escrow.Initialize(ctx, controller.network(c))
		if err != nil {
			if body, ok := capabilityErrorResponse(err); ok {
				return c.JSON(http.StatusBadRequest, body)
			}
			return c.JSON(http.StatusInternalServerError, responses.GeneralServerError)
		}
		wallets = append(wallets, echo.Map{
			"mnemonic": mnemonic,
			"address":  address,
		})
	}
	return c.JSON(http.StatusOK, wallets)
}

type CreateThirdPartyInvoiceRequestBody struct {
	ReceiverIdentityPubkey string `json:"receiver_identity_pubkey" validate:"required"`
	AmountSats             int64  `json:"amount_sats" validate:"required,gt=0"`
	Memo                   string `json:"memo"`
	ExpirySeconds          int64  `json:"expiry_seconds" validate:"gte=0"`
}

// CreateThirdPartyLightningInvoice : Create a Lightning invoice paying out to
// another Spark user, addressed by identity pubkey instead of a mnemonic.
func (controller *WalletController) CreateThirdPartyLightningInvoice(c echo.Context) error {
	var body CreateThirdPartyInvoiceRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if body.ExpirySeconds == 0 {
		body.ExpirySeconds = 86400
	}

	ctx, cancel := controller.escrowContext(c)
	defer cancel()
	invoice, err := controller.svc.Escrow.CreateThirdPartyLightningInvoice(ctx, controller.network(c), escrow.ThirdPartyInvoiceRequest{
		ReceiverIdentityPubkey: body.ReceiverIdentityPubkey,
		AmountSats:             body.AmountSats,
		Memo:                   body.Memo,
		ExpirySeconds:          body.ExpirySeconds,
	})
	if err != nil {
		if errBody, ok := capabilityErrorResponse(err); ok {
			return c.JSON(http.StatusBadRequest, errBody)
		}
		return c.JSON(http.StatusInternalServerError, responses.GeneralServerError)
	}
	return c.JSON(http.StatusOK, echo.Map{"invoice": invoice})
}

// StaticDepositAddress : Report the wallet's reusable on-chain deposit address
func (controller *WalletController) StaticDepositAddress(c echo.Context) error {
	mnemonic, ok := controller.mnemonic(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	ctx, cancel := controller.escrowContext(c)
	defer cancel()
	address, err := controller.svc.Escrow.GetStaticDepositAddress(ctx, mnemonic, controller.network(c))
	if err != nil {
		if body, ok := capabilityErrorResponse(err); ok {
			return c.JSON(http.StatusBadRequest, body)
		}
		return c.JSON(http.StatusInternalServerError, responses.GeneralServerError)
	}
	return c.JSON(http.StatusOK, echo.Map{"deposit_address": address})
}

// DepositUtxos : List on-chain deposits against a static deposit address
func (controller *WalletController) DepositUtxos(c echo.Context) error {
	mnemonic, ok := controller.mnemonic(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	depositAddress := c.QueryParam("deposit_address")
	if depositAddress == "" {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	includeClaimed := c.QueryParam("include_claimed") != "false"
	ctx, cancel := controller.escrowContext(c)
	defer cancel()
	utxos, err := controller.svc.Escrow.GetDepositUtxos(ctx, mnemonic, controller.network(c), depositAddress, includeClaimed)
	if err != nil {
		if body, ok := capabilityErrorResponse(err); ok {
			return c.JSON(http.StatusBadRequest, body)
		}
		return c.JSON(http.StatusInternalServerError, responses.GeneralServerError)
	}
	return c.JSON(http.StatusOK, echo.Map{"utxos": utxos})
}

type ClaimStaticDepositRequestBody struct {
	TxHash string `json:"tx_hash" validate:"required"`
	Vout   int64  `json:"vout" validate:"gte=0"`
}

// ClaimStaticDeposit : Claim one confirmed deposit UTXO into the wallet
func (controller *WalletController) ClaimStaticDeposit(c echo.Context) error {
	mnemonic, ok := controller.mnemonic(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	var body ClaimStaticDepositRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	if replayed, err := replayCachedResponse(c, controller.svc, "claimStaticDeposit"); replayed {
		return err
	}

	ctx, cancel := controller.escrowContext(c)
	defer cancel()
	claim, err := controller.svc.Escrow.ClaimStaticDeposit(ctx, mnemonic, controller.network(c), body.TxHash, body.Vout)
	if err != nil {
		if errBody, ok := capabilityErrorResponse(err); ok {
			return cacheAndRespond(c, controller.svc, "claimStaticDeposit", http.StatusBadRequest, errBody)
		}
		return c.JSON(http.StatusInternalServerError, responses.GeneralServerError)
	}
	return cacheAndRespond(c, controller.svc, "claimStaticDeposit", http.StatusOK, claim)
}

// ClaimAllStaticDeposits : Claim every confirmed deposit UTXO into the wallet
func (controller *WalletController) ClaimAllStaticDeposits(c echo.Context) error {
	mnemonic, ok := controller.mnemonic(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	if replayed, err := replayCachedResponse(c, controller.svc, "claimAllStaticDeposits"); replayed {
		return err
	}

	ctx, cancel := controller.escrowContext(c)
	defer cancel()
	claims, err := controller.svc.Escrow.ClaimAllStaticDeposits(ctx, mnemonic, controller.network(c))
	if err != nil {
		if errBody, ok := capabilityErrorResponse(err); ok {
			return cacheAndRespond(c, controller.svc, "claimAllStaticDeposits", http.StatusBadRequest, errBody)
		}
		return c.JSON(http.StatusInternalServerError, responses.GeneralServerError)
	}
	return cacheAndRespond(c, controller.svc, "claimAllStaticDeposits", http.StatusOK, claims)
}

type CoopExitRequestBody struct {
	OnchainAddress                string `json:"onchain_address" validate:"required"`
	AmountSats                    int64  `json:"amount_sats" validate:"required,gt=0"`
	ExitSpeed                     string `json:"exit_speed" validate:"omitempty,oneof=fast medium slow"`
	DeductFeeFromWithdrawalAmount bool   `json:"deduct_fee_from_withdrawal_amount"`
}

// CoopExit : Withdraw funds from a wallet to an on-chain address
func (controller *WalletController) CoopExit(c echo.Context) error {
	mnemonic, ok := controller.mnemonic(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	var body CoopExitRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if body.ExitSpeed == "" {
		body.ExitSpeed = "fast"
	}

	if replayed, err := replayCachedResponse(c, controller.svc, "coopExit"); replayed {
		return err
	}

	ctx, cancel := controller.escrowContext(c)
	defer cancel()
	exit, err := controller.svc.Escrow.CoopExit(ctx, mnemonic, controller.network(c), escrow.CoopExitRequest{
		OnchainAddress:                body.OnchainAddress,
		AmountSats:                    body.AmountSats,
		ExitSpeed:                     body.ExitSpeed,
		DeductFeeFromWithdrawalAmount: body.DeductFeeFromWithdrawalAmount,
	})
	if err != nil {
		if errBody, ok := capabilityErrorResponse(err); ok {
			return cacheAndRespond(c, controller.svc, "coopExit", http.StatusBadRequest, errBody)
		}
		return c.JSON(http.StatusInternalServerError, responses.GeneralServerError)
	}
	return cacheAndRespond(c, controller.svc, "coopExit", http.StatusOK, exit)
}
