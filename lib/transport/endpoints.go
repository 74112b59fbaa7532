package transport

import (
	"github.com/labstack/echo/v4"

	"github.com/sparkgate/sparkgate/controllers"
	"github.com/sparkgate/sparkgate/lib/service"
)

func RegisterEndpoints(svc *service.SparkgateService, e *echo.Echo, strictRateLimitMiddleware echo.MiddlewareFunc, logMw echo.MiddlewareFunc) {
	invoiceCtrl := controllers.NewInvoiceController(svc)
	walletCtrl := controllers.NewWalletController(svc)
	keysCtrl := controllers.NewKeysController(svc)
	metricsCtrl := controllers.NewMetricsController(svc)

	e.POST("/v2/invoices", invoiceCtrl.CreateInvoice, strictRateLimitMiddleware, logMw)
	e.GET("/v2/invoices/:invoice_id", invoiceCtrl.CheckInvoice, logMw)

	e.GET("/v2/wallet/initialize", walletCtrl.Initialize, logMw)
	e.GET("/v2/wallet/batch-initialize", walletCtrl.BatchInitialize, logMw)
	e.GET("/v2/wallet/balance", walletCtrl.Balance, logMw)
	e.POST("/v2/wallet/transfer", walletCtrl.Transfer, strictRateLimitMiddleware, logMw)
	e.POST("/v2/wallet/transfer-tokens", walletCtrl.TransferTokens, strictRateLimitMiddleware, logMw)
	e.POST("/v2/wallet/pay-invoice", walletCtrl.PayInvoice, strictRateLimitMiddleware, logMw)
	e.POST("/v2/wallet/create-invoice", walletCtrl.CreateLightningInvoice, strictRateLimitMiddleware, logMw)
	e.POST("/v2/wallet/create-invoice-for-user", walletCtrl.CreateThirdPartyLightningInvoice, strictRateLimitMiddleware, logMw)
	e.GET("/v2/wallet/static-deposit-address", walletCtrl.StaticDepositAddress, logMw)
	e.GET("/v2/wallet/deposit-utxos", walletCtrl.DepositUtxos, logMw)
	e.POST("/v2/wallet/claim-static-deposit", walletCtrl.ClaimStaticDeposit, strictRateLimitMiddleware, logMw)
	e.POST("/v2/wallet/claim-all-static-deposits", walletCtrl.ClaimAllStaticDeposits, strictRateLimitMiddleware, logMw)
	e.POST("/v2/wallet/coop-exit", walletCtrl.CoopExit, strictRateLimitMiddleware, logMw)

	e.GET("/.well-known/webhook-public-key.pem", keysCtrl.WebhookPublicKey)
	e.GET("/metrics", metricsCtrl.ExecutionTimes, logMw)
}
