package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sparkgate/sparkgate/lib/service"
)

// KeysController serves the webhook verification key at its well-known path.
type KeysController struct {
	svc *service.SparkgateService
}

func NewKeysController(svc *service.SparkgateService) *KeysController {
	return &KeysController{svc: svc}
}

func (controller *KeysController) WebhookPublicKey(c echo.Context) error {
	return c.Blob(http.StatusOK, "application/x-pem-file", controller.svc.Signer.PublicKeyPEM())
}
