package controllers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sparkgate/sparkgate/db"
	"github.com/sparkgate/sparkgate/escrow"
	"github.com/sparkgate/sparkgate/lib/responses"
	"github.com/sparkgate/sparkgate/lib/service"
)

const createInvoiceOperation = "createInvoice"

// InvoiceController : Invoice controller struct
type InvoiceController struct {
	svc *service.SparkgateService
}

func NewInvoiceController(svc *service.SparkgateService) *InvoiceController {
	return &InvoiceController{svc: svc}
}

type CreateInvoiceResponseBody struct {
	InvoiceID        string `json:"invoice_id"`
	SparkAddress     string `json:"spark_address"`
	LightningInvoice string `json:"lightning_invoice"`
}

type CheckInvoiceResponseBody struct {
	InvoiceID      string  `json:"invoice_id"`
	Paid           bool    `json:"paid"`
	SendingAddress *string `json:"sending_address"`
}

// CreateInvoice : Create a new payment invoice with its own escrow address
func (controller *InvoiceController) CreateInvoice(c echo.Context) error {
	var body service.CreateInvoiceRequest
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load create invoice request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	if replayed, err := replayCachedResponse(c, controller.svc, createInvoiceOperation); replayed {
		return err
	}

	invoice, err := controller.svc.CreateInvoice(c.Request().Context(), &body)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateOffer) {
			return c.JSON(http.StatusBadRequest, responses.DuplicateOfferError)
		}
		var capErr *escrow.CapabilityError
		if errors.As(err, &capErr) {
			// cached so a retried key replays the same failure instead of
			// blindly re-running the escrow allocation
			return cacheAndRespond(c, controller.svc, createInvoiceOperation, http.StatusBadRequest, responses.ErrorResponse{Error: capErr.Error()})
		}
		c.Logger().Errorf("Error creating invoice: %v", err)
		return c.JSON(http.StatusInternalServerError, responses.GeneralServerError)
	}

	return cacheAndRespond(c, controller.svc, createInvoiceOperation, http.StatusOK, CreateInvoiceResponseBody{
		InvoiceID:        invoice.ID,
		SparkAddress:     invoice.SparkAddress,
		LightningInvoice: invoice.LightningInvoice,
	})
}

// CheckInvoice : Report the settlement state of an invoice
func (controller *InvoiceController) CheckInvoice(c echo.Context) error {
	invoice, err := controller.svc.FindInvoice(c.Request().Context(), c.Param("invoice_id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.JSON(http.StatusNotFound, responses.InvoiceNotFoundError)
		}
		c.Logger().Errorf("Error fetching invoice: %v", err)
		return c.JSON(http.StatusInternalServerError, responses.GeneralServerError)
	}
	return c.JSON(http.StatusOK, CheckInvoiceResponseBody{
		InvoiceID:      invoice.ID,
		Paid:           invoice.Paid,
		SendingAddress: invoice.SendingAddress,
	})
}
