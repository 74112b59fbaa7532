package service

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/sparkgate/sparkgate/db/models"
)

var webhookHTTPClient = &http.Client{Timeout: 30 * time.Second}

type WebhookPayload struct {
	InvoiceID string `json:"invoice_id"`
	Paid      bool   `json:"paid"`
}

type webhookEnvelope struct {
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

// postToWebhook signs the payload and POSTs it to the merchant's callback.
// Delivery is fire-and-forget: failures are logged, never escalated, and the
// paid state stands regardless of the outcome.
func (svc *SparkgateService) postToWebhook(invoice *models.Invoice) {
	payload, err := json.Marshal(WebhookPayload{
		InvoiceID: invoice.ID,
		Paid:      invoice.Paid,
	})
	if err != nil {
		svc.Logger.Error(err)
		return
	}
	// the signature covers the exact payload bytes the receiver gets
	signature, err := svc.Signer.Sign(payload)
	if err != nil {
		svc.Logger.Error(err)
		return
	}
	body, err := json.Marshal(webhookEnvelope{
		Payload:   string(payload),
		Signature: signature,
	})
	if err != nil {
		svc.Logger.Error(err)
		return
	}

	resp, err := webhookHTTPClient.Post(invoice.WebhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		svc.Logger.Errorf("Webhook delivery failed for invoice %s: %v", invoice.ID, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			svc.Logger.Error(err)
		}
		svc.Logger.Errorf("Webhook status code was %d, body: %s", resp.StatusCode, msg)
	}
}
