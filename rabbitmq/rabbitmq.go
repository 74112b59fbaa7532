// Package rabbitmq publishes settled-invoice events for downstream consumers
// (accounting, notifications). The publisher is optional: when no
// RABBITMQ_URI is configured the gateway runs without it, and a publish
// failure never blocks or rolls back settlement.
package rabbitmq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ziflex/lecho/v3"

	"github.com/sparkgate/sparkgate/db/models"
)

const routingKeyInvoicePaid = "invoice.paid"

type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *lecho.Logger
}

// Dial connects with exponential backoff and declares the invoice exchange.
func Dial(uri, exchange string, logger *lecho.Logger) (*Publisher, error) {
	var conn *amqp.Connection
	expontentialBackoff := backoff.NewExponentialBackOff()
	expontentialBackoff.MaxElapsedTime = time.Minute
	err := backoff.Retry(func() error {
		var dialErr error
		conn, dialErr = amqp.Dial(uri)
		if dialErr != nil {
			logger.Errorf("Error dialing rabbitmq, retrying: %v", dialErr)
		}
		return dialErr
	}, expontentialBackoff)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := channel.ExchangeDeclare(
		exchange,
		// topic type
		"topic",
		// durable
		true,
		// auto-deleted
		false,
		// internal
		false,
		// no-wait
		false,
		// arguments
		nil,
	); err != nil {
		conn.Close()
		return nil, err
	}

	return &Publisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		logger:   logger,
	}, nil
}

type invoicePaidEvent struct {
	InvoiceID      string    `json:"invoice_id"`
	Network        string    `json:"network"`
	Paid           bool      `json:"paid"`
	SendingAddress *string   `json:"sending_address"`
	SettledAt      time.Time `json:"settled_at"`
}

// PublishInvoicePaid emits one event per settlement.
func (p *Publisher) PublishInvoicePaid(ctx context.Context, invoice *models.Invoice) error {
	payload, err := json.Marshal(invoicePaidEvent{
		InvoiceID:      invoice.ID,
		Network:        invoice.Network,
		Paid:           true,
		SendingAddress: invoice.SendingAddress,
		SettledAt:      invoice.UpdatedAt,
	})
	if err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx,
		p.exchange,
		routingKeyInvoicePaid,
		// mandatory
		false,
		// immediate
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        payload,
			Timestamp:   time.Now(),
		},
	)
}

func (p *Publisher) Close() error {
	return p.conn.Close()
}
