package service

import (
	"time"

	"github.com/ziflex/lecho/v3"

	"github.com/sparkgate/sparkgate/db"
	"github.com/sparkgate/sparkgate/escrow"
	"github.com/sparkgate/sparkgate/lib/idempotency"
	"github.com/sparkgate/sparkgate/lib/security"
	"github.com/sparkgate/sparkgate/lib/timing"
	"github.com/sparkgate/sparkgate/oracle"
	"github.com/sparkgate/sparkgate/rabbitmq"
)

type SparkgateService struct {
	Config           *Config
	Store            db.InvoiceStore
	Escrow           escrow.Capability
	Oracle           *oracle.Client
	Logger           *lecho.Logger
	Signer           *security.WebhookSigner
	IdempotencyCache idempotency.Cache
	Timing           *timing.Collector
	// RabbitMQPublisher is nil when no RABBITMQ_URI is configured.
	RabbitMQPublisher *rabbitmq.Publisher
}

func (svc *SparkgateService) EscrowTimeout() time.Duration {
	return time.Duration(svc.Config.EscrowTimeout) * time.Second
}

func (svc *SparkgateService) IdempotencyTTL() time.Duration {
	return time.Duration(svc.Config.IdempotencyTTL) * time.Second
}
