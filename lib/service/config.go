package service

type Config struct {
	DatabaseUri             string  `envconfig:"DATABASE_URI"`
	DatabaseMaxConns        int     `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	DatabaseMaxIdleConns    int     `envconfig:"DATABASE_MAX_IDLE_CONNS" default:"5"`
	DatabaseConnMaxLifetime int     `envconfig:"DATABASE_CONN_MAX_LIFETIME" default:"1800"` // 30 minutes
	SentryDSN               string  `envconfig:"SENTRY_DSN"`
	SentryTracesSampleRate  float64 `envconfig:"SENTRY_TRACES_SAMPLE_RATE"`
	LogFilePath             string  `envconfig:"LOG_FILE_PATH"`
	Port                    int     `envconfig:"PORT" default:"3000"`
	DefaultRateLimit        int     `envconfig:"DEFAULT_RATE_LIMIT" default:"10"`
	StrictRateLimit         int     `envconfig:"STRICT_RATE_LIMIT" default:"10"`
	BurstRateLimit          int     `envconfig:"BURST_RATE_LIMIT" default:"1"`
	EnablePrometheus        bool    `envconfig:"ENABLE_PROMETHEUS" default:"false"`
	PrometheusPort          int     `envconfig:"PROMETHEUS_PORT" default:"9092"`
	WebhookSigningKey       string  `envconfig:"WEBHOOK_SIGNING_KEY" required:"true"`
	BridgeUrl               string  `envconfig:"SPARK_BRIDGE_URL" default:"http://localhost:8888"`
	EscrowTimeout           int     `envconfig:"ESCROW_TIMEOUT" default:"30"` // in seconds
	EscrowWorkers           int     `envconfig:"ESCROW_WORKERS" default:"4"`
	OracleUrl               string  `envconfig:"ORACLE_URL" default:"https://api.sparkscan.io"`
	OracleTimeout           int     `envconfig:"ORACLE_TIMEOUT" default:"10"`        // in seconds
	OracleBackoff           int     `envconfig:"ORACLE_BACKOFF" default:"200"`       // in milliseconds
	ScanInterval            int     `envconfig:"SCAN_INTERVAL" default:"5"`          // in seconds
	ScanConcurrency         int     `envconfig:"SCAN_CONCURRENCY" default:"8"`       // parallel invoice evaluations per pass
	InvoiceExpiry           int     `envconfig:"INVOICE_EXPIRY" default:"3600"`      // in seconds
	IdempotencyTTL          int     `envconfig:"IDEMPOTENCY_TTL" default:"86400"`    // in seconds, default 1 day
	RedisURL                string  `envconfig:"REDIS_URL"`
	RabbitMQUri             string  `envconfig:"RABBITMQ_URI"`
	RabbitMQInvoiceExchange string  `envconfig:"RABBITMQ_INVOICE_EXCHANGE" default:"sparkgate_invoice"`
}
