package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/uptrace/bun/migrate"

	"github.com/sparkgate/sparkgate/db"
	"github.com/sparkgate/sparkgate/db/migrations"
	"github.com/sparkgate/sparkgate/escrow"
	"github.com/sparkgate/sparkgate/lib/idempotency"
	"github.com/sparkgate/sparkgate/lib/logging"
	"github.com/sparkgate/sparkgate/lib/security"
	"github.com/sparkgate/sparkgate/lib/service"
	"github.com/sparkgate/sparkgate/lib/timing"
	"github.com/sparkgate/sparkgate/lib/transport"
	"github.com/sparkgate/sparkgate/oracle"
	"github.com/sparkgate/sparkgate/rabbitmq"
)

func main() {

	c := &service.Config{}

	// Load configruation from environment variables
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("Failed to load .env file")
	}
	err = envconfig.Process("", c)
	if err != nil {
		log.Fatalf("Error loading environment variables: %v", err)
	}

	// Setup logging to STDOUT or a configrued log file
	logger, err := logging.NewLogger(c.LogFilePath)
	if err != nil {
		log.Fatalf("Error setting up logging: %v", err)
	}

	// Pick the invoice store based on DATABASE_URI. Without one the gateway
	// runs on the in-memory store and forgets everything on restart.
	var store db.InvoiceStore
	if c.DatabaseUri != "" {
		dbConn, err := db.Open(db.Config{
			DSN:             c.DatabaseUri,
			MaxConns:        c.DatabaseMaxConns,
			MaxIdleConns:    c.DatabaseMaxIdleConns,
			ConnMaxLifetime: time.Duration(c.DatabaseConnMaxLifetime) * time.Second,
		})
		if err != nil {
			logger.Fatalf("Error initializing db connection: %v", err)
		}

		// Migrate the DB
		//Todo: use timeout for startupcontext
		startupCtx := context.Background()
		migrator := migrate.NewMigrator(dbConn, migrations.Migrations)
		err = migrator.Init(startupCtx)
		if err != nil {
			logger.Fatalf("Error initializing db migrator: %v", err)
		}
		_, err = migrator.Migrate(startupCtx)
		if err != nil {
			logger.Fatalf("Error migrating database: %v", err)
		}
		store = db.NewPostgresStore(dbConn)
	} else {
		logger.Info("No DATABASE_URI configured, using the in-memory invoice store")
		store = db.NewMemoryStore()
	}

	// Setup exception tracking with Sentry if configured
	// sentry init needs to happen before the echo middlewares are added
	if c.SentryDSN != "" {
		if err = sentry.Init(sentry.ClientOptions{
			Dsn:              c.SentryDSN,
			IgnoreErrors:     []string{"401"},
			EnableTracing:    c.SentryTracesSampleRate > 0,
			TracesSampleRate: c.SentryTracesSampleRate,
		}); err != nil {
			logger.Errorf("sentry init error: %v", err)
		}
	}

	signer, err := security.NewWebhookSigner(c.WebhookSigningKey)
	if err != nil {
		logger.Fatalf("Error loading webhook signing key: %v", err)
	}

	// If no REDIS_URL was provided idempotency replay is process-local
	var idempotencyCache idempotency.Cache
	if c.RedisURL != "" {
		idempotencyCache, err = idempotency.NewRedisCache(c.RedisURL)
		if err != nil {
			logger.Fatalf("Error connecting to redis: %v", err)
		}
	} else {
		idempotencyCache = idempotency.NewMemoryCache()
	}

	collector := timing.NewCollector()

	// The escrow bridge runs out of process. The pool keeps its calls off
	// the request goroutines and bounds how long any one call may take.
	bridge := escrow.NewBridgeClient(c.BridgeUrl, time.Duration(c.EscrowTimeout)*time.Second)
	pool := escrow.NewPool(bridge, c.EscrowWorkers, time.Duration(c.EscrowTimeout)*time.Second, collector, logger)
	defer pool.Close()

	oracleClient := oracle.NewClient(c.OracleUrl, time.Duration(c.OracleTimeout)*time.Second)

	// If no RABBITMQ_URI was provided we will not attempt to create a client
	// No rabbitmq features will be available in this case.
	var publisher *rabbitmq.Publisher
	if c.RabbitMQUri != "" {
		publisher, err = rabbitmq.Dial(c.RabbitMQUri, c.RabbitMQInvoiceExchange, logger)
		if err != nil {
			logger.Fatal(err)
		}

		// close the connection gently at the end of the runtime
		defer publisher.Close()
	}

	svc := &service.SparkgateService{
		Config:            c,
		Store:             store,
		Escrow:            pool,
		Oracle:            oracleClient,
		Logger:            logger,
		Signer:            signer,
		IdempotencyCache:  idempotencyCache,
		Timing:            collector,
		RabbitMQPublisher: publisher,
	}

	//init echo server
	e := transport.InitEcho(c, logger)

	logMw := transport.CreateLoggingMiddleware(logger)
	// strict rate limit for requests that move funds
	strictRateLimitMiddleware := transport.CreateRateLimitMiddleware(c.StrictRateLimit, c.BurstRateLimit)

	transport.RegisterEndpoints(svc, e, strictRateLimitMiddleware, logMw)

	var backgroundWg sync.WaitGroup
	backGroundCtx, _ := signal.NotifyContext(context.Background(), os.Interrupt)
	// Watch pending invoices for settlement in the background
	backgroundWg.Add(1)
	go func() {
		svc.StartInvoiceScanner(backGroundCtx)
		svc.Logger.Info("Invoice scanner done")
		backgroundWg.Done()
	}()

	//Start Prometheus server if necessary
	if svc.Config.EnablePrometheus {
		go transport.StartPrometheusEcho(logger, svc, e)
	}

	// Start server
	go func() {
		if err := e.Start(fmt.Sprintf(":%v", c.Port)); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	<-backGroundCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
	//Wait for graceful shutdown of background routines
	backgroundWg.Wait()
	svc.Logger.Info("Sparkgate exiting gracefully. Goodbye.")
}
