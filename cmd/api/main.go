package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/imrishuroy/go-orderdesk/internal/aws"
	"github.com/imrishuroy/go-orderdesk/internal/config"
	"github.com/imrishuroy/go-orderdesk/internal/handlers"
	"github.com/imrishuroy/go-orderdesk/internal/idempotency"
	"github.com/imrishuroy/go-orderdesk/internal/lifecycle"
	"github.com/imrishuroy/go-orderdesk/internal/logging"
	"github.com/imrishuroy/go-orderdesk/internal/orders"
	"github.com/imrishuroy/go-orderdesk/internal/persistence"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()
	clients, err := aws.NewAWSClients(ctx)
	if err != nil {
		logger.Fatalf("failed to init aws clients: %v", err)
	}

	repo := persistence.NewRepository(clients.DynamoDB, cfg.OrdersTable)
	store, err := hydrate(ctx, repo)
	if err != nil {
		logger.Fatalf("failed to load orders: %v", err)
	}
	logger.WithField("orders", store.Len()).Info("order store hydrated")

	hcfg := handlers.HandlerConfig{
		Controller:      lifecycle.NewController(store, logger),
		Idempotency:     idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable, cfg.IdempotencyTTL),
		Repository:      repo,
		Logger:          logger,
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
	}
	if cfg.EventsQueueURL != "" {
		hcfg.Publisher = aws.NewPublisher(clients.SQS, cfg.EventsQueueURL)
	} else {
		logger.Warn("ORDERDESK_EVENTS_QUEUE_URL not set, lifecycle events will not be published")
	}

	gin.SetMode(gin.ReleaseMode)
	r := handlers.NewRouter(hcfg)

	if cfg.RunLocal {
		if err := runLocal(r, cfg.Addr(), logger); err != nil {
			logger.Fatalf("local server: %v", err)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}

// hydrate rebuilds the in-memory store from the persisted snapshots.
func hydrate(ctx context.Context, repo *persistence.Repository) (*orders.Store, error) {
	records, err := repo.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	store := orders.NewStore()
	if err := store.Restore(records); err != nil {
		return nil, err
	}
	return store, nil
}

// runLocal serves HTTP until SIGINT or SIGTERM, then drains in-flight requests.
func runLocal(handler http.Handler, addr string, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("running local server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down local server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
