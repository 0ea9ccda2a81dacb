package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gymops/backoffice/internal/audit"
	catalogapp "github.com/gymops/backoffice/internal/catalog/app"
	catalogmem "github.com/gymops/backoffice/internal/catalog/infra/memory"
	catalogpg "github.com/gymops/backoffice/internal/catalog/infra/postgres"
	httpapi "github.com/gymops/backoffice/internal/http"
	payapp "github.com/gymops/backoffice/internal/payments/app"
	paymem "github.com/gymops/backoffice/internal/payments/infra/memory"
	paypg "github.com/gymops/backoffice/internal/payments/infra/postgres"
	salesapp "github.com/gymops/backoffice/internal/sales/app"
	salesmem "github.com/gymops/backoffice/internal/sales/infra/memory"
	salespg "github.com/gymops/backoffice/internal/sales/infra/postgres"
	"github.com/gymops/backoffice/pkg/config"
	"github.com/gymops/backoffice/pkg/logger"
	"github.com/gymops/backoffice/pkg/metrics"
	"github.com/gymops/backoffice/pkg/postgres"
	"github.com/gymops/backoffice/pkg/shutdown"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{
		Service:   "backoffice",
		Env:       cfg.AppEnv,
		Level:     cfg.LogLevel,
		AddSource: true,
	})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	m := metrics.NewSalesMetrics(prometheus.DefaultRegisterer)

	var (
		productRepo catalogapp.ProductRepo
		saleRepo    salesapp.SaleRepo
		paymentRepo payapp.PaymentRepo
		auditor     audit.Recorder = audit.Nop{}
	)

	switch cfg.Store {
	case "memory":
		log.Warn("running on the in-memory store; data is not persisted")
		products := catalogmem.NewStore()
		productRepo = products
		saleRepo = salesmem.NewStore(products)
		paymentRepo = paymem.NewStore()
	default:
		db, err := postgres.Open(postgres.Config{
			Host:    cfg.Postgres.Host,
			Port:    cfg.Postgres.Port,
			User:    cfg.Postgres.User,
			Pass:    cfg.Postgres.Pass,
			DB:      cfg.Postgres.DB,
			SSLMode: cfg.Postgres.SSLMode,
		})
		if err != nil {
			log.Error("db open failed", slog.Any("err", err))
			os.Exit(1)
		}
		defer db.Close()

		productRepo = catalogpg.NewProductRepo(db)
		saleRepo = salespg.NewSaleRepo(db)
		paymentRepo = paypg.NewPaymentRepo(db)
		auditor = audit.NewDBRecorder(db, log)
	}

	server := httpapi.NewServer(
		catalogapp.NewService(productRepo),
		salesapp.NewService(saleRepo, auditor, m),
		payapp.NewService(paymentRepo, auditor, m),
	)

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Engine(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("http server starting", slog.String("addr", addr), slog.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", slog.Any("err", err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown requested")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()

	if err := srv.Shutdown(stopCtx); err != nil {
		log.Error("http shutdown error", slog.Any("err", err))
	}

	wg.Wait()
	log.Info("bye")
}
