package infrastructure

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"

	"playledger/internal/auth"
	"playledger/internal/config"
	"playledger/internal/ledger"
	"playledger/internal/model"
	"playledger/internal/repository"
	"playledger/internal/service"
	transportGRPC "playledger/internal/transport/grpc"
	transportHTTP "playledger/internal/transport/http"
	transportNATS "playledger/internal/transport/nats"
	"playledger/internal/worker"
)

const serviceName = "playledger"

// Bootstrap initialises all dependencies from config and wires up the application.
// Returns the App, a cleanup function, or an error.
func Bootstrap(ctx context.Context) (*App, func(), error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}
	SetupLogging(serviceName, cfg.Env)

	db, err := connectPostgres(cfg.DSN())
	if err != nil {
		return nil, nil, err
	}

	rdb, err := connectRedis(cfg.RedisAddr())
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	var cleanupFns []func()
	cleanupFns = append(cleanupFns, func() {
		db.Close()
		_ = rdb.Close()
	})

	// ── Infrastructure wiring ──────────────────────────────────────────────────
	var bus repository.MessageBus
	var servers []Server

	// 1. Bus setup
	natsNeeded := cfg.BusProvider == "nats" || cfg.WorkerProvider == "nats"
	var nc *nats.Conn
	if natsNeeded {
		c, err := connectNats(cfg.NatsAddr())
		if err != nil {
			return nil, runCleanup(cleanupFns), err
		}
		nc = c
		cleanupFns = append(cleanupFns, c.Close)
	}

	switch cfg.BusProvider {
	case "nats":
		bus = transportNATS.NewBus(nc)
	case "grpc":
		grpcBus, cleanup, err := transportGRPC.NewGrpcBusFromAddr(cfg.GRPCAddr(), cfg.BusSecret)
		if err != nil {
			return nil, runCleanup(cleanupFns), err
		}
		bus = grpcBus
		cleanupFns = append(cleanupFns, cleanup)
	}
	publisher := repository.NewEventPublisher(bus, cfg.BusBufferSize)

	// 2. Ledger, rebuilt from the PostgreSQL projections
	l, err := buildLedger(ctx, cfg, db, publisher)
	if err != nil {
		return nil, runCleanup(cleanupFns), err
	}

	repo := repository.NewLedgerRepo(l, rdb, db)
	var svc service.LedgerService = repo

	// 3. Servers. The publisher runs first so queued events drain on shutdown.
	servers = append(servers, publisher)

	// Both APIs authenticate callers with the same JWT settings.
	authn := auth.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer)

	// The gRPC server also acts as the worker when WorkerProvider is "grpc"
	// (handled in Server.Publish); otherwise the EventService is not served.
	var eventSecret string
	if cfg.WorkerProvider == "grpc" {
		eventSecret = cfg.BusSecret
	}
	servers = append(servers, transportGRPC.NewServer(cfg.GRPCListenAddr(), svc, authn, eventSecret))

	if nc != nil {
		// NATS can also handle commands
		servers = append(servers, transportNATS.NewHandler(svc, nc))
		if cfg.WorkerProvider == "nats" {
			servers = append(servers, worker.NewEventWorker(svc, nc))
		}
	}

	if addr, apiErr := cfg.ApiAddr(); apiErr == nil {
		servers = append(servers, transportHTTP.NewServer(addr, svc, authn))
	} else {
		slog.Info("HTTP API not started", "reason", apiErr)
	}

	slog.Info("playledger bootstrapped",
		"bus", cfg.BusProvider,
		"worker", cfg.WorkerProvider,
		"admin", cfg.AdminID,
		"seq", l.Seq(),
	)
	return NewApp(servers), runCleanup(cleanupFns), nil
}

// buildLedger creates the in-memory ledger and restores it from the last
// projected state. The initial supply is only issued on an empty database.
func buildLedger(ctx context.Context, cfg *config.Config, db *pgxpool.Pool, emitter ledger.Emitter) (*ledger.Ledger, error) {
	snap, err := repository.LoadSnapshot(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	lcfg := ledgerConfig(cfg, emitter)
	if !snap.Empty() {
		lcfg.InitialSupply = nil
	}
	l, err := ledger.New(lcfg)
	if err != nil {
		return nil, err
	}
	if !snap.Empty() {
		if err := l.Restore(snap); err != nil {
			return nil, fmt.Errorf("restore ledger: %w", err)
		}
		slog.Info("ledger restored", "seq", snap.Seq, "records", len(snap.Records), "contracts", len(snap.Contracts))
	}
	return l, nil
}

func ledgerConfig(cfg *config.Config, emitter ledger.Emitter) ledger.Config {
	return ledger.Config{
		Admin:         model.Address(cfg.AdminID),
		Store:         model.Address(cfg.StoreID),
		RewardAsset:   model.Address(cfg.RewardAsset),
		Fee:           ledger.Units(cfg.PlayFee),
		InitialSupply: ledger.Units(cfg.InitialSupply),
		Emitter:       emitter,
	}
}

// runCleanup returns a single function that calls all cleanup functions in reverse order.
func runCleanup(fns []func()) func() {
	return func() {
		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	}
}
