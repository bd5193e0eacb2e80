package main

import (
	"context"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/chriamue/didcomm-mediator/internal/config"
	"github.com/chriamue/didcomm-mediator/internal/health"
	"github.com/chriamue/didcomm-mediator/internal/logger"
	"github.com/chriamue/didcomm-mediator/pkg/didresolver"
	"github.com/chriamue/didcomm-mediator/pkg/dispatch"
	"github.com/chriamue/didcomm-mediator/pkg/envelope"
	"github.com/chriamue/didcomm-mediator/pkg/protocol"
	"github.com/chriamue/didcomm-mediator/pkg/store"
	"github.com/chriamue/didcomm-mediator/pkg/wallet"
)

// app bundles every collaborator a subcommand needs, built once from
// configuration.
type app struct {
	cfg    *config.Config
	log    logger.Logger
	wallet *wallet.Wallet
	codec  *envelope.Codec
	store  store.Store
	chain  *protocol.Chain
}

func newApp(ctx context.Context, dir string) (*app, error) {
	cfg, err := config.Load(config.LoaderOptions{ConfigDir: dir})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.NewDefaultLogger()
	log.SetLevel(levelFor(cfg.Logging.Level))
	log.SetPrettyPrint(cfg.Logging.Pretty)

	w, err := loadWallet(cfg)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}

	resolver := didresolver.NewMultiMethodResolver()
	resolver.Register(didresolver.NewWebResolver())
	if cfg.Identity.DIDIota != "" {
		resolver.Register(didresolver.NewIotaResolver(cfg.Identity.DIDIota))
	}
	codec := envelope.NewCodec(resolver)

	st, err := newStore(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	chain := protocol.NewChain(protocol.Deps{
		Wallet:       w,
		Codec:        codec,
		BasicMessage: cfg.Features.BasicMessage,
		Poll:         cfg.Features.Poll,
	})

	return &app{cfg: cfg, log: log, wallet: w, codec: codec, store: st, chain: chain}, nil
}

func loadWallet(cfg *config.Config) (*wallet.Wallet, error) {
	if cfg.Identity.KeySeed == "" {
		return wallet.Generate()
	}
	seed, err := base58.Decode(cfg.Identity.KeySeed)
	if err != nil {
		return nil, fmt.Errorf("decode key_seed: %w", err)
	}
	return wallet.FromSeed(seed)
}

func newStore(ctx context.Context, cfg *config.Config, log logger.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		return store.NewMemoryStore(cfg.Store.Shards), nil
	case "postgres":
		if cfg.Store.Postgres == nil {
			return nil, fmt.Errorf("store.backend is postgres but store.postgres is not configured")
		}
		pg := cfg.Store.Postgres
		return store.NewPersistedStore(ctx, store.PostgresConfig{
			Host:     pg.Host,
			Port:     pg.Port,
			User:     pg.User,
			Password: pg.Password,
			Database: pg.Database,
			SSLMode:  pg.SSLMode,
		}, cfg.Store.Shards, log)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}

func newDispatcher(a *app) *dispatch.Dispatcher {
	return dispatch.New(a.codec, a.chain, a.store, a.wallet.PrivateKey(), a.log)
}

func newHealthChecker(a *app) *health.Checker {
	checker := health.NewChecker(a.log, 0, a.cfg.Health.CacheTTL)
	checker.Register("store", func(ctx context.Context) error {
		_, _, err := a.store.Get(ctx, "health-check-probe")
		return err
	})
	checker.Register("wallet", func(ctx context.Context) error {
		_, err := a.wallet.DID()
		return err
	})
	return checker
}

func levelFor(s string) logger.Level {
	switch s {
	case "debug":
		return logger.DebugLevel
	case "warn":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}
