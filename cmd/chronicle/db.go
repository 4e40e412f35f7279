package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/config"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/logging"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/metrics"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/store"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/store/memory"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/store/postgres"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/store/sqlite"
)

func openStore(ctx context.Context, dsn string) (store.Store, error) {
	scheme, err := config.StoreScheme(dsn)
	if err != nil {
		return nil, err
	}
	switch scheme {
	case "sqlite":
		client, err := sqlite.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "postgres":
		client, err := postgres.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported store scheme: %s", scheme)
	}
}

// app is what every store-backed command needs.
type app struct {
	cfg      *config.Config
	schema   *config.Schema
	logger   *zap.Logger
	store    store.Store
	identity model.Identity
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	schema := config.DefaultSchema()
	if cfg.SchemaPath != "" {
		schema, err = config.LoadSchema(cfg.SchemaPath)
		if err != nil {
			return nil, err
		}
	}

	st, err := openStore(ctx, cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	if err := st.EnsureSchema(ctx); err != nil {
		_ = st.Close(ctx)
		return nil, err
	}

	return &app{
		cfg:    cfg,
		schema: schema,
		logger: logger,
		store:  st,
		identity: model.Identity{
			CampaignID: cfg.Identity.CampaignID,
			UserID:     cfg.Identity.UserID,
		},
	}, nil
}

func (a *app) Close(ctx context.Context) {
	if err := metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.logger.Warn("writing metrics textfile failed", zap.Error(err))
	}
	if err := a.store.Close(ctx); err != nil {
		a.logger.Warn("closing store failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}
