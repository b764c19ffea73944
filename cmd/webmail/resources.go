package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/rbaliyan/webmail"
	"github.com/rbaliyan/webmail/export"
	"github.com/rbaliyan/webmail/export/gcs"
	exportotel "github.com/rbaliyan/webmail/export/otel"
	"github.com/rbaliyan/webmail/export/s3"
	"github.com/rbaliyan/webmail/internal/config"
	"github.com/rbaliyan/webmail/store"
	"github.com/rbaliyan/webmail/store/memory"
	mongostore "github.com/rbaliyan/webmail/store/mongo"
	"github.com/rbaliyan/webmail/store/postgres"
	"github.com/rbaliyan/webmail/store/sqlite"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// resources holds the backend clients main owns and must release.
type resources struct {
	store    store.Store
	redis    redis.UniversalClient
	exporter webmail.Exporter
	closers  []func(context.Context) error
}

func (r *resources) close(logger *slog.Logger) {
	ctx := context.Background()
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			logger.Error("release resource", "error", err)
		}
	}
}

func openResources(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *resources, err error) {
	r := &resources{}
	defer func() {
		if err != nil {
			r.close(logger)
		}
	}()

	if r.store, err = openStore(cfg, logger, r); err != nil {
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		r.redis = client
		r.closers = append(r.closers, func(context.Context) error { return client.Close() })
	}

	if r.exporter, err = openExporter(ctx, cfg, logger, r); err != nil {
		return nil, err
	}
	return r, nil
}

func openStore(cfg *config.Config, logger *slog.Logger, r *resources) (store.Store, error) {
	sc := cfg.Store
	switch sc.Driver {
	case "memory":
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.New(), nil

	case "sqlite":
		st, err := sqlite.Open(sc.DSN, sqlite.WithTimeout(sc.Timeout.Duration), sqlite.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, st.Close)
		return st, nil

	case "postgres":
		db, err := sqlx.Open("postgres", sc.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		r.closers = append(r.closers, func(context.Context) error { return db.Close() })
		return postgres.New(db, postgres.WithTimeout(sc.Timeout.Duration), postgres.WithLogger(logger)), nil

	case "mongo":
		client, err := mongo.Connect(options.Client().ApplyURI(sc.DSN))
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		r.closers = append(r.closers, client.Disconnect)
		return mongostore.New(client,
			mongostore.WithDatabase(sc.Database),
			mongostore.WithTimeout(sc.Timeout.Duration),
			mongostore.WithLogger(logger),
		), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
}

// openExporter returns nil when exports are disabled. Cloud backends are
// wrapped with OpenTelemetry instrumentation.
func openExporter(ctx context.Context, cfg *config.Config, logger *slog.Logger, r *resources) (webmail.Exporter, error) {
	ec := cfg.Export
	var blobs export.BlobStore
	switch ec.Backend {
	case "":
		return nil, nil
	case "dir":
		d, err := export.NewDirStore(ec.Dir)
		if err != nil {
			return nil, err
		}
		blobs = d
	case "s3":
		opts := []s3.Option{
			s3.WithBucket(ec.Bucket),
			s3.WithPrefix(ec.Prefix),
			s3.WithRegion(ec.Region),
			s3.WithLogger(logger),
		}
		if ec.Endpoint != "" {
			opts = append(opts, s3.WithEndpoint(ec.Endpoint, ec.PathStyle))
		}
		st, err := s3.New(ctx, opts...)
		if err != nil {
			return nil, err
		}
		blobs = st
	case "gcs":
		opts := []gcs.Option{gcs.WithBucket(ec.Bucket), gcs.WithPrefix(ec.Prefix), gcs.WithLogger(logger)}
		if ec.Endpoint != "" {
			opts = append(opts, gcs.WithEndpoint(ec.Endpoint))
		}
		st, err := gcs.New(ctx, opts...)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, func(context.Context) error { return st.Close() })
		blobs = st
	default:
		return nil, fmt.Errorf("unknown export backend %q", ec.Backend)
	}

	if cfg.Mailbox.OTel {
		instrumented, err := exportotel.New(blobs)
		if err != nil {
			return nil, fmt.Errorf("instrument blob store: %w", err)
		}
		blobs = instrumented
	}

	archiver, err := export.New(blobs, export.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	logger.Info("exports enabled", "backend", ec.Backend)
	return archiver, nil
}
