package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"

	"github.com/dd0wney/cluso-semnet/pkg/auth"
	"github.com/dd0wney/cluso-semnet/pkg/config"
	"github.com/dd0wney/cluso-semnet/pkg/dataset"
	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
	"github.com/dd0wney/cluso-semnet/pkg/logging"
	"github.com/dd0wney/cluso-semnet/pkg/metrics"
	"github.com/dd0wney/cluso-semnet/pkg/persist"
	"github.com/dd0wney/cluso-semnet/pkg/server"
	semtls "github.com/dd0wney/cluso-semnet/pkg/tls"
)

const (
	tokenIssuer = "semnet"
	apiKeySalt  = "semnet-api-keys"
)

// application is a configured server plus whatever needs closing on exit.
type application struct {
	server  *server.Server
	tls     *tls.Config
	closers []io.Closer
}

func (a *application) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func build(ctx context.Context, cfg config.Config, logger logging.Logger) (*application, error) {
	app := &application{}
	reg := metrics.NewRegistry()

	if cfg.Server.TLS.Enabled {
		tlsConfig, err := semtls.ServerConfig(semtls.Config{
			CertFile:     cfg.Server.TLS.CertFile,
			KeyFile:      cfg.Server.TLS.KeyFile,
			ClientCAFile: cfg.Server.TLS.ClientCAFile,
			AutoGenerate: cfg.Server.TLS.AutoGenerate,
			Hosts:        cfg.Server.TLS.Hosts,
		})
		if err != nil {
			return nil, err
		}
		if info, err := semtls.Info(tlsConfig.Certificates[0]); err == nil {
			logger.Info("tls certificate loaded",
				logging.String("subject", info.Subject),
				logging.Duration("expires_in", info.ExpiresIn()),
			)
		}
		app.tls = tlsConfig
	}

	snapshots, closer, err := openSnapshots(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		app.closers = append(app.closers, closer)
	}
	if snapshots != nil {
		snapshots = persist.Instrument(snapshots, reg, logger)
	}

	loader := func(ctx context.Context) (*knowledge.Store, error) {
		return dataset.LoadFile(cfg.Dataset.Path, logger)
	}

	store, err := initialStore(ctx, cfg, snapshots, loader, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	opts := server.Options{
		Store:         store,
		Logger:        logger,
		Metrics:       reg,
		MaxQueryDepth: cfg.Server.MaxQueryDepth,
		Loader:        loader,
		Snapshots:     snapshots,
	}
	if cfg.Server.AuthEnabled {
		opts.AuthEnabled = true
		if opts.JWT, opts.APIKeys, err = credentials(cfg.Server); err != nil {
			app.Close()
			return nil, err
		}
	}

	app.server, err = server.New(opts)
	if err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// openSnapshots returns nil for the "none" backend. The closer is set for
// backends holding connections.
func openSnapshots(ctx context.Context, cfg config.Config) (persist.Snapshotter, io.Closer, error) {
	switch cfg.Snapshot.Backend {
	case config.BackendNone, "":
		return nil, nil, nil
	case config.BackendFile:
		fs, err := persist.NewFileStore(cfg.Snapshot.Path)
		if err != nil {
			return nil, nil, err
		}
		return fs, nil, nil
	case config.BackendPostgres:
		pg, err := persist.NewPGStore(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg, nil
	case config.BackendS3:
		s3, err := persist.NewS3Store(ctx, persist.S3Config{
			Bucket:    cfg.S3.Bucket,
			Key:       cfg.S3.Key,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return s3, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown snapshot backend %q", cfg.Snapshot.Backend)
}

// initialStore prefers the snapshot when load_on_start is set and falls back
// to the dataset when the snapshot cannot be read.
func initialStore(ctx context.Context, cfg config.Config, snapshots persist.Snapshotter, loader server.LoadFunc, logger logging.Logger) (*knowledge.Store, error) {
	if snapshots != nil && cfg.Snapshot.LoadOnStart {
		store, err := snapshots.Load(ctx)
		if err == nil {
			logger.Info("knowledge base restored from snapshot",
				logging.String("backend", snapshots.Backend()),
				logging.Int("nodes", store.NodeCount()),
			)
			return store, nil
		}
		if errors.Is(err, persist.ErrNoSnapshot) {
			logger.Info("no snapshot stored, loading dataset",
				logging.String("backend", snapshots.Backend()),
			)
		} else {
			logger.Warn("snapshot unavailable, loading dataset",
				logging.String("backend", snapshots.Backend()),
				logging.Error(err),
			)
		}
	}
	return loader(ctx)
}

func credentials(sc config.ServerConfig) (*auth.JWTManager, *auth.APIKeyStore, error) {
	jwtManager, err := auth.NewJWTManager(sc.JWTSecret, tokenIssuer, sc.TokenTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("jwt: %w", err)
	}
	if len(sc.APIKeys) == 0 {
		return jwtManager, nil, nil
	}
	keys, err := auth.NewAPIKeyStore(auth.DeriveSecret(sc.JWTSecret, apiKeySalt))
	if err != nil {
		return nil, nil, err
	}
	for _, k := range sc.APIKeys {
		if err := keys.Add(k.Name, k.Key, k.Role); err != nil {
			return nil, nil, fmt.Errorf("api key %q: %w", k.Name, err)
		}
	}
	return jwtManager, keys, nil
}
