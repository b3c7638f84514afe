package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"geminicli2api/internal/codeassist"
	"geminicli2api/internal/config"
	"geminicli2api/internal/credential"
	"geminicli2api/internal/logging"
	"geminicli2api/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	flag.Parse()

	cfg, err := config.LoadWithFile(*configPath)
	if err != nil {
		log.WithError(err).Fatal("could not load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if err := logging.Setup(cfg); err != nil {
		log.WithError(err).Fatal("could not configure logging")
	}

	store, cleanup, err := buildStore(cfg)
	if err != nil {
		log.WithError(err).Fatal("could not initialize credential store")
	}
	defer cleanup()

	manager := credential.NewManager(credential.Options{
		Store:             store,
		EnvCredentialJSON: cfg.CredentialsJSON,
		ClientID:          cfg.OAuthClientID,
		ClientSecret:      cfg.OAuthClientSecret,
		CooldownBase:      time.Duration(cfg.CooldownBaseSec) * time.Second,
		CooldownMax:       time.Duration(cfg.CooldownMaxSec) * time.Second,
	})

	client := codeassist.NewClient(cfg.CodeAssistEndpoint, nil)
	resolver := codeassist.NewResolver(codeassist.ResolverOptions{
		Client:          client,
		Manager:         manager,
		OverrideProject: cfg.ProjectID,
		PollInterval:    time.Duration(cfg.OnboardPollIntervalSec) * time.Second,
		MaxAttempts:     cfg.OnboardMaxAttempts,
	})

	warmUp(manager, resolver)

	srv := server.New(cfg, manager, client, resolver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Fatal("server failed")
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
		}
	}
}

func buildStore(cfg *config.Config) (credential.Store, func(), error) {
	if cfg.RedisAddr != "" {
		store, err := credential.NewRedisStore(credential.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			return nil, nil, err
		}
		log.Infof("using redis credential store at %s", cfg.RedisAddr)
		return store, func() { _ = store.Close() }, nil
	}
	log.Infof("using file credential store at %s", cfg.AuthDir)
	return credential.NewFileStore(cfg.AuthDir), func() {}, nil
}

// warmUp runs a best-effort onboarding pass over the first usable credential
// so the first client request does not pay the handshake latency. Failures
// are logged, not fatal; requests retry the handshake per credential.
func warmUp(manager *credential.Manager, resolver *codeassist.Resolver) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	rec, err := manager.LoadAny(ctx)
	if err != nil {
		log.WithError(err).Warn("no credential available at startup")
		return
	}
	rec, err = manager.RefreshIfExpired(ctx, rec)
	if err != nil {
		log.WithError(err).Warn("startup credential refresh failed")
		return
	}
	projectID, err := resolver.ResolveProjectID(ctx, rec)
	if err != nil {
		log.WithError(err).Warn("startup project resolution failed")
		return
	}
	if err := resolver.EnsureOnboarded(ctx, rec, projectID); err != nil {
		log.WithError(err).Warn("startup onboarding failed")
		return
	}
	log.Infof("credential %s ready for project %s", rec.Identity, projectID)
}
