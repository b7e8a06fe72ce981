package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/HerbHall/wardwatch/internal/audit"
	"github.com/HerbHall/wardwatch/internal/auth"
	"github.com/HerbHall/wardwatch/internal/config"
	"github.com/HerbHall/wardwatch/internal/event"
	"github.com/HerbHall/wardwatch/internal/monitor"
	"github.com/HerbHall/wardwatch/internal/registry"
	"github.com/HerbHall/wardwatch/internal/server"
	"github.com/HerbHall/wardwatch/internal/staff"
	"github.com/HerbHall/wardwatch/internal/store"
	"github.com/HerbHall/wardwatch/internal/version"
	"github.com/HerbHall/wardwatch/internal/ws"
	"github.com/HerbHall/wardwatch/pkg/clearance"
	"github.com/HerbHall/wardwatch/pkg/plugin"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the WardWatch API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, *configPath)
		},
	}
}

func runServer(ctx context.Context, configPath string) error {
	// Configuration comes first so the log level and format apply.
	v, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	cfg := config.New(v)

	logger, err := config.NewLogger(v)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("WardWatch server starting", zap.String("version", version.Short()))
	if f := v.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded", zap.String("component", "config"), zap.String("source", f))
	} else {
		logger.Warn("no configuration file found, using defaults", zap.String("component", "config"))
	}

	dbPath := v.GetString("database.path")
	db, err := store.New(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.CheckVersion(ctx, version.Version); err != nil {
		return err
	}
	logger.Info("database initialized", zap.String("component", "database"), zap.String("path", dbPath))

	bus := event.NewBus(logger.Named("event"))
	reg := registry.New(logger.Named("registry"))

	directory := staff.New()
	for _, m := range []plugin.Plugin{audit.New(), monitor.New(), directory} {
		if err := reg.Register(m); err != nil {
			return fmt.Errorf("register plugin: %w", err)
		}
	}
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("plugin validation: %w", err)
	}

	if err := reg.InitAll(ctx, func(name string) plugin.Dependencies {
		return plugin.Dependencies{
			Config:  cfg.Sub("plugins." + name),
			Logger:  logger.Named(name),
			Store:   db,
			Bus:     bus,
			Plugins: reg,
		}
	}); err != nil {
		return fmt.Errorf("initialize plugins: %w", err)
	}
	if err := reg.StartAll(ctx); err != nil {
		return fmt.Errorf("start plugins: %w", err)
	}

	tokens, err := newTokenService(v, logger)
	if err != nil {
		reg.StopAll(context.Background())
		return err
	}

	wsHandler := ws.NewHandler(bus, logger.Named("ws"))
	defer wsHandler.Close()

	var srvCfg server.Config
	if err := cfg.Sub("server").Unmarshal(&srvCfg); err != nil {
		reg.StopAll(context.Background())
		return fmt.Errorf("decode server config: %w", err)
	}
	readyCheck := server.ReadinessChecker(func(ctx context.Context) error {
		return db.Ping(ctx)
	})
	authMW := auth.Middleware(tokens, directory.Service(), logger.Named("auth"))
	srv := server.New(srvCfg, reg, logger, readyCheck, authMW, wsHandler)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	logger.Info("WardWatch server ready", zap.String("addr", srvCfg.Addr()))

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case serveErr = <-errCh:
		logger.Error("server error", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	reg.StopAll(shutdownCtx)
	bus.Wait()

	logger.Info("WardWatch server stopped")
	return serveErr
}

// newTokenService builds the access-token validator. Without a configured
// secret an ephemeral one is generated, so issued tokens die with the
// process.
func newTokenService(v *viper.Viper, logger *zap.Logger) (*auth.TokenService, error) {
	secret := v.GetString("auth.jwt_secret")
	if secret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("generate JWT secret: %w", err)
		}
		secret = hex.EncodeToString(b)
		logger.Warn("using auto-generated JWT secret; set auth.jwt_secret to keep tokens valid across restarts",
			zap.String("component", "auth"))
	}
	return auth.NewTokenService([]byte(secret), v.GetString("auth.issuer"), v.GetDuration("auth.access_token_ttl"))
}

var errNoSecret = errors.New("auth.jwt_secret must be configured to issue tokens")

func tokenCmd(configPath *string) *cobra.Command {
	var (
		userID string
		level  string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a staff member",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			secret := v.GetString("auth.jwt_secret")
			if secret == "" {
				return errNoSecret
			}
			if ttl <= 0 {
				ttl = v.GetDuration("auth.access_token_ttl")
			}
			l, err := clearance.ParseLevel(level)
			if err != nil {
				return err
			}
			tokens, err := auth.NewTokenService([]byte(secret), v.GetString("auth.issuer"), ttl)
			if err != nil {
				return err
			}
			token, err := tokens.IssueAccessToken(userID, l)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "staff member id (token subject)")
	cmd.Flags().StringVar(&level, "clearance", "L1", "clearance level claim (L1-L4)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to auth.access_token_ttl)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
