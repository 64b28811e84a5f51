package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"kennel-portal/agent"
	"kennel-portal/auth"
	"kennel-portal/completion"
	"kennel-portal/databases"
	"kennel-portal/handler"
	"kennel-portal/observability"
	"kennel-portal/router"
	"kennel-portal/service"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply database migrations before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := appCfg
	logger := observability.GetLogger()
	ctx := observability.WithLogger(cmd.Context(), logger)

	db, err := databases.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to init db: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("close db error")
		}
	}()

	if migrateOnStart {
		if err := databases.Migrate(ctx, db); err != nil {
			return err
		}
	}

	store := databases.NewStore(db, cfg.Agent.PaymentURL)
	client := completion.NewClient(cfg.LLM)
	orchestrator := agent.New(client, store, agent.WithMaxMessageChars(cfg.Agent.MaxMessageChars))

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery(), observability.RequestLogger())

	router.RegisterRoutes(r, router.Deps{
		Agent:    handler.NewAgentHandler(service.NewAgentService(orchestrator, cfg.Agent.RequestTimeout)),
		Portal:   handler.NewPortalHandler(service.NewPortalService(store)),
		Resolver: auth.NewResolver(cfg.JWT),
		ReadyChecks: map[string]observability.HealthCheckFunc{
			"database":   store.Ping,
			"completion": client.Ping,
		},
	})

	if cfg.JWT.Secret == "" {
		logger.Warn().Msg("jwt secret is empty, every caller will be rejected")
	}

	server := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Agent.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Str("model", cfg.LLM.Model).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-quit:
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info().Msg("server exited gracefully")
	return nil
}
