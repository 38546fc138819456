// ABOUTME: Entry point for the Xylen warehouse dashboard.
// ABOUTME: Wires config, activity store, API client and dashboard handlers behind cobra commands.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	cerrors "github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/2389/xylen/internal/admin"
	"github.com/2389/xylen/internal/api"
	"github.com/2389/xylen/internal/config"
	"github.com/2389/xylen/internal/logging"
	"github.com/2389/xylen/internal/resource"
	"github.com/2389/xylen/internal/seed"
	"github.com/2389/xylen/internal/session"
	"github.com/2389/xylen/internal/store"
	"github.com/2389/xylen/internal/views"
)

var version = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "xylen",
		Short: "Xylen - warehouse management dashboard",
		Long: `Xylen is a server-rendered dashboard for a warehouse REST API.

Admins manage users, products, suppliers, customers and transactions.
Staff work with products and can remove transactions.

Quick Start:
  xylen serve --api-url http://localhost:3000 --session-secret "$(openssl rand -hex 32)"
  xylen seed -u admin --seed-password secret`,
		SilenceUsage: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard server",
		Long: `Start the dashboard HTTP server.

The server provides:
  • Landing page at http://localhost:PORT/
  • Table screens at /admin/tables and /staff/tables
  • Activity log at /activity (admins)
  • Health check at /healthz

Environment Variables:
  XYLEN_PORT              Server port (default: 8080)
  XYLEN_API_URL           Warehouse API base URL
  XYLEN_SESSION_SECRET    Cookie signing secret
  XYLEN_SIGNUP_GATE_HASH  bcrypt hash of the sign-up passphrase
  XYLEN_DEBUG             Development logging (true/false)`,
		RunE: runServe,
	}
	config.ServeFlags(serveCmd.Flags())

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Push demo suppliers, customers and products to the warehouse API",
		Long: `Sign in as an admin and create demo records through the warehouse API.

AI-Powered Generation:
  Set OPENAI_API_KEY to generate the records with OpenAI.
  Falls back to static demo data if no API key is provided.

Note: Seed is not idempotent. Each run creates new records.`,
		RunE: runSeed,
		Args: cobra.NoArgs,
	}
	config.SeedFlags(seedCmd.Flags())

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "xylen %s\n", version)
		},
	}

	rootCmd.AddCommand(serveCmd, seedCmd, versionCmd)
	return rootCmd
}

// loadConfig merges .env, XYLEN_* variables and the command's flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, err
	}
	v := config.New()
	if err := config.Bind(v, cmd.Flags()); err != nil {
		return config.Config{}, cerrors.Wrap(err, "binding flags")
	}
	return config.Load(v)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// server is the assembled dashboard.
type server struct {
	handler http.Handler
	store   *store.Store
	views   *views.Registry
}

func (s *server) Close() error {
	return s.store.Close()
}

func newServer(cfg config.Config, logger *zap.Logger) (*server, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, cerrors.Wrap(err, "creating data directory")
	}
	s, err := store.New(cfg.DBPath, logger.Named("store"))
	if err != nil {
		return nil, cerrors.Wrap(err, "failed to open store")
	}

	secret := cfg.SessionSecret
	if secret == "" {
		secret = uuid.NewString() + uuid.NewString()
		logger.Warn("no session secret configured, using an ephemeral one; sessions end on restart")
	}
	codec, err := session.NewCodec(secret, cfg.SessionTTL, cfg.SecureCookies)
	if err != nil {
		s.Close()
		return nil, err
	}

	client, err := api.New(cfg.APIURL,
		api.WithLogger(logger.Named("api")),
		api.WithRecorder(logging.APIRecorder(s, logger)))
	if err != nil {
		s.Close()
		return nil, err
	}

	registry := views.NewRegistry(cfg.ViewTTL, logger.Named("views"))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(codec.Middleware(logger))
	r.Use(logging.Middleware(s, logger))

	r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	admin.NewHandlers(admin.Config{
		API:            client,
		Sessions:       codec,
		Views:          registry,
		Store:          s,
		SignupGateHash: cfg.SignupGateHash,
		Logger:         logger.Named("admin"),
	}).RegisterRoutes(r)

	return &server{handler: r, store: s, views: registry}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	srv, err := newServer(cfg, logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go srv.views.Run(ctx)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	logger.Info("dashboard listening",
		zap.String("addr", httpSrv.Addr),
		zap.String("api", cfg.APIURL),
		zap.String("db", cfg.DBPath))

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	return seedData(cmd.Context(), cfg, logger, cmd.OutOrStdout())
}

func seedData(ctx context.Context, cfg config.Config, logger *zap.Logger, out io.Writer) error {
	if cfg.SeedUsername == "" || cfg.SeedPassword == "" {
		return cerrors.New("seed-username and seed-password are required")
	}
	if cfg.SeedCount <= 0 {
		return cerrors.Newf("seed-count must be positive, got %d", cfg.SeedCount)
	}

	client, err := api.New(cfg.APIURL, api.WithLogger(logger.Named("api")))
	if err != nil {
		return err
	}
	auth, err := client.SignIn(ctx, cfg.SeedUsername, cfg.SeedPassword)
	if err != nil {
		return cerrors.Wrap(err, "signing in")
	}
	if resource.ParseRole(auth.Role) != resource.RoleAdmin {
		return cerrors.Newf("seed account %q is not an admin", cfg.SeedUsername)
	}

	data, err := seed.NewGenerator(cfg.OpenAIKey, cfg.OpenAIModel, logger.Named("seed")).Generate(ctx, cfg.SeedCount)
	if err != nil {
		return err
	}
	sum, err := seed.Push(ctx, client, auth.Token, data, logger.Named("seed"))
	if err != nil {
		return cerrors.Wrap(err, "pushing demo data")
	}

	fmt.Fprintf(out, "Seeding complete! Created %d suppliers, %d customers, %d products (%d rejected)\n",
		sum.Created["suppliers"], sum.Created["customers"], sum.Created["products"], sum.Failed)
	return nil
}
