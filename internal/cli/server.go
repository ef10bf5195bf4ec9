package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"quiz-round-service/internal/app"
	"quiz-round-service/internal/config"
	"quiz-round-service/internal/infra/file"
	"quiz-round-service/internal/infra/memory"
	"quiz-round-service/internal/infra/postgres"
	redisstore "quiz-round-service/internal/infra/redis"
	transport "quiz-round-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz round server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backends holds the optional external clients opened for a run.
type backends struct {
	redis *redis.Client
	pool  *pgxpool.Pool
}

func (b backends) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

func openBackends(ctx context.Context, cfg config.Config) (backends, error) {
	var b backends
	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return b, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return b, err
		}
		b.pool = pool
	}
	return b, nil
}

func snapshotStore(cfg config.Config, b backends) (app.SnapshotStore, error) {
	switch cfg.State.Backend {
	case config.BackendFile:
		return file.NewSnapshotStore(cfg.State.Path), nil
	case config.BackendRedis:
		if b.redis == nil {
			return nil, fmt.Errorf("state backend redis requires redis.addr")
		}
		return redisstore.NewSnapshotStore(b.redis, cfg.State.Key), nil
	case config.BackendPostgres:
		if b.pool == nil {
			return nil, fmt.Errorf("state backend postgres requires postgres.url")
		}
		return postgres.NewSnapshotStore(b.pool, cfg.State.Key), nil
	case config.BackendMemory:
		return memory.NewSnapshotStore(), nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.State.Backend)
	}
}

func questionLoader(cfg config.Config, b backends) (app.QuestionLoader, error) {
	var loader app.QuestionLoader
	switch cfg.Quiz.BankSource {
	case config.BankFile:
		loader = file.NewQuestionBank(cfg.Quiz.Bank)
	case config.BankPostgres:
		if b.pool == nil {
			return nil, fmt.Errorf("bank source postgres requires postgres.url")
		}
		loader = postgres.NewQuestionLoader(b.pool)
	default:
		return nil, fmt.Errorf("unknown bank source %q", cfg.Quiz.BankSource)
	}
	if b.redis != nil {
		ttl := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
		loader = redisstore.NewQuestionCache(b.redis, loader, cfg.Quiz.BankSource, ttl)
	}
	return loader, nil
}

func newEngine(ctx context.Context, cfg config.Config, b backends) (*app.RoundEngine, error) {
	store, err := snapshotStore(cfg, b)
	if err != nil {
		return nil, err
	}
	loader, err := questionLoader(cfg, b)
	if err != nil {
		return nil, err
	}
	policy := app.AccessPolicy{Token: cfg.Admin.Token, TokenHash: cfg.Admin.TokenHash}
	if policy.Token == "" && policy.TokenHash == "" {
		log.Printf("no admin token configured: resets allowed from localhost only")
	}
	return app.NewRoundEngine(ctx, store, policy, app.Seed{
		Teams:           cfg.Quiz.Teams,
		Loader:          loader,
		NegativeMarking: cfg.Quiz.NegativeMarking,
	}, app.WithDefaultTimer(config.TTLDuration(cfg.Quiz.Timer, 30*time.Second)))
}

func newMux(engine *app.RoundEngine) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewAPIHandler(engine).Register(mux)
	mux.HandleFunc("/ws", transport.NewWSHandler(engine).ServeWS)
	return mux
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := openBackends(ctx, cfg)
	defer b.Close()
	if err != nil {
		return err
	}

	engine, err := newEngine(ctx, cfg, b)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      newMux(engine),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("starting quiz round server on :%s (session %s)", finalPort, engine.SessionID())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
