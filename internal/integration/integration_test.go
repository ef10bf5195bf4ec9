package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"quiz-round-service/internal/app"
	"quiz-round-service/internal/domain"
	"quiz-round-service/internal/infra/postgres"
	pgmigrations "quiz-round-service/internal/infra/postgres/migrations"
	infraredis "quiz-round-service/internal/infra/redis"
)

var teams = []domain.Team{{ID: "alpha", Name: "Alpha"}, {ID: "bravo", Name: "Bravo"}}

func TestRoundPersistsToPostgres(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	seedBank(t, ctx, pgURL, sampleQuestions())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	store := postgres.NewSnapshotStore(pool, "")
	seed := app.Seed{Teams: teams, Loader: postgres.NewQuestionLoader(pool), NegativeMarking: true}
	engine, err := app.NewRoundEngine(ctx, store, app.AccessPolicy{Token: "t"}, seed)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	if q, _, err := engine.CurrentQuestion(); err != nil || q.ID != "q1" {
		t.Fatalf("expected bank order from postgres, got %+v err=%v", q, err)
	}

	playFirstQuestion(t, ctx, engine)

	restored, err := app.NewRoundEngine(ctx, store, app.AccessPolicy{Token: "t"}, seed)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	assertStandings(t, restored)
	if restored.SessionID() != engine.SessionID() {
		t.Fatalf("session changed across restore: %s vs %s", restored.SessionID(), engine.SessionID())
	}
}

func TestRoundPersistsToRedis(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()
	client, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer client.Close()

	store := infraredis.NewSnapshotStore(client, "")
	seed := app.Seed{Teams: teams, Questions: sampleQuestions(), NegativeMarking: true}
	engine, err := app.NewRoundEngine(ctx, store, app.AccessPolicy{Token: "t"}, seed)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	playFirstQuestion(t, ctx, engine)

	restored, err := app.NewRoundEngine(ctx, store, app.AccessPolicy{Token: "t"}, seed)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	assertStandings(t, restored)
}

func playFirstQuestion(t *testing.T, ctx context.Context, engine *app.RoundEngine) {
	t.Helper()
	if _, err := engine.Submit(ctx, "alpha", domain.RawAnswer{Choice: "1"}); err != nil {
		t.Fatalf("submit alpha: %v", err)
	}
	if _, err := engine.Submit(ctx, "bravo", domain.RawAnswer{Choice: "0"}); err != nil {
		t.Fatalf("submit bravo: %v", err)
	}
	if err := engine.Reveal(ctx); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if err := engine.Advance(ctx); err != nil {
		t.Fatalf("advance: %v", err)
	}
}

func assertStandings(t *testing.T, engine *app.RoundEngine) {
	t.Helper()
	rows := engine.Leaderboard()
	if len(rows) != 2 || rows[0].TeamID != "alpha" || rows[0].Score != 1 || rows[1].Score != -0.5 {
		t.Fatalf("unexpected leaderboard %+v", rows)
	}
	if _, idx, err := engine.CurrentQuestion(); err != nil || idx != 1 {
		t.Fatalf("expected pointer on second question, got %d err=%v", idx, err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedBank(t *testing.T, ctx context.Context, dsn string, questions []domain.Question) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := postgres.ImportQuestions(ctx, db, questions); err != nil {
		t.Fatalf("import questions: %v", err)
	}
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Kind: domain.KindSingle, Prompt: "What is 2 + 2?", Choices: []string{"3", "4", "5"}, Correct: 1},
		{ID: "q2", Kind: domain.KindShort, Prompt: "Capital of France?", Accept: []string{"paris"}},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
