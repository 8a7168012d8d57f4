package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"trivia-match-service/internal/app"
	"trivia-match-service/internal/domain"
	pgloader "trivia-match-service/internal/infra/postgres"
	pgmigrations "trivia-match-service/internal/infra/postgres/migrations"
	infraredis "trivia-match-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestMatchEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedCatalog(t, ctx, pgURL, sampleCatalog())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgloader.NewCatalogLoader(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	catalogs := infraredis.NewCatalogRepository(redisClient, loader, 5*time.Minute)
	matches := infraredis.NewMatchStore(redisClient, 5*time.Minute)
	history := infraredis.NewHistoryStore(redisClient)
	service := app.NewMatchService(matches, catalogs, history)

	if _, err := service.Join(ctx, "match-1", "u1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := service.Join(ctx, "match-1", "u2"); err != nil {
		t.Fatalf("join: %v", err)
	}

	snap, err := service.Start(ctx, "match-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.QuestionNumber != 1 || snap.QuestionTotal != 6 {
		t.Fatalf("expected question 1 of 6 selected, got %d/%d", snap.QuestionNumber, snap.QuestionTotal)
	}

	for n := 1; !snap.Complete; n++ {
		snap, _, err = service.TimeDone(ctx, "match-1", n)
		if err != nil {
			t.Fatalf("timeDone %d: %v", n, err)
		}
	}
	_, result, err := service.TimeDone(ctx, "match-1", snap.QuestionNumber)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected results for both players, got %v", result)
	}

	// seen counters went through redis
	record, err := history.Load(ctx, "u1")
	if err != nil {
		t.Fatalf("load history: %v", err)
	}
	if len(record.QuestionsSeen) != 5 {
		t.Fatalf("expected 5 played questions persisted, got %v", record.QuestionsSeen)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "triviadb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
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
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/triviadb?sslmode=disable", host, port.Port())
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

func seedCatalog(t *testing.T, ctx context.Context, dsn string, catalog domain.Catalog) {
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

	data, err := json.Marshal(catalog)
	if err != nil {
		t.Fatalf("marshal catalog: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO catalogs (lang, data) VALUES (? , ?::jsonb) ON CONFLICT (lang) DO UPDATE SET data=EXCLUDED.data`, string(catalog.Lang), string(data)); err != nil {
		t.Fatalf("insert catalog: %v", err)
	}
}

func sampleCatalog() domain.Catalog {
	return domain.Catalog{
		Lang: domain.LangEN,
		Questions: []domain.Question{
			{ID: 1, Category: "Tutorial", Question: "Pick green", CorrectAnswer: "Green", IncorrectAnswers: []string{"Red", "Blue", "Yellow"}},
			{ID: 2, Category: "Science", Question: "Red planet?", CorrectAnswer: "Mars", IncorrectAnswers: []string{"Venus", "Jupiter", "Mercury"}},
			{ID: 3, Category: "Geography", Question: "Capital of Australia?", CorrectAnswer: "Canberra", IncorrectAnswers: []string{"Sydney", "Melbourne", "Perth"}},
			{ID: 4, Category: "History", Question: "Berlin Wall fell?", CorrectAnswer: "1989", IncorrectAnswers: []string{"1987", "1991", "1993"}},
			{ID: 5, Category: "Art", Question: "Mona Lisa painter?", CorrectAnswer: "Leonardo da Vinci", IncorrectAnswers: []string{"Michelangelo", "Raphael", "Donatello"}},
			{ID: 6, Category: "Sports", Question: "Players on the field?", CorrectAnswer: "11", IncorrectAnswers: []string{"9", "10", "12"}},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
