package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trivia-match-service/internal/app"
	"trivia-match-service/internal/config"
	"trivia-match-service/internal/domain"
	"trivia-match-service/internal/infra/memory"
	pgloader "trivia-match-service/internal/infra/postgres"
	redisinfra "trivia-match-service/internal/infra/redis"
	transport "trivia-match-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia match server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.CatalogLoader = memory.NewStaticCatalogLoader(sampleCatalogs())
	if pool != nil {
		loader = pgloader.NewCatalogLoader(pool)
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var catalogs app.CatalogRepository
	if redisClient != nil {
		catalogs = redisinfra.NewCatalogRepository(redisClient, loader, catalogTTL)
	} else {
		catalogs = memory.NewCatalogRepository(loader, catalogTTL)
	}

	var matches app.MatchRepository
	var history app.HistoryStore
	if redisClient != nil {
		matches = redisinfra.NewMatchStore(redisClient, redisTTL)
		history = redisinfra.NewHistoryStore(redisClient)
	} else {
		matches = memory.NewMatchStore()
		history = memory.NewHistoryStore()
	}
	service := app.NewMatchService(matches, catalogs, history)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia match service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleCatalogs provides a minimal question set per language; production
// deployments load the full catalogs from Postgres instead.
func sampleCatalogs() map[domain.Language]domain.Catalog {
	return map[domain.Language]domain.Catalog{
		domain.LangEN: {
			Lang: domain.LangEN,
			Questions: []domain.Question{
				{ID: 1, Category: "Tutorial", Question: "Which answer is the green one?", CorrectAnswer: "Green", IncorrectAnswers: []string{"Red", "Blue", "Yellow"}},
				{ID: 2, Category: "Geography", Question: "What is the capital of Australia?", CorrectAnswer: "Canberra", IncorrectAnswers: []string{"Sydney", "Melbourne", "Perth"}},
				{ID: 3, Category: "Science", Question: "What planet is known as the Red Planet?", CorrectAnswer: "Mars", IncorrectAnswers: []string{"Venus", "Jupiter", "Mercury"}},
				{ID: 4, Category: "History", Question: "In which year did the Berlin Wall fall?", CorrectAnswer: "1989", IncorrectAnswers: []string{"1987", "1991", "1993"}},
				{ID: 5, Category: "Art", Question: "Who painted the Mona Lisa?", CorrectAnswer: "Leonardo da Vinci", IncorrectAnswers: []string{"Michelangelo", "Raphael", "Donatello"}},
				{ID: 6, Category: "Science", Question: "What gas do plants absorb from the atmosphere?", CorrectAnswer: "Carbon dioxide", IncorrectAnswers: []string{"Oxygen", "Nitrogen", "Hydrogen"}},
				{ID: 7, Category: "Geography", Question: "Which is the longest river in the world?", CorrectAnswer: "Nile", IncorrectAnswers: []string{"Amazon", "Yangtze", "Mississippi"}},
				{ID: 8, Category: "Sports", Question: "How many players are on a soccer team on the field?", CorrectAnswer: "11", IncorrectAnswers: []string{"9", "10", "12"}},
			},
		},
		domain.LangRU: {
			Lang: domain.LangRU,
			Questions: []domain.Question{
				{ID: 1, Category: "Обучение", Question: "Какой ответ зелёный?", CorrectAnswer: "Зелёный", IncorrectAnswers: []string{"Красный", "Синий", "Жёлтый"}},
				{ID: 2, Category: "География", Question: "Какая столица Австралии?", CorrectAnswer: "Канберра", IncorrectAnswers: []string{"Сидней", "Мельбурн", "Перт"}},
				{ID: 3, Category: "Наука", Question: "Какую планету называют красной?", CorrectAnswer: "Марс", IncorrectAnswers: []string{"Венера", "Юпитер", "Меркурий"}},
				{ID: 4, Category: "История", Question: "В каком году пала Берлинская стена?", CorrectAnswer: "1989", IncorrectAnswers: []string{"1987", "1991", "1993"}},
				{ID: 5, Category: "Искусство", Question: "Кто написал Мону Лизу?", CorrectAnswer: "Леонардо да Винчи", IncorrectAnswers: []string{"Микеланджело", "Рафаэль", "Донателло"}},
				{ID: 6, Category: "География", Question: "Какая самая длинная река в мире?", CorrectAnswer: "Нил", IncorrectAnswers: []string{"Амазонка", "Янцзы", "Миссисипи"}},
			},
		},
		domain.LangES: {
			Lang: domain.LangES,
			Questions: []domain.Question{
				{ID: 1, Category: "Tutorial", Question: "¿Qué respuesta es la verde?", CorrectAnswer: "Verde", IncorrectAnswers: []string{"Rojo", "Azul", "Amarillo"}},
				{ID: 2, Category: "Geografía", Question: "¿Cuál es la capital de Australia?", CorrectAnswer: "Canberra", IncorrectAnswers: []string{"Sídney", "Melbourne", "Perth"}},
				{ID: 3, Category: "Ciencia", Question: "¿Qué planeta es conocido como el planeta rojo?", CorrectAnswer: "Marte", IncorrectAnswers: []string{"Venus", "Júpiter", "Mercurio"}},
				{ID: 4, Category: "Historia", Question: "¿En qué año cayó el Muro de Berlín?", CorrectAnswer: "1989", IncorrectAnswers: []string{"1987", "1991", "1993"}},
				{ID: 5, Category: "Arte", Question: "¿Quién pintó la Mona Lisa?", CorrectAnswer: "Leonardo da Vinci", IncorrectAnswers: []string{"Miguel Ángel", "Rafael", "Donatello"}},
				{ID: 6, Category: "Geografía", Question: "¿Cuál es el río más largo del mundo?", CorrectAnswer: "Nilo", IncorrectAnswers: []string{"Amazonas", "Yangtsé", "Misisipi"}},
			},
		},
		domain.LangPT: {
			Lang: domain.LangPT,
			Questions: []domain.Question{
				{ID: 1, Category: "Tutorial", Question: "Qual resposta é a verde?", CorrectAnswer: "Verde", IncorrectAnswers: []string{"Vermelho", "Azul", "Amarelo"}},
				{ID: 2, Category: "Geografia", Question: "Qual é a capital da Austrália?", CorrectAnswer: "Canberra", IncorrectAnswers: []string{"Sydney", "Melbourne", "Perth"}},
				{ID: 3, Category: "Ciência", Question: "Qual planeta é conhecido como o planeta vermelho?", CorrectAnswer: "Marte", IncorrectAnswers: []string{"Vênus", "Júpiter", "Mercúrio"}},
				{ID: 4, Category: "História", Question: "Em que ano caiu o Muro de Berlim?", CorrectAnswer: "1989", IncorrectAnswers: []string{"1987", "1991", "1993"}},
				{ID: 5, Category: "Arte", Question: "Quem pintou a Mona Lisa?", CorrectAnswer: "Leonardo da Vinci", IncorrectAnswers: []string{"Michelangelo", "Rafael", "Donatello"}},
				{ID: 6, Category: "Geografia", Question: "Qual é o rio mais longo do mundo?", CorrectAnswer: "Nilo", IncorrectAnswers: []string{"Amazonas", "Yangtzé", "Mississippi"}},
			},
		},
	}
}
