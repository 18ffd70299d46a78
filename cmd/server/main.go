package main

import (
	"database/sql"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/Bhushan4829/multi-agent-diagnosis-chatbot/internal/agent"
	"github.com/Bhushan4829/multi-agent-diagnosis-chatbot/internal/diagnosis"
	"github.com/Bhushan4829/multi-agent-diagnosis-chatbot/internal/memory"
	"github.com/Bhushan4829/multi-agent-diagnosis-chatbot/internal/platform/icd"
	"github.com/Bhushan4829/multi-agent-diagnosis-chatbot/internal/predictor"
	"github.com/Bhushan4829/multi-agent-diagnosis-chatbot/internal/reference"
	"github.com/Bhushan4829/multi-agent-diagnosis-chatbot/internal/report"
	"github.com/Bhushan4829/multi-agent-diagnosis-chatbot/internal/retrieval"
)

func main() {
	_ = godotenv.Load()

	log, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// 1. Infrastructure
	db := openDatabase(log)

	// 2. Clients
	openaiKey := os.Getenv("OPENAI_API_KEY")
	if openaiKey == "" {
		log.Warn("OPENAI_API_KEY is not set; collaborator calls will fail and degrade")
	}
	assistant := agent.NewClient(openaiKey, log)

	icdClient := icd.NewClient(os.Getenv("ICD_CLIENT_ID"), os.Getenv("ICD_CLIENT_SECRET"))

	inferenceURL := os.Getenv("INFERENCE_URL")
	if inferenceURL == "" {
		inferenceURL = "http://inference:8000"
	}

	csvPath := os.Getenv("DISEASE_CSV_PATH")
	if csvPath == "" {
		csvPath = "data/merged_diseases.csv"
	}
	refTable, err := reference.Load(csvPath)
	if err != nil {
		log.Fatal("failed to load disease reference data", zap.Error(err))
	}
	log.Info("loaded disease reference data", zap.Int("diseases", refTable.Len()))

	// 3. Services
	modelPredictor := predictor.NewClient(inferenceURL, refTable, icdClient, log)
	retriever := retrieval.New(db, assistant, icdClient, log)
	mem := memory.NewStore()

	reportSvc := report.NewService(report.NewRepository(db), log)

	orc := diagnosis.NewOrchestrator(engineConfig(), diagnosis.Deps{
		Assistant:      assistant,
		ModelPredictor: modelPredictor,
		RAGPredictor:   retriever,
		Candidates:     refTable,
		Questions:      assistant,
		Knowledge:      retriever,
		Memory:         mem,
		Treatments:     refTable,
		Reporter:       reportSvc,
	}, log)

	// 4. Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Route("/api", func(r chi.Router) {
		diagnosis.RegisterRoutes(r, diagnosis.NewHandler(orc))
		report.RegisterRoutes(r, report.NewHandler(reportSvc))
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Info("server starting", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("ENV") == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openDatabase connects to Postgres with a short retry loop and runs the
// migrations. The server still starts without a database; retrieval and
// report persistence then degrade to their in-memory behavior.
func openDatabase(log *zap.Logger) *sql.DB {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Warn("DATABASE_URL is not set, running without Postgres")
		return nil
	}

	var db *sql.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sql.Open("postgres", dsn)
		if err == nil {
			err = db.Ping()
		}
		if err == nil {
			break
		}
		log.Info("waiting for database", zap.Int("attempt", i+1))
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		log.Warn("could not connect to database, continuing without it", zap.Error(err))
		return nil
	}
	log.Info("connected to database")

	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		log.Warn("migration init failed", zap.Error(err))
		return db
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Warn("migration up failed", zap.Error(err))
	} else {
		log.Info("migrations applied")
	}
	return db
}

// engineConfig reads the stop-rule tuning from the environment.
func engineConfig() diagnosis.Config {
	cfg := diagnosis.Config{}
	if v := os.Getenv("CONFIDENCE_HIGH"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.ConfidenceHigh = f
		}
	}
	if v := os.Getenv("MAX_FOLLOWUPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxFollowups = n
		}
	}
	if v := os.Getenv("COLLABORATOR_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CollaboratorTimeout = time.Duration(n) * time.Second
		}
	}
	return cfg
}

// corsMiddleware allows the browser frontend to call the API directly.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
