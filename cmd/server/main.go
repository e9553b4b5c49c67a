package main

import (
	"context"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/amauricunha/smartnlp/internal/apigateway"
	"github.com/amauricunha/smartnlp/internal/config"
	"github.com/amauricunha/smartnlp/internal/datastore"
	"github.com/amauricunha/smartnlp/internal/evaluation"
	"github.com/amauricunha/smartnlp/internal/llm"
	"github.com/amauricunha/smartnlp/internal/metrics"
	"github.com/amauricunha/smartnlp/internal/objectstore"
	"github.com/amauricunha/smartnlp/internal/transcription"
)

func main() {
	// .env is a development convenience; in containers the variables
	// come from the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	initLogging(cfg.Logging)

	db, err := datastore.Open(cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	if err := datastore.EnsureSchema(db); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure database schema")
	}
	store := datastore.NewStore(db)

	ctx := context.Background()
	blobs, err := buildObjectStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize object storage")
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	transcriber, err := transcription.NewClient(transcription.Config{
		BaseURL:    cfg.Whisper.URL,
		Language:   cfg.Whisper.Language,
		Timeout:    cfg.Whisper.Timeout,
		MaxRetries: cfg.Whisper.MaxRetries,
		RetryDelay: cfg.Whisper.RetryDelay,
	}, blobs, transcription.NewFFmpegConverter(), m)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create transcription client")
	}

	providers := []llm.Provider{
		llm.NewGroq(cfg.Groq, m),
		llm.NewMistral(cfg.Mistral, m),
	}
	if cfg.Groq.APIKey == "" {
		log.Warn().Msg("GROQ_API_KEY is not set; groq evaluations will fail with a configuration error")
	}
	if cfg.Mistral.APIKey == "" {
		log.Warn().Msg("MISTRAL_API_KEY is not set; mistral evaluations will fail with a configuration error")
	}

	svc, err := evaluation.NewService(blobs, transcriber, providers, cfg.Evaluation.Providers, store, m)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create evaluation service")
	}

	router := apigateway.SetupRouter(evaluation.NewHandlers(svc), m)
	log.Info().Str("port", cfg.Server.Port).Strs("providers", cfg.Evaluation.Providers).Msg("starting server")
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func buildObjectStore(ctx context.Context, cfg *config.Config) (objectstore.Store, error) {
	if cfg.Minio.Endpoint != "" {
		log.Info().Str("endpoint", cfg.Minio.Endpoint).Str("bucket", cfg.Minio.BucketName).Msg("using MinIO object storage")
		return objectstore.NewMinioStore(ctx, cfg.Minio)
	}
	log.Info().Str("dir", cfg.Upload.Dir).Msg("using local upload directory")
	return objectstore.NewLocalStore(cfg.Upload.Dir)
}

func initLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
