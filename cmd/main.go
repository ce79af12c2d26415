package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tutor-rag/internal/config"
	"tutor-rag/internal/db"
	"tutor-rag/internal/embedding"
	"tutor-rag/internal/helper"
	"tutor-rag/internal/llmservice"
	"tutor-rag/internal/models"
	"tutor-rag/internal/rag"
	"tutor-rag/internal/server"
	"tutor-rag/internal/vectorstore"
)

const defaultConfigPath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", defaultConfigPath, "Path to the config file")
	serve := flag.Bool("serve", false, "Start the HTTP API server")
	initKB := flag.Bool("init", false, "Initialize the knowledge base from the document directory")
	query := flag.String("query", "", "Ask a single question from the command line")
	userType := flag.String("user-type", "general", "Student type for personalization")
	weakSubjects := flag.String("weak", "", "Comma-separated weak subjects")
	demo := flag.Bool("demo", false, "Run the demo queries")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	pipeline, err := buildPipeline(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error building pipeline")
	}

	ctx := context.Background()

	switch {
	case *initKB:
		report, err := pipeline.InitializeKnowledgeBase(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Error initializing knowledge base")
		}
		helper.PrettyPrint(report)

	case *query != "":
		runQuery(ctx, pipeline, *query, *userType, *weakSubjects)

	case *demo:
		for _, result := range pipeline.Demo(ctx) {
			printResult(result)
		}

	case *serve:
		srv := server.New(pipeline, cfg)
		log.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting API server")
		if err := srv.Run(); err != nil {
			log.Fatal().Err(err).Msg("Server stopped")
		}

	default:
		flag.Usage()
	}
}

func buildPipeline(cfg *config.Config) (*rag.Pipeline, error) {
	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		return nil, fmt.Errorf("initializing embedder: %w", err)
	}

	// Refuse to serve an index built in a different embedding space; a
	// mismatch would silently corrupt every similarity score.
	if err := vectorstore.VerifyEmbedder(cfg.Store.Path, embedding.VersionID(&cfg.EmbedLLM)); err != nil {
		return nil, fmt.Errorf("verifying index embedder: %w", err)
	}

	var store vectorstore.Store
	switch cfg.Store.Backend {
	case "postgres":
		sqldb, err := db.ConnectDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		bunDB := db.NewDB(sqldb, cfg.Database.Debug)
		if err := db.InitDB(context.Background(), bunDB); err != nil {
			return nil, fmt.Errorf("initializing database: %w", err)
		}
		store = db.NewPostgresStore(bunDB, embedder)
	default:
		store, err = vectorstore.NewChromemStore(
			cfg.Store.Path, cfg.Store.Collection, false, embedding.ChromemFunc(embedder))
		if err != nil {
			return nil, fmt.Errorf("opening vector store: %w", err)
		}
	}

	generator, err := llmservice.NewClient(&cfg.ChatLLM)
	if err != nil {
		return nil, fmt.Errorf("initializing generator: %w", err)
	}

	return rag.New(store, generator, cfg), nil
}

func runQuery(ctx context.Context, pipeline *rag.Pipeline, query, userType, weakSubjects string) {
	parsedType, err := models.ParseStudentType(userType)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid user type")
	}

	var weak []string
	if weakSubjects != "" {
		weak = strings.Split(weakSubjects, ",")
	}

	sessionID, err := helper.GenerateUUID()
	if err != nil {
		log.Fatal().Err(err).Msg("Error generating session id")
	}

	result := pipeline.Query(ctx, models.QueryRequest{
		Query:     query,
		Profile:   models.StudentProfile{UserType: parsedType, WeakSubjects: weak},
		SessionID: sessionID,
	})
	printResult(result)
}

func printResult(result *models.PipelineResult) {
	fmt.Printf("Query: %s\n\n", result.Query)

	for i, rc := range result.Retrieved {
		fmt.Printf("[Source %d: %s, Page %d, similarity %.3f]\n",
			i+1, rc.Chunk.Chapter, rc.Chunk.Page, rc.Similarity)
	}
	if len(result.Retrieved) > 0 {
		fmt.Println()
	}

	fmt.Printf("Answer: %s\n\n", result.Answer)
	if result.Err != nil {
		fmt.Printf("Error: %v\n", result.Err)
	}
}
