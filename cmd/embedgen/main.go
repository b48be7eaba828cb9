// Package main populates the course embedding table from the catalog
// snapshot. Run it once after each catalog update; the advising server
// loads the stored vectors at startup.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/tigertalks/tigertalks-go/internal/catalog"
	"github.com/tigertalks/tigertalks-go/internal/config"
	"github.com/tigertalks/tigertalks-go/internal/genai"
	"github.com/tigertalks/tigertalks-go/internal/logger"
	"github.com/tigertalks/tigertalks-go/internal/storage"
)

func main() {
	var (
		workers = flag.Int("workers", 4, "concurrent embedding requests")
		force   = flag.Bool("force", false, "re-embed courses whose stored vector is current")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel).WithModule("embedgen")

	if err := run(context.Background(), cfg, log, *workers, *force); err != nil {
		log.WithError(err).Error("Embedding generation failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, workers int, force bool) error {
	db, err := storage.New(cfg.SQLitePath())
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer func() { _ = db.Close() }()

	cat := catalog.NewStore(cfg.CatalogPath, log)
	if err := cat.Load(ctx); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	client, err := genai.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIChatModel, cfg.OpenAIEmbeddingModel)
	if err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	generator, err := genai.NewGenerator(client, nil, genai.DefaultRetryConfig())
	if err != nil {
		return err
	}
	defer func() { _ = generator.Close() }()
	modelID := generator.EmbeddingModelID()

	codes, err := cat.AllCourseCodes(ctx)
	if err != nil {
		return fmt.Errorf("list courses: %w", err)
	}

	current := make(map[string]string)
	if !force {
		stored, err := db.GetAllEmbeddings(ctx)
		if err != nil {
			return fmt.Errorf("load stored embeddings: %w", err)
		}
		for _, emb := range stored {
			if emb.ModelID == modelID {
				current[emb.CourseCode] = emb.SourceText
			}
		}
	}

	log.WithField("courses", len(codes)).
		WithField("model", modelID).
		WithField("workers", workers).
		Info("Starting embedding generation")

	var embedded, skipped atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, code := range codes {
		g.Go(func() error {
			details, err := cat.Details(gctx, code)
			if err != nil {
				log.WithError(err).WithField("course", code).Warn("Skipping course without details")
				skipped.Add(1)
				return nil
			}

			text := sourceText(details)
			if current[code] == text {
				skipped.Add(1)
				return nil
			}

			vector, err := generator.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("embed %s: %w", code, err)
			}
			if err := db.UpsertEmbedding(gctx, &storage.CourseEmbedding{
				CourseCode: code,
				ModelID:    modelID,
				SourceText: text,
				Vector:     vector,
			}); err != nil {
				return err
			}

			if n := embedded.Add(1); n%50 == 0 {
				log.WithField("embedded", n).Info("Embedding generation progress")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	log.WithField("embedded", embedded.Load()).
		WithField("skipped", skipped.Load()).
		Info("Embedding generation complete")
	return nil
}

// sourceText composes the text that gets embedded for a course. It must stay
// stable across runs so unchanged courses are detected and skipped.
func sourceText(d catalog.CourseDetails) string {
	return d.Code + " " + d.Title + "\n" + d.Description
}
