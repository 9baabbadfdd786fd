package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"

	"github.com/meditext/labelengine/internal/config"
	"github.com/meditext/labelengine/internal/domain"
	"github.com/meditext/labelengine/internal/ensemble"
	"github.com/meditext/labelengine/internal/predictor"
	"github.com/meditext/labelengine/internal/storage"
	"github.com/meditext/labelengine/internal/synthetic"
	"github.com/meditext/labelengine/internal/tracker"
)

// seed bootstraps per-category accuracy metrics before any real confirmed
// samples exist: it generates labeled sentences, runs each through the
// ensemble, and stores the pair of ground-truth and ensemble labels as a
// confirmed sample.
func main() {
	var (
		perCategory = flag.Int("per-category", 10, "single-label sentences to generate per category")
		multiCount  = flag.Int("multi", 30, "two-label sentences to generate across random category pairs")
		batchSize   = flag.Int("batch-size", 10, "sentences requested per model call")
		dryRun      = flag.Bool("dry-run", false, "generate and classify without persisting")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Predictor.OpenAIAPIKey == "" {
		log.Fatal("OPENAI_API_KEY is required for synthetic generation")
	}

	ctx := context.Background()

	predictors, err := predictor.FromConfig(&cfg.Predictor)
	if err != nil {
		log.Fatalf("Failed to build predictor pool: %v", err)
	}
	voter := ensemble.NewVoter(predictors, cfg.Policy, cfg.Predictor.Timeout)

	gen := synthetic.NewGenerator(
		cfg.Predictor.OpenAIAPIKey,
		cfg.Predictor.OpenAIBaseURL,
		cfg.Predictor.SeedModel,
		cfg.Policy.Categories,
	)

	var sentences []synthetic.LabeledSentence
	for _, c := range cfg.Policy.Categories {
		batch, err := generate(ctx, gen, []domain.Category{c}, *perCategory, *batchSize)
		if err != nil {
			log.Printf("Warning: category %s: %v", c, err)
			continue
		}
		sentences = append(sentences, batch...)
		log.Printf("Generated %d sentences for %s", len(batch), c)
	}

	for remaining := *multiCount; remaining > 0; remaining -= *batchSize {
		pair := randomPair(cfg.Policy.Categories)
		count := min(remaining, *batchSize)
		batch, err := gen.GenerateBatch(ctx, pair, count)
		if err != nil {
			log.Printf("Warning: pair %v: %v", pair, err)
			continue
		}
		sentences = append(sentences, batch...)
		log.Printf("Generated %d sentences for pair %v", len(batch), pair)
	}

	if len(sentences) == 0 {
		log.Fatal("No sentences generated")
	}
	log.Printf("Classifying %d synthetic sentences through the ensemble...", len(sentences))

	samples := make([]*domain.Sample, 0, len(sentences))
	for _, s := range sentences {
		verdict := voter.Classify(ctx, s.Text)
		sample := domain.NewSample(verdict, domain.SourceSynthetic)
		sample.HumanLabels = s.Labels
		sample.NeedsReview = false
		sample.LabeledBy = domain.LabeledByHuman
		samples = append(samples, sample)
	}

	if *dryRun {
		for _, s := range samples {
			fmt.Printf("%q\n  truth=%v ensemble=%v\n", s.Sentence, s.HumanLabels, s.EnsembleLabels)
		}
		log.Printf("Dry run: %d samples not persisted", len(samples))
		return
	}

	db, err := storage.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	sampleRepo := storage.NewSampleRepo(db)
	if err := sampleRepo.InsertBatch(ctx, samples); err != nil {
		log.Fatalf("Failed to insert samples: %v", err)
	}

	metricsRepo := storage.NewCategoryMetricsRepo(db)
	track := tracker.New(sampleRepo, metricsRepo, cfg.Policy)
	if err := track.RecomputeAll(ctx); err != nil {
		log.Fatalf("Failed to recompute metrics: %v", err)
	}

	log.Printf("Seeded %d samples and recomputed metrics for %d categories",
		len(samples), len(cfg.Policy.Categories))
}

func generate(ctx context.Context, gen *synthetic.Generator, targets []domain.Category, total, batchSize int) ([]synthetic.LabeledSentence, error) {
	var out []synthetic.LabeledSentence
	for remaining := total; remaining > 0; remaining -= batchSize {
		batch, err := gen.GenerateBatch(ctx, targets, min(remaining, batchSize))
		if err != nil {
			return out, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func randomPair(categories []domain.Category) []domain.Category {
	i := rand.Intn(len(categories))
	j := rand.Intn(len(categories) - 1)
	if j >= i {
		j++
	}
	return []domain.Category{categories[i], categories[j]}
}
