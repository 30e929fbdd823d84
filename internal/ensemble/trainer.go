package ensemble

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"github.com/mikey/mail-triage/internal/core"
	"golang.org/x/sync/errgroup"
)

// ErrNoExamples is returned when training is attempted without data
var ErrNoExamples = errors.New("no training examples")

// Example is one labelled training message
type Example struct {
	Features *core.Features
	Category core.Category
}

// TrainOptions configure the fitted members
type TrainOptions struct {
	Vectorizer  VectorizerOptions
	Logistic    LogisticOptions
	Alpha       float64
	Temperature float64
	EmbedBatch  int
}

// DefaultTrainOptions returns the default training settings
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Vectorizer:  DefaultVectorizerOptions(),
		Logistic:    LogisticOptions{Epochs: 40, LearningRate: 0.5, L2: 1e-4, Seed: 42},
		Alpha:       0.1,
		Temperature: 10,
		EmbedBatch:  64,
	}
}

// Train fits the vectorizer and every member on examples. Version, metrics
// and fingerprint are left to the caller.
func Train(ctx context.Context, examples []Example, categories []core.Category, embedder core.Embedder, opts TrainOptions) (*Snapshot, error) {
	index := make(map[core.Category]int, len(categories))
	for i, c := range categories {
		index[c] = i
	}

	var docs [][]string
	var texts []string
	var ys []int
	for _, ex := range examples {
		c, ok := index[ex.Category]
		if !ok || ex.Features == nil {
			continue
		}
		docs = append(docs, ex.Features.ModelTokens())
		texts = append(texts, SemanticText(ex.Features))
		ys = append(ys, c)
	}
	if len(docs) == 0 {
		return nil, ErrNoExamples
	}

	vectorizer := FitVectorizer(docs, opts.Vectorizer)
	dim := vectorizer.Dim()
	sparse := make([]SparseVector, len(docs))
	dense := make([][]float64, len(docs))
	for i, doc := range docs {
		sparse[i] = vectorizer.Transform(doc)
		dense[i] = sparse[i].Dense(dim)
	}

	snap := &Snapshot{
		Categories: categories,
		Vectorizer: vectorizer.Params(),
	}

	// Members are independent of each other once the vectors are built
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap.NaiveBayes = fitNaiveBayes(sparse, ys, categories, dim, opts.Alpha)
		return nil
	})
	g.Go(func() error {
		snap.Centroid = fitCentroids(dense, ys, categories, opts.Temperature)
		return nil
	})
	g.Go(func() error {
		snap.Logistic = fitLogistic(sparse, ys, categories, dim, opts.Logistic)
		return nil
	})
	if embedder != nil {
		g.Go(func() error {
			semantic, err := fitSemantic(gctx, embedder, texts, ys, categories, opts)
			if err != nil {
				return err
			}
			snap.Semantic = semantic
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

func fitSemantic(ctx context.Context, embedder core.Embedder, texts []string, ys []int, categories []core.Category, opts TrainOptions) (*SemanticParams, error) {
	batch := opts.EmbedBatch
	if batch <= 0 {
		batch = 64
	}
	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += batch {
		end := min(start+batch, len(texts))
		vecs, err := embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed training texts: %w", err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), end-start)
		}
		for _, v := range vecs {
			if len(v) != embedder.Dimension() {
				return nil, fmt.Errorf("embedder returned dimension %d, expected %d", len(v), embedder.Dimension())
			}
			vectors = append(vectors, normalize(toFloat64(v)))
		}
	}

	centroids := fitCentroids(vectors, ys, categories, opts.Temperature)
	return &SemanticParams{
		Embedder:    embedder.Name(),
		Dimension:   embedder.Dimension(),
		Categories:  centroids.Categories,
		Centroids:   centroids.Centroids,
		Temperature: opts.Temperature,
	}, nil
}

// Fingerprint returns a digest of the (category, text) pairs of a training set,
// independent of example order
func Fingerprint(examples []Example) string {
	lines := make([]string, 0, len(examples))
	for _, ex := range examples {
		if ex.Features == nil {
			continue
		}
		lines = append(lines, string(ex.Category)+"\x1f"+ex.Features.Text())
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, l := range lines {
		h.Write([]byte(l))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
