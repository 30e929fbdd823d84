// Package review groups uncertain classifications into clusters for batched
// human correction and feeds the outcome back into retraining.
package review

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/ensemble"
	"github.com/mikey/mail-triage/internal/features"
	"github.com/mikey/mail-triage/internal/training"
	"go.uber.org/zap"
)

// Options configure candidate selection and clustering
type Options struct {
	Algorithm            Algorithm
	ClusterCount         int
	DensityEps           float64
	DensityMinPoints     int
	SampleSize           int
	LowConfidenceCeiling float64
	LowConfidenceLimit   int
	RetrainOnFinish      bool
	NInit                int
	Seed                 uint64
}

// DefaultOptions returns the default review settings
func DefaultOptions() Options {
	return Options{
		Algorithm:            AlgorithmKMeans,
		ClusterCount:         5,
		DensityEps:           0.6,
		DensityMinPoints:     2,
		SampleSize:           3,
		LowConfidenceCeiling: 0.65,
		LowConfidenceLimit:   20,
		RetrainOnFinish:      true,
		NInit:                10,
		Seed:                 42,
	}
}

// Retrainer produces a new snapshot from the accumulated review history
type Retrainer interface {
	Retrain(ctx context.Context) (*training.Report, error)
}

// FrontEnd shows a prompt to the human reviewer and returns the answer
type FrontEnd interface {
	Present(ctx context.Context, p Prompt) (Response, error)
}

// Reviewer runs active-learning review sessions
type Reviewer struct {
	results   core.ResultLog
	log       core.CorrectionLog
	retrainer Retrainer
	taxonomy  *core.Taxonomy
	opts      Options
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// NewReviewer creates a new reviewer. retrainer may be nil.
func NewReviewer(
	results core.ResultLog,
	log core.CorrectionLog,
	retrainer Retrainer,
	taxonomy *core.Taxonomy,
	opts Options,
	logger *zap.Logger,
) *Reviewer {
	return &Reviewer{
		results:   results,
		log:       log,
		retrainer: retrainer,
		taxonomy:  taxonomy,
		opts:      opts,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Candidates returns the results of a scan session that need review: every
// uncertain result plus a bounded sample of accepted low-confidence ones
func (r *Reviewer) Candidates(ctx context.Context, scanSession string) ([]*core.ClassificationResult, error) {
	uncertain, err := r.results.Uncertain(ctx, scanSession)
	if err != nil {
		return nil, fmt.Errorf("failed to load uncertain results: %w", err)
	}

	var low []*core.ClassificationResult
	if r.opts.LowConfidenceLimit > 0 {
		low, err = r.results.LowConfidence(ctx, scanSession, r.opts.LowConfidenceCeiling, r.opts.LowConfidenceLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to load low-confidence results: %w", err)
		}
	}

	seen := make(map[string]bool, len(uncertain)+len(low))
	out := make([]*core.ClassificationResult, 0, len(uncertain)+len(low))
	for _, res := range append(uncertain, low...) {
		if seen[res.MessageID] {
			continue
		}
		seen[res.MessageID] = true
		out = append(out, res)
	}
	return out, nil
}

// Start prepares a review session over the candidates of a scan session
func (r *Reviewer) Start(ctx context.Context, scanSession string) (*Session, error) {
	candidates, err := r.Candidates(ctx, scanSession)
	if err != nil {
		return nil, err
	}
	clusters := r.Cluster(candidates)

	s := &Session{
		id:          r.newID(),
		scanSession: scanSession,
		clusters:    clusters,
		log:         r.log,
		taxonomy:    r.taxonomy,
		sampleSize:  max(r.opts.SampleSize, 1),
		now:         r.now,
		newID:       r.newID,
	}
	s.summary = Summary{
		ReviewSessionID: s.id,
		ScanSessionID:   scanSession,
		Clusters:        len(clusters),
	}

	r.logger.Info("Review session started",
		zap.String("review_session_id", s.id),
		zap.String("scan_session_id", scanSession),
		zap.Int("candidates", len(candidates)),
		zap.Int("clusters", len(clusters)),
		zap.String("algorithm", string(r.opts.Algorithm)))
	return s, nil
}

// Cluster groups results by similarity of subject, snippet and sender.
// Clusters are ordered by ascending mean confidence and numbered from 1.
func (r *Reviewer) Cluster(results []*core.ClassificationResult) []Cluster {
	if len(results) == 0 {
		return nil
	}

	points := represent(results)
	var labels []int
	switch {
	case len(results) < 2:
		labels = make([]int, len(results))
	case r.opts.Algorithm == AlgorithmDensity:
		labels = DBSCAN(points, r.opts.DensityEps, r.opts.DensityMinPoints)
	default:
		labels = KMeans(points, max(r.opts.ClusterCount, 1), r.opts.NInit, r.opts.Seed)
	}
	return buildClusters(results, labels)
}

// represent returns TF-IDF vectors fitted on the review set itself
func represent(results []*core.ClassificationResult) [][]float64 {
	docs := make([][]string, len(results))
	for i, res := range results {
		s := res.Summary
		tokens := features.Tokenize(s.Subject + " " + s.Snippet)
		domain := s.Domain
		if domain == "" {
			domain = features.DomainOf(s.Sender)
		}
		if domain != "" {
			tokens = append(tokens, "__domain_"+domain)
		}
		docs[i] = tokens
	}

	v := ensemble.FitVectorizer(docs, ensemble.VectorizerOptions{NGramMax: 1, MinDF: 1, MaxDF: 1})
	points := make([][]float64, len(docs))
	for i, doc := range docs {
		points[i] = v.Transform(doc).Dense(v.Dim())
	}
	return points
}

func buildClusters(results []*core.ClassificationResult, labels []int) []Cluster {
	groups := make(map[int][]*core.ClassificationResult)
	var order []int
	singleton := -2
	for i, res := range results {
		label := labels[i]
		// Noise points are reviewed on their own
		if label == noise {
			label = singleton
			singleton--
		}
		if _, ok := groups[label]; !ok {
			order = append(order, label)
		}
		groups[label] = append(groups[label], res)
	}

	clusters := make([]Cluster, 0, len(groups))
	for _, label := range order {
		members := groups[label]
		sum := 0.0
		for _, m := range members {
			sum += m.Confidence
		}
		clusters = append(clusters, Cluster{
			Predicted:      majority(members),
			MeanConfidence: sum / float64(len(members)),
			Members:        members,
		})
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].MeanConfidence < clusters[j].MeanConfidence
	})
	for i := range clusters {
		clusters[i].ID = i + 1
	}
	return clusters
}

// majority returns the most frequent predicted category, lexically first on ties
func majority(members []*core.ClassificationResult) core.Category {
	counts := make(map[core.Category]int)
	for _, m := range members {
		counts[m.Category]++
	}
	var best core.Category
	bestCount := 0
	for c, n := range counts {
		if n > bestCount || (n == bestCount && c < best) {
			best, bestCount = c, n
		}
	}
	return best
}

// Finish ends a session and retrains when anything was recorded, unless
// the session was aborted
func (r *Reviewer) Finish(ctx context.Context, s *Session) (*training.Report, error) {
	summary := s.Summary()
	r.logger.Info("Review session finished",
		zap.String("review_session_id", summary.ReviewSessionID),
		zap.Int("confirmed", summary.Confirmed),
		zap.Int("corrected", summary.Corrected),
		zap.Int("skipped", summary.Skipped),
		zap.Bool("aborted", summary.Aborted))

	if summary.Aborted || !summary.Recorded() || !r.opts.RetrainOnFinish || r.retrainer == nil {
		return nil, nil
	}
	report, err := r.retrainer.Retrain(ctx)
	if err != nil {
		return nil, fmt.Errorf("retraining after review failed: %w", err)
	}
	return report, nil
}

// Run drives a whole session through a front end
func (r *Reviewer) Run(ctx context.Context, scanSession string, fe FrontEnd) (Summary, *training.Report, error) {
	s, err := r.Start(ctx, scanSession)
	if err != nil {
		return Summary{}, nil, err
	}

	for !s.Done() {
		prompt, _ := s.Next()
		resp, err := fe.Present(ctx, prompt)
		if err != nil {
			return s.Summary(), nil, err
		}
		if err := s.Respond(ctx, resp); err != nil {
			return s.Summary(), nil, err
		}
	}

	report, err := r.Finish(ctx, s)
	return s.Summary(), report, err
}
