// Package ensemble implements the statistical and embedding classifiers that
// vote on a message's category.
package ensemble

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Model identifiers
const (
	ModelNaiveBayes = "naive_bayes"
	ModelCentroid   = "centroid"
	ModelLogistic   = "logistic"
	ModelSemantic   = "semantic"
	ModelLLM        = "llm"
)

// ErrNotTrained is returned by a model without parameters
var ErrNotTrained = errors.New("model is not trained")

// Model is one ensemble member. Implementations hold no per-call state and
// must be safe for concurrent use.
type Model interface {
	ID() string
	Predict(ctx context.Context, f *core.Features) (core.Vote, error)
}

// Predictor runs every member over a message and collects their votes.
// It implements core.Predictor.
type Predictor struct {
	version     string
	members     []Model
	parallelism int
	logger      *zap.Logger
}

// NewPredictor creates a predictor over a fixed member set
func NewPredictor(version string, members []Model, logger *zap.Logger) *Predictor {
	return &Predictor{
		version:     version,
		members:     members,
		parallelism: len(members),
		logger:      logger,
	}
}

// Version returns the snapshot version the members were built from
func (p *Predictor) Version() string {
	return p.version
}

// Members returns the member identifiers
func (p *Predictor) Members() []string {
	ids := make([]string, len(p.members))
	for i, m := range p.members {
		ids[i] = m.ID()
	}
	return ids
}

// Predict runs all members. A member that fails or panics has its vote
// dropped; the message is never failed because of one member.
func (p *Predictor) Predict(ctx context.Context, f *core.Features) ([]core.Vote, []core.DroppedVote) {
	type outcome struct {
		vote core.Vote
		err  error
	}
	outcomes := make([]outcome, len(p.members))

	var g errgroup.Group
	if p.parallelism > 0 {
		g.SetLimit(p.parallelism)
	}
	for i, m := range p.members {
		g.Go(func() error {
			vote, err := safePredict(ctx, m, f)
			outcomes[i] = outcome{vote: vote, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var votes []core.Vote
	var dropped []core.DroppedVote
	for i, o := range outcomes {
		id := p.members[i].ID()
		if o.err == nil && (o.vote.Confidence < 0 || o.vote.Confidence > 1) {
			o.err = fmt.Errorf("confidence %v outside [0,1]", o.vote.Confidence)
		}
		if o.err != nil {
			p.logger.Warn("Dropping ensemble vote",
				zap.String("model", id),
				zap.String("message_id", f.MessageID),
				zap.Error(o.err))
			dropped = append(dropped, core.DroppedVote{ModelID: id, Reason: o.err.Error()})
			continue
		}
		o.vote.ModelID = id
		votes = append(votes, o.vote)
	}
	return votes, dropped
}

func safePredict(ctx context.Context, m Model, f *core.Features) (vote core.Vote, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model panicked: %v", r)
		}
	}()
	return m.Predict(ctx, f)
}

// pick turns a probability distribution over categories into a vote
func pick(categories []core.Category, probs []float64) (core.Vote, error) {
	if len(categories) == 0 || len(probs) != len(categories) {
		return core.Vote{}, fmt.Errorf("distribution over %d categories has %d entries", len(categories), len(probs))
	}
	best := argmax(probs)
	return core.Vote{Category: categories[best], Confidence: probs[best]}, nil
}
