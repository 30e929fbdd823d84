// Package arbiter combines rule and ensemble votes into one decision.
package arbiter

import (
	"math"
	"sort"

	"github.com/mikey/mail-triage/internal/core"
)

// RuleModelID is the model identifier under which the rule pick votes
const RuleModelID = "rules"

const tieEpsilon = 1e-9

// Arbiter implements core.Arbiter with configured per-model reliability weights
type Arbiter struct {
	weights       map[string]float64
	defaultWeight float64
	threshold     float64
}

// New creates an arbiter. Models missing from weights get defaultWeight;
// decisions whose confidence is below threshold are marked uncertain.
func New(weights map[string]float64, defaultWeight, threshold float64) *Arbiter {
	w := make(map[string]float64, len(weights))
	for k, v := range weights {
		w[k] = v
	}
	return &Arbiter{weights: w, defaultWeight: defaultWeight, threshold: threshold}
}

// Weight returns the reliability weight of a model
func (a *Arbiter) Weight(modelID string) float64 {
	if w, ok := a.weights[modelID]; ok {
		return w
	}
	return a.defaultWeight
}

// Threshold returns the acceptance threshold
func (a *Arbiter) Threshold() float64 {
	return a.threshold
}

type tally struct {
	category   core.Category
	score      float64
	bestWeight float64
	hasModel   bool
}

// Decide selects the category with the largest weighted vote total
func (a *Arbiter) Decide(rule *core.RuleResult, votes []core.Vote) core.Decision {
	rulePick, ruleDecided := rule.Best()

	all := make([]core.Vote, 0, len(votes)+1)
	if ruleDecided {
		all = append(all, core.Vote{ModelID: RuleModelID, Category: rulePick.Category, Confidence: rulePick.Score})
	}
	all = append(all, votes...)

	totals := make(map[core.Category]*tally)
	totalWeight := 0.0
	for _, v := range all {
		w := a.Weight(v.ModelID)
		if w <= 0 {
			continue
		}
		totalWeight += w
		t, ok := totals[v.Category]
		if !ok {
			t = &tally{category: v.Category}
			totals[v.Category] = t
		}
		t.score += w * v.Confidence
		if v.ModelID != RuleModelID {
			t.hasModel = true
			t.bestWeight = math.Max(t.bestWeight, w)
		}
	}

	if len(totals) == 0 || totalWeight == 0 {
		return core.Decision{Method: core.MethodNone, Uncertain: true, Votes: all}
	}

	ranked := make([]*tally, 0, len(totals))
	for _, t := range totals {
		ranked = append(ranked, t)
	}
	sort.Slice(ranked, func(i, j int) bool {
		x, y := ranked[i], ranked[j]
		if math.Abs(x.score-y.score) > tieEpsilon {
			return x.score > y.score
		}
		// Tied: rule pick first, then the stronger model, then name
		xRule := ruleDecided && x.category == rulePick.Category
		yRule := ruleDecided && y.category == rulePick.Category
		if xRule != yRule {
			return xRule
		}
		if x.bestWeight != y.bestWeight {
			return x.bestWeight > y.bestWeight
		}
		return x.category < y.category
	})

	winner := ranked[0]
	confidence := winner.score / totalWeight
	decision := core.Decision{
		Category:   winner.category,
		Confidence: confidence,
		Score:      winner.score,
		Uncertain:  confidence < a.threshold,
		Votes:      all,
	}

	switch {
	case !ruleDecided:
		decision.Method = core.MethodML
	case winner.category != rulePick.Category:
		decision.Method = core.MethodOverridden
	case winner.hasModel:
		decision.Method = core.MethodHybrid
	default:
		decision.Method = core.MethodRule
	}
	return decision
}
