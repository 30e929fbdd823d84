package ensemble

import (
	"time"

	"github.com/mikey/mail-triage/internal/core"
)

// Metrics summarise the validation of a snapshot
type Metrics struct {
	HeldOutAccuracy float64            `json:"held_out_accuracy"`
	ModelAccuracy   map[string]float64 `json:"model_accuracy,omitempty"`
	TrainingSize    int                `json:"training_size"`
	ValidationSize  int                `json:"validation_size"`
}

// Snapshot is a versioned bundle of trained ensemble parameters. A snapshot
// is a value: retraining produces a new one instead of changing an old one.
type Snapshot struct {
	Version             string               `json:"version"`
	CreatedAt           time.Time            `json:"created_at"`
	Taxonomy            core.TaxonomyVariant `json:"taxonomy"`
	Categories          []core.Category      `json:"categories"`
	RuleTableVersion    string               `json:"rule_table_version"`
	TrainingFingerprint string               `json:"training_fingerprint"`
	Metrics             Metrics              `json:"metrics"`
	Vectorizer          VectorizerParams     `json:"vectorizer"`
	NaiveBayes          *NaiveBayesParams    `json:"naive_bayes,omitempty"`
	Centroid            *CentroidParams      `json:"centroid,omitempty"`
	Logistic            *LogisticParams      `json:"logistic,omitempty"`
	Semantic            *SemanticParams      `json:"semantic,omitempty"`
}

// Members builds the trained members of the snapshot. The semantic member is
// only built when the snapshot carries semantic parameters.
func (s *Snapshot) Members(embedder core.Embedder) []Model {
	v := NewVectorizer(s.Vectorizer)
	var members []Model
	if s.NaiveBayes != nil {
		members = append(members, NewNaiveBayes(v, s.NaiveBayes))
	}
	if s.Centroid != nil {
		members = append(members, NewCentroid(v, s.Centroid))
	}
	if s.Logistic != nil {
		members = append(members, NewLogistic(v, s.Logistic))
	}
	if s.Semantic != nil {
		members = append(members, NewSemantic(embedder, s.Semantic))
	}
	return members
}
