package training

import (
	"sort"

	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/ensemble"
	"go.uber.org/zap"
)

// BuildTrainingSet combines the bootstrap corpus with replayed review
// outcomes. For each message the latest correction wins over earlier
// corrections and over any confirmation. Samples outside the taxonomy are
// ignored.
func BuildTrainingSet(
	taxonomy *core.Taxonomy,
	bootstrap []Sample,
	corrections []*core.Correction,
	confirmations []*core.Confirmation,
) []Sample {
	samples := make([]Sample, 0, len(bootstrap)+len(corrections)+len(confirmations))
	for _, s := range bootstrap {
		if taxonomy.Contains(s.Category) {
			samples = append(samples, s)
		}
	}

	type labelled struct {
		sample Sample
		order  int
	}
	reviewed := make(map[string]labelled)

	confirmed := append([]*core.Confirmation(nil), confirmations...)
	sort.SliceStable(confirmed, func(i, j int) bool { return confirmed[i].CreatedAt.Before(confirmed[j].CreatedAt) })
	for i, c := range confirmed {
		reviewed[c.MessageID] = labelled{
			sample: Sample{MessageID: c.MessageID, Category: c.Category, Summary: c.Summary},
			order:  i,
		}
	}

	corrected := append([]*core.Correction(nil), corrections...)
	sort.SliceStable(corrected, func(i, j int) bool { return corrected[i].CreatedAt.Before(corrected[j].CreatedAt) })
	for i, c := range corrected {
		reviewed[c.MessageID] = labelled{
			sample: Sample{MessageID: c.MessageID, Category: c.CorrectedCategory, Summary: c.Summary, Corrected: true},
			order:  len(confirmed) + i,
		}
	}

	replay := make([]labelled, 0, len(reviewed))
	for _, l := range reviewed {
		if taxonomy.Contains(l.sample.Category) {
			replay = append(replay, l)
		}
	}
	sort.Slice(replay, func(i, j int) bool { return replay[i].order < replay[j].order })
	for _, l := range replay {
		samples = append(samples, l.sample)
	}
	return samples
}

// SampleMessage rebuilds a message record from a stored summary
func SampleMessage(s Sample) *core.Message {
	return &core.Message{
		ID:           s.MessageID,
		Sender:       s.Summary.Sender,
		SenderDomain: s.Summary.Domain,
		Subject:      s.Summary.Subject,
		Snippet:      s.Summary.Snippet,
		BodyExcerpt:  s.Summary.Snippet,
	}
}

// Examples extracts features for every sample. Samples that cannot be
// extracted are logged and left out.
func Examples(extractor core.FeatureExtractor, samples []Sample, logger *zap.Logger) []ensemble.Example {
	examples := make([]ensemble.Example, 0, len(samples))
	for _, s := range samples {
		f, err := extractor.Extract(SampleMessage(s))
		if err != nil {
			logger.Warn("Skipping training sample",
				zap.String("message_id", s.MessageID),
				zap.Error(err))
			continue
		}
		examples = append(examples, ensemble.Example{Features: f, Category: s.Category})
	}
	return examples
}
