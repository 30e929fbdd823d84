package ensemble

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
)

const (
	finance  core.Category = "Finance"
	shopping core.Category = "Shopping"
)

func feat(text string) *core.Features {
	return &core.Features{
		MessageID:   text,
		SubjectText: text,
		Tokens:      strings.Fields(text),
	}
}

func trainingSet() []Example {
	fin := []string{
		"account statement balance debited",
		"credit card statement payment due",
		"salary credited account balance",
		"loan emi payment debited account",
		"monthly statement available account",
		"transaction alert debited card",
	}
	shop := []string{
		"order shipped tracking delivery",
		"order delivered package doorstep",
		"shipment tracking courier order",
		"delivery scheduled order package",
		"refund processed returned order",
		"order confirmed item shipped",
	}
	var out []Example
	for _, t := range fin {
		out = append(out, Example{Features: feat(t), Category: finance})
	}
	for _, t := range shop {
		out = append(out, Example{Features: feat(t), Category: shopping})
	}
	return out
}

type stubModel struct {
	id   string
	vote core.Vote
	err  error
	boom bool
}

func (m *stubModel) ID() string { return m.id }

func (m *stubModel) Predict(context.Context, *core.Features) (core.Vote, error) {
	if m.boom {
		panic("corrupt snapshot")
	}
	return m.vote, m.err
}

func TestPredictorDropsFailingMembers(t *testing.T) {
	p := NewPredictor("v1", []Model{
		&stubModel{id: "good", vote: core.Vote{Category: finance, Confidence: 0.9}},
		&stubModel{id: "failing", err: errors.New("dimension mismatch")},
		&stubModel{id: "panicking", boom: true},
		&stubModel{id: "out_of_range", vote: core.Vote{Category: shopping, Confidence: 1.5}},
	}, zap.NewNop())

	votes, dropped := p.Predict(context.Background(), feat("anything"))

	if len(votes) != 1 || votes[0].ModelID != "good" || votes[0].Category != finance {
		t.Fatalf("votes = %+v, want only the good member", votes)
	}
	ids := map[string]bool{}
	for _, d := range dropped {
		ids[d.ModelID] = true
		if d.Reason == "" {
			t.Errorf("dropped vote %s has no reason", d.ModelID)
		}
	}
	for _, id := range []string{"failing", "panicking", "out_of_range"} {
		if !ids[id] {
			t.Errorf("expected %s to be dropped, got %+v", id, dropped)
		}
	}
}

func TestTrainedMembersSeparateCategories(t *testing.T) {
	embedder := NewHashingEmbedder(256)
	snap, err := Train(context.Background(), trainingSet(), []core.Category{finance, shopping}, embedder, DefaultTrainOptions())
	if err != nil {
		t.Fatalf("Train returned error: %v", err)
	}

	members := snap.Members(embedder)
	if len(members) != 4 {
		t.Fatalf("expected 4 members, got %d", len(members))
	}

	tests := []struct {
		text string
		want core.Category
	}{
		{"your account statement balance", finance},
		{"order shipped tracking", shopping},
	}
	for _, m := range members {
		for _, tt := range tests {
			vote, err := m.Predict(context.Background(), feat(tt.text))
			if err != nil {
				t.Fatalf("%s: Predict returned error: %v", m.ID(), err)
			}
			if vote.Category != tt.want {
				t.Errorf("%s: Predict(%q) = %s, want %s", m.ID(), tt.text, vote.Category, tt.want)
			}
			if vote.Confidence <= 0.5 || vote.Confidence > 1 {
				t.Errorf("%s: confidence %v out of expected range", m.ID(), vote.Confidence)
			}
		}
	}
}

func TestSnapshotRestoresIdenticalPredictions(t *testing.T) {
	embedder := NewHashingEmbedder(128)
	snap, err := Train(context.Background(), trainingSet(), []core.Category{finance, shopping}, embedder, DefaultTrainOptions())
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatal(err)
	}
	var restored Snapshot
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatal(err)
	}

	f := feat("refund for returned order")
	before := NewPredictor("a", snap.Members(embedder), zap.NewNop())
	after := NewPredictor("b", restored.Members(embedder), zap.NewNop())
	v1, d1 := before.Predict(context.Background(), f)
	v2, d2 := after.Predict(context.Background(), f)
	if len(d1) != 0 || len(d2) != 0 {
		t.Fatalf("unexpected dropped votes: %v %v", d1, d2)
	}
	for i := range v1 {
		if v1[i].Category != v2[i].Category || abs(v1[i].Confidence-v2[i].Confidence) > 1e-9 {
			t.Errorf("vote %d differs after restore: %+v vs %+v", i, v1[i], v2[i])
		}
	}
}

func TestSemanticRejectsMismatchedEmbedder(t *testing.T) {
	snap, err := Train(context.Background(), trainingSet(), []core.Category{finance, shopping}, NewHashingEmbedder(64), DefaultTrainOptions())
	if err != nil {
		t.Fatal(err)
	}
	m := NewSemantic(NewHashingEmbedder(32), snap.Semantic)
	if _, err := m.Predict(context.Background(), feat("order shipped")); err == nil {
		t.Fatal("expected an error for a mismatched embedder")
	}
}

func TestTrainWithoutExamples(t *testing.T) {
	_, err := Train(context.Background(), nil, []core.Category{finance}, nil, DefaultTrainOptions())
	if !errors.Is(err, ErrNoExamples) {
		t.Fatalf("expected ErrNoExamples, got %v", err)
	}
}

func TestFingerprintIgnoresOrder(t *testing.T) {
	set := trainingSet()
	reversed := make([]Example, len(set))
	for i := range set {
		reversed[len(set)-1-i] = set[i]
	}
	if Fingerprint(set) != Fingerprint(reversed) {
		t.Fatal("fingerprint depends on example order")
	}
	if Fingerprint(set) == Fingerprint(set[1:]) {
		t.Fatal("fingerprint did not change with the training set")
	}
}

func TestVectorizerBigramsAndMinDF(t *testing.T) {
	docs := [][]string{
		{"credit", "card", "bill"},
		{"credit", "card", "offer"},
		{"weekly", "digest", "__domain_news.example"},
	}
	v := FitVectorizer(docs, VectorizerOptions{NGramMax: 2, MinDF: 2, MaxDF: 1})
	vocab := v.Params().Vocabulary
	for _, term := range []string{"credit", "card", "credit card"} {
		if _, ok := vocab[term]; !ok {
			t.Errorf("expected %q in vocabulary %v", term, vocab)
		}
	}
	if _, ok := vocab["bill"]; ok {
		t.Error("term below min_df kept in vocabulary")
	}

	x := v.Transform([]string{"credit", "card"})
	if n := x.Norm(); n < 0.999 || n > 1.001 {
		t.Errorf("transformed vector norm = %v, want 1", n)
	}
	if !v.Transform([]string{"unknown"}).Empty() {
		t.Error("out-of-vocabulary tokens produced a non-empty vector")
	}
}

type fakeCompleter struct {
	reply string
	err   error
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(context.Context, string, string) (string, error) {
	return f.reply, f.err
}

func TestLLMMember(t *testing.T) {
	cats := []core.Category{finance, shopping}
	tests := []struct {
		name    string
		reply   string
		want    core.Category
		wantErr bool
	}{
		{"plain json", `{"category":"Shopping","confidence":0.8}`, shopping, false},
		{"wrapped json", "Sure! {\"category\": \"finance\", \"confidence\": 0.6} hope it helps", finance, false},
		{"unknown category", `{"category":"Travel","confidence":0.9}`, "", true},
		{"no json", "I cannot decide", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewLLM(&fakeCompleter{reply: tt.reply}, cats, 100)
			vote, err := m.Predict(context.Background(), feat("order shipped"))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", vote)
				}
				return
			}
			if err != nil {
				t.Fatalf("Predict returned error: %v", err)
			}
			if vote.Category != tt.want {
				t.Errorf("category = %s, want %s", vote.Category, tt.want)
			}
		})
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
