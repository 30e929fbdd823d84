package ensemble

import (
	"math"
	"sort"
	"strings"
)

// VectorizerOptions control TF-IDF vocabulary selection
type VectorizerOptions struct {
	NGramMax    int
	MaxFeatures int
	MinDF       int
	MaxDF       float64
}

// DefaultVectorizerOptions mirrors the production settings: unigrams and
// bigrams, at most 5000 features
func DefaultVectorizerOptions() VectorizerOptions {
	return VectorizerOptions{NGramMax: 2, MaxFeatures: 5000, MinDF: 1, MaxDF: 0.9}
}

// VectorizerParams are the fitted parameters of a TF-IDF vectorizer
type VectorizerParams struct {
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
	NGramMax   int            `json:"ngram_max"`
}

// Vectorizer maps token sequences to L2-normalized TF-IDF vectors.
// It is read-only after fitting and safe for concurrent use.
type Vectorizer struct {
	params VectorizerParams
}

// NewVectorizer restores a fitted vectorizer
func NewVectorizer(params VectorizerParams) *Vectorizer {
	if params.NGramMax < 1 {
		params.NGramMax = 1
	}
	return &Vectorizer{params: params}
}

// FitVectorizer builds the vocabulary and inverse document frequencies of docs
func FitVectorizer(docs [][]string, opts VectorizerOptions) *Vectorizer {
	if opts.NGramMax < 1 {
		opts.NGramMax = 1
	}
	if opts.MinDF < 1 {
		opts.MinDF = 1
	}
	if opts.MaxDF <= 0 || opts.MaxDF > 1 {
		opts.MaxDF = 1
	}

	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, term := range ngrams(doc, opts.NGramMax) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	n := len(docs)
	type termDF struct {
		term string
		df   int
	}
	var kept []termDF
	for term, count := range df {
		if count < opts.MinDF {
			continue
		}
		// A term present in every document of a tiny corpus still carries signal
		if n > 2 && float64(count)/float64(n) > opts.MaxDF {
			continue
		}
		kept = append(kept, termDF{term, count})
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].df != kept[j].df {
			return kept[i].df > kept[j].df
		}
		return kept[i].term < kept[j].term
	})
	if opts.MaxFeatures > 0 && len(kept) > opts.MaxFeatures {
		kept = kept[:opts.MaxFeatures]
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].term < kept[j].term })

	params := VectorizerParams{
		Vocabulary: make(map[string]int, len(kept)),
		IDF:        make([]float64, len(kept)),
		NGramMax:   opts.NGramMax,
	}
	for i, k := range kept {
		params.Vocabulary[k.term] = i
		params.IDF[i] = math.Log(float64(1+n)/float64(1+k.df)) + 1
	}
	return &Vectorizer{params: params}
}

// Params returns the fitted parameters
func (v *Vectorizer) Params() VectorizerParams {
	return v.params
}

// Dim returns the vocabulary size
func (v *Vectorizer) Dim() int {
	return len(v.params.IDF)
}

// Transform returns the TF-IDF vector of a token sequence
func (v *Vectorizer) Transform(tokens []string) SparseVector {
	tf := make(map[int]float64)
	for _, term := range ngrams(tokens, v.params.NGramMax) {
		if i, ok := v.params.Vocabulary[term]; ok {
			tf[i]++
		}
	}

	vec := SparseVector{
		Indices: make([]int, 0, len(tf)),
		Values:  make([]float64, 0, len(tf)),
	}
	for i := range tf {
		vec.Indices = append(vec.Indices, i)
	}
	sort.Ints(vec.Indices)

	norm := 0.0
	for _, i := range vec.Indices {
		w := tf[i] * v.params.IDF[i]
		vec.Values = append(vec.Values, w)
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for k := range vec.Values {
			vec.Values[k] /= norm
		}
	}
	return vec
}

// ngrams returns the unigrams and contiguous n-grams up to max of tokens.
// Synthetic tokens (prefixed "__") only form unigrams.
func ngrams(tokens []string, max int) []string {
	out := make([]string, 0, len(tokens)*max)
	out = append(out, tokens...)
	for n := 2; n <= max; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			window := tokens[i : i+n]
			synthetic := false
			for _, t := range window {
				if strings.HasPrefix(t, "__") {
					synthetic = true
					break
				}
			}
			if !synthetic {
				out = append(out, strings.Join(window, " "))
			}
		}
	}
	return out
}
