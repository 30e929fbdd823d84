package features

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"the", "and", "for", "are", "but", "not", "you", "all", "any", "can", "had", "her",
		"was", "one", "our", "out", "day", "get", "has", "him", "his", "how", "man", "new",
		"now", "old", "see", "two", "way", "who", "boy", "did", "its", "let", "put", "say",
		"she", "too", "use", "this", "that", "with", "have", "from", "they", "will", "would",
		"there", "their", "what", "about", "which", "when", "your", "been", "were", "them",
		"than", "then", "some", "into", "more", "also", "only", "other", "such", "here",
		"just", "over", "very", "these", "those", "where", "being", "each", "does", "doing",
		"should", "could", "because", "while", "after", "before", "again", "further", "once",
		"dear", "hello", "regards", "thanks", "thank", "please", "team", "email", "mail",
	} {
		stopwords[w] = struct{}{}
	}
}

func isStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}
