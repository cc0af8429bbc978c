package domain

// IndexedDocument is a curated question/answer pair stored in the vector index.
// Documents are written once at ingestion time and only ever replaced wholesale.
type IndexedDocument struct {
	ID       string
	Question string
	Answer   string
	Vector   []float32
}

// CompositeText returns the canonical text representation used when a document
// is re-embedded for similarity statistics.
func (d IndexedDocument) CompositeText() string {
	return "Question: " + d.Question + " Answer: " + d.Answer
}

// ScoredCandidate is one retrieval hit. Score is cosine similarity against the
// query vector, higher is more relevant. Candidates are per-query ephemera and
// are never persisted.
type ScoredCandidate struct {
	ID       string  `json:"id"`
	Score    float64 `json:"score"`
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
}

// CompositeText mirrors IndexedDocument.CompositeText for retrieval hits.
func (c ScoredCandidate) CompositeText() string {
	return "Question: " + c.Question + " Answer: " + c.Answer
}

// RetrievalResult is the full outcome of one retrieval pass: the top-p filtered
// candidates plus similarity statistics over the raw neighborhood and the kept
// set. Statistics are nil when too few candidates exist to compute them
// (fewer than 2 for the pairwise stats, zero for the query stats).
type RetrievalResult struct {
	Candidates []ScoredCandidate

	// Pairwise document-document similarity over the raw (pre-filter) hits,
	// signaling how self-similar the retrieved neighborhood is.
	MeanInterDocSimilarity   *float64
	MedianInterDocSimilarity *float64

	// Document-query similarity over the kept (post-filter) candidates,
	// signaling how confidently relevant the retained context is.
	MeanQuerySimilarity   *float64
	MedianQuerySimilarity *float64
}
