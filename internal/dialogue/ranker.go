package dialogue

import (
	"math"
	"strings"
	"sync"

	"github.com/edgard/projectbot/internal/database"
)

// Match is the best thread found for a question and its cosine similarity.
type Match struct {
	Thread database.Thread
	Score  float64
}

type vector map[string]float64

type corpus struct {
	threads []database.Thread
	vectors []vector
	idf     map[string]float64
}

// Ranker scores knowledge base threads against a question using TF-IDF
// weighted cosine similarity over normalised titles. It is safe for
// concurrent use; Load swaps the whole corpus at once.
type Ranker struct {
	mu     sync.RWMutex
	corpus *corpus
}

// NewRanker returns an empty ranker.
func NewRanker() *Ranker {
	return &Ranker{corpus: &corpus{}}
}

// Load replaces the ranked corpus with threads.
func (r *Ranker) Load(threads []database.Thread) {
	c := buildCorpus(threads)
	r.mu.Lock()
	r.corpus = c
	r.mu.Unlock()
}

// Len returns the number of loaded threads.
func (r *Ranker) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.corpus.threads)
}

// Best returns the highest scoring thread for question. ok is false when the
// corpus is empty or no thread shares a term with the question.
func (r *Ranker) Best(question string) (Match, bool) {
	r.mu.RLock()
	c := r.corpus
	r.mu.RUnlock()

	q := c.weigh(termFrequencies(PrepareText(question)))
	if len(q) == 0 {
		return Match{}, false
	}

	best := -1
	var bestScore float64
	for i, v := range c.vectors {
		score := dot(q, v)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return Match{}, false
	}
	return Match{Thread: c.threads[best], Score: bestScore}, true
}

func buildCorpus(threads []database.Thread) *corpus {
	c := &corpus{
		threads: append([]database.Thread(nil), threads...),
		vectors: make([]vector, len(threads)),
		idf:     make(map[string]float64),
	}

	tfs := make([]map[string]float64, len(threads))
	df := make(map[string]int)
	for i, t := range threads {
		tfs[i] = termFrequencies(PrepareText(t.Title))
		for term := range tfs[i] {
			df[term]++
		}
	}

	// Smoothed idf: ln((1+n)/(1+df)) + 1.
	n := float64(len(threads))
	for term, count := range df {
		c.idf[term] = math.Log((1+n)/(1+float64(count))) + 1
	}

	for i, tf := range tfs {
		c.vectors[i] = c.weigh(tf)
	}
	return c
}

// weigh applies idf to tf and L2-normalises the result. Terms outside the
// corpus vocabulary are dropped.
func (c *corpus) weigh(tf map[string]float64) vector {
	v := make(vector, len(tf))
	var norm float64
	for term, freq := range tf {
		idf, ok := c.idf[term]
		if !ok {
			continue
		}
		w := freq * idf
		v[term] = w
		norm += w * w
	}
	if norm == 0 {
		return nil
	}
	norm = math.Sqrt(norm)
	for term := range v {
		v[term] /= norm
	}
	return v
}

func termFrequencies(text string) map[string]float64 {
	tf := make(map[string]float64)
	for _, term := range strings.Fields(text) {
		tf[term]++
	}
	return tf
}

func dot(a, b vector) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for term, w := range a {
		sum += w * b[term]
	}
	return sum
}
