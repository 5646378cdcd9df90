package search

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/quip/internal/debuglog"
)

const snippetLength = 120

// Index is an in-memory full-text index over the jokes loaded so far.
// Nothing is written to disk.
type Index struct {
	mu  sync.RWMutex
	idx bleve.Index
}

func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating search index: %w", err)
	}
	return &Index{idx: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	joke := bleve.NewTextFieldMapping()
	joke.Analyzer = standard.Name
	joke.Store = true
	joke.IncludeTermVectors = true

	cat := bleve.NewTextFieldMapping()
	cat.Analyzer = standard.Name
	cat.Store = true

	pos := bleve.NewNumericFieldMapping()
	pos.Store = true

	dm.AddFieldMappingsAt("joke", joke)
	dm.AddFieldMappingsAt("category", cat)
	dm.AddFieldMappingsAt("position", pos)

	im.DefaultMapping = dm
	return im
}

// Index adds jokes for category. offset is the position of the first joke
// within its category, so document IDs stay stable as batches arrive.
func (i *Index) Index(category string, jokes []string, offset int) error {
	if len(jokes) == 0 {
		return nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	batch := i.idx.NewBatch()
	for n, joke := range jokes {
		pos := offset + n
		if err := batch.Index(docID(category, pos), map[string]any{
			"category": category,
			"joke":     joke,
			"position": pos,
		}); err != nil {
			return fmt.Errorf("indexing %s: %w", docID(category, pos), err)
		}
	}
	return i.idx.Batch(batch)
}

func (i *Index) Search(query string, limit int) ([]Hit, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []Hit{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	tokens := tokenize(query)
	var qs []bleveQuery.Query
	for _, tok := range tokens {
		qj := bleve.NewMatchQuery(tok)
		qj.SetField("joke")
		qj.SetBoost(2.0)
		qs = append(qs, qj)
		qjp := bleve.NewPrefixQuery(tok)
		qjp.SetField("joke")
		qjp.SetBoost(1.5)
		qs = append(qs, qjp)
		qc := bleve.NewMatchQuery(tok)
		qc.SetField("category")
		qc.SetBoost(1.0)
		qs = append(qs, qc)
	}
	if len(qs) == 0 {
		return []Hit{}, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	req.Fields = []string{"category", "joke", "position"}

	i.mu.RLock()
	res, err := i.idx.Search(req)
	i.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}

	out := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{Score: h.Score}
		if c, ok := h.Fields["category"].(string); ok {
			hit.Category = c
		}
		if j, ok := h.Fields["joke"].(string); ok {
			hit.Joke = j
		}
		if p, ok := h.Fields["position"].(float64); ok {
			hit.Position = int(p)
		}
		hit.Snippet = findBestSnippet(hit.Joke, tokens, snippetLength)
		out = append(out, hit)
	}
	return out, nil
}

// Reset drops every document.
func (i *Index) Reset() error {
	fresh, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("resetting search index: %w", err)
	}

	i.mu.Lock()
	old := i.idx
	i.idx = fresh
	i.mu.Unlock()

	return old.Close()
}

func (i *Index) DocCount() (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	n, err := i.idx.DocCount()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.idx.Close()
}

// OnJokesAppended indexes a freshly applied batch.
func (i *Index) OnJokesAppended(category string, jokes []string, offset int) {
	if err := i.Index(category, jokes, offset); err != nil {
		debuglog.Warnf("search: %v", err)
	}
}

func (i *Index) OnReset() {
	if err := i.Reset(); err != nil {
		debuglog.Warnf("search: %v", err)
	}
}

func docID(category string, position int) string {
	return fmt.Sprintf("%s:%d", category, position)
}
