package search

// Searcher defines the minimal search API used by the TUI.
type Searcher interface {
	Search(query string, limit int) ([]Hit, error)
}

// DebugStatser provides lightweight stats for visibility/debugging.
type DebugStatser interface {
	DocCount() (int, error)
}

// Hit is one matching joke.
type Hit struct {
	Category string
	Position int
	Joke     string
	Snippet  string
	Score    float64
}
