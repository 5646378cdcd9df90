package jokeapi

import (
	"encoding/json"
	"fmt"
)

// CategoriesResponse is the body of GET /categories.
type CategoriesResponse struct {
	Error      bool     `json:"error"`
	Categories []string `json:"categories"`
	Timestamp  int64    `json:"timestamp"`
}

// Joke is one entry of a joke listing. Only single-part jokes are requested,
// so Joke carries the whole text.
type Joke struct {
	ID       int    `json:"id"`
	Category string `json:"category"`
	Type     string `json:"type"`
	Joke     string `json:"joke"`
	Safe     bool   `json:"safe"`
	Lang     string `json:"lang"`
}

// JokesResponse is the body of GET /joke/{category}. The service returns a
// "jokes" array when amount > 1 and a bare joke object when amount == 1;
// UnmarshalJSON folds both into Jokes.
type JokesResponse struct {
	Error  bool   `json:"error"`
	Amount int    `json:"amount"`
	Jokes  []Joke `json:"jokes"`
}

func (r *JokesResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		Error  bool   `json:"error"`
		Amount int    `json:"amount"`
		Jokes  []Joke `json:"jokes"`
		Joke
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Error = raw.Error
	r.Amount = raw.Amount
	r.Jokes = raw.Jokes
	if r.Jokes == nil && raw.Joke.Joke != "" {
		r.Jokes = []Joke{raw.Joke}
		r.Amount = 1
	}
	return nil
}

// Texts returns the joke strings in response order, skipping empty ones.
func (r *JokesResponse) Texts() []string {
	out := make([]string, 0, len(r.Jokes))
	for _, j := range r.Jokes {
		if j.Joke != "" {
			out = append(out, j.Joke)
		}
	}
	return out
}

// errorBody is what the service sends alongside error responses.
type errorBody struct {
	Error          bool     `json:"error"`
	InternalError  bool     `json:"internalError"`
	Code           int      `json:"code"`
	Message        string   `json:"message"`
	CausedBy       []string `json:"causedBy"`
	AdditionalInfo string   `json:"additionalInfo"`
}

// APIError reports a non-success answer from the joke service: either a
// non-200 status or a body flagged with "error": true.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("joke service error (HTTP %d, code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("joke service error: HTTP %d", e.StatusCode)
}
