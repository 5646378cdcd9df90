// Package coord bridges remote joke-service calls to the category index.
//
// Every remote call is an explicit task. Begin* claims the work on the
// owning goroutine, Execute performs the call anywhere, and Complete applies
// the result. Results issued before the latest refresh, or aimed at a
// category no longer in the index, are discarded as stale.
package coord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pders01/quip/internal/category"
	"github.com/pders01/quip/internal/config"
	"github.com/pders01/quip/internal/debuglog"
)

// ErrFetchFailed wraps every remote failure recorded by the coordinator.
var ErrFetchFailed = errors.New("fetch failed")

// ErrInFlight is returned by the blocking wrappers when the same fetch is
// already outstanding.
var ErrInFlight = errors.New("fetch already in flight")

// Source is the remote joke service. jokeapi.Client implements it.
type Source interface {
	Categories(ctx context.Context) ([]string, error)
	Jokes(ctx context.Context, category string, amount int) ([]string, error)
}

// Listener is told about applied batches and about index resets.
// search.Index implements it.
type Listener interface {
	OnJokesAppended(category string, jokes []string, offset int)
	OnReset()
}

// Kind identifies what a Request fetches.
type Kind int

const (
	KindCategories Kind = iota
	KindJokes
)

func (k Kind) String() string {
	switch k {
	case KindCategories:
		return "categories"
	case KindJokes:
		return "jokes"
	default:
		return "unknown"
	}
}

// Request is one claimed remote call, tagged with the index generation it
// was issued in.
type Request struct {
	Kind       Kind
	Category   string
	Amount     int
	Generation uint64
}

// Result carries a Request's answer back to Complete.
type Result struct {
	Request    Request
	Categories []string
	Jokes      []category.Joke
	Err        error
}

// Outcome reports what Complete did with a Result.
type Outcome int

const (
	Applied Outcome = iota
	Failed
	Stale
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Failed:
		return "failed"
	case Stale:
		return "stale"
	default:
		return "unknown"
	}
}

// Options is the fetch policy.
type Options struct {
	BatchSize     int
	MaxJokes      int
	RefreshFloor  time.Duration
	Timeout       time.Duration
	MaxConcurrent int
}

// DefaultOptions returns the stock policy: batches of two, six jokes per
// category, a one second refresh indicator.
func DefaultOptions() Options {
	return Options{
		BatchSize:     2,
		MaxJokes:      6,
		RefreshFloor:  time.Second,
		Timeout:       10 * time.Second,
		MaxConcurrent: 4,
	}
}

// OptionsFromConfig maps the [jokes] and [api] sections onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BatchSize:     cfg.Jokes.BatchSize,
		MaxJokes:      cfg.Jokes.MaxPerCategory,
		RefreshFloor:  cfg.Jokes.RefreshFloor,
		Timeout:       cfg.API.Timeout,
		MaxConcurrent: cfg.Jokes.MaxConcurrent,
	}
}

// Coordinator owns the fetch bookkeeping for one category index.
type Coordinator struct {
	index  *category.Index
	source Source
	opts   Options
	now    func() time.Time
	log    *debuglog.FieldLogger

	mu             sync.Mutex
	listener       Listener
	generation     uint64
	inflight       map[string]uint64 // category -> generation of its outstanding fetch
	listInflight   bool
	listGeneration uint64
	failures       map[string]error
	listErr        error
	expanded       map[string]bool
	refreshStarted time.Time
}

func New(index *category.Index, source Source, opts Options) *Coordinator {
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}

	return &Coordinator{
		index:    index,
		source:   source,
		opts:     opts,
		now:      time.Now,
		log:      debuglog.WithFields(map[string]interface{}{"component": "coord"}),
		inflight: make(map[string]uint64),
		failures: make(map[string]error),
		expanded: make(map[string]bool),
	}
}

// SetListener registers l for index updates. Call before any fetch starts.
func (c *Coordinator) SetListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = l
}

func (c *Coordinator) Options() Options {
	return c.opts
}

// BeginLoadCategories claims the category-list fetch. It returns false when
// one is already outstanding in the current generation.
func (c *Coordinator) BeginLoadCategories() (*Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.beginCategoriesLocked()
}

func (c *Coordinator) beginCategoriesLocked() (*Request, bool) {
	if c.listInflight {
		return nil, false
	}
	c.listInflight = true
	c.listGeneration = c.generation
	return &Request{Kind: KindCategories, Generation: c.generation}, true
}

// BeginLoadMoreJokes claims a batch fetch for name. It returns false when
// name is not in the index or a fetch for it is outstanding.
func (c *Coordinator) BeginLoadMoreJokes(name string) (*Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.beginJokesLocked(name)
}

func (c *Coordinator) beginJokesLocked(name string) (*Request, bool) {
	if !c.index.Has(name) {
		return nil, false
	}
	if _, busy := c.inflight[name]; busy {
		return nil, false
	}
	c.inflight[name] = c.generation
	// Any load spends the automatic one for this generation
	c.expanded[name] = true
	return &Request{
		Kind:       KindJokes,
		Category:   name,
		Amount:     c.opts.BatchSize,
		Generation: c.generation,
	}, true
}

// BeginRefresh clears the index, starts a new generation and claims the
// category-list fetch for it.
func (c *Coordinator) BeginRefresh() *Request {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.index.Clear()
	c.generation++
	c.resetFetchStateLocked()
	c.listInflight = false
	c.listErr = nil
	c.refreshStarted = c.now()
	if c.listener != nil {
		c.listener.OnReset()
	}

	c.log.With("generation", c.generation).Debugf("refresh started")

	req, _ := c.beginCategoriesLocked()
	return req
}

func (c *Coordinator) resetFetchStateLocked() {
	c.inflight = make(map[string]uint64)
	c.failures = make(map[string]error)
	c.expanded = make(map[string]bool)
}

// Expand begins the automatic first load for name. Only the first expansion
// of a category in a generation issues a fetch, and only if no other load
// for it was issued before and it holds fewer than MaxJokes jokes.
func (c *Coordinator) Expand(name string) (*Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.index.Has(name) || c.expanded[name] {
		return nil, false
	}
	c.expanded[name] = true
	if c.index.Count(name) >= c.opts.MaxJokes {
		return nil, false
	}
	return c.beginJokesLocked(name)
}

// RequestMore is the explicit "Add More" action. It issues nothing once the
// category holds MaxJokes jokes.
func (c *Coordinator) RequestMore(name string) (*Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index.Count(name) >= c.opts.MaxJokes {
		return nil, false
	}
	return c.beginJokesLocked(name)
}

// Execute performs the remote call for req. It touches no coordinator state
// and is safe to run on any goroutine.
func (c *Coordinator) Execute(ctx context.Context, req *Request) Result {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	res := Result{Request: *req}
	switch req.Kind {
	case KindCategories:
		res.Categories, res.Err = c.source.Categories(ctx)
	case KindJokes:
		res.Jokes, res.Err = c.source.Jokes(ctx, req.Category, req.Amount)
	default:
		res.Err = fmt.Errorf("unknown request kind %d", req.Kind)
	}
	return res
}

// Complete applies res. It releases the request's in-flight claim if that
// claim still belongs to the same generation, then mutates the index only
// if the result is current.
func (c *Coordinator) Complete(res Result) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch res.Request.Kind {
	case KindCategories:
		return c.completeCategoriesLocked(res)
	case KindJokes:
		return c.completeJokesLocked(res)
	default:
		return Stale
	}
}

func (c *Coordinator) completeCategoriesLocked(res Result) Outcome {
	req := res.Request
	if c.listInflight && c.listGeneration == req.Generation {
		c.listInflight = false
	}

	logger := c.log.With("generation", req.Generation)
	if req.Generation != c.generation {
		logger.Debugf("discarding stale category list")
		return Stale
	}

	if res.Err != nil {
		c.listErr = fmt.Errorf("%w: %w", ErrFetchFailed, res.Err)
		logger.Warnf("loading categories: %v", res.Err)
		return Failed
	}

	if c.index.Len() > 0 {
		// Re-seeding a populated index starts a new generation so batches
		// for the old list land as stale.
		c.generation++
		c.resetFetchStateLocked()
		logger.Debugf("re-seed moved to generation %d", c.generation)
	}
	c.index.Seed(res.Categories)
	c.listErr = nil
	if c.listener != nil {
		c.listener.OnReset()
	}
	logger.Infof("seeded %d categories", c.index.Len())
	return Applied
}

func (c *Coordinator) completeJokesLocked(res Result) Outcome {
	req := res.Request
	if gen, ok := c.inflight[req.Category]; ok && gen == req.Generation {
		delete(c.inflight, req.Category)
	}

	logger := c.log.With("category", req.Category).With("generation", req.Generation)
	if req.Generation != c.generation || !c.index.Has(req.Category) {
		logger.Debugf("discarding stale batch")
		return Stale
	}

	if res.Err != nil {
		c.failures[req.Category] = fmt.Errorf("%w: %w", ErrFetchFailed, res.Err)
		logger.Warnf("loading jokes: %v", res.Err)
		return Failed
	}

	if !c.index.Append(req.Category, res.Jokes) {
		logger.Debugf("discarding stale batch")
		return Stale
	}
	delete(c.failures, req.Category)
	if c.listener != nil {
		offset := c.index.Count(req.Category) - len(res.Jokes)
		c.listener.OnJokesAppended(req.Category, res.Jokes, offset)
	}
	logger.Debugf("appended %d jokes", len(res.Jokes))
	return Applied
}

// MoveToFront forwards the "Go Top" intent to the index.
func (c *Coordinator) MoveToFront(name string) bool {
	return c.index.MoveToFront(name)
}

// CanLoadMore reports whether the "Add More" affordance should be offered.
func (c *Coordinator) CanLoadMore(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := c.index.Count(name)
	if count < 0 || count >= c.opts.MaxJokes {
		return false
	}
	_, busy := c.inflight[name]
	return !busy
}

// Pending reports whether a fetch for name is outstanding.
func (c *Coordinator) Pending(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, busy := c.inflight[name]
	return busy
}

func (c *Coordinator) LoadingCategories() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listInflight
}

// Failure returns the last fetch failure for name, or nil.
func (c *Coordinator) Failure(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures[name]
}

// ListFailure returns the last category-list failure, or nil.
func (c *Coordinator) ListFailure() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listErr
}

func (c *Coordinator) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Refreshing reports whether the refresh indicator should still be shown at
// now. It stays up for RefreshFloor after the refresh began, however fast
// the category list arrives.
func (c *Coordinator) Refreshing(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refreshStarted.IsZero() {
		return false
	}
	return now.Sub(c.refreshStarted) < c.opts.RefreshFloor
}

func (c *Coordinator) Snapshot() []category.Category {
	return c.index.Snapshot()
}

func (c *Coordinator) Index() *category.Index {
	return c.index
}

// LoadCategories runs a category-list fetch to completion.
func (c *Coordinator) LoadCategories(ctx context.Context) error {
	req, ok := c.BeginLoadCategories()
	if !ok {
		return ErrInFlight
	}
	if c.Complete(c.Execute(ctx, req)) == Failed {
		return c.ListFailure()
	}
	return nil
}

// LoadMoreJokes runs one batch fetch for name to completion.
func (c *Coordinator) LoadMoreJokes(ctx context.Context, name string) error {
	req, ok := c.BeginLoadMoreJokes(name)
	if !ok {
		if !c.index.Has(name) {
			return fmt.Errorf("unknown category %q", name)
		}
		return ErrInFlight
	}
	if c.Complete(c.Execute(ctx, req)) == Failed {
		return c.Failure(name)
	}
	return nil
}

// Refresh clears the index and reloads the category list.
func (c *Coordinator) Refresh(ctx context.Context) error {
	req := c.BeginRefresh()
	if c.Complete(c.Execute(ctx, req)) == Failed {
		return c.ListFailure()
	}
	return nil
}

// Prefetch loads the category list and one batch for every category, at
// most MaxConcurrent at a time. Batches complete in any order. Per-category
// failures do not stop the others and are returned joined.
func (c *Coordinator) Prefetch(ctx context.Context) error {
	if err := c.LoadCategories(ctx); err != nil {
		return err
	}

	var g errgroup.Group
	g.SetLimit(c.opts.MaxConcurrent)

	names := c.index.Names()
	for _, name := range names {
		req, ok := c.BeginLoadMoreJokes(name)
		if !ok {
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				c.Complete(Result{Request: *req, Err: ctx.Err()})
				return nil
			}
			c.Complete(c.Execute(ctx, req))
			return nil // failures are collected per category below
		})
	}
	_ = g.Wait()

	var errs []error
	for _, name := range names {
		if err := c.Failure(name); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
