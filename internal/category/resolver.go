// Package category maps program names to user-chosen categories and asks the
// user interface to classify programs it has not seen before.
package category

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"focuslog/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// ErrResolutionCancelled is reported when a prompt was dismissed or timed out.
	ErrResolutionCancelled = errors.New("category resolution cancelled")
	// ErrAlreadyResolved is returned for a response to a request that has
	// already been answered, cancelled or expired.
	ErrAlreadyResolved = errors.New("category already resolved")
	// ErrUnknownRequest is returned for a response that matches no request.
	ErrUnknownRequest = errors.New("unknown categorization request")
)

// Store persists the category map and rewrites historical records.
type Store interface {
	LoadCategories() (map[string]string, error)
	SaveCategory(program, category string) error
	UpdateCategory(program, category string) (int64, error)
}

// Patcher applies a late categorisation to records logged while it was pending.
type Patcher interface {
	PatchCategory(program, category string, since time.Time) error
}

// Request asks the user interface to classify a program.
type Request struct {
	ID      string    `json:"id"`
	Program string    `json:"program"`
	Title   string    `json:"title"`
	Known   []string  `json:"known"`
	Since   time.Time `json:"since"`
	Expires time.Time `json:"expires"`
	done    chan struct{}
}

// Response answers a Request.
type Response struct {
	ID       string `json:"id"`
	Category string `json:"category"`
}

// Options configures a Resolver.
type Options struct {
	Default       string
	Interactive   bool
	PromptTimeout time.Duration
	QueueSize     int
}

// Resolver owns the in-memory category map. It is safe for concurrent use.
type Resolver struct {
	store   Store
	patcher Patcher
	opts    Options
	now     func() time.Time
	title   cases.Caser

	mu         sync.Mutex
	categories map[string]string
	pending    map[string]*Request // by program
	byID       map[string]*Request
	dirty      map[string]bool
	requests   chan Request
}

// NewResolver loads the persisted map from store.
func NewResolver(store Store, opts Options) (*Resolver, error) {
	if opts.Default == "" {
		opts.Default = models.DefaultCategory
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16
	}

	loaded, err := store.LoadCategories()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load category map")
	}

	return &Resolver{
		store:      store,
		opts:       opts,
		now:        time.Now,
		title:      cases.Title(language.Und),
		categories: loaded,
		pending:    make(map[string]*Request),
		byID:       make(map[string]*Request),
		dirty:      make(map[string]bool),
		requests:   make(chan Request, opts.QueueSize),
	}, nil
}

// SetPatcher sets where late categorisations are applied.
func (r *Resolver) SetPatcher(p Patcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patcher = p
}

// Requests is the queue the user interface consumes.
func (r *Resolver) Requests() <-chan Request {
	return r.requests
}

// Normalize cleans a free-text category the way the map stores it.
func (r *Resolver) Normalize(category string) string {
	category = strings.Join(strings.Fields(category), " ")
	if category == "" {
		return r.opts.Default
	}
	return r.title.String(category)
}

// CategoryFor returns the mapped category of program, or the default.
func (r *Resolver) CategoryFor(program string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.categories[program]; ok {
		return c
	}
	return r.opts.Default
}

// Observe is called when program becomes active. For a program never seen
// before it posts one Request and returns immediately; records stored before
// the answer carry the default category and are patched afterwards.
func (r *Resolver) Observe(program, title string, since time.Time) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.categories[program]; ok {
		return c
	}
	if _, ok := r.pending[program]; ok {
		return r.opts.Default
	}

	if !r.opts.Interactive {
		r.assignLocked(program, r.opts.Default)
		return r.opts.Default
	}

	req := r.newRequestLocked(program, title, since)
	select {
	case r.requests <- *req:
		r.pending[program] = req
		r.byID[req.ID] = req
	default:
		log.Printf("warning: categorization queue full, %s defaults to %s", program, r.opts.Default)
		r.assignLocked(program, r.opts.Default)
	}
	return r.opts.Default
}

// Resolve blocks until program has a category. It prompts at most once per
// program; a cancelled or expired prompt yields the default.
func (r *Resolver) Resolve(ctx context.Context, program, title string) (string, error) {
	r.Observe(program, title, r.now())

	r.mu.Lock()
	req, waiting := r.pending[program]
	if !waiting {
		c := r.categories[program]
		r.mu.Unlock()
		return c, nil
	}
	done := req.done
	r.mu.Unlock()

	wait := r.opts.PromptTimeout
	if wait <= 0 {
		wait = time.Hour
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-done:
		return r.CategoryFor(program), nil
	case <-timer.C:
		if err := r.Cancel(req.ID); err != nil {
			return r.CategoryFor(program), nil
		}
		return r.CategoryFor(program), ErrResolutionCancelled
	case <-ctx.Done():
		return r.opts.Default, ctx.Err()
	}
}

func (r *Resolver) newRequestLocked(program, title string, since time.Time) *Request {
	now := r.now()
	req := &Request{
		ID:      uuid.NewString(),
		Program: program,
		Title:   title,
		Known:   r.sortedLocked(),
		Since:   since,
		done:    make(chan struct{}),
	}
	if r.opts.PromptTimeout > 0 {
		req.Expires = now.Add(r.opts.PromptTimeout)
	}
	return req
}

// Respond answers the request with the given ID. The first answer wins.
func (r *Resolver) Respond(resp Response) (string, error) {
	r.mu.Lock()
	req, ok := r.byID[resp.ID]
	if !ok {
		r.mu.Unlock()
		return "", ErrUnknownRequest
	}
	if _, open := r.pending[req.Program]; !open {
		r.mu.Unlock()
		return r.CategoryFor(req.Program), ErrAlreadyResolved
	}

	category := r.Normalize(resp.Category)
	r.closeLocked(req, category)
	patcher := r.patcher
	r.mu.Unlock()

	log.Printf("Categorized %s as %s", req.Program, category)
	if patcher != nil && category != r.opts.Default {
		if err := patcher.PatchCategory(req.Program, category, req.Since); err != nil {
			log.Printf("error: %v", err)
		}
	}
	return category, nil
}

// Cancel dismisses a request; the program is recorded with the default
// category so it is not prompted again.
func (r *Resolver) Cancel(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.byID[id]
	if !ok {
		return ErrUnknownRequest
	}
	if _, open := r.pending[req.Program]; !open {
		return ErrAlreadyResolved
	}
	log.Printf("warning: categorization of %s dismissed, using %s", req.Program, r.opts.Default)
	r.closeLocked(req, r.opts.Default)
	return nil
}

// ExpirePending cancels requests whose prompt timeout has passed and returns
// how many it cancelled.
func (r *Resolver) ExpirePending(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	expired := 0
	for _, req := range r.pending {
		if req.Expires.IsZero() || now.Before(req.Expires) {
			continue
		}
		log.Printf("warning: categorization of %s timed out, using %s", req.Program, r.opts.Default)
		r.closeLocked(req, r.opts.Default)
		expired++
	}
	return expired
}

// closeLocked settles req. The request stays in byID so late answers are
// reported as already resolved.
func (r *Resolver) closeLocked(req *Request, category string) {
	delete(r.pending, req.Program)
	r.assignLocked(req.Program, category)
	close(req.done)
}

func (r *Resolver) assignLocked(program, category string) {
	r.categories[program] = category
	if err := r.store.SaveCategory(program, category); err != nil {
		log.Printf("error: failed to save category for %s, will retry: %v", program, err)
		r.dirty[program] = true
		return
	}
	delete(r.dirty, program)
}

// PendingRequests returns the unanswered requests, oldest first.
func (r *Resolver) PendingRequests() []Request {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Request, 0, len(r.pending))
	for _, req := range r.pending {
		out = append(out, *req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Since.Before(out[j].Since) })
	return out
}

// SetCategory edits a program's category and rewrites its history.
func (r *Resolver) SetCategory(program, category string) (int64, error) {
	program = strings.TrimSpace(program)
	if program == "" {
		return 0, errors.New("program name cannot be empty")
	}
	category = r.Normalize(category)

	r.mu.Lock()
	if req, ok := r.pending[program]; ok {
		r.closeLocked(req, category)
	} else {
		r.assignLocked(program, category)
	}
	r.mu.Unlock()

	n, err := r.store.UpdateCategory(program, category)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to update history of %s", program)
	}
	return n, nil
}

// Categories returns the sorted distinct category names, including the default.
func (r *Resolver) Categories() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedLocked()
}

func (r *Resolver) sortedLocked() []string {
	seen := map[string]bool{r.opts.Default: true}
	names := []string{r.opts.Default}
	for _, c := range r.categories {
		if !seen[c] {
			seen[c] = true
			names = append(names, c)
		}
	}
	sort.Strings(names)
	return names
}

// Mapping returns a copy of the program -> category map.
func (r *Resolver) Mapping() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]string, len(r.categories))
	for k, v := range r.categories {
		out[k] = v
	}
	return out
}

// Flush retries category writes that failed earlier.
func (r *Resolver) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for program := range r.dirty {
		if err := r.store.SaveCategory(program, r.categories[program]); err != nil {
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "failed to save category for %s", program)
			}
			continue
		}
		delete(r.dirty, program)
	}
	return firstErr
}

// Done is closed once the request has been settled by any path.
func (q Request) Done() <-chan struct{} {
	return q.done
}
