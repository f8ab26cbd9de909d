package stage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ContentEnricher/internal/domain"
)

// Name identifies a stage in plans, logs and metrics.
type Name string

const (
	Metadata       Name = "metadata"
	Readable       Name = "readable"
	Document       Name = "document"
	Image          Name = "image"
	Tags           Name = "tags"
	Classification Name = "classification"
	Sentiment      Name = "sentiment"
)

// Stage is one independent, failure-prone analysis step.
type Stage interface {
	Name() Name
	Timeout() time.Duration
	Run(ctx context.Context, ws *Workspace) (domain.Patch, error)
}

// Func adapts a plain function to the Stage interface.
type Func func(ctx context.Context, ws *Workspace) (domain.Patch, error)

type funcStage struct {
	name    Name
	timeout time.Duration
	fn      Func
}

// New builds a Stage from a function.
func New(name Name, timeout time.Duration, fn Func) Stage {
	return &funcStage{name: name, timeout: timeout, fn: fn}
}

func (s *funcStage) Name() Name             { return s.name }
func (s *funcStage) Timeout() time.Duration { return s.timeout }

func (s *funcStage) Run(ctx context.Context, ws *Workspace) (domain.Patch, error) {
	return s.fn(ctx, ws)
}

// Workspace carries the item snapshot and the intermediate artifacts that
// later stages consume. Stages in the same phase share it concurrently.
//
// A stage writes into its own scope (see Scope); the writes reach the shared
// workspace only through Commit, so an abandoned or failed stage leaves no trace.
type Workspace struct {
	item   domain.ContentItem
	parent *Workspace

	mu          sync.RWMutex
	html        string
	title       string
	description string
	text        string
}

// NewWorkspace seeds artifacts from the stored record.
func NewWorkspace(item domain.ContentItem) *Workspace {
	ws := &Workspace{
		item:        item,
		title:       item.Title,
		description: item.Description,
	}
	if item.Type == domain.TypeNote || item.Type == domain.TypeVoice {
		ws.text = item.Text()
	}
	return ws
}

// Scope returns a child workspace that reads through to w and buffers writes.
func (w *Workspace) Scope() *Workspace {
	return &Workspace{item: w.item, parent: w}
}

// Commit publishes the scope's buffered writes to its parent. It is a no-op
// on a root or nil workspace.
func (w *Workspace) Commit() {
	if w == nil || w.parent == nil {
		return
	}
	w.mu.RLock()
	html, title, description, text := w.html, w.title, w.description, w.text
	w.mu.RUnlock()

	w.parent.SetPage(html, title, description)
	w.parent.SetText(text)
}

// Item returns the snapshot read at the start of the run.
func (w *Workspace) Item() domain.ContentItem { return w.item }

// HTML is the raw page markup fetched by the metadata stage.
func (w *Workspace) HTML() string {
	return w.read(func(x *Workspace) string { return x.html })
}

// Title is the scraped title, or the stored one before scraping.
func (w *Workspace) Title() string {
	return w.read(func(x *Workspace) string { return x.title })
}

// Description is the scraped description, or the stored one before scraping.
func (w *Workspace) Description() string {
	return w.read(func(x *Workspace) string { return x.description })
}

// Text is the best plain text produced so far: readable article, document
// body, or the note/voice text itself.
func (w *Workspace) Text() string {
	return w.read(func(x *Workspace) string { return x.text })
}

func (w *Workspace) read(field func(*Workspace) string) string {
	w.mu.RLock()
	v := field(w)
	w.mu.RUnlock()
	if v == "" && w.parent != nil {
		return w.parent.read(field)
	}
	return v
}

// SetPage records scraped page artifacts; empty values keep the previous ones.
func (w *Workspace) SetPage(html, title, description string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if html != "" {
		w.html = html
	}
	if title != "" {
		w.title = title
	}
	if description != "" {
		w.description = description
	}
}

// SetText replaces the plain text for downstream stages; "" is ignored.
func (w *Workspace) SetText(text string) {
	if text == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.text = text
}

// Registry keeps a mapping from stage names to their implementations.
type Registry struct {
	stages map[Name]Stage
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{stages: map[Name]Stage{}}
}

// Register adds or replaces a stage implementation.
func (r *Registry) Register(s Stage) {
	if r.stages == nil {
		r.stages = map[Name]Stage{}
	}
	r.stages[s.Name()] = s
}

// Resolve returns a stage by name or an error if it is absent.
func (r *Registry) Resolve(name Name) (Stage, error) {
	if s, ok := r.stages[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("stage %s is not registered", name)
}
