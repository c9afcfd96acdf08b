/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package rules holds the diagnostic analyzers and the engine that runs them
// over a finished content tree.
package rules

import (
	"context"
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/fulmenhq/caretaker/internal/content"
)

// Analyzer inspects a finished tree and reports findings through sink.
// Implementations keep no state between calls and never read messages.
type Analyzer interface {
	// Category returns the message category this analyzer emits
	Category() content.Category

	// Analyze walks the tree and appends messages for the nodes it inspects
	Analyze(ctx context.Context, tree *content.Tree, env *Env, sink content.Sink) error
}

// Env is the auxiliary data analyzers may consult
type Env struct {
	Tables  *Tables
	Media   content.MediaIndex
	Policy  *LicensePolicy
	Printer *message.Printer
}

// DefaultLanguage is used for message text when no locale is configured
var DefaultLanguage = language.English

// NewEnv fills unset fields with defaults
func NewEnv(tables *Tables, media content.MediaIndex, policy *LicensePolicy, lang language.Tag) *Env {
	if tables == nil {
		tables = DefaultTables()
	}
	if lang == language.Und {
		lang = DefaultLanguage
	}
	return &Env{
		Tables:  tables,
		Media:   media,
		Policy:  policy,
		Printer: message.NewPrinter(lang),
	}
}

var (
	englishPrinter = message.NewPrinter(language.English)
	builtinTables  = DefaultTables()
)

func (e *Env) printer() *message.Printer {
	if e == nil || e.Printer == nil {
		return englishPrinter
	}
	return e.Printer
}

func (e *Env) tables() *Tables {
	if e == nil || e.Tables == nil {
		return builtinTables
	}
	return e.Tables
}

// buffer collects one analyzer's messages so parallel runs can be merged in a fixed order
type buffer struct {
	entries []bufferedMessage
}

type bufferedMessage struct {
	id  content.NodeID
	msg content.Message
}

func (b *buffer) AttachMessage(id content.NodeID, msg content.Message) {
	b.entries = append(b.entries, bufferedMessage{id: id, msg: msg})
}

func (b *buffer) flush(sink content.Sink) int {
	for _, e := range b.entries {
		sink.AttachMessage(e.id, e.msg)
	}
	return len(b.entries)
}

// Registry manages the available analyzers, one per category
type Registry struct {
	analyzers  map[content.Category]Analyzer
	priorities *PriorityManager
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		analyzers:  make(map[content.Category]Analyzer),
		priorities: NewPriorityManager(),
	}
}

// DefaultRegistry returns a registry with the built-in analyzers
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(AccessibilityAnalyzer{})
	r.Register(LicenseAnalyzer{})
	r.Register(EfficiencyAnalyzer{})
	return r
}

// Register adds or replaces the analyzer for its category
func (r *Registry) Register(a Analyzer) {
	r.analyzers[a.Category()] = a
}

// Get returns the analyzer for a category
func (r *Registry) Get(category content.Category) (Analyzer, bool) {
	a, ok := r.analyzers[category]
	return a, ok
}

// Categories returns the registered categories in priority order
func (r *Registry) Categories() []content.Category {
	categories := make([]content.Category, 0, len(r.analyzers))
	for c := range r.analyzers {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
	return r.priorities.Order(categories)
}

// Priorities exposes the manager deciding category order
func (r *Registry) Priorities() *PriorityManager {
	return r.priorities
}

// SetPriorities replaces the priority manager; nil is ignored
func (r *Registry) SetPriorities(pm *PriorityManager) {
	if pm != nil {
		r.priorities = pm
	}
}
