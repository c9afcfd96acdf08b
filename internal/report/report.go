/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package report collects the messages attached to a content tree and renders them.
package report

import (
	"time"

	"github.com/fulmenhq/caretaker/internal/content"
	"github.com/fulmenhq/caretaker/internal/rules"
)

// Metadata describes the inspected package and the run that produced the report
type Metadata struct {
	GeneratedAt   time.Time           `json:"generated_at"`
	Tool          string              `json:"tool"`
	Version       string              `json:"version"`
	Package       string              `json:"package"`
	Digest        string              `json:"digest,omitempty"`
	Title         string              `json:"title,omitempty"`
	MainLibrary   string              `json:"main_library,omitempty"`
	ExecutionTime time.Duration       `json:"execution_time"`
	Runs          []rules.CategoryRun `json:"runs,omitempty"`
}

// Summary holds report-wide counts
type Summary struct {
	TotalMessages     int                      `json:"total_messages"`
	Nodes             int                      `json:"nodes"`
	Files             int                      `json:"files"`
	NodesWithMessages int                      `json:"nodes_with_messages"`
	ByLevel           map[content.Level]int    `json:"by_level"`
	ByCategory        map[content.Category]int `json:"by_category"`
	Suppressed        int                      `json:"suppressed,omitempty"`
}

// Report is the assembled diagnostic result for one package
type Report struct {
	Metadata Metadata          `json:"metadata"`
	Summary  Summary           `json:"summary"`
	Messages []content.Message `json:"messages"`

	priorities *rules.PriorityManager
}

// CategoryGroup is the slice of messages belonging to one category
type CategoryGroup struct {
	Category content.Category  `json:"category"`
	Priority int               `json:"priority"`
	Messages []content.Message `json:"messages"`
}

// Assemble collects every message in pre-order. Details are kept as attached.
func Assemble(tree *content.Tree, meta Metadata) *Report {
	r := &Report{Metadata: meta}

	nodes, files, withMessages := 0, 0, 0
	for n := range tree.Nodes() {
		nodes++
		files += len(n.Files())
		msgs := n.Messages()
		if len(msgs) > 0 {
			withMessages++
		}
		r.Messages = append(r.Messages, msgs...)
	}

	r.Summary = summarize(r.Messages)
	r.Summary.Nodes = nodes
	r.Summary.Files = files
	r.Summary.NodesWithMessages = withMessages
	return r
}

func summarize(msgs []content.Message) Summary {
	s := Summary{
		TotalMessages: len(msgs),
		ByLevel:       make(map[content.Level]int),
		ByCategory:    make(map[content.Category]int),
	}
	for _, m := range msgs {
		s.ByLevel[m.Level]++
		s.ByCategory[m.Category]++
	}
	return s
}

// SetPriorities overrides the category order used by ByCategory
func (r *Report) SetPriorities(pm *rules.PriorityManager) {
	r.priorities = pm
}

func (r *Report) priorityManager() *rules.PriorityManager {
	if r.priorities == nil {
		return rules.NewPriorityManager()
	}
	return r.priorities
}

// ByCategory groups messages in category priority order. Categories that ran
// without findings are included with an empty message list.
func (r *Report) ByCategory() []CategoryGroup {
	pm := r.priorityManager()

	grouped := make(map[content.Category][]content.Message)
	var order []content.Category
	see := func(c content.Category) {
		if _, ok := grouped[c]; !ok {
			grouped[c] = nil
			order = append(order, c)
		}
	}
	for _, run := range r.Metadata.Runs {
		see(run.Category)
	}
	for _, m := range r.Messages {
		see(m.Category)
		grouped[m.Category] = append(grouped[m.Category], m)
	}

	groups := make([]CategoryGroup, 0, len(order))
	for _, c := range pm.Order(order) {
		groups = append(groups, CategoryGroup{Category: c, Priority: pm.Priority(c), Messages: grouped[c]})
	}
	return groups
}

// Filter returns a copy limited to the given categories (all when empty) and
// to messages at or above minLevel (all when empty).
func (r *Report) Filter(categories []content.Category, minLevel content.Level) *Report {
	allowed := make(map[content.Category]bool, len(categories))
	for _, c := range categories {
		allowed[c] = true
	}

	out := &Report{Metadata: r.Metadata, priorities: r.priorities}
	if len(allowed) > 0 {
		out.Metadata.Runs = nil
		for _, run := range r.Metadata.Runs {
			if allowed[run.Category] {
				out.Metadata.Runs = append(out.Metadata.Runs, run)
			}
		}
	}

	seen := make(map[string]bool)
	for _, m := range r.Messages {
		if len(allowed) > 0 && !allowed[m.Category] {
			continue
		}
		if minLevel != "" && m.Level.Rank() < minLevel.Rank() {
			continue
		}
		out.Messages = append(out.Messages, m)
		seen[m.SubContentID] = true
	}

	out.Summary = summarize(out.Messages)
	out.Summary.Nodes = r.Summary.Nodes
	out.Summary.Files = r.Summary.Files
	out.Summary.NodesWithMessages = len(seen)
	out.Summary.Suppressed = r.Summary.Suppressed
	return out
}

// Suppress drops the messages skip matches and adds them to the suppressed count
func (r *Report) Suppress(skip func(content.Message) bool) *Report {
	out := &Report{Metadata: r.Metadata, priorities: r.priorities}

	seen := make(map[string]bool)
	for _, m := range r.Messages {
		if skip(m) {
			continue
		}
		out.Messages = append(out.Messages, m)
		seen[m.SubContentID] = true
	}

	out.Summary = summarize(out.Messages)
	out.Summary.Nodes = r.Summary.Nodes
	out.Summary.Files = r.Summary.Files
	out.Summary.NodesWithMessages = len(seen)
	out.Summary.Suppressed = r.Summary.Suppressed + len(r.Messages) - len(out.Messages)
	return out
}

// MaxLevel returns the most severe level present, empty when there are no messages
func (r *Report) MaxLevel() content.Level {
	var top content.Level
	for _, m := range r.Messages {
		if top == "" || m.Level.Rank() > top.Rank() {
			top = m.Level
		}
	}
	return top
}

// ShouldFail reports whether any message is at or above level. An empty level never fails.
func (r *Report) ShouldFail(level content.Level) bool {
	if level == "" {
		return false
	}
	for _, m := range r.Messages {
		if m.Level.Rank() >= level.Rank() {
			return true
		}
	}
	return false
}
