/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fulmenhq/caretaker/internal/content"
)

// DefaultPriorities orders categories by how much they block learners
var DefaultPriorities = map[content.Category]int{
	content.CategoryAccessibility: 1, // Content some people cannot use at all
	content.CategoryLicense:       2, // Legal exposure when reusing content
	content.CategoryEfficiency:    3, // Load time, may be deferred
}

// PriorityManager handles category prioritization and ordering
type PriorityManager struct {
	customPriorities map[content.Category]int
}

// NewPriorityManager creates a new priority manager with default priorities
func NewPriorityManager() *PriorityManager {
	return &PriorityManager{
		customPriorities: make(map[content.Category]int),
	}
}

// SetCustomPriority sets a custom priority for a category
func (pm *PriorityManager) SetCustomPriority(category content.Category, priority int) {
	pm.customPriorities[category] = priority
}

// Priority returns the priority for a category (custom or default)
func (pm *PriorityManager) Priority(category content.Category) int {
	if priority, exists := pm.customPriorities[category]; exists {
		return priority
	}
	if priority, exists := DefaultPriorities[category]; exists {
		return priority
	}
	return 999 // Default for unknown categories
}

// Order returns categories sorted by priority (low number = high priority).
// On equal priority a custom entry comes before a default one; otherwise input order is kept.
func (pm *PriorityManager) Order(categories []content.Category) []content.Category {
	ordered := make([]content.Category, len(categories))
	copy(ordered, categories)

	sort.SliceStable(ordered, func(i, j int) bool {
		pi, pj := pm.Priority(ordered[i]), pm.Priority(ordered[j])
		if pi != pj {
			return pi < pj
		}
		_, ci := pm.customPriorities[ordered[i]]
		_, cj := pm.customPriorities[ordered[j]]
		return ci && !cj
	})

	return ordered
}

// ParsePriorityString parses a priority string like "license=1,accessibility=2"
func (pm *PriorityManager) ParsePriorityString(priorityStr string) error {
	if priorityStr == "" {
		return nil
	}

	validEntries := 0
	for _, part := range strings.Split(priorityStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return fmt.Errorf("invalid priority format: %s (expected category=priority)", part)
		}

		category := content.Category(strings.TrimSpace(kv[0]))
		value := strings.TrimSpace(kv[1])
		if value == "default" {
			delete(pm.customPriorities, category)
			validEntries++
			continue
		}

		var priority int
		switch value {
		case "1", "highest":
			priority = 1
		case "2", "high":
			priority = 2
		case "3", "medium":
			priority = 3
		case "4", "low":
			priority = 4
		case "5", "lowest":
			priority = 5
		default:
			return fmt.Errorf("invalid priority value: %s (expected 1-5 or highest/lowest)", kv[1])
		}

		pm.SetCustomPriority(category, priority)
		validEntries++
	}

	if validEntries == 0 {
		return fmt.Errorf("no valid priority entries found in: %s", priorityStr)
	}
	return nil
}

// AllCategories returns all known categories in priority order
func (pm *PriorityManager) AllCategories() []content.Category {
	categories := make([]content.Category, 0, len(DefaultPriorities))
	for category := range DefaultPriorities {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
	return pm.Order(categories)
}
