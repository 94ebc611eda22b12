package cleaner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmylchreest/wiki2docs/pkg/wiki"
)

// Stats captures metrics about what the cleaner did.
type Stats struct {
	// Element counts
	ElementsRemoved map[string]int `json:"elements_removed" yaml:"elements_removed"` // tag -> count

	// Selector matches
	SelectorMatches map[string]int `json:"selector_matches" yaml:"selector_matches"` // selector -> count

	AttributesRemoved int `json:"attributes_removed" yaml:"attributes_removed"`
	ImagesUnwrapped   int `json:"images_unwrapped" yaml:"images_unwrapped"`
	BlocksFlattened   int `json:"blocks_flattened" yaml:"blocks_flattened"`
	EmbedsReplaced    int `json:"embeds_replaced" yaml:"embeds_replaced"`

	TotalDuration time.Duration `json:"total_duration_ms" yaml:"total_duration_ms"`
}

// NewStats creates a new Stats instance with initialized maps.
func NewStats() *Stats {
	return &Stats{
		ElementsRemoved: make(map[string]int),
		SelectorMatches: make(map[string]int),
	}
}

// TotalElementsRemoved returns the sum of all removed elements.
func (s *Stats) TotalElementsRemoved() int {
	total := 0
	for _, count := range s.ElementsRemoved {
		total += count
	}
	return total
}

// RecordRemoval records that an element was removed.
func (s *Stats) RecordRemoval(tag string) {
	s.ElementsRemoved[strings.ToLower(tag)]++
}

// RecordSelectorMatch records that a selector matched elements.
func (s *Stats) RecordSelectorMatch(selector string, count int) {
	s.SelectorMatches[selector] += count
}

// Add folds other into s.
func (s *Stats) Add(other *Stats) {
	if other == nil {
		return
	}
	for tag, n := range other.ElementsRemoved {
		s.ElementsRemoved[tag] += n
	}
	for sel, n := range other.SelectorMatches {
		s.SelectorMatches[sel] += n
	}
	s.AttributesRemoved += other.AttributesRemoved
	s.ImagesUnwrapped += other.ImagesUnwrapped
	s.BlocksFlattened += other.BlocksFlattened
	s.EmbedsReplaced += other.EmbedsReplaced
}

// String returns a human-readable summary of the stats.
func (s *Stats) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Elements: %d removed\n", s.TotalElementsRemoved()))

	if len(s.ElementsRemoved) > 0 {
		sb.WriteString("Removed by tag: ")
		parts := make([]string, 0, len(s.ElementsRemoved))
		for tag, count := range s.ElementsRemoved {
			parts = append(parts, fmt.Sprintf("%s=%d", tag, count))
		}
		sort.Strings(parts)
		sb.WriteString(strings.Join(parts, ", "))
		sb.WriteString("\n")
	}

	if s.AttributesRemoved > 0 {
		sb.WriteString(fmt.Sprintf("Attributes removed: %d\n", s.AttributesRemoved))
	}
	if s.ImagesUnwrapped > 0 {
		sb.WriteString(fmt.Sprintf("Images unwrapped: %d\n", s.ImagesUnwrapped))
	}
	if s.BlocksFlattened > 0 {
		sb.WriteString(fmt.Sprintf("Code blocks flattened: %d\n", s.BlocksFlattened))
	}
	if s.EmbedsReplaced > 0 {
		sb.WriteString(fmt.Sprintf("Embeds replaced: %d\n", s.EmbedsReplaced))
	}

	sb.WriteString(fmt.Sprintf("Timing: total=%v\n", s.TotalDuration.Round(time.Microsecond)))

	return sb.String()
}

// Result contains the outcome of a cleaning operation.
// The cleaned content itself lives in the mutated tree.
type Result struct {
	// Stats contains metrics about what was done.
	Stats *Stats `json:"stats" yaml:"stats"`

	// Warnings contains non-fatal issues encountered.
	Warnings []wiki.Warning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// AddWarning adds a warning to the result.
func (r *Result) AddWarning(stage, message, context string) {
	r.Warnings = append(r.Warnings, wiki.Warning{
		Stage:   stage,
		Message: message,
		Context: context,
	})
}

// HasWarnings returns true if any warnings were recorded.
func (r *Result) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Merge folds other into r.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	if r.Stats == nil {
		r.Stats = NewStats()
	}
	r.Stats.Add(other.Stats)
	r.Warnings = append(r.Warnings, other.Warnings...)
}
