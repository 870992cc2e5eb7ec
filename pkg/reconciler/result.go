package reconciler

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/tagsync/pkg/sources"
)

// Summary is the observable outcome of one reconciliation run.
type Summary struct {
	Source  sources.ID `json:"source" yaml:"source"`
	Account string     `json:"account,omitempty" yaml:"account,omitempty"`
	Region  string     `json:"region,omitempty" yaml:"region,omitempty"`

	// ObjectsProcessed counts target objects that were examined.
	ObjectsProcessed int `json:"objectsProcessed" yaml:"objectsProcessed"`
	// ObjectsTagged counts targets whose reconciliation succeeded, including
	// targets that already carried every source label.
	ObjectsTagged int `json:"objectsTagged" yaml:"objectsTagged"`
	// LabelsAdded counts labels written (or, in a dry run, that would be).
	LabelsAdded int `json:"labelsAdded" yaml:"labelsAdded"`

	// Errors holds one message per failed write or listing. Never nil.
	Errors []string `json:"errors" yaml:"errors"`

	DryRun      bool `json:"dryRun,omitempty" yaml:"dryRun,omitempty"`
	Interrupted bool `json:"interrupted,omitempty" yaml:"interrupted,omitempty"`

	StartedAt  utc.Time `json:"startedAt" yaml:"startedAt"`
	FinishedAt utc.Time `json:"finishedAt" yaml:"finishedAt"`
}

func newSummary(id sources.ID, o *options) *Summary {
	return &Summary{
		Source:    id,
		Account:   o.account,
		Region:    o.region,
		Errors:    []string{},
		DryRun:    o.dryRun,
		StartedAt: o.now(),
	}
}

// HasErrors returns true if any write or listing failed.
func (s *Summary) HasErrors() bool {
	return len(s.Errors) > 0
}

// Duration returns how long the run took.
func (s *Summary) Duration() time.Duration {
	return s.FinishedAt.Time.Sub(s.StartedAt.Time)
}

// String returns a one-line human-readable summary.
func (s *Summary) String() string {
	var parts []string
	if s.DryRun {
		parts = append(parts, "(Dry run)")
	}
	if s.Interrupted {
		parts = append(parts, "(Interrupted)")
	}

	summary := fmt.Sprintf("%s: %d processed, %d tagged, %d labels added, %d errors",
		s.Source, s.ObjectsProcessed, s.ObjectsTagged, s.LabelsAdded, len(s.Errors))
	if len(parts) > 0 {
		summary += " " + strings.Join(parts, " ")
	}
	return summary
}

func (s *Summary) recordError(format string, args ...any) {
	s.Errors = append(s.Errors, fmt.Sprintf(format, args...))
}
