// Package reconcile decides create-vs-update per document and drives the
// store calls for a sync run.
package reconcile

// Operation is the terminal classification of one document's attempt.
type Operation string

const (
	OpCreated Operation = "created"
	OpUpdated Operation = "updated"
	OpSkipped Operation = "skipped"
	OpFailed  Operation = "failed"
)

// Outcome is the result of reconciling one document. Every processed
// locator produces exactly one Outcome.
type Outcome struct {
	Locator    string
	ExternalID string
	Operation  Operation
	// Reason qualifies skipped outcomes ("sync disabled", "dry-run",
	// "not attempted").
	Reason string
	// Err is set iff Operation is OpFailed.
	Err error
}

// Summary aggregates a run's outcomes. The caller derives the process
// exit code from Failed().
type Summary struct {
	Outcomes []Outcome
	Created  int
	Updated  int
	Skipped  int
	Failures int
}

func (s *Summary) add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.Operation {
	case OpCreated:
		s.Created++
	case OpUpdated:
		s.Updated++
	case OpSkipped:
		s.Skipped++
	case OpFailed:
		s.Failures++
	}
}

// Failed reports whether any document failed.
func (s *Summary) Failed() bool { return s.Failures > 0 }
