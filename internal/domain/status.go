package domain

import "fmt"

// Status is the enrichment lifecycle marker.
type Status string

const (
	StatusPending  Status = "pending-analysis"
	StatusEnriched Status = "enriched"
	StatusFailed   Status = "failed-analysis"
)

// ParseStatus accepts persisted values. An empty value is treated as enriched,
// matching records written before the explicit success value existed.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPending, StatusEnriched, StatusFailed:
		return Status(raw), nil
	case "":
		return StatusEnriched, nil
	default:
		return "", fmt.Errorf("unknown status %q", raw)
	}
}

// CanTransition reports whether moving from s to next is legal.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusPending || next == StatusEnriched || next == StatusFailed
	case StatusEnriched, StatusFailed:
		return next == StatusPending
	default:
		return false
	}
}

// Transition returns next or ErrInvalidTransition.
func (s Status) Transition(next Status) (Status, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return next, nil
}
