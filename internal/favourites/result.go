package favourites

import "github.com/giannis84/matchday-favourites/internal/models"

// Outcome is the result of one favourite mutation.
type Outcome int

const (
	// OutcomeFailed means the remote store rejected or never received the mutation.
	OutcomeFailed Outcome = iota
	OutcomeAdded
	OutcomeRemoved
	// OutcomeBusy means a mutation for the same match was already in flight; nothing was sent.
	OutcomeBusy
	// OutcomeSkipped means the call was invalid (e.g. no user) and nothing was sent.
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdded:
		return "added"
	case OutcomeRemoved:
		return "removed"
	case OutcomeBusy:
		return "busy"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Result is returned by every mutation. Err is set for OutcomeFailed and OutcomeSkipped.
type Result struct {
	Outcome Outcome
	MatchID models.MatchID
	Err     error
}

// OK reports whether the mutation was acknowledged by the remote store.
func (r Result) OK() bool {
	return r.Outcome == OutcomeAdded || r.Outcome == OutcomeRemoved
}
