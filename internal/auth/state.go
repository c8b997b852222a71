// File: internal/auth/state.go
package auth

// State is the authentication lifecycle state. It is owned exclusively by
// the Controller; transitions outside the table below are rejected.
type State int

const (
	LoggedOut State = iota
	Authenticating
	CheckpointPending
	TwoFactorPending
	LoggedIn
	Failed
)

func (s State) String() string {
	switch s {
	case LoggedOut:
		return "logged_out"
	case Authenticating:
		return "authenticating"
	case CheckpointPending:
		return "checkpoint_pending"
	case TwoFactorPending:
		return "two_factor_pending"
	case LoggedIn:
		return "logged_in"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// transitions defines the legal state machine edges.
var transitions = map[State][]State{
	LoggedOut:         {Authenticating},
	Authenticating:    {LoggedIn, Failed, CheckpointPending, TwoFactorPending},
	CheckpointPending: {LoggedOut, Authenticating, Failed},
	TwoFactorPending:  {LoggedOut, Authenticating, LoggedIn, Failed},
	LoggedIn:          {LoggedOut, Authenticating},
	Failed:            {LoggedOut, Authenticating},
}

// CanTransition reports whether moving from s to next is a defined edge.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
