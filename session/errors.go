package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrWrongPhase is matched by every error returned for an operation
	// invoked outside its source phase.
	ErrWrongPhase = errors.New("session: operation not valid in current phase")

	// ErrInvalidConfig is returned when a configuration or client index
	// violates the protocol constraints.
	ErrInvalidConfig = errors.New("session: invalid configuration")

	// ErrInvalidDropout is returned when a dropped-client list names an
	// index outside the session, this client, or the same index twice.
	ErrInvalidDropout = errors.New("session: invalid dropped client list")

	// ErrUnexpectedShares is returned when a peer share payload is not
	// addressed to this client or repeats an owner.
	ErrUnexpectedShares = errors.New("session: unexpected peer shares")
)

// PhaseError reports an operation attempted in the wrong phase.
type PhaseError struct {
	Op   string
	Want []Phase
	Got  Phase
}

func (e *PhaseError) Error() string {
	want := make([]string, len(e.Want))
	for i, p := range e.Want {
		want[i] = p.String()
	}
	return fmt.Sprintf("session: %s requires phase %s, current phase is %s",
		e.Op, strings.Join(want, " or "), e.Got)
}

// Is makes errors.Is(err, ErrWrongPhase) succeed.
func (e *PhaseError) Is(target error) bool {
	return target == ErrWrongPhase
}
