package meeting

import "fmt"

// Reason classifies why a join attempt failed.
type Reason string

const (
	ReasonNotAuthenticated    Reason = "not_authenticated"
	ReasonMeetingInaccessible Reason = "meeting_inaccessible"
	ReasonNoJoinButton        Reason = "no_join_button"
	ReasonNavigationFailed    Reason = "navigation_failed"
	ReasonRedirected          Reason = "redirected"
)

// JoinError is returned when a platform flow cannot reach an admitted
// state (in meeting, or in the waiting room). SnapshotPath points at a
// page screenshot captured at failure time, when one could be saved.
type JoinError struct {
	Reason       Reason
	Detail       string
	SnapshotPath string
}

func (e *JoinError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("join failed: %s", e.Reason)
	}
	return fmt.Sprintf("join failed: %s: %s", e.Reason, e.Detail)
}

func joinErr(reason Reason, format string, args ...interface{}) *JoinError {
	return &JoinError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}
