package enrollment

import "github.com/learnhub-app/learnhub-server-go/pkg/types"

// AccessKind tags the possible outcomes of the course access gate.
type AccessKind int

const (
	// AccessNoRecord means no enrollment exists for the pair. Courses
	// default open until an enrollment flow has been entered, so the
	// player still renders.
	AccessNoRecord AccessKind = iota
	// AccessPending blocks playback while payment proof awaits review.
	AccessPending
	// AccessApproved grants the full curriculum.
	AccessApproved
	// AccessRejected blocks playback and carries the mentor's reason.
	AccessRejected
)

// AccessState is the resolved gate decision for a (student, course) pair.
type AccessState struct {
	Kind   AccessKind
	Reason string
}

// EvaluateAccess decides whether the course player may render media for the
// given enrollment lookup result. It is a pure function of the record; it is
// evaluated once per page load, not subscribed to.
func EvaluateAccess(enr Enrollment, found bool) AccessState {
	if !found {
		return AccessState{Kind: AccessNoRecord}
	}

	switch enr.Status {
	case types.EnrollmentStatusApproved:
		return AccessState{Kind: AccessApproved}
	case types.EnrollmentStatusRejected:
		reason := ""
		if enr.RejectionReason != nil {
			reason = *enr.RejectionReason
		}
		return AccessState{Kind: AccessRejected, Reason: reason}
	default:
		return AccessState{Kind: AccessPending}
	}
}

// Allowed reports whether the player may render course media.
func (s AccessState) Allowed() bool {
	return s.Kind == AccessNoRecord || s.Kind == AccessApproved
}

// Status returns the wire name of the gate state.
func (s AccessState) Status() string {
	switch s.Kind {
	case AccessApproved:
		return "approved"
	case AccessPending:
		return "pending"
	case AccessRejected:
		return "rejected"
	default:
		return "none"
	}
}
