package enrollment

import (
	"testing"

	"github.com/learnhub-app/learnhub-server-go/pkg/types"
)

func TestEvaluateAccess(t *testing.T) {
	reason := "Proof is unreadable."

	tests := []struct {
		name       string
		enrollment Enrollment
		found      bool
		wantKind   AccessKind
		wantAllow  bool
		wantStatus string
		wantReason string
	}{
		{
			name:       "no record defaults open",
			found:      false,
			wantKind:   AccessNoRecord,
			wantAllow:  true,
			wantStatus: "none",
		},
		{
			name:       "pending blocks",
			enrollment: Enrollment{Status: types.EnrollmentStatusPending},
			found:      true,
			wantKind:   AccessPending,
			wantAllow:  false,
			wantStatus: "pending",
		},
		{
			name:       "approved allows",
			enrollment: Enrollment{Status: types.EnrollmentStatusApproved},
			found:      true,
			wantKind:   AccessApproved,
			wantAllow:  true,
			wantStatus: "approved",
		},
		{
			name:       "rejected blocks with reason",
			enrollment: Enrollment{Status: types.EnrollmentStatusRejected, RejectionReason: &reason},
			found:      true,
			wantKind:   AccessRejected,
			wantAllow:  false,
			wantStatus: "rejected",
			wantReason: reason,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := EvaluateAccess(tt.enrollment, tt.found)

			if state.Kind != tt.wantKind {
				t.Fatalf("kind = %v, want %v", state.Kind, tt.wantKind)
			}
			if state.Allowed() != tt.wantAllow {
				t.Fatalf("allowed = %v, want %v", state.Allowed(), tt.wantAllow)
			}
			if state.Status() != tt.wantStatus {
				t.Fatalf("status = %q, want %q", state.Status(), tt.wantStatus)
			}
			if state.Reason != tt.wantReason {
				t.Fatalf("reason = %q, want %q", state.Reason, tt.wantReason)
			}
		})
	}
}

func TestEvaluateAccess_RejectedWithoutReason(t *testing.T) {
	state := EvaluateAccess(Enrollment{Status: types.EnrollmentStatusRejected}, true)

	if state.Kind != AccessRejected {
		t.Fatalf("kind = %v, want AccessRejected", state.Kind)
	}
	if state.Reason != "" {
		t.Fatalf("reason = %q, want empty", state.Reason)
	}
}
