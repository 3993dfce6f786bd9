// internal/lending/transitions.go
package lending

import "libralend/internal/liberr"

// Action is an operation a caller may attempt against an issue. The UI asks
// the engine which actions are legal instead of hard-coding per-role button
// logic.
type Action string

const (
	ActionApprove       Action = "approve"
	ActionReject        Action = "reject"
	ActionRequestReturn Action = "request_return"
	ActionCancelReturn  Action = "cancel_return"
	ActionConfirmReturn Action = "confirm_return"
	ActionRenew         Action = "renew"
	ActionDeclareLost   Action = "declare_lost"
)

// transitions is the single source of truth for the state machine: the
// target status of every legal (status, action) pair. Anything absent is
// illegal.
var transitions = map[Status]map[Action]Status{
	StatusPending: {
		ActionApprove: StatusApproved,
		ActionReject:  StatusRejected,
	},
	StatusApproved: {
		ActionRequestReturn: StatusReturnRequested,
		ActionConfirmReturn: StatusReturned,
		ActionRenew:         StatusApproved,
		ActionDeclareLost:   StatusReturned,
	},
	StatusReturnRequested: {
		ActionCancelReturn:  StatusApproved,
		ActionConfirmReturn: StatusReturned,
		ActionDeclareLost:   StatusReturned,
	},
}

// LegalActions lists the actions permitted from the given status, in a
// stable order.
func LegalActions(s Status) []Action {
	allowed := transitions[s]
	var out []Action
	for _, a := range []Action{
		ActionApprove, ActionReject, ActionRequestReturn,
		ActionCancelReturn, ActionConfirmReturn, ActionRenew, ActionDeclareLost,
	} {
		if _, ok := allowed[a]; ok {
			out = append(out, a)
		}
	}
	return out
}

// nextStatus resolves the target of (current, action) or fails with
// InvalidStateTransition naming both.
func nextStatus(current Status, action Action) (Status, error) {
	if to, ok := transitions[current][action]; ok {
		return to, nil
	}
	return "", liberr.New(liberr.KindInvalidStateTransition,
		"cannot %s an issue in status %s", action, current)
}
