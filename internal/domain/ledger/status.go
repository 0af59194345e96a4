package ledger

// Status is the approval state of an expense. Donations have no approval
// concept and always count toward the balance.
type Status string

const (
	// StatusPending is the initial state of every expense. Pending expenses
	// do not subtract from the pocket balance.
	StatusPending Status = "pending"
	// StatusApproved marks an expense as counted against its pocket.
	StatusApproved Status = "approved"
	// StatusRejected marks an expense as excluded from its pocket.
	StatusRejected Status = "rejected"
)

// IsValidStatus checks if the provided status is valid.
func IsValidStatus(s Status) bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// CanTransitionTo reports whether an expense in state s may move to next.
// The workflow has no terminal state: approved and rejected re-enter one
// another, because the balance only depends on the current status. Pending
// is initial-only and can never be re-entered.
func (s Status) CanTransitionTo(next Status) bool {
	return next == StatusApproved || next == StatusRejected
}
