package domain

// Decision is the final outcome of a policy evaluation.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
)

// Allowed reports whether the decision permits the action.
func (d Decision) Allowed() bool {
	return d == DecisionAllow
}

// ResourceRef identifies one concrete resource instance for object-level
// evaluation. Both fields must be supplied for the resource grant tier to be
// consulted.
type ResourceRef struct {
	Type string
	ID   string
}
