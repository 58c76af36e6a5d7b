package allocator

import "slices"

// Capability is a privilege an actor can hold
type Capability string

const (
	// CapBypassEligibility lets an actor register candidates who fail eligibility checks.
	// Bypassed registrations still go through capacity checks and are reported on the outcome.
	CapBypassEligibility Capability = "bypass-eligibility"

	// CapPromote lets an actor promote a specific waitlist entry out of rank order
	CapPromote Capability = "promote"

	// CapAdmin implies every other capability
	CapAdmin Capability = "admin"
)

// AuthorizationContext identifies who is acting and what they may do.
// It is passed explicitly into every privileged operation.
type AuthorizationContext struct {
	ActorID      string
	Capabilities []Capability
}

// MemberContext returns an unprivileged context for a member acting for themselves
func MemberContext(actorID string) AuthorizationContext {
	return AuthorizationContext{ActorID: actorID}
}

// AdminContext returns a context holding every capability
func AdminContext(actorID string) AuthorizationContext {
	return AuthorizationContext{ActorID: actorID, Capabilities: []Capability{CapAdmin}}
}

// Can reports whether the context holds the capability
func (a AuthorizationContext) Can(c Capability) bool {
	return slices.Contains(a.Capabilities, CapAdmin) || slices.Contains(a.Capabilities, c)
}
