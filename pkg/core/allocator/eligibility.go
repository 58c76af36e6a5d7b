package allocator

import "time"

// Predicate names reported in eligibility results
const (
	PredicateMembershipActive = "membershipActive"
	PredicateLicenseValid     = "licenseValid"
	PredicateEquipmentMet     = "equipmentRequirementMet"
	PredicateGenderMet        = "genderConstraintMet"
)

// Predicate is a single eligibility requirement.
// Any predicate that applies and fails vetoes the registration unless bypassed.
type Predicate interface {
	// Name returns the identifier reported when the predicate fails
	Name() string

	// Applies reports whether the predicate is evaluated for this race at all
	Applies(race Race, slot Slot) bool

	// Check returns true if the candidate satisfies the predicate
	Check(candidate Candidate, race Race, slot Slot) bool
}

// PredicateResult is the outcome of a single predicate
type PredicateResult struct {
	Name      string
	Evaluated bool
	Passed    bool
}

// EligibilityResult enumerates every predicate outcome rather than a single boolean
type EligibilityResult struct {
	Results []PredicateResult

	// Bypassed is set when failures were overridden by a privileged actor
	Bypassed   bool
	BypassedBy string
}

// Failed returns the names of the predicates that were evaluated and failed
func (r EligibilityResult) Failed() []string {
	var failed []string
	for _, result := range r.Results {
		if result.Evaluated && !result.Passed {
			failed = append(failed, result.Name)
		}
	}
	return failed
}

// Eligible returns true if nothing failed or the failures were bypassed
func (r EligibilityResult) Eligible() bool {
	return r.Bypassed || len(r.Failed()) == 0
}

// EligibilityChecker evaluates a candidate against a race and target slot
type EligibilityChecker struct {
	predicates []Predicate
}

// NewEligibilityChecker creates a checker; with no predicates it uses DefaultPredicates
func NewEligibilityChecker(predicates ...Predicate) *EligibilityChecker {
	if len(predicates) == 0 {
		predicates = DefaultPredicates()
	}
	return &EligibilityChecker{predicates: predicates}
}

// DefaultPredicates returns membership, license, equipment and gender checks
func DefaultPredicates() []Predicate {
	return []Predicate{
		MembershipActivePredicate{},
		LicenseValidPredicate{},
		EquipmentPredicate{},
		GenderPredicate{},
	}
}

// Check evaluates every predicate. All predicates run even when the actor may
// bypass them, so the bypassed failures stay visible for audit.
func (c *EligibilityChecker) Check(candidate Candidate, race Race, slot Slot, auth AuthorizationContext) EligibilityResult {
	result := EligibilityResult{Results: make([]PredicateResult, 0, len(c.predicates))}
	for _, predicate := range c.predicates {
		pr := PredicateResult{Name: predicate.Name()}
		if predicate.Applies(race, slot) {
			pr.Evaluated = true
			pr.Passed = predicate.Check(candidate, race, slot)
		}
		result.Results = append(result.Results, pr)
	}

	if len(result.Failed()) > 0 && auth.Can(CapBypassEligibility) {
		result.Bypassed = true
		result.BypassedBy = auth.ActorID
	}
	return result
}

// MembershipActivePredicate requires an active membership
type MembershipActivePredicate struct{}

func (MembershipActivePredicate) Name() string { return PredicateMembershipActive }

func (MembershipActivePredicate) Applies(Race, Slot) bool { return true }

func (MembershipActivePredicate) Check(candidate Candidate, _ Race, _ Slot) bool {
	return candidate.MembershipActive
}

// LicenseValidPredicate requires the credential to be valid on race day.
// A missing expiry date fails.
type LicenseValidPredicate struct{}

func (LicenseValidPredicate) Name() string { return PredicateLicenseValid }

func (LicenseValidPredicate) Applies(Race, Slot) bool { return true }

func (LicenseValidPredicate) Check(candidate Candidate, race Race, _ Slot) bool {
	if candidate.LicenseExpiry.IsZero() {
		return false
	}
	return !dateOf(candidate.LicenseExpiry).Before(dateOf(race.Date))
}

// EquipmentPredicate only applies to race types that require specialised equipment
type EquipmentPredicate struct{}

func (EquipmentPredicate) Name() string { return PredicateEquipmentMet }

func (EquipmentPredicate) Applies(race Race, _ Slot) bool { return race.RequiresEquipment }

func (EquipmentPredicate) Check(candidate Candidate, _ Race, _ Slot) bool {
	return candidate.HasEquipment
}

// GenderPredicate enforces the slot's gender limit.
// A candidate with no recorded gender cannot take a gender-limited slot.
type GenderPredicate struct{}

func (GenderPredicate) Name() string { return PredicateGenderMet }

func (GenderPredicate) Applies(_ Race, slot Slot) bool {
	return slot.GenderLimit != "" && slot.GenderLimit != GenderAny
}

func (GenderPredicate) Check(candidate Candidate, _ Race, slot Slot) bool {
	return candidate.Gender == slot.GenderLimit
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
