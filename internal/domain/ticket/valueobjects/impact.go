package valueobjects

import "fmt"

type Impact string

const (
	ImpactLow        Impact = "low"
	ImpactMedium     Impact = "medium"
	ImpactHigh       Impact = "high"
	ImpactCritical   Impact = "critical"
	ImpactEnterprise Impact = "enterprise"
)

func (i Impact) String() string {
	return string(i)
}

// IsValidFor reports whether the impact level exists for the ticket type.
// Enterprise impact only applies to changes.
func (i Impact) IsValidFor(t TicketType) bool {
	switch i {
	case ImpactLow, ImpactMedium, ImpactHigh, ImpactCritical:
		return true
	case ImpactEnterprise:
		return t == TicketTypeChange
	}
	return false
}

func NewImpact(s string, t TicketType) (Impact, error) {
	i := Impact(s)
	if !i.IsValidFor(t) {
		return "", fmt.Errorf("invalid %s impact: %s", t, s)
	}
	return i, nil
}
