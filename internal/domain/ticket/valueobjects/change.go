package valueobjects

import "fmt"

type ChangeType string

const (
	ChangeTypeStandard  ChangeType = "standard"
	ChangeTypeNormal    ChangeType = "normal"
	ChangeTypeEmergency ChangeType = "emergency"
	ChangeTypeMajor     ChangeType = "major"
)

func (c ChangeType) IsValid() bool {
	switch c {
	case ChangeTypeStandard, ChangeTypeNormal, ChangeTypeEmergency, ChangeTypeMajor:
		return true
	}
	return false
}

func NewChangeType(s string) (ChangeType, error) {
	c := ChangeType(s)
	if !c.IsValid() {
		return "", fmt.Errorf("invalid change type: %s", s)
	}
	return c, nil
}

type RiskLevel string

const (
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskExtreme RiskLevel = "extreme"
)

func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskExtreme:
		return true
	}
	return false
}

func NewRiskLevel(s string) (RiskLevel, error) {
	r := RiskLevel(s)
	if !r.IsValid() {
		return "", fmt.Errorf("invalid risk level: %s", s)
	}
	return r, nil
}
