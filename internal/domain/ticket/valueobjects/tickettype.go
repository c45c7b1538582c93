package valueobjects

import "fmt"

// TicketType selects the variant of a ticket record.
type TicketType string

const (
	TicketTypeIncident TicketType = "incident"
	TicketTypeProblem  TicketType = "problem"
	TicketTypeChange   TicketType = "change"
)

// AllTicketTypes lists every ticket variant.
var AllTicketTypes = []TicketType{TicketTypeIncident, TicketTypeProblem, TicketTypeChange}

func (t TicketType) String() string {
	return string(t)
}

func (t TicketType) IsValid() bool {
	switch t {
	case TicketTypeIncident, TicketTypeProblem, TicketTypeChange:
		return true
	}
	return false
}

func NewTicketType(s string) (TicketType, error) {
	t := TicketType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid ticket type: %s", s)
	}
	return t, nil
}
