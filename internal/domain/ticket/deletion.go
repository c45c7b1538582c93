package ticket

import "time"

// Deletion is the soft-delete state of a ticket: either active or deleted at
// a point in time. The zero value is active.
type Deletion struct {
	at *time.Time
}

// Active returns the live state.
func Active() Deletion {
	return Deletion{}
}

// DeletedAt returns the tombstone state.
func DeletedAt(at time.Time) Deletion {
	at = at.UTC()
	return Deletion{at: &at}
}

// DeletionFrom builds the state from a nullable timestamp, as stored.
func DeletionFrom(at *time.Time) Deletion {
	if at == nil {
		return Active()
	}
	return DeletedAt(*at)
}

func (d Deletion) IsDeleted() bool {
	return d.at != nil
}

// At returns the deletion time and whether the ticket is deleted.
func (d Deletion) At() (time.Time, bool) {
	if d.at == nil {
		return time.Time{}, false
	}
	return *d.at, true
}

// Timestamp returns the nullable form used by persistence.
func (d Deletion) Timestamp() *time.Time {
	if d.at == nil {
		return nil
	}
	at := *d.at
	return &at
}
