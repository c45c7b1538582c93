package ticket

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/servora/servora/internal/shared/errors"
)

const maxCommentLength = 10000

// Comment is an immutable remark on a ticket.
type Comment struct {
	id         string
	ticketID   string
	authorID   string
	body       string
	isInternal bool
	createdAt  time.Time
}

func NewComment(ticketID, authorID, body string, isInternal bool, now time.Time) (*Comment, error) {
	var fields []errors.FieldError
	if ticketID == "" {
		fields = append(fields, errors.FieldError{Field: "ticket_id", Message: "ticket_id is required"})
	}
	if authorID == "" {
		fields = append(fields, errors.FieldError{Field: "author_id", Message: "author_id is required"})
	}
	body = strings.TrimSpace(body)
	if body == "" {
		fields = append(fields, errors.FieldError{Field: "content", Message: "content cannot be empty"})
	} else if len(body) > maxCommentLength {
		fields = append(fields, errors.FieldError{Field: "content", Message: "content exceeds maximum length of 10000 characters"})
	}
	if len(fields) > 0 {
		return nil, errors.NewFieldValidationError(fields)
	}

	return &Comment{
		id:         uuid.NewString(),
		ticketID:   ticketID,
		authorID:   authorID,
		body:       body,
		isInternal: isInternal,
		createdAt:  now.UTC(),
	}, nil
}

func ReconstructComment(id, ticketID, authorID, body string, isInternal bool, createdAt time.Time) *Comment {
	return &Comment{
		id:         id,
		ticketID:   ticketID,
		authorID:   authorID,
		body:       body,
		isInternal: isInternal,
		createdAt:  createdAt,
	}
}

func (c *Comment) ID() string           { return c.id }
func (c *Comment) TicketID() string     { return c.ticketID }
func (c *Comment) AuthorID() string     { return c.authorID }
func (c *Comment) Body() string         { return c.body }
func (c *Comment) IsInternal() bool     { return c.isInternal }
func (c *Comment) CreatedAt() time.Time { return c.createdAt }
