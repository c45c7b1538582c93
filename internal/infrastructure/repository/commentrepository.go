package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/servora/servora/internal/domain/ticket"
	"github.com/servora/servora/internal/infrastructure/persistence/mappers"
	"github.com/servora/servora/internal/infrastructure/persistence/models"
	db "github.com/servora/servora/internal/shared/db"
	"github.com/servora/servora/internal/shared/logger"
)

// CommentRepository stores ticket comments. Comments are append-only.
type CommentRepository struct {
	db     *gorm.DB
	mapper mappers.TicketMapper
	logger logger.Interface
}

func NewCommentRepository(db *gorm.DB, logger logger.Interface) *CommentRepository {
	return &CommentRepository{
		db:     db,
		mapper: mappers.NewTicketMapper(),
		logger: logger,
	}
}

func (r *CommentRepository) AppendComment(ctx context.Context, c *ticket.Comment) error {
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Create(r.mapper.CommentToModel(c)).Error; err != nil {
		r.logger.Errorw("failed to save comment", "ticket_id", c.TicketID(), "error", err)
		return storeErr(err, "failed to save comment")
	}
	return nil
}

func (r *CommentRepository) ListByTicket(ctx context.Context, ticketID string) ([]*ticket.Comment, error) {
	var rows []models.CommentModel
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC").
		Order("seq ASC").
		Find(&rows).Error; err != nil {
		return nil, storeErr(err, "failed to list comments")
	}

	comments := make([]*ticket.Comment, 0, len(rows))
	for i := range rows {
		comments = append(comments, r.mapper.CommentToDomain(&rows[i]))
	}
	return comments, nil
}
