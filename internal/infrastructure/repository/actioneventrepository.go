package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/servora/servora/internal/domain/ticket"
	"github.com/servora/servora/internal/infrastructure/persistence/mappers"
	"github.com/servora/servora/internal/infrastructure/persistence/models"
	db "github.com/servora/servora/internal/shared/db"
	apperrors "github.com/servora/servora/internal/shared/errors"
	"github.com/servora/servora/internal/shared/logger"
)

// ActionEventRepository is the audit trail store. It only ever inserts.
type ActionEventRepository struct {
	db     *gorm.DB
	mapper mappers.TicketMapper
	logger logger.Interface
}

func NewActionEventRepository(db *gorm.DB, logger logger.Interface) *ActionEventRepository {
	return &ActionEventRepository{
		db:     db,
		mapper: mappers.NewTicketMapper(),
		logger: logger,
	}
}

func (r *ActionEventRepository) Append(ctx context.Context, e *ticket.ActionEvent) error {
	model, err := r.mapper.ActionEventToModel(e)
	if err != nil {
		return apperrors.NewInternalError("failed to map action event", err.Error())
	}

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Create(model).Error; err != nil {
		r.logger.Errorw("failed to append action event",
			"ticket_id", e.TicketID(),
			"kind", e.Kind().String(),
			"error", err,
		)
		return storeErr(err, "failed to append action event")
	}
	return nil
}

// ListFor returns the trail oldest first, in insertion order.
func (r *ActionEventRepository) ListFor(ctx context.Context, ticketID string) ([]*ticket.ActionEvent, error) {
	var rows []models.ActionEventModel
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC").
		Order("seq ASC").
		Find(&rows).Error; err != nil {
		return nil, storeErr(err, "failed to list action events")
	}

	events := make([]*ticket.ActionEvent, 0, len(rows))
	for i := range rows {
		e, err := r.mapper.ActionEventToDomain(&rows[i])
		if err != nil {
			return nil, apperrors.NewInternalError("failed to map action event", err.Error())
		}
		events = append(events, e)
	}
	return events, nil
}
