package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/servora/servora/internal/domain/ticket"
	vo "github.com/servora/servora/internal/domain/ticket/valueobjects"
	"github.com/servora/servora/internal/infrastructure/persistence/mappers"
	"github.com/servora/servora/internal/infrastructure/persistence/models"
	db "github.com/servora/servora/internal/shared/db"
	apperrors "github.com/servora/servora/internal/shared/errors"
	"github.com/servora/servora/internal/shared/logger"
)

// allowedTicketOrderBy maps the sortable fields to ORDER BY expressions.
// Only whitelisted expressions ever reach the query.
var allowedTicketOrderBy = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"status":     "status",
	"title":      "title",
	"number":     "number",
	"priority":   "CASE priority WHEN 'critical' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END",
}

// TicketRepository is the gorm gateway for ticket aggregates of every type.
type TicketRepository struct {
	db     *gorm.DB
	mapper mappers.TicketMapper
	logger logger.Interface
}

func NewTicketRepository(db *gorm.DB, logger logger.Interface) *TicketRepository {
	return &TicketRepository{
		db:     db,
		mapper: mappers.NewTicketMapper(),
		logger: logger,
	}
}

func (r *TicketRepository) Create(ctx context.Context, t *ticket.Ticket) error {
	model, err := r.mapper.ToModel(t)
	if err != nil {
		return apperrors.NewInternalError("failed to map ticket", err.Error())
	}

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.NewConflictError("ticket already exists", model.ID)
		}
		r.logger.Errorw("failed to create ticket", "ticket_id", model.ID, "error", err)
		return storeErr(err, "failed to create ticket")
	}
	if len(model.Tags) > 0 {
		if err := tx.Create(&model.Tags).Error; err != nil {
			r.logger.Errorw("failed to save ticket tags", "ticket_id", model.ID, "error", err)
			return storeErr(err, "failed to save ticket tags")
		}
	}
	return nil
}

// Update writes every column guarded by the version the ticket was loaded at.
// Number, type and creation time never change after insert.
func (r *TicketRepository) Update(ctx context.Context, t *ticket.Ticket) error {
	model, err := r.mapper.ToModel(t)
	if err != nil {
		return apperrors.NewInternalError("failed to map ticket", err.Error())
	}

	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.
		Model(&models.TicketModel{}).
		Where("id = ? AND version = ?", model.ID, t.PreviousVersion()).
		Select("*").
		Omit("id", "number", "ticket_type", "created_at").
		Updates(model)
	if result.Error != nil {
		r.logger.Errorw("failed to update ticket", "ticket_id", model.ID, "error", result.Error)
		return storeErr(result.Error, "failed to update ticket")
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.TicketModel{}).Where("id = ?", model.ID).Count(&count).Error; err != nil {
			return storeErr(err, "failed to update ticket")
		}
		if count == 0 {
			return apperrors.NewNotFoundError("ticket not found", model.ID)
		}
		r.logger.Warnw("ticket version conflict",
			"ticket_id", model.ID,
			"expected_version", t.PreviousVersion(),
		)
		return apperrors.NewConflictError("ticket was modified concurrently, reload and retry", model.ID)
	}

	if err := r.replaceTags(tx, model); err != nil {
		return err
	}
	return nil
}

func (r *TicketRepository) replaceTags(tx *gorm.DB, model *models.TicketModel) error {
	if err := tx.Where("ticket_id = ?", model.ID).Delete(&models.TicketTagModel{}).Error; err != nil {
		return storeErr(err, "failed to replace ticket tags")
	}
	if len(model.Tags) == 0 {
		return nil
	}
	if err := tx.Create(&model.Tags).Error; err != nil {
		return storeErr(err, "failed to replace ticket tags")
	}
	return nil
}

func (r *TicketRepository) GetByID(ctx context.Context, ticketType vo.TicketType, id string, opts ticket.LoadOptions) (*ticket.Ticket, error) {
	tx := db.GetTxFromContext(ctx, r.db)
	query := tx.Where("id = ? AND ticket_type = ?", id, ticketType.String())
	if !opts.IncludeDeleted {
		query = query.Scopes(db.NotDeleted())
	}

	var model models.TicketModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError(ticketType.String()+" not found", id)
		}
		r.logger.Errorw("failed to get ticket", "ticket_id", id, "error", err)
		return nil, storeErr(err, "failed to get ticket")
	}

	list := []*models.TicketModel{&model}
	if err := r.loadTags(tx, list); err != nil {
		return nil, err
	}
	t, err := r.mapper.ToDomain(&model)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to map ticket", err.Error())
	}

	if opts.WithComments {
		var comments []models.CommentModel
		if err := tx.Where("ticket_id = ?", id).Order("created_at ASC").Order("seq ASC").Find(&comments).Error; err != nil {
			return nil, storeErr(err, "failed to load comments")
		}
		out := make([]*ticket.Comment, 0, len(comments))
		for i := range comments {
			out = append(out, r.mapper.CommentToDomain(&comments[i]))
		}
		t.SetComments(out)
	}
	return t, nil
}

func (r *TicketRepository) List(ctx context.Context, filter ticket.ListFilter) ([]*ticket.Ticket, int64, error) {
	tx := db.GetTxFromContext(ctx, r.db)
	query, err := r.applyFilter(tx, filter)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		r.logger.Errorw("failed to count tickets", "ticket_type", filter.Type.String(), "error", err)
		return nil, 0, storeErr(err, "failed to count tickets")
	}

	orderBy, ok := allowedTicketOrderBy[strings.ToLower(filter.SortBy)]
	if !ok {
		orderBy = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	query = query.Order(orderBy + " " + order).Order("id " + order)

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Scopes(db.Paginate((page-1)*filter.PageSize, filter.PageSize))
	}

	var rows []*models.TicketModel
	if err := query.Find(&rows).Error; err != nil {
		r.logger.Errorw("failed to list tickets", "ticket_type", filter.Type.String(), "error", err)
		return nil, 0, storeErr(err, "failed to list tickets")
	}
	if err := r.loadTags(tx, rows); err != nil {
		return nil, 0, err
	}

	tickets := make([]*ticket.Ticket, 0, len(rows))
	for _, row := range rows {
		t, err := r.mapper.ToDomain(row)
		if err != nil {
			return nil, 0, apperrors.NewInternalError("failed to map ticket", err.Error())
		}
		tickets = append(tickets, t)
	}
	return tickets, total, nil
}

func (r *TicketRepository) applyFilter(tx *gorm.DB, filter ticket.ListFilter) (*gorm.DB, error) {
	graph, err := vo.GraphFor(filter.Type)
	if err != nil {
		return nil, apperrors.NewBadRequestError(err.Error())
	}

	query := tx.Model(&models.TicketModel{}).Where("ticket_type = ?", filter.Type.String())
	if !filter.IncludeDeleted {
		query = query.Scopes(db.NotDeleted())
	}
	// An explicit status filter overrides the terminal exclusion.
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", statusStrings(filter.Statuses))
	} else if !filter.IncludeClosed && len(graph.Terminal) > 0 {
		query = query.Where("status NOT IN ?", statusStrings(graph.Terminal))
	}
	if len(filter.Priorities) > 0 {
		values := make([]string, 0, len(filter.Priorities))
		for _, p := range filter.Priorities {
			values = append(values, p.String())
		}
		query = query.Where("priority IN ?", values)
	}
	if len(filter.Impacts) > 0 {
		values := make([]string, 0, len(filter.Impacts))
		for _, i := range filter.Impacts {
			values = append(values, i.String())
		}
		query = query.Where("impact IN ?", values)
	}
	if filter.AssigneeID != "" {
		query = query.Where("assignee_id = ?", filter.AssigneeID)
	}
	if filter.ReporterID != "" {
		query = query.Where("reporter_id = ?", filter.ReporterID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}
	if filter.Search != "" {
		like := "%" + escapeLike(strings.ToLower(filter.Search)) + "%"
		query = query.Where("LOWER(title) LIKE ? ESCAPE '\\'", like)
	}
	if len(filter.Tags) > 0 {
		sub := tx.Model(&models.TicketTagModel{}).Select("ticket_id").Where("tag IN ?", filter.Tags)
		query = query.Where("id IN (?)", sub)
	}
	if v := filter.Visibility; v != nil {
		if v.Department != "" {
			query = query.Where("(reporter_id = ? OR assignee_id = ? OR reporter_department = ?)", v.UserID, v.UserID, v.Department)
		} else {
			query = query.Where("(reporter_id = ? OR assignee_id = ?)", v.UserID, v.UserID)
		}
	}
	return query, nil
}

func (r *TicketRepository) CountByStatus(ctx context.Context, ticketType vo.TicketType) (map[vo.TicketStatus]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.
		Model(&models.TicketModel{}).
		Scopes(db.NotDeleted()).
		Select("status, COUNT(*) AS total").
		Where("ticket_type = ?", ticketType.String()).
		Group("status").
		Scan(&rows).Error; err != nil {
		r.logger.Errorw("failed to count tickets by status", "ticket_type", ticketType.String(), "error", err)
		return nil, storeErr(err, "failed to count tickets by status")
	}

	out := make(map[vo.TicketStatus]int64, len(rows))
	for _, row := range rows {
		out[vo.TicketStatus(row.Status)] = row.Total
	}
	return out, nil
}

// loadTags fills the Tags of the given rows with one query.
func (r *TicketRepository) loadTags(tx *gorm.DB, rows []*models.TicketModel) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]string, 0, len(rows))
	byID := make(map[string]*models.TicketModel, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
		byID[row.ID] = row
	}

	var tags []models.TicketTagModel
	if err := tx.Where("ticket_id IN ?", ids).Order("tag ASC").Find(&tags).Error; err != nil {
		return storeErr(err, fmt.Sprintf("failed to load tags of %d tickets", len(ids)))
	}
	for _, tag := range tags {
		if row, ok := byID[tag.TicketID]; ok {
			row.Tags = append(row.Tags, tag)
		}
	}
	return nil
}

func statusStrings(list []vo.TicketStatus) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, s.String())
	}
	return out
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
