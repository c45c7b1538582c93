package usecases

import (
	"context"
	"time"

	"github.com/servora/servora/internal/application/ticket/dto"
	"github.com/servora/servora/internal/domain/permission"
	"github.com/servora/servora/internal/domain/ticket"
	vo "github.com/servora/servora/internal/domain/ticket/valueobjects"
	"github.com/servora/servora/internal/domain/user"
	"github.com/servora/servora/internal/shared/authorization"
	"github.com/servora/servora/internal/shared/biztime"
	"github.com/servora/servora/internal/shared/errors"
	"github.com/servora/servora/internal/shared/logger"
	"github.com/servora/servora/internal/shared/services/markdown"
)

// TxRunner runs fn as one atomic unit of work.
type TxRunner interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// StatsCache caches per-type status counts. A miss is reported with ok=false.
// Invalidate advances the generation; Set drops counts read under an older one.
type StatsCache interface {
	Get(ctx context.Context, ticketType vo.TicketType) (counts map[vo.TicketStatus]int64, ok bool, err error)
	Generation(ctx context.Context, ticketType vo.TicketType) (int64, error)
	Set(ctx context.Context, ticketType vo.TicketType, generation int64, counts map[vo.TicketStatus]int64) (stored bool, err error)
	Invalidate(ctx context.Context, ticketType vo.TicketType) error
}

// LifecycleConfig parameterizes the service for one ticket type.
type LifecycleConfig struct {
	Type  vo.TicketType
	Graph vo.StatusGraph
}

// ConfigFor returns the built-in configuration of a ticket type.
func ConfigFor(t vo.TicketType) (LifecycleConfig, error) {
	graph, err := vo.GraphFor(t)
	if err != nil {
		return LifecycleConfig{}, err
	}
	return LifecycleConfig{Type: t, Graph: graph}, nil
}

// Dependencies are the collaborators shared by every lifecycle service.
type Dependencies struct {
	Tickets   ticket.Repository
	Comments  ticket.CommentRepository
	Actions   ticket.ActionEventRepository
	Users     user.Repository
	Tx        TxRunner
	Evaluator *permission.Evaluator
	Stats     StatsCache
	Markdown  markdown.Renderer
	Logger    logger.Interface
	Clock     func() time.Time
}

// LifecycleService orchestrates the lifecycle of one ticket type.
type LifecycleService struct {
	cfg       LifecycleConfig
	tickets   ticket.Repository
	comments  ticket.CommentRepository
	actions   ticket.ActionEventRepository
	users     user.Repository
	tx        TxRunner
	evaluator *permission.Evaluator
	stats     StatsCache
	markdown  markdown.Renderer
	logger    logger.Interface
	now       func() time.Time
}

func NewLifecycleService(cfg LifecycleConfig, deps Dependencies) *LifecycleService {
	s := &LifecycleService{
		cfg:       cfg,
		tickets:   deps.Tickets,
		comments:  deps.Comments,
		actions:   deps.Actions,
		users:     deps.Users,
		tx:        deps.Tx,
		evaluator: deps.Evaluator,
		stats:     deps.Stats,
		markdown:  deps.Markdown,
		logger:    deps.Logger,
		now:       deps.Clock,
	}
	if s.evaluator == nil {
		s.evaluator = permission.NewEvaluator(nil)
	}
	if s.markdown == nil {
		s.markdown = markdown.NewRenderer()
	}
	if s.now == nil {
		s.now = biztime.NowUTC
	}
	if s.logger == nil {
		s.logger = logger.NewNopLogger()
	}
	s.logger = s.logger.With("ticket_type", cfg.Type.String())
	return s
}

// NewLifecycleServices builds one service per ticket type.
func NewLifecycleServices(deps Dependencies) map[vo.TicketType]*LifecycleService {
	out := make(map[vo.TicketType]*LifecycleService, len(vo.AllTicketTypes))
	for _, t := range vo.AllTicketTypes {
		cfg, _ := ConfigFor(t)
		out[t] = NewLifecycleService(cfg, deps)
	}
	return out
}

func (s *LifecycleService) Type() vo.TicketType {
	return s.cfg.Type
}

func (s *LifecycleService) Graph() vo.StatusGraph {
	return s.cfg.Graph
}

// gatewayErr passes typed errors through and turns anything else into a
// dependency failure.
func gatewayErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.IsAppError(err) {
		return err
	}
	return errors.NewDependencyUnavailableError(msg, err)
}

func (s *LifecycleService) load(ctx context.Context, id string, opts ticket.LoadOptions) (*ticket.Ticket, error) {
	if id == "" {
		return nil, errors.NewValidationError("ticket ID is required")
	}
	t, err := s.tickets.GetByID(ctx, s.cfg.Type, id, opts)
	if err != nil {
		return nil, gatewayErr(err, "failed to load ticket")
	}
	if t == nil || (t.IsDeleted() && !opts.IncludeDeleted) {
		return nil, errors.NewNotFoundError(s.cfg.Type.String()+" not found", id)
	}
	return t, nil
}

// persist writes the ticket, any new comments and the pending audit entries
// as one unit. The ticket row is skipped when only comments changed.
func (s *LifecycleService) persist(ctx context.Context, t *ticket.Ticket, newComments ...*ticket.Comment) error {
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		if t.IsDirty() {
			if err := s.tickets.Update(ctx, t); err != nil {
				return gatewayErr(err, "failed to update ticket")
			}
		}
		for _, c := range newComments {
			if c == nil {
				continue
			}
			if err := s.comments.AppendComment(ctx, c); err != nil {
				return gatewayErr(err, "failed to save comment")
			}
		}
		for _, e := range t.PendingActions() {
			if err := s.actions.Append(ctx, e); err != nil {
				return gatewayErr(err, "failed to append action event")
			}
		}
		return nil
	})
	if err != nil {
		return gatewayErr(err, "failed to persist ticket")
	}
	t.FlushActions()
	s.invalidateStats(ctx)
	return nil
}

func (s *LifecycleService) invalidateStats(ctx context.Context) {
	if s.stats == nil {
		return
	}
	if err := s.stats.Invalidate(ctx, s.cfg.Type); err != nil {
		s.logger.Warnw("failed to invalidate stats cache", "error", err)
	}
}

// authorize runs a permission check and logs denials.
func (s *LifecycleService) authorize(actor authorization.Actor, t *ticket.Ticket, req permission.Request) error {
	if err := s.evaluator.Check(actor, t, req); err != nil {
		s.logger.Warnw("permission denied",
			"ticket_id", t.ID(),
			"actor_id", actor.ID,
			"operation", string(req.Op),
			"error", err,
		)
		return err
	}
	return nil
}

// canSeeDeleted reports whether the actor may load a tombstoned ticket.
func (s *LifecycleService) canSeeDeleted(actor authorization.Actor, t *ticket.Ticket) bool {
	return s.evaluator.IsAdministrator(actor, s.cfg.Type) || t.IsReporter(actor.ID)
}

func (s *LifecycleService) viewOptions(actor authorization.Actor) dto.ViewOptions {
	return dto.ViewOptions{
		IncludeInternal: permission.CanSeeInternal(actor),
		Renderer:        s.markdown,
	}
}

// lookupUsers resolves user summaries for display. Failures only degrade the
// response, they never fail the operation.
func (s *LifecycleService) lookupUsers(ctx context.Context, ids ...string) map[string]*user.User {
	out := map[string]*user.User{}
	if s.users == nil {
		return out
	}
	var want []string
	for _, id := range ids {
		if id != "" {
			want = append(want, id)
		}
	}
	if len(want) == 0 {
		return out
	}
	users, err := s.users.GetByIDs(ctx, want)
	if err != nil {
		s.logger.Warnw("failed to resolve users", "error", err)
		return out
	}
	for _, u := range users {
		out[u.ID()] = u
	}
	return out
}

// resolveAssignee checks that the user exists and is active.
func (s *LifecycleService) resolveAssignee(ctx context.Context, assigneeID string) (*user.User, error) {
	u, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.IsNotFoundError(err) {
			return nil, errors.NewNotFoundError("assignee not found", assigneeID)
		}
		return nil, gatewayErr(err, "failed to load assignee")
	}
	if u == nil {
		return nil, errors.NewNotFoundError("assignee not found", assigneeID)
	}
	if !u.IsActive() {
		return nil, errors.NewFieldValidationError([]errors.FieldError{{Field: "assignee_id", Message: "assignee is not active"}})
	}
	return u, nil
}

func (s *LifecycleService) internalRemark(t *ticket.Ticket, actor authorization.Actor, remark string, now time.Time) (*ticket.Comment, error) {
	if remark == "" {
		return nil, nil
	}
	c, err := ticket.NewComment(t.ID(), actor.ID, remark, true, now)
	if err != nil {
		return nil, err
	}
	if err := t.RecordComment(c, actor.ID); err != nil {
		return nil, err
	}
	return c, nil
}
