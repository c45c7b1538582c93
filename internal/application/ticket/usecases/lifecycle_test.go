package usecases

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servora/servora/internal/application/ticket/dto"
	"github.com/servora/servora/internal/domain/permission"
	"github.com/servora/servora/internal/domain/ticket"
	vo "github.com/servora/servora/internal/domain/ticket/valueobjects"
	"github.com/servora/servora/internal/shared/authorization"
	"github.com/servora/servora/internal/shared/errors"
)

var (
	u1    = authorization.Actor{ID: "u1", Role: authorization.RoleUser, Department: "finance"}
	u2    = authorization.Actor{ID: "u2", Role: authorization.RoleUser, Department: "sales"}
	a1    = authorization.Actor{ID: "a1", Role: authorization.RoleAgent, Department: "it"}
	admin = authorization.Actor{ID: "admin", Role: authorization.RoleAdmin}
	mgr   = authorization.Actor{ID: "mgr", Role: authorization.RoleManager, Department: "finance"}
)

func createTicket(t *testing.T, f *fixture, typ vo.TicketType, actor authorization.Actor) *dto.TicketDTO {
	t.Helper()
	created, err := f.svc(typ).Create(context.Background(), CreateTicketCommand{
		Actor:       actor,
		Title:       "VPN unreachable",
		Description: "Cannot connect since this morning",
	})
	require.NoError(t, err)
	return created
}

func seedUsers(f *fixture) {
	for _, a := range []authorization.Actor{u1, u2, a1, admin, mgr} {
		f.store.addUser(a.ID, a.Role, a.Department)
	}
}

func requireReason(t *testing.T, err error, reason string) {
	t.Helper()
	appErr := errors.GetAppError(err)
	require.NotNil(t, appErr, "expected AppError, got %v", err)
	assert.Equal(t, errors.ErrorTypeForbidden, appErr.Type)
	assert.Equal(t, reason, appErr.Reason)
}

func TestScenarioA_AdminAssignsIncident(t *testing.T) {
	f := newFixture()
	seedUsers(f)
	ctx := context.Background()
	svc := f.svc(vo.TicketTypeIncident)

	created := createTicket(t, f, vo.TicketTypeIncident, u1)
	assert.Equal(t, "open", created.Status)
	assert.Equal(t, "u1", created.ReporterID)

	assigned, err := svc.Assign(ctx, AssignTicketCommand{Actor: admin, ID: created.ID, AssigneeID: a1.ID})
	require.NoError(t, err)
	assert.Equal(t, "in_progress", assigned.Status)
	require.NotNil(t, assigned.AssigneeID)
	assert.Equal(t, "a1", *assigned.AssigneeID)

	events := f.store.eventsFor(created.ID)
	require.Len(t, events, 2)
	assert.Equal(t, vo.ActionAssignment, events[0].Kind())
	assert.Nil(t, events[0].From())
	assert.Equal(t, "a1", *events[0].To())
	assert.Equal(t, "admin", events[0].ActorID())
	assert.Equal(t, vo.ActionStatusChange, events[1].Kind())
}

func TestScenarioB_IllegalTransition(t *testing.T) {
	f := newFixture()
	created := createTicket(t, f, vo.TicketTypeIncident, u1)

	_, err := f.svc(vo.TicketTypeIncident).UpdateStatus(context.Background(), UpdateStatusCommand{
		Actor: admin, ID: created.ID, Status: vo.StatusClosed,
	})

	appErr := errors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrorTypeInvalidTransition, appErr.Type)
	assert.Equal(t, "open", appErr.From)
	assert.Equal(t, "closed", appErr.To)
	assert.Empty(t, f.store.eventsFor(created.ID))
}

func TestScenarioC_ProblemNotOwner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := f.svc(vo.TicketTypeProblem)
	created := createTicket(t, f, vo.TicketTypeProblem, u1)

	for _, to := range []vo.TicketStatus{vo.StatusAnalyzing, vo.StatusResolved} {
		_, err := svc.UpdateStatus(ctx, UpdateStatusCommand{Actor: admin, ID: created.ID, Status: to})
		require.NoError(t, err)
	}

	_, err := svc.FindByID(ctx, GetTicketQuery{Actor: u2, ID: created.ID})
	requireReason(t, err, permission.ReasonNotOwner)
}

func TestScenarioD_ChangeSubmitThenReject(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := f.svc(vo.TicketTypeChange)
	created := createTicket(t, f, vo.TicketTypeChange, u1)
	assert.Equal(t, "draft", created.Status)

	_, err := svc.UpdateStatus(ctx, UpdateStatusCommand{Actor: u1, ID: created.ID, Status: vo.StatusSubmitted})
	require.NoError(t, err)
	rejected, err := svc.UpdateStatus(ctx, UpdateStatusCommand{Actor: admin, ID: created.ID, Status: vo.StatusRejected})
	require.NoError(t, err)
	assert.Equal(t, "rejected", rejected.Status)

	history, err := svc.History(ctx, HistoryQuery{Actor: u1, ID: created.ID})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "draft", history[0].Payload[ticket.PayloadFrom])
	assert.Equal(t, "submitted", history[0].Payload[ticket.PayloadTo])
	assert.Equal(t, "submitted", history[1].Payload[ticket.PayloadFrom])
	assert.Equal(t, "rejected", history[1].Payload[ticket.PayloadTo])
	assert.True(t, history[0].CreatedAt.Before(history[1].CreatedAt))
}

func TestScenarioE_ReporterRemovesIncident(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := f.svc(vo.TicketTypeIncident)
	created := createTicket(t, f, vo.TicketTypeIncident, u1)
	_, err := svc.AddComment(ctx, AddCommentCommand{Actor: u1, ID: created.ID, Content: "still broken"})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, RemoveTicketCommand{Actor: u1, ID: created.ID}))

	list, err := svc.List(ctx, ListTicketsQuery{Actor: u1})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
	assert.Zero(t, list.Total)

	_, err = svc.FindByID(ctx, GetTicketQuery{Actor: u1, ID: created.ID})
	assert.True(t, errors.IsNotFoundError(err))

	found, err := svc.FindByID(ctx, GetTicketQuery{Actor: u1, ID: created.ID, IncludeDeleted: true, IncludeHistory: true})
	require.NoError(t, err)
	assert.True(t, found.IsDeleted)
	assert.NotNil(t, found.DeletedAt)
	assert.Len(t, found.Comments, 1)
	assert.Len(t, found.History, 1)

	_, err = svc.FindByID(ctx, GetTicketQuery{Actor: u2, ID: created.ID, IncludeDeleted: true})
	assert.True(t, errors.IsNotFoundError(err))
}

func TestUpdateStatus_AuditCompleteness(t *testing.T) {
	f := newFixture()
	seedUsers(f)
	ctx := context.Background()
	svc := f.svc(vo.TicketTypeIncident)
	created := createTicket(t, f, vo.TicketTypeIncident, u1)
	_, err := svc.Assign(ctx, AssignTicketCommand{Actor: admin, ID: created.ID, AssigneeID: a1.ID})
	require.NoError(t, err)

	steps := []vo.TicketStatus{vo.StatusOnHold, vo.StatusInProgress, vo.StatusResolved, vo.StatusClosed}
	for _, to := range steps {
		before := len(f.store.eventsFor(created.ID))
		updated, err := svc.UpdateStatus(ctx, UpdateStatusCommand{Actor: a1, ID: created.ID, Status: to})
		require.NoError(t, err)

		events := f.store.eventsFor(created.ID)
		require.Len(t, events, before+1)
		last := events[len(events)-1]
		assert.Equal(t, vo.ActionStatusChange, last.Kind())
		assert.Equal(t, to.String(), *last.To())
		assert.Equal(t, to.String(), updated.Status)
	}
	assert.Equal(t, 6, f.store.snapshot(created.ID).Version)
}

func TestUpdateStatus_ResolvedAtSetOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := f.svc(vo.TicketTypeIncident)
	created := createTicket(t, f, vo.TicketTypeIncident, u1)

	first, err := svc.UpdateStatus(ctx, UpdateStatusCommand{Actor: admin, ID: created.ID, Status: vo.StatusResolved, Comment: "rebooted gateway"})
	require.NoError(t, err)
	require.NotNil(t, first.ResolvedAt)
	assert.Equal(t, "rebooted gateway", first.ResolutionNotes)
	require.Len(t, first.Comments, 1)
	assert.True(t, first.Comments[0].IsInternal)

	_, err = svc.UpdateStatus(ctx, UpdateStatusCommand{Actor: admin, ID: created.ID, Status: vo.StatusResolved})
	assert.True(t, errors.IsInvalidTransitionError(err))

	_, err = svc.UpdateStatus(ctx, UpdateStatusCommand{Actor: admin, ID: created.ID, Status: vo.StatusInProgress})
	require.NoError(t, err)
	again, err := svc.UpdateStatus(ctx, UpdateStatusCommand{Actor: admin, ID: created.ID, Status: vo.StatusResolved})
	require.NoError(t, err)
	assert.Equal(t, *first.ResolvedAt, *again.ResolvedAt)
}

func TestUpdateStatus_Forbidden(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := f.svc(vo.TicketTypeIncident)
	created := createTicket(t, f, vo.TicketTypeIncident, u1)

	_, err := svc.UpdateStatus(ctx, UpdateStatusCommand{Actor: u1, ID: created.ID, Status: vo.StatusResolved})
	requireReason(t, err, permission.ReasonNotAssignee)

	cancelled, err := svc.UpdateStatus(ctx, UpdateStatusCommand{Actor: u1, ID: created.ID, Status: vo.StatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)

	_, err = svc.UpdateStatus(ctx, UpdateStatusCommand{Actor: admin, ID: created.ID, Status: "bogus"})
	assert.True(t, errors.IsValidationError(err))
}

func TestUpdateStatus_ConcurrentConflict(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := f.svc(vo.TicketTypeIncident)
	created := createTicket(t, f, vo.TicketTypeIncident, u1)

	var loaded sync.WaitGroup
	loaded.Add(2)
	f.tickets.AfterGetFunc = func() {
		loaded.Done()
		loaded.Wait()
	}

	targets := []vo.TicketStatus{vo.StatusOnHold, vo.StatusResolved}
	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, to := range targets {
		wg.Add(1)
		go func(i int, to vo.TicketStatus) {
			defer wg.Done()
			_, errs[i] = svc.UpdateStatus(ctx, UpdateStatusCommand{Actor: admin, ID: created.ID, Status: to})
		}(i, to)
	}
	wg.Wait()
	f.tickets.AfterGetFunc = nil

	var winner vo.TicketStatus
	conflicts := 0
	for i, err := range errs {
		if err == nil {
			winner = targets[i]
			continue
		}
		assert.True(t, errors.IsConflictError(err), "unexpected error: %v", err)
		conflicts++
	}
	assert.Equal(t, 1, conflicts)
	require.NotEmpty(t, winner)

	snap := f.store.snapshot(created.ID)
	assert.Equal(t, winner, snap.Status)
	assert.Equal(t, 2, snap.Version)
	require.Len(t, f.store.eventsFor(created.ID), 1)
	assert.Equal(t, winner.String(), *f.store.eventsFor(created.ID)[0].To())
}

func TestUpdateStatus_RollsBackWhenAuditFails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := f.svc(vo.TicketTypeIncident)
	created := createTicket(t, f, vo.TicketTypeIncident, u1)

	f.actions.AppendErr = stderrors.New("connection reset")
	_, err := svc.UpdateStatus(ctx, UpdateStatusCommand{Actor: admin, ID: created.ID, Status: vo.StatusOnHold, Comment: "waiting on vendor"})
	require.Error(t, err)
	assert.True(t, errors.IsDependencyUnavailableError(err))

	snap := f.store.snapshot(created.ID)
	assert.Equal(t, vo.StatusOpen, snap.Status)
	assert.Equal(t, 1, snap.Version)

	f.actions.AppendErr = nil
	found, err := svc.FindByID(ctx, GetTicketQuery{Actor: admin, ID: created.ID})
	require.NoError(t, err)
	assert.Empty(t, found.Comments)
}

func TestCreate_WithAssignee(t *testing.T) {
	f := newFixture()
	seedUsers(f)
	ctx := context.Background()

	created, err := f.svc(vo.TicketTypeProblem).Create(ctx, CreateTicketCommand{
		Actor:       mgr,
		Title:       "Recurring disk alerts",
		Description: "Nodes fill /var weekly",
		AssigneeID:  a1.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "analyzing", created.Status)
	assert.Equal(t, "mgr", created.ReporterID)
	assert.Len(t, f.store.eventsFor(created.ID), 2)

	change, err := f.svc(vo.TicketTypeChange).Create(ctx, CreateTicketCommand{
		Actor: u1, Title: "Upgrade firewall", Description: "Apply vendor patch", AssigneeID: a1.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "draft", change.Status)

	_, err = f.svc(vo.TicketTypeIncident).Create(ctx, CreateTicketCommand{
		Actor: u1, Title: "t", Description: "d", AssigneeID: "ghost",
	})
	assert.True(t, errors.IsNotFoundError(err))
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture()

	_, err := f.svc(vo.TicketTypeIncident).Create(context.Background(), CreateTicketCommand{Actor: u1})
	appErr := errors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrorTypeValidation, appErr.Type)
	assert.Len(t, appErr.Fields, 2)

	_, err = f.svc(vo.TicketTypeIncident).Create(context.Background(), CreateTicketCommand{Title: "t", Description: "d"})
	assert.Error(t, err)
}

func TestAssign_Rules(t *testing.T) {
	f := newFixture()
	seedUsers(f)
	ctx := context.Background()
	svc := f.svc(vo.TicketTypeIncident)
	created := createTicket(t, f, vo.TicketTypeIncident, u1)

	_, err := svc.Assign(ctx, AssignTicketCommand{Actor: u1, ID: created.ID, AssigneeID: a1.ID})
	requireReason(t, err, permission.ReasonRoleInsufficient)

	_, err = svc.Assign(ctx, AssignTicketCommand{Actor: mgr, ID: created.ID, AssigneeID: "ghost"})
	assert.True(t, errors.IsNotFoundError(err))

	_, err = svc.Assign(ctx, AssignTicketCommand{Actor: mgr, ID: created.ID, AssigneeID: a1.ID, Comment: "please take this"})
	require.NoError(t, err)

	handedOff, err := svc.Assign(ctx, AssignTicketCommand{Actor: a1, ID: created.ID, AssigneeID: mgr.ID})
	require.NoError(t, err)
	assert.Equal(t, "mgr", *handedOff.AssigneeID)

	events := f.store.eventsFor(created.ID)
	last := events[len(events)-1]
	assert.Equal(t, vo.ActionAssignment, last.Kind())
	assert.Equal(t, "a1", *last.From())
	assert.Equal(t, "mgr", *last.To())
}

func TestUpdateFields(t *testing.T) {
	f := newFixture()
	seedUsers(f)
	ctx := context.Background()
	svc := f.svc(vo.TicketTypeProblem)
	created := createTicket(t, f, vo.TicketTypeProblem, u1)
	_, err := svc.Assign(ctx, AssignTicketCommand{Actor: admin, ID: created.ID, AssigneeID: a1.ID})
	require.NoError(t, err)

	rootCause := "log rotation disabled"
	updated, err := svc.UpdateFields(ctx, UpdateFieldsCommand{Actor: a1, ID: created.ID, Patch: ticket.FieldPatch{RootCause: &rootCause}})
	require.NoError(t, err)
	assert.Equal(t, rootCause, updated.RootCause)

	title := "new title"
	_, err = svc.UpdateFields(ctx, UpdateFieldsCommand{Actor: a1, ID: created.ID, Patch: ticket.FieldPatch{Title: &title}})
	requireReason(t, err, permission.ReasonNotOwner)

	_, err = svc.UpdateFields(ctx, UpdateFieldsCommand{Actor: u1, ID: created.ID, Patch: ticket.FieldPatch{Title: &title}})
	require.NoError(t, err)

	_, err = svc.UpdateFields(ctx, UpdateFieldsCommand{Actor: u1, ID: created.ID})
	assert.True(t, errors.IsValidationError(err))

	history, err := svc.History(ctx, HistoryQuery{Actor: admin, ID: created.ID})
	require.NoError(t, err)
	kinds := make([]string, 0, len(history))
	for _, e := range history {
		kinds = append(kinds, e.Kind)
	}
	assert.Contains(t, kinds, vo.ActionRootCauseUpdate.String())
}

func TestAddComment_InternalFiltering(t *testing.T) {
	f := newFixture()
	seedUsers(f)
	ctx := context.Background()
	svc := f.svc(vo.TicketTypeIncident)
	created := createTicket(t, f, vo.TicketTypeIncident, u1)

	public, err := svc.AddComment(ctx, AddCommentCommand{Actor: u1, ID: created.ID, Content: "**urgent** please"})
	require.NoError(t, err)
	assert.Contains(t, public.ContentHTML, "<strong>urgent</strong>")

	_, err = svc.AddComment(ctx, AddCommentCommand{Actor: admin, ID: created.ID, Content: "vendor ticket 4411", IsInternal: true})
	require.NoError(t, err)

	_, err = svc.AddComment(ctx, AddCommentCommand{Actor: u2, ID: created.ID, Content: "me too"})
	requireReason(t, err, permission.ReasonNotOwner)

	asReporter, err := svc.FindByID(ctx, GetTicketQuery{Actor: u1, ID: created.ID})
	require.NoError(t, err)
	require.Len(t, asReporter.Comments, 1)
	assert.Equal(t, "**urgent** please", asReporter.Comments[0].Content)

	asAdmin, err := svc.FindByID(ctx, GetTicketQuery{Actor: admin, ID: created.ID})
	require.NoError(t, err)
	require.Len(t, asAdmin.Comments, 2)
	assert.True(t, asAdmin.Comments[0].CreatedAt.Before(asAdmin.Comments[1].CreatedAt))
	require.NotNil(t, asAdmin.Reporter)
	assert.Equal(t, "u1@example.com", asAdmin.Reporter.Email)

	assert.Equal(t, 1, f.store.snapshot(created.ID).Version)
	assert.Len(t, f.store.eventsFor(created.ID), 2)
	assert.Zero(t, f.comments.ListCalls, "comments come with the ticket load")
}

func TestRemove_Rules(t *testing.T) {
	f := newFixture()
	seedUsers(f)
	ctx := context.Background()
	svc := f.svc(vo.TicketTypeIncident)
	created := createTicket(t, f, vo.TicketTypeIncident, u1)
	_, err := svc.Assign(ctx, AssignTicketCommand{Actor: admin, ID: created.ID, AssigneeID: a1.ID})
	require.NoError(t, err)

	err = svc.Remove(ctx, RemoveTicketCommand{Actor: a1, ID: created.ID})
	requireReason(t, err, permission.ReasonNotOwner)

	require.NoError(t, svc.Remove(ctx, RemoveTicketCommand{Actor: admin, ID: created.ID}))
	assert.True(t, errors.IsNotFoundError(svc.Remove(ctx, RemoveTicketCommand{Actor: admin, ID: created.ID})))
}

func TestList_VisibilityAndFlags(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := f.svc(vo.TicketTypeIncident)

	mine := createTicket(t, f, vo.TicketTypeIncident, u1)
	createTicket(t, f, vo.TicketTypeIncident, u2)
	closed := createTicket(t, f, vo.TicketTypeIncident, u1)
	_, err := svc.UpdateStatus(ctx, UpdateStatusCommand{Actor: u1, ID: closed.ID, Status: vo.StatusCancelled})
	require.NoError(t, err)

	asU1, err := svc.List(ctx, ListTicketsQuery{Actor: u1})
	require.NoError(t, err)
	require.Len(t, asU1.Items, 1)
	assert.Equal(t, mine.ID, asU1.Items[0].ID)

	withClosed, err := svc.List(ctx, ListTicketsQuery{Actor: u1, IncludeClosed: true})
	require.NoError(t, err)
	assert.Len(t, withClosed.Items, 2)

	asManager, err := svc.List(ctx, ListTicketsQuery{Actor: mgr})
	require.NoError(t, err)
	assert.Len(t, asManager.Items, 1)

	asAdmin, err := svc.List(ctx, ListTicketsQuery{Actor: admin, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), asAdmin.Total)
	assert.Equal(t, 1, asAdmin.PageSize)

	_, err = svc.List(ctx, ListTicketsQuery{Actor: u1, IncludeDeleted: true})
	requireReason(t, err, permission.ReasonRoleInsufficient)

	_, err = svc.List(ctx, ListTicketsQuery{Actor: admin, SortBy: "password"})
	assert.True(t, errors.IsValidationError(err))

	_, err = svc.List(ctx, ListTicketsQuery{Actor: admin, Statuses: []vo.TicketStatus{vo.StatusDraft}})
	assert.True(t, errors.IsValidationError(err))
}

func TestList_StatusFilterIncludesTerminal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := f.svc(vo.TicketTypeIncident)

	open := createTicket(t, f, vo.TicketTypeIncident, u1)
	cancelled := createTicket(t, f, vo.TicketTypeIncident, u1)
	_, err := svc.UpdateStatus(ctx, UpdateStatusCommand{Actor: u1, ID: cancelled.ID, Status: vo.StatusCancelled})
	require.NoError(t, err)

	onlyCancelled, err := svc.List(ctx, ListTicketsQuery{Actor: admin, Statuses: []vo.TicketStatus{vo.StatusCancelled}})
	require.NoError(t, err)
	require.Len(t, onlyCancelled.Items, 1)
	assert.Equal(t, cancelled.ID, onlyCancelled.Items[0].ID)

	mixed, err := svc.List(ctx, ListTicketsQuery{Actor: admin, Statuses: []vo.TicketStatus{vo.StatusOpen, vo.StatusCancelled}})
	require.NoError(t, err)
	assert.Len(t, mixed.Items, 2)

	live, err := svc.List(ctx, ListTicketsQuery{Actor: admin})
	require.NoError(t, err)
	require.Len(t, live.Items, 1)
	assert.Equal(t, open.ID, live.Items[0].ID)
}

func TestList_Pagination(t *testing.T) {
	f := newFixture()
	f.tickets.ListFunc = func(ctx context.Context, filter ticket.ListFilter) ([]*ticket.Ticket, int64, error) {
		assert.Equal(t, 2, filter.Page)
		assert.Equal(t, 10, filter.PageSize)
		assert.Equal(t, "created_at", filter.SortBy)
		assert.Equal(t, "desc", filter.SortOrder)
		assert.Nil(t, filter.Visibility)
		return nil, 25, nil
	}

	page, err := f.svc(vo.TicketTypeChange).List(context.Background(), ListTicketsQuery{Actor: admin, Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasNext)
	assert.True(t, page.HasPrevious)
	assert.NotNil(t, page.Items)
}

func TestStats_ZeroFilledAndCached(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := f.svc(vo.TicketTypeIncident)
	createTicket(t, f, vo.TicketTypeIncident, u1)
	created := createTicket(t, f, vo.TicketTypeIncident, u1)
	_, err := svc.UpdateStatus(ctx, UpdateStatusCommand{Actor: admin, ID: created.ID, Status: vo.StatusOnHold})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "incident", stats.Type)
	assert.Len(t, stats.Counts, len(vo.MustGraphFor(vo.TicketTypeIncident).Statuses))
	assert.Equal(t, int64(1), stats.Counts["open"])
	assert.Equal(t, int64(1), stats.Counts["on_hold"])
	assert.Equal(t, int64(0), stats.Counts["closed"])
	assert.Equal(t, int64(2), stats.Total)

	f.tickets.CountErr = stderrors.New("db down")
	cached, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats, cached)

	createTicket(t, f, vo.TicketTypeIncident, u1)
	_, err = svc.Stats(ctx)
	assert.True(t, errors.IsDependencyUnavailableError(err))
}

func TestStats_WriteDuringCountIsNotCached(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := f.svc(vo.TicketTypeIncident)
	createTicket(t, f, vo.TicketTypeIncident, u1)

	f.tickets.OnCount = func() {
		f.tickets.OnCount = nil
		createTicket(t, f, vo.TicketTypeIncident, u1)
	}
	first, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Total, "counted before the concurrent create")

	_, ok, err := f.stats.Get(ctx, vo.TicketTypeIncident)
	require.NoError(t, err)
	assert.False(t, ok)

	second, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Total)
	_, ok, err = f.stats.Get(ctx, vo.TicketTypeIncident)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRelatedIncidents(t *testing.T) {
	f := newFixture()
	seedUsers(f)
	ctx := context.Background()
	problems := f.svc(vo.TicketTypeProblem)
	incident := createTicket(t, f, vo.TicketTypeIncident, u1)
	problem := createTicket(t, f, vo.TicketTypeProblem, u1)
	_, err := problems.Assign(ctx, AssignTicketCommand{Actor: admin, ID: problem.ID, AssigneeID: a1.ID})
	require.NoError(t, err)

	linked, err := problems.LinkRelated(ctx, RelatedIncidentCommand{Actor: a1, ID: problem.ID, IncidentID: incident.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{incident.ID}, linked.RelatedIncidentIDs)

	_, err = problems.LinkRelated(ctx, RelatedIncidentCommand{Actor: a1, ID: problem.ID, IncidentID: incident.ID})
	assert.True(t, errors.IsConflictError(err))

	_, err = problems.LinkRelated(ctx, RelatedIncidentCommand{Actor: a1, ID: problem.ID, IncidentID: "missing"})
	assert.True(t, errors.IsNotFoundError(err))

	unlinked, err := problems.UnlinkRelated(ctx, RelatedIncidentCommand{Actor: a1, ID: problem.ID, IncidentID: incident.ID})
	require.NoError(t, err)
	assert.Empty(t, unlinked.RelatedIncidentIDs)

	_, err = f.svc(vo.TicketTypeIncident).LinkRelated(ctx, RelatedIncidentCommand{Actor: admin, ID: incident.ID, IncidentID: incident.ID})
	assert.Error(t, err)
}

func TestAvailableTransitions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := f.svc(vo.TicketTypeChange)
	created := createTicket(t, f, vo.TicketTypeChange, u1)

	asReporter, err := svc.AvailableTransitions(ctx, TransitionsQuery{Actor: u1, ID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, "draft", asReporter.Current)
	assert.Equal(t, []string{"submitted"}, asReporter.Next)

	_, err = svc.AvailableTransitions(ctx, TransitionsQuery{Actor: u2, ID: created.ID})
	requireReason(t, err, permission.ReasonNotOwner)
}

func TestFindByID_WrongTypeIsNotFound(t *testing.T) {
	f := newFixture()
	created := createTicket(t, f, vo.TicketTypeIncident, u1)

	_, err := f.svc(vo.TicketTypeChange).FindByID(context.Background(), GetTicketQuery{Actor: admin, ID: created.ID})
	assert.True(t, errors.IsNotFoundError(err))
}

func TestGatewayFailureIsDependencyUnavailable(t *testing.T) {
	f := newFixture()
	created := createTicket(t, f, vo.TicketTypeIncident, u1)
	f.tickets.UpdateErr = stderrors.New("driver: bad connection")

	_, err := f.svc(vo.TicketTypeIncident).UpdateStatus(context.Background(), UpdateStatusCommand{
		Actor: admin, ID: created.ID, Status: vo.StatusOnHold,
	})
	assert.True(t, errors.IsDependencyUnavailableError(err))
	assert.NotContains(t, err.Error(), "bad connection")
}
