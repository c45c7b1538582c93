package usecases

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/servora/servora/internal/domain/ticket"
	vo "github.com/servora/servora/internal/domain/ticket/valueobjects"
	"github.com/servora/servora/internal/domain/user"
	"github.com/servora/servora/internal/shared/authorization"
	"github.com/servora/servora/internal/shared/errors"
	"github.com/servora/servora/internal/shared/logger"
)

// memStore is an in-memory persistence gateway. Tickets are stored as
// snapshots so callers never share aggregate instances.
type memStore struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	tickets  map[string]ticket.Snapshot
	comments map[string][]*ticket.Comment
	events   map[string][]*ticket.ActionEvent
	users    map[string]*user.User
}

func newMemStore() *memStore {
	return &memStore{
		tickets:  map[string]ticket.Snapshot{},
		comments: map[string][]*ticket.Comment{},
		events:   map[string][]*ticket.ActionEvent{},
		users:    map[string]*user.User{},
	}
}

type memState struct {
	tickets  map[string]ticket.Snapshot
	comments map[string][]*ticket.Comment
	events   map[string][]*ticket.ActionEvent
}

func (s *memStore) save() memState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := memState{
		tickets:  map[string]ticket.Snapshot{},
		comments: map[string][]*ticket.Comment{},
		events:   map[string][]*ticket.ActionEvent{},
	}
	for k, v := range s.tickets {
		st.tickets[k] = v
	}
	for k, v := range s.comments {
		st.comments[k] = append([]*ticket.Comment{}, v...)
	}
	for k, v := range s.events {
		st.events[k] = append([]*ticket.ActionEvent{}, v...)
	}
	return st
}

func (s *memStore) restore(st memState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets, s.comments, s.events = st.tickets, st.comments, st.events
}

func (s *memStore) addUser(id string, role authorization.UserRole, department string) *user.User {
	u := user.ReconstructUser(id, id, id+"@example.com", role, department, true, time.Now(), time.Now())
	s.mu.Lock()
	s.users[id] = u
	s.mu.Unlock()
	return u
}

func (s *memStore) eventsFor(ticketID string) []*ticket.ActionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*ticket.ActionEvent{}, s.events[ticketID]...)
}

func (s *memStore) snapshot(ticketID string) ticket.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickets[ticketID]
}

// memTx serializes units of work and rolls the store back on error.
type memTx struct {
	store *memStore
}

func (m *memTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.store.txMu.Lock()
	defer m.store.txMu.Unlock()
	st := m.store.save()
	if err := fn(ctx); err != nil {
		m.store.restore(st)
		return err
	}
	return nil
}

type mockTicketRepository struct {
	store *memStore

	AfterGetFunc func()
	UpdateErr    error
	ListFunc     func(ctx context.Context, filter ticket.ListFilter) ([]*ticket.Ticket, int64, error)
	CountErr     error
	OnCount      func()
}

func (m *mockTicketRepository) Create(ctx context.Context, t *ticket.Ticket) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if _, ok := m.store.tickets[t.ID()]; ok {
		return errors.NewConflictError("ticket already exists")
	}
	m.store.tickets[t.ID()] = t.Snapshot()
	return nil
}

func (m *mockTicketRepository) Update(ctx context.Context, t *ticket.Ticket) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	current, ok := m.store.tickets[t.ID()]
	if !ok {
		return errors.NewNotFoundError("ticket not found", t.ID())
	}
	if current.Version != t.PreviousVersion() {
		return errors.NewConflictError("ticket was modified concurrently, reload and retry")
	}
	m.store.tickets[t.ID()] = t.Snapshot()
	return nil
}

func (m *mockTicketRepository) GetByID(ctx context.Context, ticketType vo.TicketType, id string, opts ticket.LoadOptions) (*ticket.Ticket, error) {
	m.store.mu.Lock()
	snap, ok := m.store.tickets[id]
	comments := append([]*ticket.Comment{}, m.store.comments[id]...)
	m.store.mu.Unlock()
	if !ok || snap.Type != ticketType || (snap.DeletedAt != nil && !opts.IncludeDeleted) {
		return nil, errors.NewNotFoundError("ticket not found", id)
	}
	t, err := ticket.ReconstructTicket(snap)
	if err != nil {
		return nil, err
	}
	if opts.WithComments {
		t.SetComments(comments)
	}
	if m.AfterGetFunc != nil {
		m.AfterGetFunc()
	}
	return t, nil
}

func (m *mockTicketRepository) List(ctx context.Context, filter ticket.ListFilter) ([]*ticket.Ticket, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	graph := vo.MustGraphFor(filter.Type)
	var out []*ticket.Ticket
	for _, snap := range m.store.tickets {
		if snap.Type != filter.Type {
			continue
		}
		if snap.DeletedAt != nil && !filter.IncludeDeleted {
			continue
		}
		if len(filter.Statuses) > 0 {
			if !containsStatus(filter.Statuses, snap.Status) {
				continue
			}
		} else if graph.IsTerminal(snap.Status) && !filter.IncludeClosed {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(snap.Title), strings.ToLower(filter.Search)) {
			continue
		}
		if v := filter.Visibility; v != nil {
			assigned := snap.AssigneeID != nil && *snap.AssigneeID == v.UserID
			sameDept := v.Department != "" && v.Department == snap.ReporterDepartment
			if snap.ReporterID != v.UserID && !assigned && !sameDept {
				continue
			}
		}
		t, err := ticket.ReconstructTicket(snap)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().After(out[j].CreatedAt()) })
	return out, int64(len(out)), nil
}

func containsStatus(statuses []vo.TicketStatus, s vo.TicketStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func (m *mockTicketRepository) CountByStatus(ctx context.Context, ticketType vo.TicketType) (map[vo.TicketStatus]int64, error) {
	if m.CountErr != nil {
		return nil, m.CountErr
	}
	m.store.mu.Lock()
	out := map[vo.TicketStatus]int64{}
	for _, snap := range m.store.tickets {
		if snap.Type == ticketType && snap.DeletedAt == nil {
			out[snap.Status]++
		}
	}
	m.store.mu.Unlock()
	// OnCount runs after the snapshot is taken, like a write racing the query.
	if m.OnCount != nil {
		m.OnCount()
	}
	return out, nil
}

type mockCommentRepository struct {
	store     *memStore
	ListCalls int
}

func (m *mockCommentRepository) AppendComment(ctx context.Context, c *ticket.Comment) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.comments[c.TicketID()] = append(m.store.comments[c.TicketID()], c)
	return nil
}

func (m *mockCommentRepository) ListByTicket(ctx context.Context, ticketID string) ([]*ticket.Comment, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.ListCalls++
	return append([]*ticket.Comment{}, m.store.comments[ticketID]...), nil
}

type mockActionEventRepository struct {
	store     *memStore
	AppendErr error
}

func (m *mockActionEventRepository) Append(ctx context.Context, e *ticket.ActionEvent) error {
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.events[e.TicketID()] = append(m.store.events[e.TicketID()], e)
	return nil
}

func (m *mockActionEventRepository) ListFor(ctx context.Context, ticketID string) ([]*ticket.ActionEvent, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return append([]*ticket.ActionEvent{}, m.store.events[ticketID]...), nil
}

type mockUserRepository struct {
	store *memStore
}

func (m *mockUserRepository) Create(ctx context.Context, u *user.User) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.users[u.ID()] = u
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	u, ok := m.store.users[id]
	if !ok {
		return nil, errors.NewNotFoundError("user not found", id)
	}
	return u, nil
}

func (m *mockUserRepository) GetByIDs(ctx context.Context, ids []string) ([]*user.User, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var out []*user.User
	for _, id := range ids {
		if u, ok := m.store.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

type mockStatsCache struct {
	mu          sync.Mutex
	entries     map[vo.TicketType]map[vo.TicketStatus]int64
	generations map[vo.TicketType]int64
	invalidated int
}

func newMockStatsCache() *mockStatsCache {
	return &mockStatsCache{
		entries:     map[vo.TicketType]map[vo.TicketStatus]int64{},
		generations: map[vo.TicketType]int64{},
	}
}

func (m *mockStatsCache) Get(ctx context.Context, t vo.TicketType) (map[vo.TicketStatus]int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts, ok := m.entries[t]
	return counts, ok, nil
}

func (m *mockStatsCache) Generation(ctx context.Context, t vo.TicketType) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generations[t], nil
}

func (m *mockStatsCache) Set(ctx context.Context, t vo.TicketType, generation int64, counts map[vo.TicketStatus]int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generations[t] != generation {
		return false, nil
	}
	m.entries[t] = counts
	return true, nil
}

func (m *mockStatsCache) Invalidate(ctx context.Context, t vo.TicketType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, t)
	m.generations[t]++
	m.invalidated++
	return nil
}

// fixture wires one lifecycle service per type to a shared in-memory store.
type fixture struct {
	store    *memStore
	tickets  *mockTicketRepository
	comments *mockCommentRepository
	actions  *mockActionEventRepository
	stats    *mockStatsCache
	services map[vo.TicketType]*LifecycleService
	clock    time.Time
}

func newFixture() *fixture {
	store := newMemStore()
	f := &fixture{
		store:   store,
		tickets:  &mockTicketRepository{store: store},
		comments: &mockCommentRepository{store: store},
		actions:  &mockActionEventRepository{store: store},
		stats:    newMockStatsCache(),
		clock:    time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.services = NewLifecycleServices(Dependencies{
		Tickets:  f.tickets,
		Comments: f.comments,
		Actions:  f.actions,
		Users:    &mockUserRepository{store: store},
		Tx:       &memTx{store: store},
		Stats:    f.stats,
		Logger:   logger.NewNopLogger(),
		Clock:    f.now,
	})
	return f
}

// now advances the clock by a minute per call so events order strictly.
func (f *fixture) now() time.Time {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func (f *fixture) svc(t vo.TicketType) *LifecycleService {
	return f.services[t]
}
