package permission

import (
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"

	"github.com/servora/servora/internal/domain/permission"
	vo "github.com/servora/servora/internal/domain/ticket/valueobjects"
	"github.com/servora/servora/internal/shared/authorization"
	"github.com/servora/servora/internal/shared/logger"
)

// AnyTicketType is the policy object matching every ticket type.
const AnyTicketType = "*"

// defaultModel grants (role, ticket type, grant) triples; super_admin
// inherits everything admin holds through the g relation.
const defaultModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && r.act == p.act
`

var _ permission.RoleGrants = (*Enforcer)(nil)

// Enforcer serves role grants from casbin policies. Policies are held in
// memory, so Allows never touches the database.
type Enforcer struct {
	enforcer *casbin.Enforcer
	mu       sync.RWMutex
	logger   logger.Interface
}

// NewEnforcer builds an enforcer whose policies are persisted through
// gorm-adapter in the casbin_rule table. An empty modelPath selects the
// built-in model.
func NewEnforcer(db *gorm.DB, modelPath string, log logger.Interface) (*Enforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin adapter: %w", err)
	}
	return NewEnforcerWithAdapter(adapter, modelPath, log)
}

func NewEnforcerWithAdapter(adapter persist.Adapter, modelPath string, log logger.Interface) (*Enforcer, error) {
	var (
		m   model.Model
		err error
	)
	if modelPath != "" {
		m, err = model.NewModelFromFile(modelPath)
	} else {
		m, err = model.NewModelFromString(defaultModel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}

	return &Enforcer{
		enforcer: enforcer,
		logger:   log,
	}, nil
}

// Allows reports whether role holds grant on ticketType. Evaluation errors
// deny.
func (e *Enforcer) Allows(role authorization.UserRole, ticketType vo.TicketType, grant permission.Grant) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	allowed, err := e.enforcer.Enforce(role.String(), ticketType.String(), grant.String())
	if err != nil {
		e.logger.Errorw("permission check failed",
			"error", err,
			"role", role.String(),
			"ticket_type", ticketType.String(),
			"grant", grant.String(),
		)
		return false
	}
	return allowed
}

// SeedDefaults writes the default grant table and the super_admin → admin
// inheritance when no grant policy exists yet. It reports whether it wrote.
func (e *Enforcer) SeedDefaults() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	existing, err := e.enforcer.GetPolicy()
	if err != nil {
		return false, fmt.Errorf("failed to read policies: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	defaults := permission.DefaultPolicies()
	rules := make([][]string, 0, len(defaults))
	for _, p := range defaults {
		rules = append(rules, []string{p[0], AnyTicketType, p[1]})
	}
	if _, err := e.enforcer.AddPolicies(rules); err != nil {
		e.logger.Errorw("failed to seed grant policies", "error", err)
		return false, fmt.Errorf("failed to seed grant policies: %w", err)
	}
	if _, err := e.enforcer.AddGroupingPolicy(authorization.RoleSuperAdmin.String(), authorization.RoleAdmin.String()); err != nil {
		e.logger.Errorw("failed to seed role inheritance", "error", err)
		return false, fmt.Errorf("failed to seed role inheritance: %w", err)
	}

	e.logger.Infow("default grant policies seeded", "count", len(rules))
	return true, nil
}

// AddGrant gives role a grant on one ticket type, or on every type when
// ticketType is AnyTicketType.
func (e *Enforcer) AddGrant(role authorization.UserRole, ticketType string, grant permission.Grant) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.enforcer.AddPolicy(role.String(), ticketType, grant.String()); err != nil {
		e.logger.Errorw("failed to add grant", "error", err, "role", role.String(), "grant", grant.String())
		return fmt.Errorf("failed to add grant: %w", err)
	}
	return nil
}

func (e *Enforcer) RemoveGrant(role authorization.UserRole, ticketType string, grant permission.Grant) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.enforcer.RemovePolicy(role.String(), ticketType, grant.String()); err != nil {
		e.logger.Errorw("failed to remove grant", "error", err, "role", role.String(), "grant", grant.String())
		return fmt.Errorf("failed to remove grant: %w", err)
	}
	return nil
}

// LoadPolicy reloads policies from storage.
func (e *Enforcer) LoadPolicy() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.enforcer.LoadPolicy(); err != nil {
		return fmt.Errorf("failed to reload policy: %w", err)
	}

	e.logger.Info("policy reloaded successfully")
	return nil
}
