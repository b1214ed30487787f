package service

import "github.com/aussiebroadwan/authbase/internal/auth/domain"

// Action is an operation on a user resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Possession says whose resource an action touches.
type Possession int

const (
	Own Possession = iota
	Any
)

type grant struct {
	own, any bool
}

// Authorizer answers whether a caller may act on a user resource, from a
// fixed grant table plus the role hierarchy.
type Authorizer struct {
	grants map[domain.Role]map[Action]grant
}

// NewAuthorizer builds the grant table. It is never modified afterwards.
//
//	USER          read, update, delete: own
//	EDITOR, ADMIN the above plus create, read, update, delete: any
func NewAuthorizer() *Authorizer {
	user := map[Action]grant{
		ActionRead:   {own: true},
		ActionUpdate: {own: true},
		ActionDelete: {own: true},
	}
	staff := map[Action]grant{
		ActionCreate: {any: true},
		ActionRead:   {own: true, any: true},
		ActionUpdate: {own: true, any: true},
		ActionDelete: {own: true, any: true},
	}

	return &Authorizer{grants: map[domain.Role]map[Action]grant{
		domain.RoleUser:   user,
		domain.RoleEditor: staff,
		domain.RoleAdmin:  staff,
	}}
}

// Can looks up a single grant.
func (a *Authorizer) Can(role domain.Role, action Action, p Possession) bool {
	g := a.grants[role][action]
	if p == Own {
		return g.own
	}
	return g.any
}

// outranks reports whether caller may act on someone holding role.
// ADMIN outranks everyone, including other admins.
func outranks(caller, role domain.Role) bool {
	return caller == domain.RoleAdmin || caller.Level() > role.Level()
}

// Authorize decides a read, update or delete. target is nil for
// collection-wide actions such as listing. newRole is set when the request
// tries to change the target's role.
func (a *Authorizer) Authorize(caller domain.User, action Action, target *domain.User, newRole *domain.Role) error {
	var ok bool
	switch {
	case target == nil:
		ok = a.Can(caller.Role, action, Any)
	case target.ID == caller.ID:
		ok = a.Can(caller.Role, action, Own)
	default:
		ok = a.Can(caller.Role, action, Any) && outranks(caller.Role, target.Role)
	}

	if ok && target != nil && newRole != nil {
		ok = outranks(caller.Role, *newRole)
	}

	if !ok {
		return ErrForbidden
	}
	return nil
}

// AuthorizeCreate decides whether caller may create a user with role. An
// empty role means USER.
func (a *Authorizer) AuthorizeCreate(caller domain.User, role domain.Role) error {
	if role == "" {
		role = domain.RoleUser
	}
	if !a.Can(caller.Role, ActionCreate, Any) || !outranks(caller.Role, role) {
		return ErrForbidden
	}
	return nil
}
