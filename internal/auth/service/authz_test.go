package service

import (
	"testing"

	"github.com/aussiebroadwan/authbase/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestAuthorize(t *testing.T) {
	a := NewAuthorizer()

	user := domain.User{ID: "u1", Role: domain.RoleUser}
	otherUser := domain.User{ID: "u2", Role: domain.RoleUser}
	editor := domain.User{ID: "e1", Role: domain.RoleEditor}
	otherEditor := domain.User{ID: "e2", Role: domain.RoleEditor}
	admin := domain.User{ID: "a1", Role: domain.RoleAdmin}
	otherAdmin := domain.User{ID: "a2", Role: domain.RoleAdmin}

	roleUser := domain.RoleUser
	roleEditor := domain.RoleEditor
	roleAdmin := domain.RoleAdmin

	cases := []struct {
		name    string
		caller  domain.User
		action  Action
		target  *domain.User
		newRole *domain.Role
		allowed bool
	}{
		{"user reads self", user, ActionRead, &user, nil, true},
		{"user updates self", user, ActionUpdate, &user, nil, true},
		{"user deletes self", user, ActionDelete, &user, nil, true},
		{"user reads other", user, ActionRead, &otherUser, nil, false},
		{"user lists", user, ActionRead, nil, nil, false},
		{"user promotes self", user, ActionUpdate, &user, &roleEditor, false},
		{"editor lists", editor, ActionRead, nil, nil, true},
		{"editor updates user", editor, ActionUpdate, &otherUser, nil, true},
		{"editor updates editor", editor, ActionUpdate, &otherEditor, nil, false},
		{"editor deletes admin", editor, ActionDelete, &admin, nil, false},
		{"editor demotes self", editor, ActionUpdate, &editor, &roleUser, true},
		{"editor grants editor", editor, ActionUpdate, &otherUser, &roleEditor, false},
		{"editor grants admin", editor, ActionUpdate, &otherUser, &roleAdmin, false},
		{"admin deletes admin", admin, ActionDelete, &otherAdmin, nil, true},
		{"admin grants admin", admin, ActionUpdate, &otherUser, &roleAdmin, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := a.Authorize(tc.caller, tc.action, tc.target, tc.newRole)
			if tc.allowed {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

func TestAuthorizeCreate(t *testing.T) {
	a := NewAuthorizer()

	user := domain.User{ID: "u1", Role: domain.RoleUser}
	editor := domain.User{ID: "e1", Role: domain.RoleEditor}
	admin := domain.User{ID: "a1", Role: domain.RoleAdmin}

	require.ErrorIs(t, a.AuthorizeCreate(user, ""), ErrForbidden)
	require.NoError(t, a.AuthorizeCreate(editor, ""))
	require.NoError(t, a.AuthorizeCreate(editor, domain.RoleUser))
	require.ErrorIs(t, a.AuthorizeCreate(editor, domain.RoleEditor), ErrForbidden)
	require.ErrorIs(t, a.AuthorizeCreate(editor, domain.RoleAdmin), ErrForbidden)
	require.NoError(t, a.AuthorizeCreate(admin, domain.RoleAdmin))
}

func TestCan(t *testing.T) {
	a := NewAuthorizer()
	require.True(t, a.Can(domain.RoleUser, ActionRead, Own))
	require.False(t, a.Can(domain.RoleUser, ActionCreate, Any))
	require.True(t, a.Can(domain.RoleEditor, ActionCreate, Any))
	require.False(t, a.Can(domain.Role("ROOT"), ActionRead, Own))
}
