package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoleLevels(t *testing.T) {
	require.Less(t, RoleUser.Level(), RoleEditor.Level())
	require.Less(t, RoleEditor.Level(), RoleAdmin.Level())
	require.Equal(t, 0, Role("ROOT").Level())
	require.False(t, Role("").Valid())
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" editor ")
	require.NoError(t, err)
	require.Equal(t, RoleEditor, r)

	_, err = ParseRole("superuser")
	require.Error(t, err)

	var body struct {
		Role Role `json:"role"`
	}
	require.Error(t, json.Unmarshal([]byte(`{"role":"ROOT"}`), &body))
	require.NoError(t, json.Unmarshal([]byte(`{"role":"admin"}`), &body))
	require.Equal(t, RoleAdmin, body.Role)
}

func TestUserJSONHidesSecrets(t *testing.T) {
	u := User{ID: "1", Email: "a@b.co", PasswordHash: "$2a$...", OAuthID: "g-123", Role: RoleUser}
	b, err := json.Marshal(u)
	require.NoError(t, err)
	require.NotContains(t, string(b), "$2a$")
	require.NotContains(t, string(b), "g-123")
	require.Contains(t, string(b), `"role":"USER"`)
}

func TestUserUpdateApply(t *testing.T) {
	require.True(t, UserUpdate{}.Empty())

	name := "Bob"
	active := false
	upd := UserUpdate{Name: &name, IsActive: &active}
	require.False(t, upd.Empty())

	u := User{Name: "Alice", Email: "a@b.co", IsActive: true}
	upd.Apply(&u)
	require.Equal(t, "Bob", u.Name)
	require.Equal(t, "a@b.co", u.Email)
	require.False(t, u.IsActive)
}

func TestWindow(t *testing.T) {
	cases := []struct {
		name                  string
		limit, page, offset   int
		wantLim, wantPg, want int
	}{
		{"defaults", 0, 0, 0, DefaultPageLimit, 1, 0},
		{"page two", 10, 2, 0, 10, 2, 10},
		{"offset wins", 10, 5, 25, 10, 3, 25},
		{"clamped limit", 5000, 1, 0, MaxPageLimit, 1, 0},
		{"huge page", 10, math.MaxInt, 0, 10, MaxPageOffset/10 + 1, MaxPageOffset / 10 * 10},
		{"huge offset", 10, 0, math.MaxInt, 10, MaxPageOffset/10 + 1, MaxPageOffset},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lim, pg, off := Window(tc.limit, tc.page, tc.offset)
			require.Equal(t, tc.wantLim, lim)
			require.Equal(t, tc.wantPg, pg)
			require.Equal(t, tc.want, off)
		})
	}
}

func TestNewPage(t *testing.T) {
	t.Run("middle page", func(t *testing.T) {
		p := NewPage([]int{4, 5, 6}, 10, 3, 2, 3)
		require.Equal(t, 4, p.TotalPages)
		require.True(t, p.HasPrevPage)
		require.True(t, p.HasNextPage)
		require.Equal(t, 1, *p.PrevPage)
		require.Equal(t, 3, *p.NextPage)
		require.Equal(t, 4, p.PageCounter)
	})

	t.Run("empty", func(t *testing.T) {
		p := NewPage[int](nil, 0, 30, 1, 0)
		require.NotNil(t, p.Docs)
		require.Equal(t, 0, p.TotalPages)
		require.False(t, p.HasNextPage)
		require.Nil(t, p.NextPage)
		require.Nil(t, p.PrevPage)

		b, err := json.Marshal(p)
		require.NoError(t, err)
		require.Contains(t, string(b), `"docs":[]`)
		require.Contains(t, string(b), `"prevPage":null`)
	})
}

func TestOTPMethod(t *testing.T) {
	m, err := ParseOTPMethod("google-authenticator")
	require.NoError(t, err)
	require.Equal(t, OTPMethodAuthenticator, m)

	_, err = ParseOTPMethod("carrier-pigeon")
	require.Error(t, err)
}
