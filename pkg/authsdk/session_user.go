package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// GetUser fetches a user by id.
func (s *Session) GetUser(ctx context.Context, id string) (*User, error) {
	var data UserData
	if _, err := s.send(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(id), nil, &data); err != nil {
		return nil, err
	}
	return &data.User, nil
}

// ListUsers runs the paginated user listing. Requires EDITOR or ADMIN.
func (s *Session) ListUsers(ctx context.Context, q UserQuery) (*UserPage, error) {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.SortBy != "" {
		v.Set("sortBy", q.SortBy)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}

	path := "/v1/users"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	var data UsersData
	if _, err := s.send(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return &data.Users, nil
}

// CreateUser creates an account. Requires EDITOR or ADMIN.
func (s *Session) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	var data UserData
	if _, err := s.send(ctx, http.MethodPost, "/v1/users", req, &data); err != nil {
		return nil, err
	}
	return &data.User, nil
}

// UpdateUser changes the set fields of a user.
func (s *Session) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*User, error) {
	var data UserData
	if _, err := s.send(ctx, http.MethodPut, "/v1/users/"+url.PathEscape(id), req, &data); err != nil {
		return nil, err
	}
	return &data.User, nil
}

// DeleteUser removes a user.
func (s *Session) DeleteUser(ctx context.Context, id string) error {
	_, err := s.send(ctx, http.MethodDelete, "/v1/users/"+url.PathEscape(id), nil, nil)
	return err
}
