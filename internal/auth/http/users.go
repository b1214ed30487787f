package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/aussiebroadwan/authbase/internal/auth/domain"
	"github.com/aussiebroadwan/authbase/internal/auth/service"
	"github.com/aussiebroadwan/authbase/pkg/authsdk"
	"github.com/aussiebroadwan/authbase/pkg/httpx"
)

// UsersHandler serves user management. Every route runs behind an access
// token; the Authorizer decides what the caller may touch.
type UsersHandler struct {
	Users *service.UserService
	Authz *service.Authorizer
}

type userData struct {
	User domain.User `json:"user"`
}

type usersData struct {
	Users domain.Page[domain.User] `json:"users"`
}

var sortFields = map[string]bool{"name": true, "role": true, "createdAt": true}

// HandleList godoc
//
//	@Summary		List users
//	@Description	Paginated listing. offset wins over page when both are given.
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Param			search	query		string	false	"matches name, email or role"
//	@Param			sortBy	query		string	false	"name, role or createdAt; prefix with - for descending"
//	@Param			limit	query		int		false	"page size (default 30, max 1000)"
//	@Param			page	query		int		false	"1-based page"
//	@Param			offset	query		int		false	"number of users to skip"
//	@Success		200		{object}	authsdk.Response[authsdk.UsersData]
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Failure		401		{object}	authsdk.ErrorResponse
//	@Failure		403		{object}	authsdk.ErrorResponse
//	@Router			/v1/users [get]
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) error {
	p, err := mustPrincipal(r.Context())
	if err != nil {
		return err
	}
	if err := h.Authz.Authorize(p.User, service.ActionRead, nil, nil); err != nil {
		return serviceError(err)
	}

	q, err := parseUserQuery(r)
	if err != nil {
		return err
	}

	page, err := h.Users.QueryUsers(r.Context(), q)
	if err != nil {
		return err
	}

	httpx.Respond(w, http.StatusOK, "", usersData{Users: page})
	return nil
}

func parseUserQuery(r *http.Request) (domain.UserQuery, error) {
	values := r.URL.Query()
	q := domain.UserQuery{
		Search: strings.TrimSpace(values.Get("search")),
		SortBy: values.Get("sortBy"),
	}

	var v httpx.Validator
	v.Check(q.SortBy == "" || sortFields[strings.TrimPrefix(q.SortBy, "-")], "sortBy", "sortBy must be one of name, role, createdAt")

	for name, dst := range map[string]*int{"limit": &q.Limit, "page": &q.Page, "offset": &q.Offset} {
		raw := values.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		v.Check(err == nil && n >= 0, name, name+" must be a non-negative integer")
		*dst = n
	}

	return q, v.Err()
}

// loadTarget fetches the user an action is aimed at. Callers without any
// grant on other users are refused before the lookup so they cannot probe
// which ids exist.
func (h *UsersHandler) loadTarget(r *http.Request, caller domain.User, action service.Action) (domain.User, error) {
	id := r.PathValue("id")
	if id != caller.ID && !h.Authz.Can(caller.Role, action, service.Any) {
		return domain.User{}, httpx.Forbidden(msgForbidden)
	}
	if id == caller.ID {
		return caller, nil
	}
	return h.Users.GetUser(r.Context(), id)
}

// HandleGet godoc
//
//	@Summary	Get a user
//	@Tags		Users
//	@Security	BearerAuth
//	@Produce	json
//	@Param		id	path		string	true	"user id"
//	@Success	200	{object}	authsdk.Response[authsdk.UserData]
//	@Failure	401	{object}	authsdk.ErrorResponse
//	@Failure	403	{object}	authsdk.ErrorResponse
//	@Failure	404	{object}	authsdk.ErrorResponse	"User not found"
//	@Router		/v1/users/{id} [get]
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) error {
	p, err := mustPrincipal(r.Context())
	if err != nil {
		return err
	}

	target, err := h.loadTarget(r, p.User, service.ActionRead)
	if err != nil {
		return serviceError(err)
	}
	if err := h.Authz.Authorize(p.User, service.ActionRead, &target, nil); err != nil {
		return serviceError(err)
	}

	httpx.Respond(w, http.StatusOK, "", userData{User: target})
	return nil
}

// HandleCreate godoc
//
//	@Summary		Create a user
//	@Description	EDITOR and ADMIN only. The new role must rank below the caller's, except for ADMIN callers.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CreateUserRequest	true	"new user"
//	@Success		201		{object}	authsdk.Response[authsdk.UserData]
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Failure		401		{object}	authsdk.ErrorResponse
//	@Failure		403		{object}	authsdk.ErrorResponse
//	@Router			/v1/users [post]
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) error {
	p, err := mustPrincipal(r.Context())
	if err != nil {
		return err
	}

	var req authsdk.CreateUserRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		return err
	}

	role := domain.RoleUser
	var v httpx.Validator
	v.Check(strings.TrimSpace(req.Name) != "", "name", "Name is required")
	v.Check(req.Username != "", "username", "Username is required")
	v.Check(httpx.IsEmail(req.Email), "email", "Invalid email address")
	v.Check(httpx.IsStrongPassword(req.Password), "password",
		"Password must be at least 8 characters and contain a letter and a number")
	if req.Role != "" {
		parsed, err := domain.ParseRole(req.Role)
		v.Check(err == nil, "role", "Invalid role")
		role = parsed
	}
	if err := v.Err(); err != nil {
		return err
	}

	if err := h.Authz.AuthorizeCreate(p.User, role); err != nil {
		return serviceError(err)
	}

	u, err := h.Users.CreateUser(r.Context(), service.NewUser{
		Name:        req.Name,
		Username:    req.Username,
		Email:       httpx.NormalizeEmail(req.Email),
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		Role:        role,
	})
	if err != nil {
		return serviceError(err)
	}

	httpx.Respond(w, http.StatusCreated, "", userData{User: u})
	return nil
}

// HandleUpdate godoc
//
//	@Summary		Update a user
//	@Description	Only the fields present are changed. Changing a role needs a caller ranked above the new role.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"user id"
//	@Param			request	body		authsdk.UpdateUserRequest	true	"changes"
//	@Success		200		{object}	authsdk.Response[authsdk.UserData]
//	@Failure		400		{object}	authsdk.ErrorResponse	"validation failed or Email already taken"
//	@Failure		401		{object}	authsdk.ErrorResponse
//	@Failure		403		{object}	authsdk.ErrorResponse
//	@Failure		404		{object}	authsdk.ErrorResponse	"User update failed"
//	@Router			/v1/users/{id} [put]
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) error {
	p, err := mustPrincipal(r.Context())
	if err != nil {
		return err
	}

	var req authsdk.UpdateUserRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		return err
	}

	ch := service.UserChanges{Name: req.Name, Password: req.Password, IsActive: req.IsActive}
	var v httpx.Validator
	v.Check(req.Name == nil || strings.TrimSpace(*req.Name) != "", "name", "Name must not be empty")
	v.Check(req.Password == nil || httpx.IsStrongPassword(*req.Password), "password",
		"Password must be at least 8 characters and contain a letter and a number")
	if req.Email != nil {
		email := httpx.NormalizeEmail(*req.Email)
		v.Check(httpx.IsEmail(email), "email", "Invalid email address")
		ch.Email = &email
	}
	if req.Role != nil {
		role, err := domain.ParseRole(*req.Role)
		v.Check(err == nil, "role", "Invalid role")
		ch.Role = &role
	}
	v.Check(req.Name != nil || req.Email != nil || req.Password != nil || req.Role != nil || req.IsActive != nil,
		"body", "Nothing to update")
	if err := v.Err(); err != nil {
		return err
	}

	target, err := h.loadTarget(r, p.User, service.ActionUpdate)
	if err != nil {
		return withMessage(err, "User update failed")
	}
	if err := h.Authz.Authorize(p.User, service.ActionUpdate, &target, ch.Role); err != nil {
		return serviceError(err)
	}

	u, err := h.Users.UpdateUser(r.Context(), target.ID, ch)
	if err != nil {
		return withMessage(err, "User update failed")
	}

	httpx.Respond(w, http.StatusOK, "", userData{User: u})
	return nil
}

// HandleDelete godoc
//
//	@Summary		Delete a user
//	@Description	Removes the user together with their tokens and OTP secret.
//	@Tags			Users
//	@Security		BearerAuth
//	@Param			id	path	string	true	"user id"
//	@Success		204
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Failure		403	{object}	authsdk.ErrorResponse
//	@Failure		404	{object}	authsdk.ErrorResponse	"User deletion failed"
//	@Router			/v1/users/{id} [delete]
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) error {
	p, err := mustPrincipal(r.Context())
	if err != nil {
		return err
	}

	target, err := h.loadTarget(r, p.User, service.ActionDelete)
	if err != nil {
		return withMessage(err, "User deletion failed")
	}
	if err := h.Authz.Authorize(p.User, service.ActionDelete, &target, nil); err != nil {
		return serviceError(err)
	}

	if err := h.Users.DeleteUser(r.Context(), target.ID); err != nil {
		return withMessage(err, "User deletion failed")
	}

	httpx.NoContent(w)
	return nil
}
