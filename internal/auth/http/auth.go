package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/authbase/internal/auth/domain"
	"github.com/aussiebroadwan/authbase/internal/auth/service"
	"github.com/aussiebroadwan/authbase/pkg/authsdk"
	"github.com/aussiebroadwan/authbase/pkg/httpx"
)

// AuthHandler serves registration, login and the token backed flows.
type AuthHandler struct {
	Auth    *service.AuthService
	Cookies CookieConfig
}

type authData struct {
	User   domain.User       `json:"user"`
	Tokens domain.AuthTokens `json:"tokens"`
}

type tokensData struct {
	Tokens domain.AuthTokens `json:"tokens"`
}

// HandleRegister godoc
//
//	@Summary		Register
//	@Description	Creates a USER account and signs it in. Tokens are returned and also set in the tokens cookie.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest							true	"new account"
//	@Success		201		{object}	authsdk.Response[authsdk.AuthData]				"User created successfully"
//	@Failure		400		{object}	authsdk.ErrorResponse							"validation failed, email or username taken"
//	@Failure		429		{object}	authsdk.ErrorResponse
//	@Router			/v1/auth/register [post]
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) error {
	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		return err
	}

	var v httpx.Validator
	v.Check(strings.TrimSpace(req.Name) != "", "name", "Name is required")
	v.Check(req.Username != "", "username", "Username is required")
	v.Check(httpx.IsEmail(req.Email), "email", "Invalid email address")
	v.Check(httpx.IsStrongPassword(req.Password), "password",
		"Password must be at least 8 characters and contain a letter and a number")
	v.Check(req.Role == "" || req.Role == string(domain.RoleUser), "role", "Invalid role")
	if err := v.Err(); err != nil {
		return err
	}

	u, tokens, err := h.Auth.Register(r.Context(), service.NewUser{
		Name:        req.Name,
		Username:    req.Username,
		Email:       httpx.NormalizeEmail(req.Email),
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		Role:        domain.RoleUser,
	})
	if err != nil {
		return serviceError(err)
	}

	h.Cookies.setTokensCookie(w, tokens)
	httpx.Respond(w, http.StatusCreated, "User created successfully", authData{User: u, Tokens: tokens})
	return nil
}

// HandleLogin godoc
//
//	@Summary		Login
//	@Description	Checks email and password. Accounts with two factor authentication enabled get an OTP challenge
//	@Description	instead of tokens; finish with POST /v1/auth/otp/verify.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest							true	"credentials"
//	@Success		200		{object}	authsdk.Response[authsdk.AuthData]				"tokens, or an OTP challenge"
//	@Failure		401		{object}	authsdk.ErrorResponse							"Wrong email or password"
//	@Failure		429		{object}	authsdk.ErrorResponse
//	@Router			/v1/auth/login [post]
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) error {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		return err
	}

	var v httpx.Validator
	v.Check(req.Email != "", "email", "Email is required")
	v.Check(req.Password != "", "password", "Password is required")
	if err := v.Err(); err != nil {
		return err
	}

	res, err := h.Auth.Login(r.Context(), httpx.NormalizeEmail(req.Email), req.Password)
	if err != nil {
		return serviceError(err)
	}

	if res.Challenge != nil {
		respondChallenge(w, *res.Challenge)
		return nil
	}

	h.Cookies.setTokensCookie(w, res.Tokens)
	httpx.Respond(w, http.StatusOK, "", authData{User: res.User, Tokens: res.Tokens})
	return nil
}

// HandleLogout godoc
//
//	@Summary		Logout
//	@Description	Ends the session of the device the refresh token belongs to. Access tokens of that device stop working too.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Success		204
//	@Failure		401	{object}	authsdk.ErrorResponse	"Please authenticate"
//	@Router			/v1/auth/logout [delete]
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) error {
	p, err := mustPrincipal(r.Context())
	if err != nil {
		return err
	}

	if err := h.Auth.Logout(r.Context(), p.User.ID, p.DeviceID); err != nil {
		return serviceError(err)
	}

	h.Cookies.clearTokensCookie(w)
	httpx.NoContent(w)
	return nil
}

// HandleRefresh godoc
//
//	@Summary		Refresh tokens
//	@Description	Trades a refresh token for a new access and refresh token pair on the same device.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.Response[authsdk.AuthData]	"tokens"
//	@Failure		401	{object}	authsdk.ErrorResponse				"Please authenticate"
//	@Router			/v1/auth/refresh-tokens [get]
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) error {
	p, err := mustPrincipal(r.Context())
	if err != nil {
		return err
	}

	tokens, err := h.Auth.Refresh(r.Context(), p)
	if err != nil {
		return serviceError(err)
	}

	h.Cookies.setTokensCookie(w, tokens)
	httpx.Respond(w, http.StatusOK, "", tokensData{Tokens: tokens})
	return nil
}

// HandleForgotPassword godoc
//
//	@Summary		Forgot password
//	@Description	Emails a reset password link. Any earlier link stops working.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ForgotPasswordRequest	true	"account email"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		404		{object}	authsdk.ErrorResponse	"User not found"
//	@Router			/v1/auth/forgot-password [post]
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) error {
	var req authsdk.ForgotPasswordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		return err
	}

	var v httpx.Validator
	v.Check(httpx.IsEmail(httpx.NormalizeEmail(req.Email)), "email", "Invalid email address")
	if err := v.Err(); err != nil {
		return err
	}

	u, err := h.Auth.ForgotPassword(r.Context(), httpx.NormalizeEmail(req.Email))
	if err != nil {
		return serviceError(err)
	}

	httpx.Respond(w, http.StatusOK, "Password reset link has been sent to: "+u.Email, nil)
	return nil
}

// HandleResetPassword godoc
//
//	@Summary		Reset password
//	@Description	Sets a new password using the token from the reset link. Every session of the account is ended.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			token	query		string							true	"reset password token"
//	@Param			request	body		authsdk.ResetPasswordRequest	true	"new password"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Failure		401		{object}	authsdk.ErrorResponse	"Please authenticate"
//	@Router			/v1/auth/reset-password [post]
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) error {
	p, err := mustPrincipal(r.Context())
	if err != nil {
		return err
	}

	var req authsdk.ResetPasswordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		return err
	}

	var v httpx.Validator
	v.Check(httpx.IsStrongPassword(req.Password), "password",
		"Password must be at least 8 characters and contain a letter and a number")
	if err := v.Err(); err != nil {
		return err
	}

	if err := h.Auth.ResetPassword(r.Context(), p, req.Password); err != nil {
		return serviceError(err)
	}

	httpx.Respond(w, http.StatusOK, "Password changed successful. Please check your email", nil)
	return nil
}

// HandleSendVerificationEmail godoc
//
//	@Summary		Send verification email
//	@Description	Emails a verify email link to the signed in user unless the address is already verified.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.MessageResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Please authenticate"
//	@Router			/v1/auth/send-verification-email [post]
func (h *AuthHandler) HandleSendVerificationEmail(w http.ResponseWriter, r *http.Request) error {
	p, err := mustPrincipal(r.Context())
	if err != nil {
		return err
	}

	sent, err := h.Auth.SendVerificationEmail(r.Context(), p.User)
	if err != nil {
		return serviceError(err)
	}
	if !sent {
		httpx.Respond(w, http.StatusOK, "Email already verified", nil)
		return nil
	}

	httpx.Respond(w, http.StatusOK, "Email verification link has been sent to: "+p.User.Email, nil)
	return nil
}

// HandleVerifyEmail godoc
//
//	@Summary		Verify email
//	@Description	Marks the address verified using the token from the verify email link.
//	@Tags			Auth
//	@Produce		json
//	@Param			token	query		string	true	"verify email token"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		401		{object}	authsdk.ErrorResponse	"Please authenticate"
//	@Router			/v1/auth/verify-email [post]
func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) error {
	p, err := mustPrincipal(r.Context())
	if err != nil {
		return err
	}

	if err := h.Auth.VerifyEmail(r.Context(), p); err != nil {
		return serviceError(err)
	}

	httpx.Respond(w, http.StatusOK, "Email verification successful. Please check your email", nil)
	return nil
}
