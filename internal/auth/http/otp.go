package http

import (
	"net/http"

	"github.com/aussiebroadwan/authbase/internal/auth/domain"
	"github.com/aussiebroadwan/authbase/internal/auth/service"
	"github.com/aussiebroadwan/authbase/pkg/authsdk"
	"github.com/aussiebroadwan/authbase/pkg/httpx"
)

// OTPHandler serves the second factor endpoints.
type OTPHandler struct {
	Auth    *service.AuthService
	Cookies CookieConfig
}

// respondChallenge writes the answer to a freshly sent OTP.
func respondChallenge(w http.ResponseWriter, c domain.OTPChallenge) {
	switch c.Method {
	case domain.OTPMethodAuthenticator:
		httpx.Respond(w, http.StatusOK, "Authentication QR code url generated", c)
	default:
		httpx.Respond(w, http.StatusOK, "Authentication code sent via "+string(c.Method), c)
	}
}

// HandleSend godoc
//
//	@Summary		Enable or disable two factor authentication
//	@Description	enabled=true replaces the user's secret with one for the chosen method and sends a code (or returns the
//	@Description	otpauth url). Two factor authentication is switched on once the code is verified. enabled=false
//	@Description	switches it off and drops the secret.
//	@Tags			OTP
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.SendOTPRequest							true	"desired state"
//	@Success		200		{object}	authsdk.Response[authsdk.OTPChallenge]
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Failure		401		{object}	authsdk.ErrorResponse	"Please authenticate"
//	@Router			/v1/auth/otp/send [post]
func (h *OTPHandler) HandleSend(w http.ResponseWriter, r *http.Request) error {
	p, err := mustPrincipal(r.Context())
	if err != nil {
		return err
	}

	var req authsdk.SendOTPRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		return err
	}

	method := domain.OTPMethod(req.SendOTP)
	var v httpx.Validator
	v.Check(!req.Enabled || method.Valid(), "send_otp", "send_otp must be one of email, sms, google-authenticator")
	v.Check(method != domain.OTPMethodSMS || p.User.PhoneNumber != "", "send_otp", "No phone number on the account")
	if err := v.Err(); err != nil {
		return err
	}

	outcome, challenge, err := h.Auth.SetTwoFactor(r.Context(), p.User, req.Enabled, method)
	if err != nil {
		return serviceError(err)
	}

	switch outcome {
	case service.TwoFactorAlreadyEnabled:
		httpx.Respond(w, http.StatusOK, "Two factor authentication is already enabled", nil)
	case service.TwoFactorAlreadyDisabled:
		httpx.Respond(w, http.StatusOK, "Two factor authentication is already disabled", nil)
	case service.TwoFactorDisabled:
		httpx.Respond(w, http.StatusOK, "Two factor authentication disabled", nil)
	default:
		respondChallenge(w, *challenge)
	}
	return nil
}

// HandleVerify godoc
//
//	@Summary		Verify an OTP code
//	@Description	Checks the code for otp_id, switches two factor authentication on and signs the user in.
//	@Tags			OTP
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.VerifyOTPRequest				true	"otp id and code"
//	@Success		200		{object}	authsdk.Response[authsdk.AuthData]		"tokens"
//	@Failure		401		{object}	authsdk.ErrorResponse					"Failed to verify otp token"
//	@Failure		404		{object}	authsdk.ErrorResponse
//	@Failure		429		{object}	authsdk.ErrorResponse
//	@Router			/v1/auth/otp/verify [post]
func (h *OTPHandler) HandleVerify(w http.ResponseWriter, r *http.Request) error {
	var req authsdk.VerifyOTPRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		return err
	}

	var v httpx.Validator
	v.Check(req.OTPID != "", "otp_id", "otp_id is required")
	v.Check(req.OTPCode != "", "otp_code", "otp_code is required")
	if err := v.Err(); err != nil {
		return err
	}

	tokens, err := h.Auth.VerifyOTP(r.Context(), req.OTPID, req.OTPCode)
	if err != nil {
		return serviceError(err)
	}

	h.Cookies.setTokensCookie(w, tokens)
	httpx.Respond(w, http.StatusOK, "", tokensData{Tokens: tokens})
	return nil
}

// HandleResend godoc
//
//	@Summary		Resend an OTP code
//	@Description	Replaces the secret behind otp_id with a new one for the same method and sends it again.
//	@Tags			OTP
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ResendOTPRequest				true	"otp id"
//	@Success		200		{object}	authsdk.Response[authsdk.OTPChallenge]
//	@Failure		404		{object}	authsdk.ErrorResponse
//	@Failure		429		{object}	authsdk.ErrorResponse
//	@Router			/v1/auth/otp/resend [post]
func (h *OTPHandler) HandleResend(w http.ResponseWriter, r *http.Request) error {
	var req authsdk.ResendOTPRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		return err
	}

	var v httpx.Validator
	v.Check(req.OTPID != "", "otp_id", "otp_id is required")
	if err := v.Err(); err != nil {
		return err
	}

	challenge, err := h.Auth.ResendOTP(r.Context(), req.OTPID)
	if err != nil {
		return serviceError(err)
	}

	respondChallenge(w, challenge)
	return nil
}
