// Package notify delivers the emails and text messages the auth flows send:
// reset and verification links, confirmations and one-time codes.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/authbase/pkg/slogx"
)

// Mailer sends a plain-text email.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, text string) error
}

// SMSSender sends a text message to a phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// LogSender writes messages to the request logger instead of delivering
// them. It is what dev environments get when no SMTP or Twilio credentials
// are configured.
type LogSender struct{}

func (LogSender) SendEmail(ctx context.Context, to, subject, text string) error {
	slogx.FromContext(ctx).Info("email not delivered (log sender)",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("text", text),
	)
	return nil
}

func (LogSender) SendSMS(ctx context.Context, to, body string) error {
	slogx.FromContext(ctx).Info("sms not delivered (log sender)",
		slog.String("to", to),
		slog.String("body", body),
	)
	return nil
}

// Email subjects.
const (
	SubjectResetPassword        = "Reset Password"
	SubjectResetPasswordConfirm = "Reset Password Confirmation"
	SubjectVerifyEmail          = "Email Verification"
	SubjectVerifyEmailConfirm   = "Email Verification Confirm"
	SubjectOTP                  = "Authentication Code"
)

func ResetPasswordText(name, link string) string {
	return fmt.Sprintf("Dear %s, To reset your password, please click on this link: %s\n"+
		"If you did not request any password resets, then ignore this email.", name, link)
}

func VerifyEmailText(name, link string) string {
	return fmt.Sprintf("Dear %s, To verify your email, please click on this link: %s\n"+
		"If you did not create an account, then ignore this email.", name, link)
}

func OTPEmailText(name, code string) string {
	return fmt.Sprintf("Dear %s, %s is your authentication code.", name, code)
}

func OTPSMSText(code string) string {
	return code + " is your authentication code."
}
