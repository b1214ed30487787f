package service

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/authbase/internal/auth/domain"
	"github.com/aussiebroadwan/authbase/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/authbase/pkg/cryptox"
	"github.com/aussiebroadwan/authbase/pkg/jwtx"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type sentMessage struct {
	To, Subject, Body string
}

// outbox records what the flows would have delivered.
type outbox struct {
	mu     sync.Mutex
	emails []sentMessage
	sms    []sentMessage
}

func (o *outbox) SendEmail(_ context.Context, to, subject, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.emails = append(o.emails, sentMessage{To: to, Subject: subject, Body: text})
	return nil
}

func (o *outbox) SendSMS(_ context.Context, to, body string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sms = append(o.sms, sentMessage{To: to, Body: body})
	return nil
}

func (o *outbox) lastEmail(t *testing.T) sentMessage {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.emails, "no email sent")
	return o.emails[len(o.emails)-1]
}

func (o *outbox) lastSMS(t *testing.T) sentMessage {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.sms, "no sms sent")
	return o.sms[len(o.sms)-1]
}

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

func codeFrom(t *testing.T, body string) string {
	t.Helper()
	m := codePattern.FindStringSubmatch(body)
	require.NotNil(t, m, "no code in %q", body)
	return m[1]
}

func tokenFrom(t *testing.T, body string) string {
	t.Helper()
	_, rest, ok := strings.Cut(body, "?token=")
	require.True(t, ok, "no link in %q", body)
	token, _, _ := strings.Cut(rest, "\n")
	return token
}

type testEnv struct {
	Store  *sqlite.Store
	Users  *UserService
	Tokens *TokenService
	OTP    *OTPService
	Authn  *Authenticator
	Auth   *AuthService
	Outbox *outbox
}

func testKeyring(t *testing.T) *jwtx.Keyring {
	t.Helper()
	k, err := jwtx.NewKeyring("authbase-test", map[jwtx.TokenType][]byte{
		jwtx.TypeAccess:        []byte("access-secret-0123456789abcdef"),
		jwtx.TypeRefresh:       []byte("refresh-secret-0123456789abcdef"),
		jwtx.TypeResetPassword: []byte("reset-secret-0123456789abcdef"),
		jwtx.TypeVerifyEmail:   []byte("verify-secret-0123456789abcdef"),
	})
	require.NoError(t, err)
	return k
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	keys := testKeyring(t)
	hasher := cryptox.NewHasher(bcrypt.MinCost)
	box := &outbox{}

	users := &UserService{Store: st, Hasher: hasher, AdminEmail: "root@example.com"}
	tokens := &TokenService{
		Keys:             keys,
		Store:            st,
		AccessTTL:        30 * time.Minute,
		RefreshTTL:       30 * 24 * time.Hour,
		ResetPasswordTTL: 10 * time.Minute,
		VerifyEmailTTL:   10 * time.Minute,
	}
	otps := &OTPService{Store: st, Issuer: "authbase-test"}

	return &testEnv{
		Store:  st,
		Users:  users,
		Tokens: tokens,
		OTP:    otps,
		Authn:  &Authenticator{Keys: keys, Store: st},
		Auth: &AuthService{
			Store:     st,
			Users:     users,
			Tokens:    tokens,
			OTP:       otps,
			Hasher:    hasher,
			Mailer:    box,
			SMS:       box,
			ClientURL: "https://app.example.com/",
		},
		Outbox: box,
	}
}

func (e *testEnv) register(t *testing.T, name string) (domain.User, domain.AuthTokens) {
	t.Helper()
	u, tokens, err := e.Auth.Register(context.Background(), NewUser{
		Name:        name,
		Username:    name,
		Email:       name + "@example.com",
		Password:    "password1",
		PhoneNumber: "+61400000000",
	})
	require.NoError(t, err)
	return u, tokens
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
