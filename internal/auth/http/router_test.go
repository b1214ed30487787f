package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/authbase/internal/auth/domain"
	"github.com/aussiebroadwan/authbase/internal/auth/oauth"
	"github.com/aussiebroadwan/authbase/internal/auth/service"
	"github.com/aussiebroadwan/authbase/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/authbase/pkg/authsdk"
	"github.com/aussiebroadwan/authbase/pkg/cryptox"
	"github.com/aussiebroadwan/authbase/pkg/httpx"
	"github.com/aussiebroadwan/authbase/pkg/jwtx"
	"github.com/aussiebroadwan/authbase/pkg/metricsx"
	"github.com/pquerna/otp"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mailbox struct {
	mu     sync.Mutex
	emails []string
}

func (m *mailbox) SendEmail(_ context.Context, to, subject, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails = append(m.emails, text)
	return nil
}

func (m *mailbox) SendSMS(_ context.Context, to, body string) error {
	return m.SendEmail(context.Background(), to, "", body)
}

func (m *mailbox) linkToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.emails)
	_, rest, ok := strings.Cut(m.emails[len(m.emails)-1], "?token=")
	require.True(t, ok)
	token, _, _ := strings.Cut(rest, "\n")
	return token
}

// fakeProvider signs in whoever the test configures without leaving the process.
type fakeProvider struct {
	name string
	id   oauth.Identity
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.example.com/auth?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) Exchange(_ context.Context, code string) (oauth.Identity, error) {
	if code == "" {
		return oauth.Identity{}, oauth.ErrMissingCode
	}
	id := p.id
	id.Provider = p.name
	return id, nil
}

type testServer struct {
	*httptest.Server
	Client  *authsdk.SDKClient
	OTP     *service.OTPService
	Mail    *mailbox
	Google  *fakeProvider
	Metrics *metricsx.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	keys, err := jwtx.NewKeyring("authbase-test", map[jwtx.TokenType][]byte{
		jwtx.TypeAccess:        []byte("access-secret-0123456789abcdef"),
		jwtx.TypeRefresh:       []byte("refresh-secret-0123456789abcdef"),
		jwtx.TypeResetPassword: []byte("reset-secret-0123456789abcdef"),
		jwtx.TypeVerifyEmail:   []byte("verify-secret-0123456789abcdef"),
	})
	require.NoError(t, err)

	hasher := cryptox.NewHasher(bcrypt.MinCost)
	box := &mailbox{}
	metrics := metricsx.New("authbase_test")

	users := &service.UserService{Store: st, Hasher: hasher, AdminEmail: "root@example.com"}
	tokens := &service.TokenService{
		Keys:             keys,
		Store:            st,
		AccessTTL:        30 * time.Minute,
		RefreshTTL:       24 * time.Hour,
		ResetPasswordTTL: 10 * time.Minute,
		VerifyEmailTTL:   10 * time.Minute,
	}
	otps := &service.OTPService{Store: st, Issuer: "authbase-test"}

	google := &fakeProvider{name: oauth.ProviderGoogle}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter("test", st, logger, metrics)
	r.AuthService = &service.AuthService{
		Store:     st,
		Users:     users,
		Tokens:    tokens,
		OTP:       otps,
		Hasher:    hasher,
		Mailer:    box,
		SMS:       box,
		ClientURL: "https://app.example.com",
		Events:    metrics,
	}
	r.UserService = users
	r.Authenticator = &service.Authenticator{Keys: keys, Store: st}
	r.Authorizer = service.NewAuthorizer()
	r.Strategies = AuthStrategies{Google: google}
	r.Cookies = CookieConfig{TTL: time.Hour}
	r.ApplyRoutes()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testServer{
		Server:  srv,
		Client:  authsdk.NewSDKClient(srv.URL),
		OTP:     otps,
		Mail:    box,
		Google:  google,
		Metrics: metrics,
	}
}

func (s *testServer) register(t *testing.T, name string) (*authsdk.User, *authsdk.Session) {
	t.Helper()
	u, sess, err := s.Client.Register(context.Background(), authsdk.RegisterRequest{
		Name:     name,
		Username: name,
		Email:    name + "@example.com",
		Password: "password1",
	})
	require.NoError(t, err)
	return u, sess
}

// authenticatorCode computes the current code for an otpauth URL.
func (s *testServer) authenticatorCode(t *testing.T, otpauthURL string) string {
	t.Helper()
	key, err := otp.NewKeyFromURL(otpauthURL)
	require.NoError(t, err)
	code, err := s.OTP.CurrentCode(key.Secret(), time.Now())
	require.NoError(t, err)
	return code
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestSessionAndTwoFactorScenario(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	msg, err := s.Client.Ping(ctx)
	require.NoError(t, err)
	require.Equal(t, "Pong!!", msg)

	alice, _ := s.register(t, "alice")
	bob, _ := s.register(t, "bob")
	require.Equal(t, "USER", alice.Role)

	res, err := s.Client.Login(ctx, "alice@example.com", "password1")
	require.NoError(t, err)
	require.Nil(t, res.Challenge)
	sess := res.Session

	got, err := sess.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", got.Email)

	_, err = sess.GetUser(ctx, bob.ID)
	require.Equal(t, http.StatusForbidden, authsdk.StatusCode(err))

	require.NoError(t, sess.Logout(ctx))
	_, err = sess.GetUser(ctx, alice.ID)
	require.Equal(t, http.StatusUnauthorized, authsdk.StatusCode(err))

	// Enrol an authenticator app.
	res, err = s.Client.Login(ctx, "alice@example.com", "password1")
	require.NoError(t, err)
	sess = res.Session

	challenge, msg, err := sess.EnableTwoFactor(ctx, "google-authenticator")
	require.NoError(t, err)
	require.Equal(t, "Authentication QR code url generated", msg)
	require.NotEmpty(t, challenge.OTPAuthURL)

	_, err = s.Client.VerifyOTP(ctx, challenge.OTPID, s.authenticatorCode(t, challenge.OTPAuthURL))
	require.NoError(t, err)

	_, msg, err = sess.EnableTwoFactor(ctx, "email")
	require.NoError(t, err)
	require.Equal(t, "Two factor authentication is already enabled", msg)

	// Login now stops at the second factor.
	res, err = s.Client.Login(ctx, "alice@example.com", "password1")
	require.NoError(t, err)
	require.Nil(t, res.Session)
	require.NotNil(t, res.Challenge)
	require.NotEmpty(t, res.Challenge.OTPAuthURL)

	code := s.authenticatorCode(t, res.Challenge.OTPAuthURL)
	_, err = s.Client.VerifyOTP(ctx, res.Challenge.OTPID, wrongCode(code))
	require.Equal(t, http.StatusUnauthorized, authsdk.StatusCode(err))

	sess, err = s.Client.VerifyOTP(ctx, res.Challenge.OTPID, code)
	require.NoError(t, err)
	_, err = sess.GetUser(ctx, alice.ID)
	require.NoError(t, err)

	_, err = s.Client.VerifyOTP(ctx, "01HZZZZZZZZZZZZZZZZZZZZZZZ", code)
	require.Equal(t, http.StatusNotFound, authsdk.StatusCode(err))

	msg, err = sess.DisableTwoFactor(ctx)
	require.NoError(t, err)
	require.Equal(t, "Two factor authentication disabled", msg)
}

func TestRefreshRotatesTokens(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	alice, sess := s.register(t, "alice")

	old := sess.Tokens()
	require.NoError(t, sess.Refresh(ctx))
	require.NotEqual(t, old.RefreshToken, sess.Tokens().RefreshToken)

	// The old pair belonged to the same device and is gone.
	stale := s.Client.NewSessionFromTokens(old)
	_, err := stale.GetUser(ctx, alice.ID)
	require.Equal(t, http.StatusUnauthorized, authsdk.StatusCode(err))
	require.Equal(t, http.StatusUnauthorized, authsdk.StatusCode(stale.Refresh(ctx)))

	_, err = sess.GetUser(ctx, alice.ID)
	require.NoError(t, err)

	// An access token is not a refresh token.
	swapped := s.Client.NewSessionFromTokens(authsdk.Tokens{
		AccessToken:  sess.Tokens().AccessToken,
		RefreshToken: sess.Tokens().AccessToken,
	})
	require.Equal(t, http.StatusUnauthorized, authsdk.StatusCode(swapped.Refresh(ctx)))
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	s.register(t, "alice")

	_, _, err := s.Client.Register(ctx, authsdk.RegisterRequest{
		Name:     "Alice Again",
		Username: "alice2",
		Email:    "ALICE@example.com",
		Password: "password1",
	})
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Equal(t, "Email already taken", apiErr.Message)

	_, _, err = s.Client.Register(ctx, authsdk.RegisterRequest{
		Name:     "Mallory",
		Username: "mallory",
		Email:    "not-an-email",
		Password: "short",
		Role:     "ADMIN",
	})
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Contains(t, apiErr.Errors, "email")
	require.Contains(t, apiErr.Errors, "password")
	require.Equal(t, "Invalid role", apiErr.Errors["role"])

	_, err = s.Client.Login(ctx, "alice@example.com", "wrong-password1")
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, "Wrong email or password", apiErr.Message)
}

func TestUserManagement(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	root, admin := s.register(t, "root")
	require.Equal(t, "ADMIN", root.Role)
	alice, aliceSess := s.register(t, "alice")

	editor, err := admin.CreateUser(ctx, authsdk.CreateUserRequest{
		Name:     "Eddie",
		Username: "eddie",
		Email:    "eddie@example.com",
		Password: "password1",
		Role:     "EDITOR",
	})
	require.NoError(t, err)
	require.Equal(t, "EDITOR", editor.Role)

	res, err := s.Client.Login(ctx, "eddie@example.com", "password1")
	require.NoError(t, err)
	editorSess := res.Session

	// EDITOR may manage users but not mint admins.
	_, err = editorSess.CreateUser(ctx, authsdk.CreateUserRequest{
		Name: "Boss", Username: "boss", Email: "boss@example.com", Password: "password1", Role: "ADMIN",
	})
	require.Equal(t, http.StatusForbidden, authsdk.StatusCode(err))

	admin2 := "ADMIN"
	_, err = editorSess.UpdateUser(ctx, alice.ID, authsdk.UpdateUserRequest{Role: &admin2})
	require.Equal(t, http.StatusForbidden, authsdk.StatusCode(err))

	name := "Alice Liddell"
	updated, err := editorSess.UpdateUser(ctx, alice.ID, authsdk.UpdateUserRequest{Name: &name})
	require.NoError(t, err)
	require.Equal(t, name, updated.Name)

	// USER cannot list or create.
	_, err = aliceSess.ListUsers(ctx, authsdk.UserQuery{})
	require.Equal(t, http.StatusForbidden, authsdk.StatusCode(err))
	_, err = aliceSess.CreateUser(ctx, authsdk.CreateUserRequest{
		Name: "Carol", Username: "carol", Email: "carol@example.com", Password: "password1",
	})
	require.Equal(t, http.StatusForbidden, authsdk.StatusCode(err))

	page, err := admin.ListUsers(ctx, authsdk.UserQuery{SortBy: "name", Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 3, page.TotalDocs)
	require.Len(t, page.Docs, 2)
	require.True(t, page.HasNextPage)
	require.Equal(t, "Alice Liddell", page.Docs[0].Name)

	page, err = admin.ListUsers(ctx, authsdk.UserQuery{Search: "eddie"})
	require.NoError(t, err)
	require.Equal(t, 1, page.TotalDocs)

	// Out of range pages are empty rather than an error.
	for _, q := range []authsdk.UserQuery{{Limit: 10, Page: math.MaxInt}, {Limit: 10, Offset: math.MaxInt}} {
		page, err = admin.ListUsers(ctx, q)
		require.NoError(t, err)
		require.Empty(t, page.Docs)
		require.Equal(t, 3, page.TotalDocs)
		require.False(t, page.HasNextPage)
	}

	_, err = admin.ListUsers(ctx, authsdk.UserQuery{SortBy: "password"})
	require.Equal(t, http.StatusBadRequest, authsdk.StatusCode(err))

	taken := "eddie@example.com"
	_, err = admin.UpdateUser(ctx, alice.ID, authsdk.UpdateUserRequest{Email: &taken})
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Email already taken", apiErr.Message)

	_, err = admin.UpdateUser(ctx, "01HZZZZZZZZZZZZZZZZZZZZZZZ", authsdk.UpdateUserRequest{Name: &name})
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	require.Equal(t, "User update failed", apiErr.Message)

	// Deleting a user ends their sessions.
	require.NoError(t, admin.DeleteUser(ctx, alice.ID))
	_, err = aliceSess.GetUser(ctx, alice.ID)
	require.Equal(t, http.StatusUnauthorized, authsdk.StatusCode(err))

	err = admin.DeleteUser(ctx, alice.ID)
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "User deletion failed", apiErr.Message)
}

func TestPasswordResetAndEmailVerification(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	alice, sess := s.register(t, "alice")

	_, err := s.Client.ForgotPassword(ctx, "nobody@example.com")
	require.Equal(t, http.StatusNotFound, authsdk.StatusCode(err))

	msg, err := s.Client.ForgotPassword(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "Password reset link has been sent to: alice@example.com", msg)
	token := s.Mail.linkToken(t)

	_, err = s.Client.ResetPassword(ctx, token, "weak")
	require.Equal(t, http.StatusBadRequest, authsdk.StatusCode(err))

	_, err = s.Client.ResetPassword(ctx, token, "newpassword2")
	require.NoError(t, err)

	// Every session ended with the reset and the link is spent.
	_, err = sess.GetUser(ctx, alice.ID)
	require.Equal(t, http.StatusUnauthorized, authsdk.StatusCode(err))
	_, err = s.Client.ResetPassword(ctx, token, "newpassword3")
	require.Equal(t, http.StatusUnauthorized, authsdk.StatusCode(err))

	res, err := s.Client.Login(ctx, "alice@example.com", "newpassword2")
	require.NoError(t, err)
	sess = res.Session

	msg, err = sess.SendVerificationEmail(ctx)
	require.NoError(t, err)
	require.Equal(t, "Email verification link has been sent to: alice@example.com", msg)

	_, err = s.Client.VerifyEmail(ctx, "not-a-token")
	require.Equal(t, http.StatusUnauthorized, authsdk.StatusCode(err))

	_, err = s.Client.VerifyEmail(ctx, s.Mail.linkToken(t))
	require.NoError(t, err)

	got, err := sess.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	require.True(t, got.IsEmailVerified)

	msg, err = sess.SendVerificationEmail(ctx)
	require.NoError(t, err)
	require.Equal(t, "Email already verified", msg)
}

func TestTokensCookie(t *testing.T) {
	s := newTestServer(t)

	body := strings.NewReader(`{"name":"alice","username":"alice","email":"alice@example.com","password":"password1"}`)
	resp, err := http.Post(s.URL+"/v1/auth/register", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var env struct {
		Data struct {
			User domain.User `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == tokensCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)
	require.False(t, cookie.Secure)

	req, err := http.NewRequest(http.MethodGet, s.URL+"/v1/users/"+env.Data.User.ID, nil)
	require.NoError(t, err)
	req.AddCookie(cookie)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	// No token at all.
	resp3, err := http.Get(s.URL + "/v1/users/" + env.Data.User.ID)
	require.NoError(t, err)
	resp3.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp3.StatusCode)
	require.Contains(t, resp3.Header.Get("WWW-Authenticate"), "Bearer")
}

func TestOAuthLogin(t *testing.T) {
	s := newTestServer(t)
	s.Google.id = oauth.Identity{
		ExternalID:    "g-123",
		Email:         "gina@example.com",
		Name:          "Gina Green",
		GivenName:     "Gina",
		EmailVerified: true,
	}

	noRedirect := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	resp, err := noRedirect.Get(s.URL + "/v1/auth/facebook")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = noRedirect.Get(s.URL + "/v1/auth/google")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	var stateCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == oauthStateCookie {
			stateCookie = c
		}
	}
	require.NotNil(t, stateCookie)

	callback := func(state string, withCookie bool) *http.Response {
		req, err := http.NewRequest(http.MethodGet,
			s.URL+"/v1/auth/google/callback?code=abc&state="+url.QueryEscape(state), nil)
		require.NoError(t, err)
		if withCookie {
			req.AddCookie(stateCookie)
		}
		resp, err := noRedirect.Do(req)
		require.NoError(t, err)
		return resp
	}

	resp = callback(state, false)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = callback("forged", true)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = callback(state, true)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env httpx.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.True(t, env.Success)

	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var data authsdk.AuthData
	require.NoError(t, json.Unmarshal(raw, &data))

	// The new account is a plain USER: authenticated, but not allowed to list.
	sess := s.Client.NewSessionFromTokens(data.Tokens)
	_, err = sess.ListUsers(context.Background(), authsdk.UserQuery{})
	require.Equal(t, http.StatusForbidden, authsdk.StatusCode(err))

	// A password account with the same email cannot be taken over.
	s.register(t, "mallory")
	s.Google.id.Email = "mallory@example.com"
	resp, err = noRedirect.Get(s.URL + "/v1/auth/google")
	require.NoError(t, err)
	resp.Body.Close()
	loc, _ = url.Parse(resp.Header.Get("Location"))
	for _, c := range resp.Cookies() {
		if c.Name == oauthStateCookie {
			stateCookie = c
		}
	}
	resp = callback(loc.Query().Get("state"), true)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.Equal(t, msgProviderMismatch, env.Message)
}

func TestHealthAndMetrics(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	live, err := s.Client.Liveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)

	ready, err := s.Client.Readiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks.Database)

	s.register(t, "alice")

	resp, err := http.Get(s.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `authbase_test_auth_events_total{event="register",outcome="success"} 1`)
}
