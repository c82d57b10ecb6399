package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amevide998/lms/internal/auth"
	"github.com/amevide998/lms/internal/config"
	"github.com/amevide998/lms/internal/domain/user"
	"github.com/amevide998/lms/internal/http/handlers"
	"github.com/amevide998/lms/internal/http/middlewares"
	"github.com/amevide998/lms/internal/mail"
	"github.com/amevide998/lms/internal/repo/postgres"
	"github.com/amevide998/lms/internal/security"
	"github.com/gin-gonic/gin"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

// Fake implementations of the handlers.UserStore / handlers.SessionStore interfaces

type fakeUserStore struct {
	getByEmailFn func(ctx context.Context, email string) (user.User, error)
	existsFn     func(ctx context.Context, email string) (bool, error)
	createFn     func(ctx context.Context, u user.User) (user.User, error)

	created []user.User
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return user.User{}, postgres.ErrUserNotFound
}

func (f *fakeUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if f.existsFn != nil {
		return f.existsFn(ctx, email)
	}
	return false, nil
}

func (f *fakeUserStore) Create(ctx context.Context, u user.User) (user.User, error) {
	f.created = append(f.created, u)
	if f.createFn != nil {
		return f.createFn(ctx, u)
	}
	return u, nil
}

type fakeSessionStore struct {
	putFn    func(ctx context.Context, userID string, u user.User) error
	deleteFn func(ctx context.Context, userID string) error

	puts    []string
	deletes []string
}

func (f *fakeSessionStore) Put(ctx context.Context, userID string, u user.User) error {
	f.puts = append(f.puts, userID)
	if f.putFn != nil {
		return f.putFn(ctx, userID, u)
	}
	return nil
}

func (f *fakeSessionStore) Delete(ctx context.Context, userID string) error {
	f.deletes = append(f.deletes, userID)
	if f.deleteFn != nil {
		return f.deleteFn(ctx, userID)
	}
	return nil
}

type recordingMailer struct {
	sendFn func(ctx context.Context, in mail.SendActivationCodeInput) error

	sent []mail.SendActivationCodeInput
}

func (f *recordingMailer) SendActivationCode(ctx context.Context, in mail.SendActivationCodeInput) error {
	f.sent = append(f.sent, in)
	if f.sendFn != nil {
		return f.sendFn(ctx, in)
	}
	return nil
}

func testConfig() config.Config {
	return config.Config{
		Env:        "test",
		AccessTTL:  300 * time.Second,
		RefreshTTL: 3600 * time.Second,
	}
}

func testCodec() *auth.ActivationCodec {
	return auth.NewActivationCodec("activation-secret", 5*time.Minute)
}

func testIssuer() *auth.TokenIssuer {
	return auth.NewTokenIssuer("access-secret", "refresh-secret", 300*time.Second, 3600*time.Second)
}

func newAuthHandler(users *fakeUserStore, sessions *fakeSessionStore, mailer *recordingMailer) *handlers.AuthHandler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return handlers.NewAuthHandler(users, sessions, testCodec(), testIssuer(), mailer, testConfig(), log, nil)
}

// mounts the auth routes behind the boundary translator, like the real router

func setupAuthRouter(h *handlers.AuthHandler) *gin.Engine {
	r := gin.New()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	r.Use(middlewares.ErrorHandler(log))

	r.POST("/register", h.Register)
	r.POST("/activate", h.Activate)
	r.POST("/login", h.Login)
	r.GET("/logout", h.Logout)

	return r
}

func doRequest(router http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

type envelope struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	ActivationToken string `json:"activationToken"`
	Token           string `json:"token"`
}

func mustReadJSON(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
}

func findCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()

	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}

	t.Fatalf("cookie %q not found in response", name)
	return nil
}

// Register

func TestRegisterIssuesTokenAndDispatchesCode(t *testing.T) {
	users := &fakeUserStore{}
	mailer := &recordingMailer{}
	h := newAuthHandler(users, &fakeSessionStore{}, mailer)
	r := setupAuthRouter(h)

	w := doRequest(r, http.MethodPost, "/register", `{"name":"Sam Doe","email":"sam@example.com","password":"password123"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, want 201, body=%s", w.Code, w.Body.String())
	}

	var resp envelope
	mustReadJSON(t, w, &resp)

	if !resp.Success || resp.ActivationToken == "" {
		t.Fatalf("expected success with activation token, got %+v", resp)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("mailer called %d times, want exactly 1", len(mailer.sent))
	}

	// the token round-trips and embeds the exact code that went out by mail
	claims, err := testCodec().Verify(resp.ActivationToken)

	if err != nil {
		t.Fatalf("activation token does not verify: %v", err)
	}

	if claims.ActivationCode != mailer.sent[0].Code {
		t.Fatalf("embedded code %q differs from dispatched code %q", claims.ActivationCode, mailer.sent[0].Code)
	}

	if claims.User.Email != "sam@example.com" {
		t.Fatalf("embedded candidate email %q", claims.User.Email)
	}

	// the code never appears in the response body
	if strings.Contains(w.Body.String(), mailer.sent[0].Code) {
		t.Fatalf("activation code leaked into the response body")
	}

	if len(users.created) != 0 {
		t.Fatalf("registration persisted a user before activation")
	}
}

func TestRegisterRejections(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		users       *fakeUserStore
		mailer      *recordingMailer
		wantMessage string
	}{
		{
			name:  "duplicate email",
			body:  `{"name":"Sam Doe","email":"sam@example.com","password":"password123"}`,
			users: &fakeUserStore{existsFn: func(context.Context, string) (bool, error) { return true, nil }},
			mailer:      &recordingMailer{},
			wantMessage: "email already exists",
		},
		{
			name:  "mail dispatch failure",
			body:  `{"name":"Sam Doe","email":"sam@example.com","password":"password123"}`,
			users: &fakeUserStore{},
			mailer: &recordingMailer{sendFn: func(context.Context, mail.SendActivationCodeInput) error {
				return errors.New("smtp down")
			}},
			wantMessage: "could not send activation email",
		},
		{
			name:        "invalid email",
			body:        `{"name":"Sam Doe","email":"not-an-email","password":"password123"}`,
			users:       &fakeUserStore{},
			mailer:      &recordingMailer{},
			wantMessage: "email must be a valid email address",
		},
		{
			name:        "short password",
			body:        `{"name":"Sam Doe","email":"sam@example.com","password":"abc"}`,
			users:       &fakeUserStore{},
			mailer:      &recordingMailer{},
			wantMessage: "password must be at least 6 characters",
		},
		{
			name:  "store unavailable",
			body:  `{"name":"Sam Doe","email":"sam@example.com","password":"password123"}`,
			users: &fakeUserStore{existsFn: func(context.Context, string) (bool, error) {
				return false, errors.New("connection refused")
			}},
			mailer:      &recordingMailer{},
			wantMessage: "could not check email",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newAuthHandler(tc.users, &fakeSessionStore{}, tc.mailer)
			r := setupAuthRouter(h)

			w := doRequest(r, http.MethodPost, "/register", tc.body)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
			}

			var resp envelope
			mustReadJSON(t, w, &resp)

			if resp.Success {
				t.Fatalf("expected success=false")
			}

			if resp.Message != tc.wantMessage {
				t.Fatalf("message = %q, want %q", resp.Message, tc.wantMessage)
			}

			// duplicate email must not dispatch mail
			if tc.name == "duplicate email" && len(tc.mailer.sent) != 0 {
				t.Fatalf("mail dispatched despite duplicate email")
			}
		})
	}
}

// Activate

func issueActivation(t *testing.T) (token, code string) {
	t.Helper()

	token, code, err := testCodec().Issue(user.Candidate{
		Name:     "Sam Doe",
		Email:    "sam@example.com",
		Password: "password123",
	})

	if err != nil {
		t.Fatalf("issue activation: %v", err)
	}

	return token, code
}

func TestActivatePersistsVerifiedUser(t *testing.T) {
	token, code := issueActivation(t)

	users := &fakeUserStore{}
	h := newAuthHandler(users, &fakeSessionStore{}, &recordingMailer{})
	r := setupAuthRouter(h)

	body, _ := json.Marshal(gin.H{"activation_token": token, "activation_code": code})

	w := doRequest(r, http.MethodPost, "/activate", string(body))

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, want 201, body=%s", w.Code, w.Body.String())
	}

	if len(users.created) != 1 {
		t.Fatalf("created %d users, want 1", len(users.created))
	}

	created := users.created[0]

	if created.Email != "sam@example.com" || created.Name != "Sam Doe" {
		t.Fatalf("created wrong user: %+v", created)
	}

	if created.Role != "user" || !created.IsVerified {
		t.Fatalf("expected verified user role, got role=%q verified=%v", created.Role, created.IsVerified)
	}

	if created.PasswordHash == "password123" {
		t.Fatalf("password stored in plaintext")
	}

	if err := security.CheckPassword(created.PasswordHash, "password123"); err != nil {
		t.Fatalf("stored hash does not match the password: %v", err)
	}
}

func TestActivateRejections(t *testing.T) {
	validToken, validCode := issueActivation(t)

	expiredCodec := auth.NewActivationCodec("activation-secret", time.Nanosecond)
	expiredToken, expiredCode, err := expiredCodec.Issue(user.Candidate{
		Name:     "Sam Doe",
		Email:    "sam@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("issue expired activation: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	tests := []struct {
		name        string
		token       string
		code        string
		users       *fakeUserStore
		wantMessage string
		wantCreates int
	}{
		{
			name:        "wrong code",
			token:       validToken,
			code:        wrongCode(validCode),
			users:       &fakeUserStore{},
			wantMessage: "invalid or expired activation token",
		},
		{
			name:        "expired token",
			token:       expiredToken,
			code:        expiredCode,
			users:       &fakeUserStore{},
			wantMessage: "invalid or expired activation token",
		},
		{
			name:        "garbage token",
			token:       "not-a-jwt",
			code:        validCode,
			users:       &fakeUserStore{},
			wantMessage: "invalid or expired activation token",
		},
		{
			name:        "email registered since",
			token:       validToken,
			code:        validCode,
			users:       &fakeUserStore{existsFn: func(context.Context, string) (bool, error) { return true, nil }},
			wantMessage: "email already exists",
		},
		{
			name:  "insert race lost",
			token: validToken,
			code:  validCode,
			users: &fakeUserStore{createFn: func(context.Context, user.User) (user.User, error) {
				return user.User{}, postgres.ErrEmailAlreadyUsed
			}},
			wantMessage: "email already exists",
			wantCreates: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newAuthHandler(tc.users, &fakeSessionStore{}, &recordingMailer{})
			r := setupAuthRouter(h)

			body, _ := json.Marshal(gin.H{"activation_token": tc.token, "activation_code": tc.code})

			w := doRequest(r, http.MethodPost, "/activate", string(body))

			if w.Code != http.StatusBadRequest {
				t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
			}

			var resp envelope
			mustReadJSON(t, w, &resp)

			if resp.Message != tc.wantMessage {
				t.Fatalf("message = %q, want %q", resp.Message, tc.wantMessage)
			}

			if len(tc.users.created) != tc.wantCreates {
				t.Fatalf("created %d users, want %d", len(tc.users.created), tc.wantCreates)
			}
		})
	}
}

// wrongCode returns a 4-digit code different from the given one.
func wrongCode(code string) string {
	if code == "1000" {
		return "1001"
	}
	return "1000"
}

// Login

func storedUser(t *testing.T) user.User {
	t.Helper()

	hash, err := security.HashPassword("password123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	return user.User{
		ID:           "user-1",
		Name:         "Sam Doe",
		Email:        "sam@example.com",
		PasswordHash: hash,
		Role:         "user",
		IsVerified:   true,
	}
}

func TestLoginSuccess(t *testing.T) {
	u := storedUser(t)

	users := &fakeUserStore{
		getByEmailFn: func(_ context.Context, email string) (user.User, error) {
			if email == u.Email {
				return u, nil
			}
			return user.User{}, postgres.ErrUserNotFound
		},
	}
	sessions := &fakeSessionStore{}

	h := newAuthHandler(users, sessions, &recordingMailer{})
	r := setupAuthRouter(h)

	w := doRequest(r, http.MethodPost, "/login", `{"email":"sam@example.com","password":"password123"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}

	var resp envelope
	mustReadJSON(t, w, &resp)

	if !resp.Success || resp.Token == "" {
		t.Fatalf("expected success with token, got %+v", resp)
	}

	claims, err := testIssuer().VerifyAccessToken(resp.Token)

	if err != nil {
		t.Fatalf("returned token does not verify: %v", err)
	}

	if claims.UserID != u.ID {
		t.Fatalf("token bound to %q, want %q", claims.UserID, u.ID)
	}

	// session cached under the user's identity
	if len(sessions.puts) != 1 || sessions.puts[0] != u.ID {
		t.Fatalf("session cache puts = %v, want [%q]", sessions.puts, u.ID)
	}

	// both cookies set, http-only, bounded lifetimes
	access := findCookie(t, w, "access_token")
	refresh := findCookie(t, w, "refresh_token")

	if !access.HttpOnly || !refresh.HttpOnly {
		t.Fatalf("session cookies must be http-only")
	}

	if access.MaxAge != 300 || refresh.MaxAge != 3600 {
		t.Fatalf("cookie max-ages = %d/%d, want 300/3600", access.MaxAge, refresh.MaxAge)
	}

	// hash never serialized to the client
	if strings.Contains(w.Body.String(), u.PasswordHash) {
		t.Fatalf("password hash leaked into the response")
	}
}

func TestLoginUniformFailureMessage(t *testing.T) {
	u := storedUser(t)

	users := &fakeUserStore{
		getByEmailFn: func(_ context.Context, email string) (user.User, error) {
			if email == u.Email {
				return u, nil
			}
			return user.User{}, postgres.ErrUserNotFound
		},
	}

	h := newAuthHandler(users, &fakeSessionStore{}, &recordingMailer{})
	r := setupAuthRouter(h)

	wrongPassword := doRequest(r, http.MethodPost, "/login", `{"email":"sam@example.com","password":"wrong-password"}`)
	unknownEmail := doRequest(r, http.MethodPost, "/login", `{"email":"ghost@example.com","password":"password123"}`)

	if wrongPassword.Code != http.StatusBadRequest || unknownEmail.Code != http.StatusBadRequest {
		t.Fatalf("got statuses %d and %d, want 400 for both", wrongPassword.Code, unknownEmail.Code)
	}

	// identical body for both failures, so accounts cannot be enumerated
	if wrongPassword.Body.String() != unknownEmail.Body.String() {
		t.Fatalf("wrong-password body %q differs from unknown-email body %q",
			wrongPassword.Body.String(), unknownEmail.Body.String())
	}

	var resp envelope
	mustReadJSON(t, wrongPassword, &resp)

	if resp.Message != "invalid email or password" {
		t.Fatalf("message = %q, want %q", resp.Message, "invalid email or password")
	}
}

// Logout

func TestLogoutClearsCookiesAndSession(t *testing.T) {
	sessions := &fakeSessionStore{}
	h := newAuthHandler(&fakeUserStore{}, sessions, &recordingMailer{})
	r := setupAuthRouter(h)

	token, err := testIssuer().SignAccessToken("user-1")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	w := doRequest(r, http.MethodGet, "/logout", "", &http.Cookie{Name: "access_token", Value: token})

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}

	access := findCookie(t, w, "access_token")
	refresh := findCookie(t, w, "refresh_token")

	if access.MaxAge >= 0 || refresh.MaxAge >= 0 {
		t.Fatalf("cookies not expired: max-ages %d/%d", access.MaxAge, refresh.MaxAge)
	}

	if len(sessions.deletes) != 1 || sessions.deletes[0] != "user-1" {
		t.Fatalf("session deletes = %v, want [%q]", sessions.deletes, "user-1")
	}
}

func TestLogoutAlwaysSucceeds(t *testing.T) {
	tests := []struct {
		name    string
		cookies []*http.Cookie
		deleteFn func(ctx context.Context, userID string) error
	}{
		{name: "no session cookie"},
		{
			name:    "garbage token",
			cookies: []*http.Cookie{{Name: "access_token", Value: "not-a-jwt"}},
		},
		{
			name: "cache delete fails",
			cookies: func() []*http.Cookie {
				token, _ := testIssuer().SignAccessToken("user-1")
				return []*http.Cookie{{Name: "access_token", Value: token}}
			}(),
			deleteFn: func(context.Context, string) error { return errors.New("redis down") },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sessions := &fakeSessionStore{deleteFn: tc.deleteFn}
			h := newAuthHandler(&fakeUserStore{}, sessions, &recordingMailer{})
			r := setupAuthRouter(h)

			w := doRequest(r, http.MethodGet, "/logout", "", tc.cookies...)

			if w.Code != http.StatusOK {
				t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
			}

			var resp envelope
			mustReadJSON(t, w, &resp)

			if !resp.Success {
				t.Fatalf("logout must always report success")
			}

			access := findCookie(t, w, "access_token")
			refresh := findCookie(t, w, "refresh_token")

			if access.MaxAge >= 0 || refresh.MaxAge >= 0 {
				t.Fatalf("cookies not expired: max-ages %d/%d", access.MaxAge, refresh.MaxAge)
			}
		})
	}
}
