// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// auth_flow_test.go covers the Auth handlers: LoginPage, LoginSubmit,
// TwoFASetupPage, TwoFAVerifyPage, TwoFAVerifySubmit and Logout.
package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uch/internal/models"
	"uch/internal/session"
)

const testTOTPSecret = "JBSWY3DPEHPK3PXP"

// signedIn creates a stored session and returns a request carrying its
// cookie and context value.
func signedIn(t *testing.T, env *testEnv, req *http.Request, user models.User, twoFADone bool) (*http.Request, *session.Data) {
	t.Helper()
	data := &session.Data{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        string(user.Role),
		TwoFADone:   twoFADone,
	}
	rec := httptest.NewRecorder()
	_, err := env.Sessions.Create(context.Background(), rec, data)
	require.NoError(t, err)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req.WithContext(ctxWithSession(req.Context(), data)), data
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "/articles/hello/#comments", want: "/articles/hello/#comments"},
		{in: "/blog/?page=2", want: "/blog/?page=2"},
		{in: "https://evil.example/", want: ""},
		{in: "//evil.example/", want: ""},
		{in: "/\\evil.example", want: ""},
		{in: "javascript:alert(1)", want: ""},
		{in: "relative/path", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeNext(tt.in), "safeNext(%q)", tt.in)
	}
}

func TestLoginPage_ReturnsHTML(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.Auth.LoginPage(rec, httptest.NewRequest(http.MethodGet, "/admin/login?next=%2Farticles%2F", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `name="next" value="/articles/"`)
}

func TestLoginPage_AuthenticatedRedirects(t *testing.T) {
	tests := []struct {
		role string
		next string
		want string
	}{
		{role: "admin", want: "/admin/dashboard"},
		{role: "reader", want: "/"},
		{role: "reader", next: "/articles/x/", want: "/articles/x/"},
		{role: "editor", next: "https://evil.example/", want: "/admin/dashboard"},
	}
	for _, tt := range tests {
		t.Run(tt.role+tt.next, func(t *testing.T) {
			env := newTestEnv(t)
			target := "/admin/login"
			if tt.next != "" {
				target += "?next=" + url.QueryEscape(tt.next)
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			req = req.WithContext(ctxWithSession(req.Context(), testSession(uuid.New(), "u@example.com", tt.role, true)))
			rec := httptest.NewRecorder()
			env.Auth.LoginPage(rec, req)

			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Location"))
		})
	}
}

func TestLoginPage_PartialSessionDoesNotRedirect(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/login", nil)
	req = req.WithContext(ctxWithSession(req.Context(), testSession(uuid.New(), "u@example.com", "admin", false)))
	rec := httptest.NewRecorder()
	env.Auth.LoginPage(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginSubmit(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		next     string
		status   int
		location string
	}{
		{name: "enrolled user goes to verify", email: "enrolled@example.com", password: "password1", status: http.StatusSeeOther, location: "/admin/2fa/verify"},
		{name: "new user goes to setup", email: "fresh@example.com", password: "password1", status: http.StatusSeeOther, location: "/admin/2fa/setup"},
		{name: "next is carried", email: "enrolled@example.com", password: "password1", next: "/articles/a/#comments", status: http.StatusSeeOther, location: "/admin/2fa/verify?next=%2Farticles%2Fa%2F%23comments"},
		{name: "foreign next dropped", email: "enrolled@example.com", password: "password1", next: "//evil.example", status: http.StatusSeeOther, location: "/admin/2fa/verify"},
		{name: "wrong password", email: "enrolled@example.com", password: "nope", status: http.StatusUnauthorized},
		{name: "unknown email", email: "ghost@example.com", password: "password1", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.Users.add(t, "enrolled@example.com", "password1", models.RoleAdmin, testTOTPSecret)
			env.Users.add(t, "fresh@example.com", "password1", models.RoleReader, "")

			form := url.Values{"email": {tt.email}, "password": {tt.password}, "next": {tt.next}}
			rec := httptest.NewRecorder()
			env.Auth.LoginSubmit(rec, postForm("/admin/login", form))

			require.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), "Invalid email or password.")
				assert.Empty(t, rec.Result().Cookies(), "no session on failure")
				return
			}
			assert.Equal(t, tt.location, rec.Header().Get("Location"))

			var cookie *http.Cookie
			for _, c := range rec.Result().Cookies() {
				if c.Name == session.CookieName {
					cookie = c
				}
			}
			require.NotNil(t, cookie, "session cookie should be set")
			stored, err := env.Valkey.Get("session:" + cookie.Value)
			require.NoError(t, err)
			assert.Contains(t, stored, `"two_fa_done":false`)
		})
	}
}

func TestTwoFASetupPage(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.Auth.TwoFASetupPage(rec, httptest.NewRequest(http.MethodGet, "/admin/2fa/setup", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))

	user := env.Users.add(t, "fresh@example.com", "password1", models.RoleReader, "")
	req, _ := signedIn(t, env, httptest.NewRequest(http.MethodGet, "/admin/2fa/setup?next=%2Farticles%2F", nil), user, false)
	rec = httptest.NewRecorder()
	env.Auth.TwoFASetupPage(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "data:image/png;base64,")
	stored, _ := env.Users.FindByID(user.ID)
	require.NotNil(t, stored.TOTPSecret)
	assert.Contains(t, body, *stored.TOTPSecret)
	assert.False(t, stored.TOTPEnabled, "2FA is enabled only after the first valid code")
}

func TestTwoFAVerifyPage(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.Auth.TwoFAVerifyPage(rec, httptest.NewRequest(http.MethodGet, "/admin/2fa/verify", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	user := env.Users.add(t, "enrolled@example.com", "password1", models.RoleAdmin, testTOTPSecret)
	req, _ := signedIn(t, env, httptest.NewRequest(http.MethodGet, "/admin/2fa/verify", nil), user, false)
	rec = httptest.NewRecorder()
	env.Auth.TwoFAVerifyPage(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTwoFAVerifySubmit_ValidCodeCompletesSignIn(t *testing.T) {
	env := newTestEnv(t)
	user := env.Users.add(t, "reader@example.com", "password1", models.RoleReader, testTOTPSecret)

	code, err := totp.GenerateCode(testTOTPSecret, time.Now())
	require.NoError(t, err)
	form := url.Values{"code": {code}, "next": {"/articles/hello/#comments"}}
	req, _ := signedIn(t, env, postForm("/admin/2fa/verify", form), user, false)
	rec := httptest.NewRecorder()
	env.Auth.TwoFAVerifySubmit(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/articles/hello/#comments", rec.Header().Get("Location"))

	cookie, err := req.Cookie(session.CookieName)
	require.NoError(t, err)
	stored, err := env.Valkey.Get("session:" + cookie.Value)
	require.NoError(t, err)
	assert.Contains(t, stored, `"two_fa_done":true`)
}

func TestTwoFAVerifySubmit_FirstCodeEnablesTOTP(t *testing.T) {
	env := newTestEnv(t)
	user := env.Users.add(t, "new@example.com", "password1", models.RoleEditor, "")
	require.NoError(t, env.Users.SetTOTPSecret(user.ID, testTOTPSecret))

	code, err := totp.GenerateCode(testTOTPSecret, time.Now())
	require.NoError(t, err)
	req, _ := signedIn(t, env, postForm("/admin/2fa/verify", url.Values{"code": {code}}), user, false)
	rec := httptest.NewRecorder()
	env.Auth.TwoFAVerifySubmit(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/dashboard", rec.Header().Get("Location"))
	stored, _ := env.Users.FindByID(user.ID)
	assert.True(t, stored.TOTPEnabled)
}

func TestTwoFAVerifySubmit_InvalidCode(t *testing.T) {
	env := newTestEnv(t)
	enrolled := env.Users.add(t, "enrolled@example.com", "password1", models.RoleAdmin, testTOTPSecret)
	pending := env.Users.add(t, "pending@example.com", "password1", models.RoleAdmin, "")
	require.NoError(t, env.Users.SetTOTPSecret(pending.ID, testTOTPSecret))

	req, _ := signedIn(t, env, postForm("/admin/2fa/verify", url.Values{"code": {"000000x"}}), enrolled, false)
	rec := httptest.NewRecorder()
	env.Auth.TwoFAVerifySubmit(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid code")

	// During enrollment the QR code is shown again with the same secret.
	req, _ = signedIn(t, env, postForm("/admin/2fa/verify", url.Values{"code": {"000000x"}}), pending, false)
	rec = httptest.NewRecorder()
	env.Auth.TwoFAVerifySubmit(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), testTOTPSecret)
}

func TestTwoFAVerifySubmit_NoSecretRedirectsToSetup(t *testing.T) {
	env := newTestEnv(t)
	user := env.Users.add(t, "fresh@example.com", "password1", models.RoleReader, "")

	req, _ := signedIn(t, env, postForm("/admin/2fa/verify", url.Values{"code": {"123456"}}), user, false)
	rec := httptest.NewRecorder()
	env.Auth.TwoFAVerifySubmit(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/2fa/setup", rec.Header().Get("Location"))
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	user := env.Users.add(t, "enrolled@example.com", "password1", models.RoleAdmin, testTOTPSecret)
	req, _ := signedIn(t, env, postForm("/admin/logout", nil), user, true)
	cookie, err := req.Cookie(session.CookieName)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	env.Auth.Logout(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))
	assert.False(t, env.Valkey.Exists("session:"+cookie.Value))
}
