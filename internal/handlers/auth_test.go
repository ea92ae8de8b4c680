package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"cattube/internal/models"
)

func loginRequest(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/accounts/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestLogin_SetsSessionAndRedirects(t *testing.T) {
	env := newTestEnv(t)
	id := env.createUser(t, "whiskers", "Meow1234!")
	h := NewAuthHandler(env.auth, env.sessions, env.pages)

	rr := httptest.NewRecorder()
	h.Login(rr, loginRequest(url.Values{"username": {"whiskers"}, "password": {"Meow1234!"}, "next": {"/upload"}}))

	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/upload" {
		t.Fatalf("expected redirect to /upload, got %d %q", rr.Code, rr.Header().Get("Location"))
	}

	cookies := rr.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("expected session cookie")
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	got, username, ok := env.sessions.CurrentUser(req)
	if !ok || got != id || username != "whiskers" {
		t.Fatalf("session does not carry the user: %v %q %v", got, username, ok)
	}
}

func TestLogin_RejectsOffsiteNext(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "whiskers", "Meow1234!")
	h := NewAuthHandler(env.auth, env.sessions, env.pages)

	rr := httptest.NewRecorder()
	h.Login(rr, loginRequest(url.Values{"username": {"whiskers"}, "password": {"Meow1234!"}, "next": {"https://evil.com"}}))

	if rr.Header().Get("Location") != "/" {
		t.Fatalf("expected redirect to /, got %q", rr.Header().Get("Location"))
	}
}

func TestLogin_BadPasswordReRenders(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "whiskers", "Meow1234!")
	h := NewAuthHandler(env.auth, env.sessions, env.pages)

	rr := httptest.NewRecorder()
	h.Login(rr, loginRequest(url.Values{"username": {"whiskers"}, "password": {"wrong"}}))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Please enter a correct username and password") {
		t.Fatalf("expected login error in page")
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Fatalf("expected no session cookie")
	}
}

func TestLogout_ClearsSession(t *testing.T) {
	env := newTestEnv(t)
	id := env.createUser(t, "whiskers", "Meow1234!")
	h := NewAuthHandler(env.auth, env.sessions, env.pages)

	req := httptest.NewRequest(http.MethodPost, "/accounts/logout", nil)
	req.AddCookie(env.sessionCookie(t, id, "whiskers"))
	rr := httptest.NewRecorder()
	h.Logout(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) == 0 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected an expiring cookie, got %v", cookies)
	}
}

func TestToken(t *testing.T) {
	env := newTestEnv(t)
	id := env.createUser(t, "whiskers", "Meow1234!")
	h := NewAuthHandler(env.auth, env.sessions, env.pages)

	rr := httptest.NewRecorder()
	h.Token(rr, httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(`{"username":"whiskers","password":"Meow1234!"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var tokens models.AuthTokens
	if err := json.Unmarshal(rr.Body.Bytes(), &tokens); err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, err := env.jwt.ParseToken(tokens.AccessToken)
	if err != nil || got != id {
		t.Fatalf("token does not resolve to user: %v %v", got, err)
	}

	rr = httptest.NewRecorder()
	h.Token(rr, httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(`{"username":"whiskers","password":"nope"}`)))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
