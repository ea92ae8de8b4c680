package middleware

import (
	"crypto/sha256"
	"crypto/sha512"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"cattube/internal/logger"
)

const (
	sessionName   = "cattube_session"
	sessionUserID = "user_id"
	sessionUser   = "username"

	LoginPath = "/accounts/login"
)

// Sessions authenticates browser pages with a signed and encrypted cookie.
type Sessions struct {
	Store *sessions.CookieStore
}

// NewSessions derives the cookie signing and encryption keys from secret.
func NewSessions(secret string, secure bool) *Sessions {
	hashKey := sha512.Sum512([]byte("cattube-session-auth:" + secret))
	blockKey := sha256.Sum256([]byte("cattube-session-enc:" + secret))

	store := sessions.NewCookieStore(hashKey[:], blockKey[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 14,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{Store: store}
}

// Login stores the user in the session cookie.
func (s *Sessions) Login(w http.ResponseWriter, r *http.Request, userID uuid.UUID, username string) error {
	session, _ := s.Store.Get(r, sessionName)
	session.Values[sessionUserID] = userID.String()
	session.Values[sessionUser] = username
	return session.Save(r, w)
}

func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.Store.Get(r, sessionName)
	for key := range session.Values {
		delete(session.Values, key)
	}
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// CurrentUser returns the logged in user, if any.
func (s *Sessions) CurrentUser(r *http.Request) (uuid.UUID, string, bool) {
	session, err := s.Store.Get(r, sessionName)
	if err != nil || session.IsNew {
		return uuid.Nil, "", false
	}

	idStr, _ := session.Values[sessionUserID].(string)
	username, _ := session.Values[sessionUser].(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, "", false
	}
	return id, username, true
}

// Load attaches the session user, when present, to the request context.
func (s *Sessions) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, _, ok := s.CurrentUser(r); ok {
			r = r.WithContext(WithUserID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireLogin redirects anonymous visitors to the login page.
func (s *Sessions) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _, ok := s.CurrentUser(r)
		if !ok {
			logger.Debugf("anonymous request to %s, redirecting to login", r.URL.Path)
			http.Redirect(w, r, LoginPath+"?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
	})
}
