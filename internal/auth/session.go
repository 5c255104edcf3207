package auth

import (
	"context"
	"crypto/hmac"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/harrylevesque/csms/internal/config"
	"github.com/harrylevesque/csms/internal/crypto"
	"github.com/harrylevesque/csms/internal/utils"
)

var (
	// ErrInvalidCredentials is returned when the provided credentials are invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionNotFound is returned when a session is not found.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when a session has expired.
	ErrSessionExpired = errors.New("session expired")
)

const (
	// CSRFCookie holds the double-submit token.
	CSRFCookie = "csrf-token"
	// CSRFField is the form field carrying the token.
	CSRFField = "csrf_token"
	// CSRFHeader carries the token on script requests.
	CSRFHeader = "X-CSRF-Token"
)

// Identity is the logged-in operator bound to a dashboard session.
type Identity struct {
	Username  string
	SessionID string
	IssuedAt  time.Time
}

// Auth provides authentication and authorization services.
type Auth struct {
	username   string
	hash       string
	store      sessions.Store
	cookieName string
	ttl        time.Duration
	secure     bool
	now        func() time.Time
}

// New creates a new Auth instance for the single configured operator.
func New(ac config.AuthConfig, sc config.SessionConfig, keys crypto.SessionKeys) (*Auth, error) {
	hash, err := operatorHash(ac)
	if err != nil {
		return nil, err
	}
	store := sessions.NewCookieStore(keys.Hash, keys.Block)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(sc.TTL.Seconds()),
		HttpOnly: true,
		Secure:   sc.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Auth{
		username:   ac.Username,
		hash:       hash,
		store:      store,
		cookieName: sc.CookieName,
		ttl:        sc.TTL,
		secure:     sc.Secure,
		now:        time.Now,
	}, nil
}

// Login checks the credentials and issues a fresh session cookie.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request, username, password string) (Identity, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := CheckPasswordHash(password, a.hash)
	if !userOK || !passOK {
		return Identity{}, ErrInvalidCredentials
	}
	session, err := a.store.New(r, a.cookieName)
	if err != nil && session == nil {
		return Identity{}, err
	}
	id := Identity{
		Username:  a.username,
		SessionID: "s--" + uuid.New().String(),
		IssuedAt:  a.now(),
	}
	session.Values["authenticated"] = true
	session.Values["username"] = id.Username
	session.Values["sid"] = id.SessionID
	session.Values["issued"] = id.IssuedAt.Unix()
	if err := a.store.Save(r, w, session); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// Logout expires the session cookie and returns the identity it carried.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) (Identity, error) {
	id, err := a.Current(r)
	session, gerr := a.store.Get(r, a.cookieName)
	if session == nil {
		return id, gerr
	}
	session.Values = map[interface{}]interface{}{}
	session.Options.MaxAge = -1
	if serr := a.store.Save(r, w, session); serr != nil {
		return id, serr
	}
	return id, err
}

// Current returns the identity of the request's session.
func (a *Auth) Current(r *http.Request) (Identity, error) {
	session, err := a.store.Get(r, a.cookieName)
	if err != nil || session == nil {
		return Identity{}, ErrSessionNotFound
	}
	authenticated, _ := session.Values["authenticated"].(bool)
	username, _ := session.Values["username"].(string)
	sid, _ := session.Values["sid"].(string)
	if !authenticated || username == "" || sid == "" {
		return Identity{}, ErrSessionNotFound
	}
	issued, _ := session.Values["issued"].(int64)
	id := Identity{Username: username, SessionID: sid, IssuedAt: time.Unix(issued, 0)}
	if a.ttl > 0 && a.now().After(id.IssuedAt.Add(a.ttl)) {
		return Identity{}, ErrSessionExpired
	}
	return id, nil
}

// IsAuthenticated checks if a user is authenticated.
func (a *Auth) IsAuthenticated(r *http.Request) bool {
	_, err := a.Current(r)
	return err == nil
}

// ===== CSRF =====

// CSRFToken returns the request's CSRF token, setting a new cookie when absent.
func (a *Auth) CSRFToken(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(CSRFCookie); err == nil && c.Value != "" {
		return c.Value
	}
	token := crypto.RandomToken(32)
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookie,
		Value:    token,
		Path:     "/",
		Secure:   a.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return token
}

// ValidateCSRFToken compares token with the CSRF cookie.
func ValidateCSRFToken(r *http.Request, token string) bool {
	cookie, err := r.Cookie(CSRFCookie)
	if err != nil || token == "" {
		return false
	}
	return hmac.Equal([]byte(token), []byte(cookie.Value))
}

// RequestCSRFToken reads the token from the header or the form.
func RequestCSRFToken(r *http.Request) string {
	if t := r.Header.Get(CSRFHeader); t != "" {
		return t
	}
	return r.PostFormValue(CSRFField)
}

// ===== Middleware =====

type ctxKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity set by the middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// Middleware redirects unauthenticated requests to /login.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.Current(r)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// APIMiddleware answers unauthenticated requests with a JSON 401.
func (a *Auth) APIMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.Current(r)
		if err != nil {
			ErrorResponse(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// CSRFMiddleware rejects state-changing requests without a matching token.
func CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
		default:
			if !ValidateCSRFToken(r, RequestCSRFToken(r)) {
				http.Error(w, "invalid csrf token", http.StatusForbidden)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// JSONResponse writes a JSON response.
func JSONResponse(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// ErrorResponse writes an error response. A utils.CustomError answers with
// its own code and message; anything unknown is a 500 without details.
func ErrorResponse(w http.ResponseWriter, err error) {
	var status int
	msg := err.Error()
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrMissingCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionExpired):
		status = http.StatusUnauthorized
	default:
		status, msg = utils.StatusOf(err)
	}
	JSONResponse(w, status, map[string]string{"error": msg})
}
