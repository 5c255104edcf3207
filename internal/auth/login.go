package auth

import (
	"errors"
	"net/http"
	"strings"
)

// ErrMissingCredentials is returned when the login form lacks a field.
var ErrMissingCredentials = errors.New("username and password are required")

// LoginRequest represents the login form
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	CSRF     string `json:"-"`
}

// ParseLoginForm reads the posted login form.
func ParseLoginForm(r *http.Request) (LoginRequest, error) {
	if err := r.ParseForm(); err != nil {
		return LoginRequest{}, err
	}
	req := LoginRequest{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
		CSRF:     r.PostFormValue(CSRFField),
	}
	if req.Username == "" || req.Password == "" {
		return req, ErrMissingCredentials
	}
	return req, nil
}
