package auth

import (
	"errors"
	"strings"

	"github.com/harrylevesque/csms/internal/config"
	"golang.org/x/crypto/bcrypt"
)

var hashCost = bcrypt.DefaultCost

// HashPassword hashes the password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	return string(bytes), err
}

// CheckPasswordHash checks if the password matches the hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// operatorHash returns the bcrypt hash for the configured operator, hashing a
// plain password when no hash is configured.
func operatorHash(cfg config.AuthConfig) (string, error) {
	if strings.HasPrefix(cfg.PasswordHash, "$2") {
		if _, err := bcrypt.Cost([]byte(cfg.PasswordHash)); err != nil {
			return "", errors.New("auth.password_hash is not a valid bcrypt hash")
		}
		return cfg.PasswordHash, nil
	}
	if cfg.PasswordHash != "" {
		return "", errors.New("auth.password_hash must be a bcrypt hash")
	}
	if cfg.Password == "" {
		return "", errors.New("no operator password configured")
	}
	return HashPassword(cfg.Password)
}
