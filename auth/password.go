package auth

import (
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/AleBustamante/moviereviews/models"
)

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// AdminPolicy decides the role granted at registration. An email on the
// allowlist is always admin; otherwise the shared code must match and be non-empty.
type AdminPolicy struct {
	Code   string
	emails map[string]struct{}
}

func NewAdminPolicy(code string, emails []string) AdminPolicy {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			set[e] = struct{}{}
		}
	}
	return AdminPolicy{Code: code, emails: set}
}

func (p AdminPolicy) RoleFor(email, code string) string {
	if _, ok := p.emails[strings.ToLower(strings.TrimSpace(email))]; ok {
		return models.RoleAdmin
	}
	if p.Code != "" && code == p.Code {
		return models.RoleAdmin
	}
	return models.RoleUser
}
