package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("auth: missing token")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Claims identifies the operator behind a request. Name is recorded as the
// actor on acknowledged and resolved alerts.
type Claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the resolved caller of a request.
type Identity struct {
	Subject string
	Name    string
	Role    Role
	// Anonymous is set when authentication is disabled.
	Anonymous bool
}

// Actor is the name written into the alert lifecycle.
func (i Identity) Actor() string {
	if i.Name != "" {
		return i.Name
	}
	return i.Subject
}

type Authenticator struct {
	secret     []byte
	issuer     string
	expiration time.Duration
	now        func() time.Time
}

func NewAuthenticator(secret, issuer string, expirationHours int) *Authenticator {
	if expirationHours <= 0 {
		expirationHours = 24
	}
	return &Authenticator{
		secret:     []byte(secret),
		issuer:     issuer,
		expiration: time.Duration(expirationHours) * time.Hour,
		now:        time.Now,
	}
}

// IssueToken signs an HS256 token for the given operator.
func (a *Authenticator) IssueToken(subject, name string, role Role) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("auth: empty secret")
	}
	normalized, ok := NormalizeRole(string(role))
	if !ok {
		return "", errors.New("auth: invalid role")
	}
	if subject == "" {
		return "", errors.New("auth: empty subject")
	}

	now := a.now()
	claims := Claims{
		Name: name,
		Role: string(normalized),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expiration)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse validates a token and returns the identity it carries.
func (a *Authenticator) Parse(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrMissingToken
	}
	if len(a.secret) == 0 {
		return Identity{}, errors.New("auth: empty secret")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &Claims{}
	token, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("auth: invalid signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return Identity{}, errors.Join(ErrInvalidToken, err)
	}
	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Identity{}, errors.Join(ErrInvalidToken, errors.New("auth: missing subject"))
	}
	role, ok := NormalizeRole(claims.Role)
	if !ok {
		return Identity{}, errors.Join(ErrInvalidToken, errors.New("auth: invalid role"))
	}

	return Identity{Subject: claims.Subject, Name: claims.Name, Role: role}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
