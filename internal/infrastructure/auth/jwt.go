package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/servora/servora/internal/shared/authorization"
	"github.com/servora/servora/internal/shared/biztime"
)

const defaultTokenTTL = 60 * time.Minute

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims carries the acting user: subject is the user id.
type Claims struct {
	Role       authorization.UserRole `json:"role"`
	Department string                 `json:"department,omitempty"`
	jwt.RegisteredClaims
}

type JWTService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewJWTService creates an HS256 token service. A non-positive ttl selects one hour.
func NewJWTService(secret, issuer string, ttl time.Duration) *JWTService {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &JWTService{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

// Generate signs a token for the actor.
func (s *JWTService) Generate(actor authorization.Actor) (string, error) {
	if actor.ID == "" {
		return "", fmt.Errorf("actor id is required")
	}
	if !actor.Role.IsValid() {
		return "", fmt.Errorf("invalid role: %s", actor.Role)
	}

	now := biztime.NowUTC()
	claims := &Claims{
		Role:       actor.Role,
		Department: actor.Department,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a bearer token and returns the actor it names.
func (s *JWTService) Verify(tokenString string) (authorization.Actor, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return authorization.Actor{}, ErrTokenExpired
		}
		return authorization.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return authorization.Actor{}, ErrInvalidToken
	}
	if claims.Subject == "" || !claims.Role.IsValid() {
		return authorization.Actor{}, fmt.Errorf("%w: missing subject or role", ErrInvalidToken)
	}

	return authorization.Actor{
		ID:         claims.Subject,
		Role:       claims.Role,
		Department: claims.Department,
	}, nil
}

// TTL returns the lifetime of issued tokens.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}
