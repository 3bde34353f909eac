package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey      string
	ExpirationHours int
}

// UserClaims represents the session claims carried in the auth cookie
type UserClaims struct {
	UserID    string  `json:"userId"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	CompanyID *string `json:"companyId"`
	ReadOnly  bool    `json:"readOnly,omitempty"`
	jwt.RegisteredClaims
}

// Company returns the company id or "" when the user has none
func (c *UserClaims) Company() string {
	if c == nil || c.CompanyID == nil {
		return ""
	}
	return *c.CompanyID
}

// JWTUtil is a utility for JWT token operations
type JWTUtil struct {
	config *JWTConfig
	now    func() time.Time
}

// NewJWTUtil creates a new JWT utility with the given configuration
func NewJWTUtil(config *JWTConfig) *JWTUtil {
	return &JWTUtil{
		config: config,
		now:    time.Now,
	}
}

// TTL returns how long issued tokens stay valid
func (j *JWTUtil) TTL() time.Duration {
	if j.config == nil {
		return 0
	}
	return time.Duration(j.config.ExpirationHours) * time.Hour
}

// GenerateToken signs an HS256 session token for the user
func (j *JWTUtil) GenerateToken(userID, email, role string, companyID *string) (string, error) {
	return j.sign(userID, email, role, companyID, false)
}

// GenerateReadOnlyToken signs a session that may only read, used for the shared guest account
func (j *JWTUtil) GenerateReadOnlyToken(userID, email, role string, companyID *string) (string, error) {
	return j.sign(userID, email, role, companyID, true)
}

func (j *JWTUtil) sign(userID, email, role string, companyID *string, readOnly bool) (string, error) {
	if j.config == nil {
		return "", errors.New("JWT configuration not provided")
	}

	now := j.now()
	claims := UserClaims{
		UserID:    userID,
		Email:     email,
		Role:      role,
		CompanyID: companyID,
		ReadOnly:  readOnly,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(j.TTL())),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.config.SigningKey))
}

// ValidateToken validates and parses the JWT token
func (j *JWTUtil) ValidateToken(tokenString string) (*UserClaims, error) {
	if j.config == nil {
		return nil, errors.New("JWT configuration not provided")
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&UserClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(j.config.SigningKey), nil
		},
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
