package services

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/ezfoia/foia_api/dto"
	"github.com/ezfoia/foia_api/shared"
	"github.com/golang-jwt/jwt/v5"
)

// JWTService verifies the HS256 access tokens issued by the hosted auth platform.
type JWTService struct {
	context.DefaultService

	AccessTokenDuration time.Duration
	jwtSecretKey        string
}

// AuthClaims mirrors the hosted platform's access token payload.
type AuthClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

const JWT_SVC = "jwt_svc"

var (
	ErrMissingAuthHeader = errors.New("authorization header is missing")
	ErrInvalidAuthHeader = errors.New("invalid authorization header format")
	ErrInvalidToken      = errors.New("invalid token")
)

func (svc JWTService) Id() string {
	return JWT_SVC
}

func (svc *JWTService) Configure(ctx *context.Context) error {
	svc.AccessTokenDuration = time.Hour
	svc.jwtSecretKey = os.Getenv("SUPABASE_JWT_SECRET")
	return svc.DefaultService.Configure(ctx)
}

func (svc *JWTService) Start() error {
	return nil
}

// NewJWTService builds a verifier outside the service container.
func NewJWTService(secret string) *JWTService {
	return &JWTService{AccessTokenDuration: time.Hour, jwtSecretKey: secret}
}

func (svc *JWTService) VerifyJWTToken(jwtToken string) (*dto.AuthUser, error) {
	if svc.jwtSecretKey == "" {
		return nil, fmt.Errorf("jwt secret: %w", shared.ErrServiceUnavailable)
	}

	token, err := jwt.ParseWithClaims(jwtToken, &AuthClaims{}, svc.getJWTKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &dto.AuthUser{
		ID:    claims.Subject,
		Email: claims.Email,
		Role:  claims.Role,
	}, nil
}

func (svc *JWTService) getJWTKey(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}

	return []byte(svc.jwtSecretKey), nil
}

// ToJWT signs a token in the platform's format. Used by the seed command and tests.
func (svc *JWTService) ToJWT(userID, email string) (string, error) {
	now := time.Now()
	claims := &AuthClaims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(svc.AccessTokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(svc.jwtSecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

func (svc *JWTService) ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return "", ErrInvalidAuthHeader
	}

	token := strings.TrimSpace(authHeader[7:])
	if token == "" {
		return "", ErrInvalidAuthHeader
	}
	return token, nil
}
