package services

import (
	"github.com/alphabatem/common/context"
	"github.com/ezfoia/foia_api/middleware"
	"github.com/ezfoia/foia_api/shared"
	"github.com/gofiber/fiber/v2"
)

type AuthMiddleware struct {
	context.DefaultService

	pgSvc  *PostgresService
	jwtSvc *JWTService
}

const AUTH_MIDDLEWARE_SVC = "auth"

func (svc AuthMiddleware) Id() string {
	return AUTH_MIDDLEWARE_SVC
}

func (svc *AuthMiddleware) Configure(ctx *context.Context) error {
	svc.pgSvc = ctx.Service(POSTGRES_SVC).(*PostgresService)
	svc.jwtSvc = ctx.Service(JWT_SVC).(*JWTService)
	return svc.DefaultService.Configure(ctx)
}

func (svc *AuthMiddleware) Start() error {
	return nil
}

// RequiredAuth rejects requests without a valid bearer token.
func (svc *AuthMiddleware) RequiredAuth() fiber.Handler {
	return middleware.RequiredAuth(svc.jwtSvc)
}

// RequiredAdmin must follow RequiredAuth. Call it after the database has
// started.
func (svc *AuthMiddleware) RequiredAdmin() fiber.Handler {
	return middleware.RequireRole(svc.pgSvc.Profiles(), shared.RoleAdmin)
}
