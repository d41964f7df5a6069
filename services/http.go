package services

import (
	"fmt"
	"os"
	"strconv"

	"github.com/alphabatem/common/context"
	"github.com/ezfoia/foia_api/docs"
	"github.com/ezfoia/foia_api/services/handlers"
	"github.com/ezfoia/foia_api/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/swagger"
	"github.com/rs/zerolog/log"
)

const APP_NAME = "EZFOIA API"

type HttpService struct {
	context.DefaultService

	authSvc         *AuthMiddleware
	rateLimitSvc    *RateLimitService
	monitoringSvc   *MonitoringService
	submissionSvc   *SubmissionService
	draftingSvc     *DraftingService
	foiaSvc         *FoiaService
	profileSvc      *ProfileService
	documentSvc     *DocumentService
	chatSvc         *ChatService
	billingSvc      *BillingService
	notificationSvc *NotificationService
	twilioSvc       *TwilioService

	port int
	app  *fiber.App
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *context.Context) error {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		var err error
		if svc.port, err = strconv.Atoi(port); err != nil {
			return err
		}
	} else {
		svc.port = 8000
	}

	svc.authSvc = ctx.Service(AUTH_MIDDLEWARE_SVC).(*AuthMiddleware)
	svc.rateLimitSvc = ctx.Service(RATE_LIMIT_SVC).(*RateLimitService)
	svc.submissionSvc = ctx.Service(SUBMISSION_SVC).(*SubmissionService)
	svc.draftingSvc = ctx.Service(DRAFTING_SVC).(*DraftingService)
	svc.foiaSvc = ctx.Service(FOIA_SVC).(*FoiaService)
	svc.profileSvc = ctx.Service(PROFILE_SVC).(*ProfileService)
	svc.documentSvc = ctx.Service(DOCUMENT_SVC).(*DocumentService)
	svc.chatSvc = ctx.Service(CHAT_SVC).(*ChatService)
	svc.billingSvc = ctx.Service(BILLING_SVC).(*BillingService)
	svc.notificationSvc = ctx.Service(NOTIFICATION_SVC).(*NotificationService)
	svc.twilioSvc = ctx.Service(TWILIO_SVC).(*TwilioService)
	if mon, ok := ctx.Service(MONITORING_SVC).(*MonitoringService); ok {
		svc.monitoringSvc = mon
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	svc.app = handlers.NewApp(APP_NAME)
	docs.SwaggerInfo.BasePath = ""

	if os.Getenv("LOG_LEVEL") == "TRACE" {
		svc.app.Use(logger.New())
	}
	if svc.monitoringSvc != nil {
		svc.app.Use(MonitoringMiddleware(svc.monitoringSvc))
	}

	//Validation endpoints
	svc.app.Get("/ping", svc.ping)
	svc.app.Get("/api/v1/ping", svc.ping)
	svc.app.Get("/swagger/*", swagger.HandlerDefault)

	handlers.Register(svc.app, handlers.Routes{
		Functions: handlers.NewFunctionsHandler(
			svc.documentSvc,
			svc.billingSvc,
			svc.chatSvc,
			svc.draftingSvc,
			svc.notificationSvc,
			svc.twilioSvc,
		),
		Requests: handlers.NewRequestHandler(svc.submissionSvc, svc.foiaSvc),
		Profile:  handlers.NewProfileHandler(svc.profileSvc),

		RequireAuth:       svc.authSvc.RequiredAuth(),
		RequireAdmin:      svc.authSvc.RequiredAdmin(),
		ChatLimit:         svc.rateLimitSvc.Middleware(LimiterChat),
		SubscriptionLimit: svc.rateLimitSvc.Middleware(LimiterSubscription),
	})

	svc.app.Use(func(c *fiber.Ctx) error {
		return shared.NewNotFoundError(nil, "Not Found")
	})

	log.Info().Int("port", svc.port).Msg("HTTP server starting")
	return svc.app.Listen(fmt.Sprintf(":%v", svc.port))
}

func (svc *HttpService) Shutdown() {
	if svc.app != nil {
		_ = svc.app.Shutdown()
	}
}

// @Summary Ping
// @Description This endpoint checks the health of the service
// @Tags health
// @Accept  json
// @Produce json
// @Success 200 {object} shared.Response{data=string}
// @Router /ping [get]
func (svc *HttpService) ping(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "max-age=10")

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", "pong")
}
