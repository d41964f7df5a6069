package handlers

import (
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// CorsAllowHeaders is the header set the browser client sends to the
// functions endpoints.
var CorsAllowHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}

// Routes holds everything Register mounts. Guards run in the order listed on
// each route: auth, then admin or rate limit.
type Routes struct {
	Functions *FunctionsHandler
	Requests  *RequestHandler
	Profile   *ProfileHandler

	RequireAuth       fiber.Handler
	RequireAdmin      fiber.Handler
	ChatLimit         fiber.Handler
	SubscriptionLimit fiber.Handler
}

// NewApp builds the fiber app with the shared error handler, panic recovery
// and permissive CORS.
func NewApp(appName string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      appName,
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
		ErrorHandler: ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: strings.Join([]string{fiber.MethodGet, fiber.MethodPost, fiber.MethodPut, fiber.MethodOptions}, ","),
		AllowHeaders: strings.Join(CorsAllowHeaders, ", "),
	}))

	return app
}

func Register(app *fiber.App, r Routes) {
	fn := app.Group("/functions/v1")
	// Preflights without Origin still get an answer.
	fn.Options("/*", preflight)

	fn.Post("/analyze-document", r.RequireAuth, r.Functions.AnalyzeDocument)
	fn.Post("/check-subscription", r.SubscriptionLimit, r.RequireAuth, r.Functions.CheckSubscription)
	fn.Post("/foia-chat", r.ChatLimit, r.Functions.Chat)
	fn.Post("/generate-foia", r.Functions.GenerateFoia)
	fn.Get("/get-stripe-config", r.Functions.StripeConfig)
	fn.Post("/get-stripe-config", r.Functions.StripeConfig)
	fn.Post("/notify-status-change", r.RequireAuth, r.RequireAdmin, r.Functions.NotifyStatusChange)
	fn.Post("/twilio-message-status", r.RequireAuth, r.RequireAdmin, r.Functions.TwilioMessageStatus)

	v1 := app.Group("/api/v1")

	requests := v1.Group("/requests")
	requests.Post("/validate", r.Requests.ValidateSubmission)
	requests.Post("/suggest", r.Requests.SuggestDraft)
	requests.Get("/", r.RequireAuth, r.Requests.ListRequests)
	requests.Post("/checkout", r.RequireAuth, r.Requests.StartCheckout)
	requests.Post("/confirm", r.RequireAuth, r.Requests.ConfirmCheckout)
	requests.Get("/:id", r.RequireAuth, r.Requests.GetRequest)

	admin := v1.Group("/admin", r.RequireAuth, r.RequireAdmin)
	admin.Put("/requests/:id/status", r.Requests.UpdateStatus)

	profile := v1.Group("/profile", r.RequireAuth)
	profile.Get("/", r.Profile.GetProfile)
	profile.Put("/", r.Profile.UpdateProfile)
	profile.Get("/activity", r.Profile.RecentActivity)
}

func preflight(c *fiber.Ctx) error {
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	c.Set(fiber.HeaderAccessControlAllowHeaders, strings.Join(CorsAllowHeaders, ", "))
	return c.SendStatus(fiber.StatusNoContent)
}
