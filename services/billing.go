package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/ezfoia/foia_api/dto"
	"github.com/ezfoia/foia_api/shared"
	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

const BILLING_SVC = "billing_svc"

const (
	subscriptionCacheTTL = 60 * time.Second
	paymentTypeOneTime   = "one_time"
)

// Plan is one purchasable option from STRIPE_PLAN_PRICES.
type Plan struct {
	ID      string
	PriceID string
	Mode    string
}

type CheckoutParams struct {
	Plan          Plan
	CustomerEmail string
	UserID        string
	DraftID       string
}

type CheckoutSession struct {
	ID            string
	ClientSecret  string
	PaymentStatus string
	Metadata      map[string]string
}

// Paid reports whether the session no longer needs payment.
func (s *CheckoutSession) Paid() bool {
	return s.PaymentStatus == string(stripe.CheckoutSessionPaymentStatusPaid) ||
		s.PaymentStatus == string(stripe.CheckoutSessionPaymentStatusNoPaymentRequired)
}

type BillingService struct {
	appContext.DefaultService

	api            *client.API
	publishableKey string
	appBaseURL     string
	plans          map[string]Plan

	redisSvc *RedisService
}

func (svc BillingService) Id() string {
	return BILLING_SVC
}

func (svc *BillingService) Configure(ctx *appContext.Context) error {
	svc.redisSvc = ctx.Service(REDIS_SVC).(*RedisService)

	if key := os.Getenv("STRIPE_SECRET_KEY"); key != "" {
		svc.api = client.New(key, nil)
	}
	svc.publishableKey = os.Getenv("STRIPE_PUBLISHABLE_KEY")

	svc.appBaseURL = strings.TrimRight(os.Getenv("APP_BASE_URL"), "/")
	if svc.appBaseURL == "" {
		svc.appBaseURL = "http://localhost:5173"
	}

	plans, err := ParsePlans(os.Getenv("STRIPE_PLAN_PRICES"))
	if err != nil {
		return err
	}
	svc.plans = plans

	return svc.DefaultService.Configure(ctx)
}

func (svc *BillingService) Start() error {
	if svc.api == nil {
		log.Warn("STRIPE_SECRET_KEY not set, checkout and subscription checks are disabled")
	}
	return nil
}

// ParsePlans reads "plan:price[:mode]" entries separated by commas. Mode is
// payment (default) or subscription.
func ParsePlans(raw string) (map[string]Plan, error) {
	plans := make(map[string]Plan)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid STRIPE_PLAN_PRICES entry %q", entry)
		}

		plan := Plan{
			ID:      strings.TrimSpace(parts[0]),
			PriceID: strings.TrimSpace(parts[1]),
			Mode:    string(stripe.CheckoutSessionModePayment),
		}
		if len(parts) == 3 {
			switch mode := strings.TrimSpace(parts[2]); mode {
			case string(stripe.CheckoutSessionModePayment), string(stripe.CheckoutSessionModeSubscription):
				plan.Mode = mode
			default:
				return nil, fmt.Errorf("invalid checkout mode %q for plan %s", mode, plan.ID)
			}
		}
		plans[plan.ID] = plan
	}
	return plans, nil
}

func (svc *BillingService) Plan(id string) (Plan, bool) {
	plan, ok := svc.plans[id]
	return plan, ok
}

func (svc *BillingService) PublishableKey() (string, error) {
	if svc.publishableKey == "" {
		return "", billingUnavailable("STRIPE_PUBLISHABLE_KEY")
	}
	return svc.publishableKey, nil
}

func billingUnavailable(setting string) error {
	log.WithField("setting", setting).Error("Billing is not configured")
	return shared.NewInternalError(shared.ErrServiceUnavailable, "Service temporarily unavailable")
}

func stripeError(err error, op string) error {
	fields := log.Fields{"op": op, "error": err.Error()}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		fields["status"] = stripeErr.HTTPStatusCode
		fields["code"] = stripeErr.Code
		fields["request_id"] = stripeErr.RequestID
	}
	log.WithFields(fields).Error("Stripe request failed")
	return shared.NewUpstreamError(err, "Payment provider request failed")
}

func (svc *BillingService) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	if svc.api == nil {
		return nil, billingUnavailable("STRIPE_SECRET_KEY")
	}

	params := &stripe.CheckoutSessionParams{
		UIMode:    stripe.String(string(stripe.CheckoutSessionUIModeEmbedded)),
		Mode:      stripe.String(p.Plan.Mode),
		ReturnURL: stripe.String(svc.appBaseURL + "/checkout/return?session_id={CHECKOUT_SESSION_ID}"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.Plan.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(p.UserID),
		Metadata: map[string]string{
			"draft_id": p.DraftID,
			"user_id":  p.UserID,
			"plan_id":  p.Plan.ID,
		},
	}
	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	params.Context = ctx

	s, err := svc.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, stripeError(err, "checkout.sessions.create")
	}
	return toCheckoutSession(s), nil
}

func (svc *BillingService) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	if svc.api == nil {
		return nil, billingUnavailable("STRIPE_SECRET_KEY")
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := svc.api.CheckoutSessions.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 404 {
			return nil, shared.NewNotFoundError(err, "Checkout session not found")
		}
		return nil, stripeError(err, "checkout.sessions.retrieve")
	}
	return toCheckoutSession(s), nil
}

func toCheckoutSession(s *stripe.CheckoutSession) *CheckoutSession {
	return &CheckoutSession{
		ID:            s.ID,
		ClientSecret:  s.ClientSecret,
		PaymentStatus: string(s.PaymentStatus),
		Metadata:      s.Metadata,
	}
}

// CheckSubscription reports whether email has an active subscription or a
// successful one-time payment. Answers are cached for a minute.
func (svc *BillingService) CheckSubscription(ctx context.Context, email string) (*dto.SubscriptionStatus, error) {
	if svc.api == nil {
		return nil, billingUnavailable("STRIPE_SECRET_KEY")
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, shared.NewBadRequestError(nil, "User email not available")
	}
	cacheKey := "subscription:" + email

	if svc.redisSvc != nil {
		var cached dto.SubscriptionStatus
		found, err := svc.redisSvc.GetJSON(ctx, cacheKey, &cached)
		if err != nil {
			log.WithError(err).Warn("Subscription cache read failed")
		} else if found {
			return &cached, nil
		}
	}

	status, err := svc.lookupSubscription(ctx, email)
	if err != nil {
		return nil, err
	}

	if svc.redisSvc != nil {
		if err := svc.redisSvc.Set(ctx, cacheKey, status, subscriptionCacheTTL); err != nil {
			log.WithError(err).Warn("Subscription cache write failed")
		}
	}
	return status, nil
}

func (svc *BillingService) lookupSubscription(ctx context.Context, email string) (*dto.SubscriptionStatus, error) {
	custParams := &stripe.CustomerListParams{Email: stripe.String(email)}
	custParams.Context = ctx
	custParams.Limit = stripe.Int64(1)

	customers := svc.api.Customers.List(custParams)
	var customer *stripe.Customer
	if customers.Next() {
		customer = customers.Customer()
	}
	if err := customers.Err(); err != nil {
		return nil, stripeError(err, "customers.list")
	}
	if customer == nil {
		return &dto.SubscriptionStatus{Subscribed: false}, nil
	}

	subParams := &stripe.SubscriptionListParams{
		Customer: stripe.String(customer.ID),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	subParams.Context = ctx
	subParams.Limit = stripe.Int64(1)

	subs := svc.api.Subscriptions.List(subParams)
	if subs.Next() {
		sub := subs.Subscription()
		status := &dto.SubscriptionStatus{Subscribed: true}
		if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
			price := sub.Items.Data[0].Price
			status.PriceID = stripe.String(price.ID)
			if price.Product != nil {
				status.ProductID = stripe.String(price.Product.ID)
			}
		}
		if sub.CurrentPeriodEnd > 0 {
			status.SubscriptionEnd = stripe.String(time.Unix(sub.CurrentPeriodEnd, 0).UTC().Format(time.RFC3339))
		}
		return status, nil
	}
	if err := subs.Err(); err != nil {
		return nil, stripeError(err, "subscriptions.list")
	}

	piParams := &stripe.PaymentIntentListParams{Customer: stripe.String(customer.ID)}
	piParams.Context = ctx
	piParams.Limit = stripe.Int64(20)

	intents := svc.api.PaymentIntents.List(piParams)
	for intents.Next() {
		if intents.PaymentIntent().Status == stripe.PaymentIntentStatusSucceeded {
			return &dto.SubscriptionStatus{
				Subscribed:  true,
				PaymentType: stripe.String(paymentTypeOneTime),
			}, nil
		}
	}
	if err := intents.Err(); err != nil {
		return nil, stripeError(err, "payment_intents.list")
	}

	return &dto.SubscriptionStatus{Subscribed: false}, nil
}
