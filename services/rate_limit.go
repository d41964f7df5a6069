package services

import (
	"os"
	"strings"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/ezfoia/foia_api/middleware"
	"github.com/ezfoia/foia_api/pkg/ratelimit"
	"github.com/gofiber/fiber/v2"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

const RATE_LIMIT_SVC = "rate_limit_svc"

const (
	LimiterChat         = "foia-chat"
	LimiterSubscription = "check-subscription"
)

var defaultLimits = []ratelimit.Config{
	{Name: LimiterChat, Max: 20, Window: time.Minute},
	{Name: LimiterSubscription, Max: 30, Window: time.Minute},
}

// RateLimitService owns the fixed-window limiters guarding the public functions.
// RATE_LIMIT_BACKEND=redis shares counters across instances; the default
// memory backend counts per instance only.
type RateLimitService struct {
	context.DefaultService

	backend  string
	limiters map[string]*ratelimit.Limiter
	memory   *ratelimit.MemoryStore
	cron     *cron.Cron

	redisSvc *RedisService
}

func (svc RateLimitService) Id() string {
	return RATE_LIMIT_SVC
}

func (svc *RateLimitService) Configure(ctx *context.Context) error {
	svc.backend = strings.ToLower(os.Getenv("RATE_LIMIT_BACKEND"))
	if svc.backend == "" {
		svc.backend = "memory"
	}
	if svc.backend == "redis" {
		svc.redisSvc = ctx.Service(REDIS_SVC).(*RedisService)
	}
	return svc.DefaultService.Configure(ctx)
}

func (svc *RateLimitService) Start() error {
	var store ratelimit.Store
	switch svc.backend {
	case "redis":
		store = ratelimit.NewRedisStore(svc.redisSvc.GetClient(), "ratelimit")
	default:
		svc.memory = ratelimit.NewMemoryStore()
		store = svc.memory
	}

	svc.limiters = make(map[string]*ratelimit.Limiter, len(defaultLimits))
	for _, cfg := range defaultLimits {
		svc.limiters[cfg.Name] = ratelimit.New(cfg, store)
	}

	if svc.memory != nil {
		svc.cron = cron.New()
		if _, err := svc.cron.AddFunc("@every 1m", svc.sweep); err != nil {
			return err
		}
		svc.cron.Start()
	}

	log.WithField("backend", svc.backend).Info("Rate limiter started")
	return nil
}

func (svc *RateLimitService) Shutdown() {
	if svc.cron != nil {
		<-svc.cron.Stop().Done()
	}
}

func (svc *RateLimitService) sweep() {
	if removed := svc.memory.Sweep(time.Now()); removed > 0 {
		log.WithField("removed", removed).Debug("Swept expired rate limit records")
	}
}

func (svc *RateLimitService) Limiter(name string) *ratelimit.Limiter {
	return svc.limiters[name]
}

// Middleware returns the fiber guard for the named limiter.
func (svc *RateLimitService) Middleware(name string) fiber.Handler {
	l, ok := svc.limiters[name]
	if !ok {
		log.WithField("limiter", name).Error("Unknown rate limiter, route left unguarded")
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return middleware.RateLimit(l, RecordRateLimitDenied)
}
