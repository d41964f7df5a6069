package services

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/bytedance/sonic"
	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

const STATUS_LISTENER_SVC = "status_listener_svc"

const (
	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPingInterval = 90 * time.Second
	notifyTimeout        = 30 * time.Second
)

// StatusEvent is the payload the foia_requests trigger sends on StatusChannel.
type StatusEvent struct {
	RequestID string `json:"request_id"`
	NewStatus string `json:"new_status"`
	OldStatus string `json:"old_status"`
}

func decodeStatusEvent(payload string) (StatusEvent, error) {
	var ev StatusEvent
	if err := sonic.UnmarshalString(payload, &ev); err != nil {
		return ev, fmt.Errorf("decode status event: %w", err)
	}
	if ev.RequestID == "" || ev.NewStatus == "" {
		return ev, fmt.Errorf("status event missing request_id or new_status")
	}
	return ev, nil
}

// StatusListenerService LISTENs for status changes made by any writer and
// sends the owner's notifications. Enabled by STATUS_LISTENER_ENABLED.
type StatusListenerService struct {
	appContext.DefaultService

	enabled  bool
	listener *pq.Listener
	cancel   context.CancelFunc
	done     chan struct{}

	pgSvc    *PostgresService
	notifier StatusNotifier
}

func (svc StatusListenerService) Id() string {
	return STATUS_LISTENER_SVC
}

func (svc *StatusListenerService) Configure(ctx *appContext.Context) error {
	svc.enabled, _ = strconv.ParseBool(os.Getenv("STATUS_LISTENER_ENABLED"))
	svc.pgSvc = ctx.Service(POSTGRES_SVC).(*PostgresService)
	svc.notifier = ctx.Service(NOTIFICATION_SVC).(*NotificationService)
	return svc.DefaultService.Configure(ctx)
}

// Enabled reports whether status notifications are driven by the database.
func (svc *StatusListenerService) Enabled() bool {
	return svc.enabled
}

func (svc *StatusListenerService) Start() error {
	if !svc.enabled {
		log.Info("Status listener disabled, notifications are sent by the status endpoint")
		return nil
	}

	svc.listener = pq.NewListener(svc.pgSvc.DSN(), listenerMinReconnect, listenerMaxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed:
			log.WithError(err).Warn("Status listener connection attempt failed")
		case pq.ListenerEventDisconnected:
			log.WithError(err).Warn("Status listener disconnected")
		case pq.ListenerEventReconnected:
			log.Info("Status listener reconnected")
		}
	})
	if err := svc.listener.Listen(StatusChannel); err != nil {
		return fmt.Errorf("listen %s: %w", StatusChannel, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	svc.cancel = cancel
	svc.done = make(chan struct{})
	go svc.run(ctx)

	log.WithField("channel", StatusChannel).Info("Status listener started")
	return nil
}

func (svc *StatusListenerService) run(ctx context.Context) {
	defer close(svc.done)

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-svc.listener.Notify:
			// nil after a reconnect; events sent while disconnected are lost
			if n == nil {
				continue
			}
			svc.handle(ctx, n.Extra)
		case <-time.After(listenerPingInterval):
			if err := svc.listener.Ping(); err != nil {
				log.WithError(err).Warn("Status listener ping failed")
			}
		}
	}
}

func (svc *StatusListenerService) handle(ctx context.Context, payload string) {
	ev, err := decodeStatusEvent(payload)
	if err != nil {
		log.WithError(err).WithField("payload", payload).Warn("Ignoring status event")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	if _, err := svc.notifier.StatusChanged(ctx, ev.RequestID, ev.NewStatus, ev.OldStatus); err != nil {
		log.WithFields(log.Fields{
			"request_id": ev.RequestID,
			"new_status": ev.NewStatus,
			"error":      err.Error(),
		}).Error("Status notification from listener failed")
	}
}

func (svc *StatusListenerService) Shutdown() {
	if svc.cancel != nil {
		svc.cancel()
		<-svc.done
	}
	if svc.listener != nil {
		_ = svc.listener.Close()
	}
}
