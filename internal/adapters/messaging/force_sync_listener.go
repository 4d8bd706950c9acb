package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// Subscriber is the part of *nats.Conn the listener needs.
type Subscriber interface {
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

type ForceSyncer interface {
	ForceSync()
}

// ForceSyncListener turns backend push notifications on vehicle.<id>.sync into
// ForceSync calls. The payload is ignored; the next poll fetches everything.
type ForceSyncListener struct {
	conn      Subscriber
	vehicleID string
	syncer    ForceSyncer
	logger    *slog.Logger
}

func NewForceSyncListener(conn Subscriber, vehicleID string, syncer ForceSyncer, logger *slog.Logger) *ForceSyncListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &ForceSyncListener{conn: conn, vehicleID: vehicleID, syncer: syncer, logger: logger}
}

// Run subscribes and blocks until ctx is done.
func (l *ForceSyncListener) Run(ctx context.Context) error {
	subject := SyncSubject(l.vehicleID)
	sub, err := l.conn.Subscribe(subject, l.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	l.logger.Info("force sync listener started", "subject", subject)

	<-ctx.Done()

	if sub != nil {
		if err := sub.Unsubscribe(); err != nil {
			l.logger.Debug("unsubscribe failed", "subject", subject, "error", err)
		}
	}
	return nil
}

func (l *ForceSyncListener) handle(msg *nats.Msg) {
	l.logger.Debug("force sync requested", "subject", msg.Subject, "bytes", len(msg.Data))
	l.syncer.ForceSync()
}
