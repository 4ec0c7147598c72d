// Package notify publishes build status transitions to NATS so clients can
// react without polling.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/skelbuilder/internal/build"
	"git.home.luguber.info/inful/skelbuilder/internal/config"
	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/skelbuilder/internal/logfields"
)

// DefaultSubject prefixes every published subject when none is configured.
const DefaultSubject = "skelbuilder.builds"

// Publisher is the part of *nats.Conn the notifier uses.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Event is the JSON body published for each transition.
type Event struct {
	BuildID   string    `json:"build_id"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	Digest    string    `json:"digest,omitempty"`
	Size      int64     `json:"size,omitempty"`
	Attempts  int       `json:"attempts,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier implements build.Observer and build.PurgeObserver. Events go to
// "<subject>.<status>", e.g. skelbuilder.builds.ready.
type Notifier struct {
	pub     Publisher
	conn    *nats.Conn
	subject string
	now     func() time.Time
}

// Connect dials the configured NATS server.
func Connect(cfg config.NotificationsConfig) (*Notifier, error) {
	if cfg.NATSURL == "" {
		return nil, errors.ConfigError("notifications.nats_url is required").Build()
	}
	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("skelbuilder"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", logfields.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("NATS reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNetwork, "failed to connect to NATS").
			WithContext("url", cfg.NATSURL).
			Build()
	}

	n := New(conn, cfg.Subject)
	n.conn = conn
	slog.Info("NATS notifier initialized", slog.String("url", cfg.NATSURL), slog.String("subject", n.subject))
	return n, nil
}

// New wraps an existing publisher.
func New(pub Publisher, subject string) *Notifier {
	subject = strings.TrimSuffix(strings.TrimSpace(subject), ".")
	if subject == "" {
		subject = DefaultSubject
	}
	return &Notifier{pub: pub, subject: subject, now: time.Now}
}

// Subject returns the subject an event with status is published on.
func (n *Notifier) Subject(status string) string {
	return n.subject + "." + strings.ToLower(status)
}

func (n *Notifier) OnTransition(_ context.Context, r build.Request) {
	ev := Event{
		BuildID:   r.ID,
		Status:    string(r.Status),
		Reason:    r.Reason,
		Attempts:  r.Attempts,
		Timestamp: r.UpdatedAt,
	}
	if r.Artifact != nil {
		ev.Digest = r.Artifact.Digest
		ev.Size = r.Artifact.Size
	}
	n.publish(ev)
}

func (n *Notifier) OnPurge(_ context.Context, id, reason string) {
	n.publish(Event{BuildID: id, Status: "PURGED", Reason: reason, Timestamp: n.now()})
}

// publish never fails the caller: notifications are best effort.
func (n *Notifier) publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Failed to marshal build notification", logfields.BuildID(ev.BuildID), logfields.Error(err))
		return
	}
	subject := n.Subject(ev.Status)
	if err := n.pub.Publish(subject, data); err != nil {
		slog.Warn("Failed to publish build notification",
			logfields.BuildID(ev.BuildID),
			slog.String("subject", subject),
			logfields.Error(err))
		return
	}
	slog.Debug("Published build notification", logfields.BuildID(ev.BuildID), slog.String("subject", subject))
}

// Close flushes pending messages and closes the connection, if owned.
func (n *Notifier) Close() error {
	if n.conn == nil {
		return nil
	}
	if err := n.conn.FlushTimeout(2 * time.Second); err != nil {
		slog.Warn("NATS flush failed", logfields.Error(err))
	}
	n.conn.Close()
	return nil
}
