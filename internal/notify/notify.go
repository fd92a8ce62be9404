// Package notify announces published sites to other systems.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/mdpages/internal/foundation/errors"
	"git.home.luguber.info/inful/mdpages/internal/logfields"
)

const connectTimeout = 5 * time.Second

// Published is sent after a successful push.
type Published struct {
	RunID     string    `json:"run_id"`
	Commit    string    `json:"commit,omitempty"`
	Pages     []string  `json:"pages"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier delivers publish notifications.
type Notifier interface {
	NotifyPublished(ctx context.Context, msg Published) error
	Close()
}

// NATSNotifier publishes notifications on a core NATS subject.
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
}

// NewNATSNotifier connects to url and publishes on subject.
func NewNATSNotifier(url, subject string) (*NATSNotifier, error) {
	conn, err := nats.Connect(url, nats.Name("mdpages"), nats.Timeout(connectTimeout))
	if err != nil {
		return nil, errors.NetworkError("failed to connect to NATS").
			WithCause(err).
			WithContext("url", url).
			Build()
	}
	slog.Info("NATS notifier connected", slog.String("url", url), slog.String("subject", subject))
	return &NATSNotifier{conn: conn, subject: subject}, nil
}

// Encode renders msg as the JSON message body.
func Encode(msg Published) ([]byte, error) {
	if msg.Pages == nil {
		msg.Pages = []string{}
	}
	msg.Count = len(msg.Pages)
	return json.Marshal(msg)
}

// NotifyPublished implements Notifier. The message is flushed before
// returning so a short-lived process does not drop it.
func (n *NATSNotifier) NotifyPublished(ctx context.Context, msg Published) error {
	data, err := Encode(msg)
	if err != nil {
		return errors.InternalError("failed to encode notification").WithCause(err).Build()
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return errors.NetworkError("failed to publish notification").
			WithCause(err).
			WithContext("subject", n.subject).
			Build()
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return errors.NetworkError("failed to flush notification").
			WithCause(err).
			WithContext("subject", n.subject).
			Build()
	}
	slog.Debug("Published notification", logfields.RunID(msg.RunID), slog.String("subject", n.subject))
	return nil
}

// Close drains and closes the connection.
func (n *NATSNotifier) Close() {
	if n == nil || n.conn == nil {
		return
	}
	_ = n.conn.Drain()
}
