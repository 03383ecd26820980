// Package events publishes domain events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"admin-service/logger"

	"github.com/nats-io/nats.go"
)

const (
	SubjectUserStatus     = "admin.user.status"
	SubjectPostModerated  = "admin.post.moderated"
	SubjectAppealSubmit   = "appeals.submitted"
	SubjectAppealReviewed = "appeals.reviewed"
	SubjectExportDone     = "admin.export.completed"

	// SubjectSnapshotRequest asks the worker for an immediate storage snapshot.
	SubjectSnapshotRequest = "admin.storage.snapshot"
)

// Publisher sends an event payload on a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
	Close()
}

// Message is the envelope written to NATS
type Message struct {
	Subject   string    `json:"subject"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

// NATSPublisher handles publishing events to NATS
type NATSPublisher struct {
	conn   *nats.Conn
	source string
}

// NewNATSPublisher connects to url. Reconnects are handled by the client.
func NewNATSPublisher(url, source string, log logger.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name(source),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", logger.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("NATS reconnected", logger.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATSPublisher{conn: nc, source: source}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, subject string, payload any) error {
	data, err := Encode(subject, p.source, payload)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe calls handle with the raw data of every message on subject.
func (p *NATSPublisher) Subscribe(subject string, handle func(data []byte)) (func() error, error) {
	sub, err := p.conn.Subscribe(subject, func(msg *nats.Msg) {
		handle(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return sub.Unsubscribe, nil
}

// Close drains pending messages before closing the connection.
func (p *NATSPublisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// Encode wraps payload in the message envelope.
func Encode(subject, source string, payload any) ([]byte, error) {
	data, err := json.Marshal(Message{
		Subject:   subject,
		Data:      payload,
		Timestamp: time.Now().UTC(),
		Source:    source,
		Version:   "1.0",
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", subject, err)
	}
	return data, nil
}

// NopPublisher drops every event. Used when NATS_URL is unset.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
func (NopPublisher) Close()                                     {}

// Emit publishes and logs failures. Events are best effort and never fail the
// caller's operation.
func Emit(ctx context.Context, pub Publisher, log logger.Logger, subject string, payload any) {
	if err := pub.Publish(ctx, subject, payload); err != nil {
		log.Warn("Failed to publish event",
			logger.String("subject", subject),
			logger.Error(err),
		)
	}
}
