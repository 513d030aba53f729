package linkcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/docsite/internal/config"
)

// BrokenLinkEvent is published for each broken internal link so
// downstream tooling can open issues or track link rot.
type BrokenLinkEvent struct {
	URL        string    `json:"url"`
	IsInternal bool      `json:"is_internal"`
	SourcePath string    `json:"source_path"`
	Title      string    `json:"title,omitempty"`
	BuildID    string    `json:"build_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NATSPublisher publishes broken-link events to a JetStream subject.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
	buildID string
}

// NewNATSPublisher connects to the configured broker. Returns an error
// when events are disabled so callers can decide to proceed without one.
func NewNATSPublisher(cfg *config.EventsConfig, buildID string) (*NATSPublisher, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, fmt.Errorf("link events are disabled")
	}

	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	slog.Info("Link event publisher initialized", "url", cfg.URL, "subject", cfg.Subject)
	return &NATSPublisher{conn: conn, js: js, subject: cfg.Subject, buildID: buildID}, nil
}

// SetBuildID stamps subsequent events with the build that found them.
func (p *NATSPublisher) SetBuildID(id string) { p.buildID = id }

// PublishBrokenLink publishes one event. Delivery failures are logged,
// never fatal.
func (p *NATSPublisher) PublishBrokenLink(event *BrokenLinkEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event.Timestamp = time.Now()
	event.BuildID = p.buildID

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := p.js.Publish(ctx, p.subject, data); err != nil {
		slog.Warn("Failed to publish broken link event", "url", event.URL, "error", err)
		return err
	}
	slog.Debug("Published broken link event", "url", event.URL, "source", event.SourcePath)
	return nil
}

// Close drains the underlying connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
