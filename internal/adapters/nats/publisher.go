package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/cumulus/internal/core/domain"
)

// Subjects. Cycle and high-res events are persisted in JetStream; image list
// updates are plain NATS messages for live clients.
const (
	SubjectCycle         = "cumulus.cycle.completed"
	SubjectCycleAll      = "cumulus.cycle.>"
	SubjectHighResPrefix = "cumulus.highres."
	SubjectHighResAll    = "cumulus.highres.>"
	SubjectImagesUpdated = "cumulus.images.updated"
)

// HighResEvent is published for every follow-up request.
type HighResEvent struct {
	CycleID string               `json:"cycleId"`
	Result  domain.HighResResult `json:"result"`
}

// ImagesUpdatedEvent carries the current follow-up image list.
type ImagesUpdatedEvent struct {
	Type   string                `json:"type"`
	Time   time.Time             `json:"time"`
	Images []domain.HighResImage `json:"images"`
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if err := ensureStreams(js); err != nil {
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, js: js}, nil
}

func ensureStreams(js nats.JetStreamContext) error {
	streams := []nats.StreamConfig{
		{
			Name:      "CUMULUS_CYCLES",
			Subjects:  []string{SubjectCycleAll},
			Retention: nats.LimitsPolicy,
			MaxAge:    7 * 24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "CUMULUS_HIGHRES",
			Subjects:  []string{SubjectHighResAll},
			Retention: nats.LimitsPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// stream may already exist
			if _, err := js.UpdateStream(&cfg); err != nil {
				return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}
	return nil
}

func (p *Publisher) PublishCycle(ctx context.Context, snap *domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectCycle, data, nats.Context(ctx), nats.MsgId(snap.ID))
	return err
}

func (p *Publisher) PublishHighRes(ctx context.Context, cycleID string, result domain.HighResResult) error {
	data, err := json.Marshal(HighResEvent{CycleID: cycleID, Result: result})
	if err != nil {
		return err
	}
	_, err = p.js.Publish(HighResSubject(result.BorderNumber), data, nats.Context(ctx))
	return err
}

func (p *Publisher) PublishImagesUpdated(_ context.Context, images []domain.HighResImage) error {
	data, err := json.Marshal(ImagesUpdatedEvent{Type: "images-updated", Time: time.Now().UTC(), Images: images})
	if err != nil {
		return err
	}
	return p.conn.Publish(SubjectImagesUpdated, data)
}

// HighResSubject is the subject for one border number.
func HighResSubject(borderNumber int) string {
	return SubjectHighResPrefix + strconv.Itoa(borderNumber)
}

// Conn exposes the underlying connection for relays.
func (p *Publisher) Conn() *nats.Conn { return p.conn }

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("cumulus"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
