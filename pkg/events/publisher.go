// Package events records device status events, either on a NATS subject
// tree or in the log when no broker is configured.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/TalissonJunior/traccar/pkg/logger"
	"github.com/TalissonJunior/traccar/pkg/models"
)

const (
	defaultSubjectPrefix = "events.device"
	eventSource          = "traccar/session"
	eventTypePrefix      = "org.traccar."
)

// Conn is the slice of the NATS client the publisher uses; *nats.Conn
// satisfies it.
type Conn interface {
	Publish(subj string, data []byte) error
}

// CloudEvent is the envelope published for every recorded event.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject"`
	Time            time.Time   `json:"time"`
	Data            interface{} `json:"data"`
}

type eventData struct {
	Event    *models.Event    `json:"event"`
	Position *models.Position `json:"position,omitempty"`
}

// Publisher implements session.NotificationManager over NATS.
type Publisher struct {
	conn          Conn
	subjectPrefix string
	log           logger.Logger
}

// NewPublisher creates a NATS-backed notification sink.
func NewPublisher(conn Conn, subjectPrefix string, log logger.Logger) *Publisher {
	if subjectPrefix == "" {
		subjectPrefix = defaultSubjectPrefix
	}

	if log == nil {
		log = logger.NewBasic()
	}

	return &Publisher{
		conn:          conn,
		subjectPrefix: subjectPrefix,
		log:           log.WithComponent("events"),
	}
}

// UpdateEvents publishes one envelope per event. Publish failures are
// logged, never propagated; event recording must not stall a status
// transition.
func (p *Publisher) UpdateEvents(_ context.Context, events map[*models.Event]*models.Position) {
	for event, position := range events {
		if event == nil {
			continue
		}

		if err := p.publish(event, position); err != nil {
			p.log.Warn().
				Err(err).
				Str("type", event.Type).
				Int64("device_id", event.DeviceID).
				Msg("Publish event error")
		}
	}
}

func (p *Publisher) publish(event *models.Event, position *models.Position) error {
	envelope := p.envelope(event, position)

	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.ID, err)
	}

	if err := p.conn.Publish(envelope.Subject, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", envelope.Subject, err)
	}

	return nil
}

func (p *Publisher) envelope(event *models.Event, position *models.Position) CloudEvent {
	return CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            eventTypePrefix + event.Type,
		DataContentType: "application/json",
		Subject:         p.subjectPrefix + "." + event.Type,
		Time:            event.EventTime,
		Data: eventData{
			Event:    event,
			Position: position,
		},
	}
}
