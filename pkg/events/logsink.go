package events

import (
	"context"

	"github.com/TalissonJunior/traccar/pkg/logger"
	"github.com/TalissonJunior/traccar/pkg/models"
)

// LogSink records events to the log when no broker is configured.
type LogSink struct {
	log logger.Logger
}

// NewLogSink creates the logging notification sink.
func NewLogSink(log logger.Logger) *LogSink {
	if log == nil {
		log = logger.NewBasic()
	}

	return &LogSink{log: log.WithComponent("events")}
}

// UpdateEvents implements session.NotificationManager.
func (s *LogSink) UpdateEvents(_ context.Context, events map[*models.Event]*models.Position) {
	for event, position := range events {
		if event == nil {
			continue
		}

		entry := s.log.Info().
			Str("type", event.Type).
			Int64("device_id", event.DeviceID)

		if position != nil {
			entry = entry.Int64("position_id", position.ID)
		}

		entry.Msg("Device event")
	}
}
