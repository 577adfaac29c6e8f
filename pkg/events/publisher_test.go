package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TalissonJunior/traccar/pkg/logger"
	"github.com/TalissonJunior/traccar/pkg/models"
)

var errBrokerDown = errors.New("broker down")

type fakeConn struct {
	err      error
	subjects []string
	payloads [][]byte
}

func (f *fakeConn) Publish(subj string, data []byte) error {
	if f.err != nil {
		return f.err
	}

	f.subjects = append(f.subjects, subj)
	f.payloads = append(f.payloads, data)

	return nil
}

func TestPublishEnvelope(t *testing.T) {
	conn := &fakeConn{}
	publisher := NewPublisher(conn, "", logger.NewTestLogger())

	event := models.NewEvent(models.TypeDeviceOnline, 42)
	position := &models.Position{DeviceID: 42, Speed: 10}

	publisher.UpdateEvents(context.Background(), map[*models.Event]*models.Position{event: position})

	require.Len(t, conn.subjects, 1)
	assert.Equal(t, "events.device.deviceOnline", conn.subjects[0])

	var envelope CloudEvent
	require.NoError(t, json.Unmarshal(conn.payloads[0], &envelope))

	assert.Equal(t, "1.0", envelope.SpecVersion)
	assert.NotEmpty(t, envelope.ID)
	assert.Equal(t, "traccar/session", envelope.Source)
	assert.Equal(t, "org.traccar.deviceOnline", envelope.Type)
	assert.Equal(t, event.EventTime.Unix(), envelope.Time.Unix())

	data, err := json.Marshal(envelope.Data)
	require.NoError(t, err)

	var decoded eventData
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, int64(42), decoded.Event.DeviceID)
	require.NotNil(t, decoded.Position)
	assert.Equal(t, float64(10), decoded.Position.Speed)
}

func TestPublishCustomPrefix(t *testing.T) {
	conn := &fakeConn{}
	publisher := NewPublisher(conn, "telemetry.events", logger.NewTestLogger())

	event := models.NewEvent(models.TypeDeviceOffline, 7)
	publisher.UpdateEvents(context.Background(), map[*models.Event]*models.Position{event: nil})

	require.Len(t, conn.subjects, 1)
	assert.Equal(t, "telemetry.events.deviceOffline", conn.subjects[0])
}

func TestPublishOnePerEvent(t *testing.T) {
	conn := &fakeConn{}
	publisher := NewPublisher(conn, "", logger.NewTestLogger())

	batch := map[*models.Event]*models.Position{
		models.NewEvent(models.TypeDeviceOffline, 42): nil,
		models.NewEvent(models.TypeDeviceStopped, 42): {DeviceID: 42},
	}

	publisher.UpdateEvents(context.Background(), batch)

	assert.Len(t, conn.subjects, 2)
}

func TestPublishErrorIsAbsorbed(t *testing.T) {
	conn := &fakeConn{err: errBrokerDown}
	publisher := NewPublisher(conn, "", logger.NewTestLogger())

	event := models.NewEvent(models.TypeDeviceOnline, 42)

	// Must not panic or propagate; the status transition goes on.
	publisher.UpdateEvents(context.Background(), map[*models.Event]*models.Position{event: nil})
}

func TestNilEventSkipped(t *testing.T) {
	conn := &fakeConn{}
	publisher := NewPublisher(conn, "", logger.NewTestLogger())

	publisher.UpdateEvents(context.Background(), map[*models.Event]*models.Position{nil: nil})

	assert.Empty(t, conn.subjects)
}
