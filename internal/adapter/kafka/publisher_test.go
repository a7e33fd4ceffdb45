package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rescuehq-core/internal/alert"
	"github.com/couchcryptid/rescuehq-core/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	snapshot := alert.Snapshot{
		UpdatedAt: time.Date(2026, 3, 1, 6, 30, 0, 0, time.UTC),
		Engine:    "threshold",
		Alerts: []domain.AlertRecord{
			{Type: domain.AlertFloodRisk, Severity: domain.SeverityExtreme, Title: "Severe Flood Risk"},
			{Type: domain.AlertLandslideRisk, Severity: domain.SeveritySevere, Title: "Landslide Risk"},
		},
	}

	msg, err := serializeToMessage(snapshot)
	require.NoError(t, err)

	assert.Equal(t, []byte("threshold"), msg.Key)

	var decoded alert.Snapshot
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, snapshot.Engine, decoded.Engine)
	require.Len(t, decoded.Alerts, 2)
	assert.Equal(t, domain.AlertFloodRisk, decoded.Alerts[0].Type)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "alert_count", msg.Headers[0].Key)
	assert.Equal(t, []byte("2"), msg.Headers[0].Value)
	assert.Equal(t, "updated_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2026-03-01T06:30:00Z"), msg.Headers[1].Value)
}
