package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/quake-map/internal/config"
	"github.com/couchcryptid/quake-map/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMarker() domain.Marker {
	return domain.Transform(domain.Feature{
		ID:        "us7000test",
		Place:     "Test City",
		Magnitude: 5.0,
		Time:      time.UnixMilli(1700000000000).UTC(),
		Lon:       -122.4,
		Lat:       37.8,
		Depth:     15.0,
	}, time.UTC)
}

func TestSerializeToMessage(t *testing.T) {
	m := testMarker()

	msg, err := serializeToMessage("snap-1", m)
	require.NoError(t, err)

	assert.Equal(t, []byte("us7000test"), msg.Key)
	assert.Equal(t, m.Feature.Time, msg.Time)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, HeaderDepthColor, msg.Headers[0].Key)
	assert.Equal(t, []byte("#FEB24C"), msg.Headers[0].Value)
	assert.Equal(t, HeaderSnapshotID, msg.Headers[1].Key)
	assert.Equal(t, []byte("snap-1"), msg.Headers[1].Value)

	var roundtrip domain.Marker
	require.NoError(t, json.Unmarshal(msg.Value, &roundtrip))
	assert.Equal(t, "us7000test", roundtrip.Feature.ID)
	assert.Equal(t, "#FEB24C", roundtrip.Encoding.FillColor)
	assert.Equal(t, "15.00 km", roundtrip.Summary.Depth)
}

func TestWriter_LoadEmptySnapshotIsNoop(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"localhost:1"}, KafkaTopic: "earthquake-markers"}
	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer w.Close()

	// No markers means no broker round trip, so the unreachable address is never dialed.
	require.NoError(t, w.Load(context.Background(), domain.Snapshot{ID: "empty"}))
}
