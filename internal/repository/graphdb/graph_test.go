package graphdb

import (
	"errors"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/cabinet-api/internal/config"
	"github.com/jwalitptl/cabinet-api/internal/repository"
)

func TestEdgeFromRecord(t *testing.T) {
	updated := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	record := &neo4j.Record{
		Keys: []string{"patient_id", "doctor_id", "props"},
		Values: []any{"p1", "d1", map[string]any{
			"consultation_id": "c1",
			"date":            "2024-05-01T10:00:00Z",
			"motif":           "headache",
			"status":          "completed",
			"updated_at":      updated,
		}},
	}

	edge := edgeFromRecord(record)

	assert.Equal(t, "c1", edge.ConsultationID)
	assert.Equal(t, "p1", edge.PatientID)
	assert.Equal(t, "d1", edge.DoctorID)
	assert.Equal(t, "headache", edge.Motif)
	assert.Equal(t, "completed", edge.Status)
	assert.Equal(t, "2024-05-01T10:00:00Z", edge.Date)
	assert.Equal(t, updated, edge.UpdatedAt)
}

func TestRecordHelpers(t *testing.T) {
	record := &neo4j.Record{Keys: []string{"name", "count", "missing"}, Values: []any{"Ana", int64(3), nil}}

	assert.Equal(t, "Ana", getString(record, "name"))
	assert.Equal(t, "", getString(record, "missing"))
	assert.Equal(t, "", getString(record, "absent"))
	assert.Equal(t, int64(3), getInt(record, "count"))
	assert.Equal(t, int64(0), getInt(record, "name"))
}

func TestNewBreaker(t *testing.T) {
	assert.Nil(t, NewBreaker(config.BreakerConfig{Enabled: false}))

	cb := NewBreaker(config.BreakerConfig{Enabled: true, ConsecutiveFailures: 2, Timeout: time.Minute})
	require.NotNil(t, cb)

	notFound := func() (interface{}, error) { return nil, repository.ErrNotFound }
	for i := 0; i < 5; i++ {
		_, err := cb.Execute(notFound)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())

	failing := func() (interface{}, error) { return nil, errors.New("connection refused") }
	_, _ = cb.Execute(failing)
	_, _ = cb.Execute(failing)
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err := cb.Execute(notFound)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}
