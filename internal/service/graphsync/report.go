package graphsync

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	apperrors "github.com/jwalitptl/cabinet-api/pkg/errors"
	"github.com/jwalitptl/cabinet-api/pkg/metrics"
)

// Sync operation names used in logs and metrics.
const (
	OpUpsertPatient = "upsert_patient_node"
	OpUpsertDoctor  = "upsert_doctor_node"
	OpUpsertEdge    = "upsert_consultation_edge"
	OpDeleteEdge    = "delete_consultation_edge"
	OpDeletePatient = "delete_patient_node"
	OpDeleteDoctor  = "delete_doctor_node"
)

// Report records the outcome of a sync call and swallows any failure. The canonical
// write it follows has already succeeded, so nothing is returned to the caller.
func Report(ctx context.Context, op, entityID string, err error) {
	switch {
	case err == nil:
		metrics.SyncOperations.WithLabelValues(op, "ok").Inc()
	case errors.Is(err, ErrEdgeNotFound):
		metrics.SyncOperations.WithLabelValues(op, "not_found").Inc()
		zerolog.Ctx(ctx).Warn().
			Str("operation", op).
			Str("entity_id", entityID).
			Msg("graph mirror diverged: edge already absent")
	default:
		metrics.SyncOperations.WithLabelValues(op, "failed").Inc()
		zerolog.Ctx(ctx).Error().
			Err(apperrors.SyncFailure(op, err)).
			Str("operation", op).
			Str("entity_id", entityID).
			Msg("graph sync failed")
	}
}
