// Package graphsync mirrors canonical document writes into the graph store.
//
// Replication is synchronous, at most once and non-transactional. Callers run it after the
// document write has been acknowledged and never roll that write back when it fails.
package graphsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/jwalitptl/cabinet-api/internal/model"
	"github.com/jwalitptl/cabinet-api/internal/repository"
)

var ErrEdgeNotFound = errors.New("consultation edge not found")

// Syncer is the hook entity services replicate through. An outbox or retrying
// implementation can replace Bridge without changing the services.
type Syncer interface {
	UpsertPatientNode(ctx context.Context, patient *model.Patient) error
	UpsertDoctorNode(ctx context.Context, doctor *model.Doctor) error
	UpsertConsultationEdge(ctx context.Context, c *model.Consultation, patient *model.Patient, doctor *model.Doctor) error
	DeleteConsultationEdge(ctx context.Context, consultationID string) error
	DeletePatientNode(ctx context.Context, patientID string) error
	DeleteDoctorNode(ctx context.Context, doctorID string) error
}

type Bridge struct {
	graph repository.GraphRepository
}

func NewBridge(graph repository.GraphRepository) *Bridge {
	return &Bridge{graph: graph}
}

func (b *Bridge) UpsertPatientNode(ctx context.Context, patient *model.Patient) error {
	if err := b.graph.MergePatientNode(ctx, model.NewPatientNode(patient)); err != nil {
		return fmt.Errorf("merge patient node %s: %w", patient.ID.Hex(), err)
	}
	return nil
}

func (b *Bridge) UpsertDoctorNode(ctx context.Context, doctor *model.Doctor) error {
	if err := b.graph.MergeDoctorNode(ctx, model.NewDoctorNode(doctor)); err != nil {
		return fmt.Errorf("merge doctor node %s: %w", doctor.ID.Hex(), err)
	}
	return nil
}

// UpsertConsultationEdge ensures both endpoints, then creates the edge on first write or
// sets only the changed properties on later writes. The endpoint merge runs every time.
func (b *Bridge) UpsertConsultationEdge(ctx context.Context, c *model.Consultation, patient *model.Patient, doctor *model.Doctor) error {
	if err := b.UpsertPatientNode(ctx, patient); err != nil {
		return err
	}
	if err := b.UpsertDoctorNode(ctx, doctor); err != nil {
		return err
	}

	next := model.NewConsultationEdge(c)
	existing, err := b.graph.GetConsultationEdge(ctx, next.ConsultationID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if err := b.graph.CreateConsultationEdge(ctx, next); err != nil {
			return fmt.Errorf("create edge %s: %w", next.ConsultationID, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("lookup edge %s: %w", next.ConsultationID, err)
	}

	// A consultation moved to another patient or doctor cannot be patched in place.
	if existing.PatientID != next.PatientID || existing.DoctorID != next.DoctorID {
		if _, err := b.graph.DeleteConsultationEdge(ctx, next.ConsultationID); err != nil {
			return fmt.Errorf("relink edge %s: %w", next.ConsultationID, err)
		}
		if err := b.graph.CreateConsultationEdge(ctx, next); err != nil {
			return fmt.Errorf("relink edge %s: %w", next.ConsultationID, err)
		}
		return nil
	}

	changed := existing.Changed(next)
	if len(changed) == 0 {
		return nil
	}
	if err := b.graph.UpdateConsultationEdge(ctx, next.ConsultationID, changed); err != nil {
		return fmt.Errorf("update edge %s: %w", next.ConsultationID, err)
	}
	return nil
}

// DeleteConsultationEdge removes the edge and leaves its endpoints. It returns
// ErrEdgeNotFound when no edge carries the id.
func (b *Bridge) DeleteConsultationEdge(ctx context.Context, consultationID string) error {
	deleted, err := b.graph.DeleteConsultationEdge(ctx, consultationID)
	if err != nil {
		return fmt.Errorf("delete edge %s: %w", consultationID, err)
	}
	if !deleted {
		return ErrEdgeNotFound
	}
	return nil
}

func (b *Bridge) DeletePatientNode(ctx context.Context, patientID string) error {
	if _, err := b.graph.DeletePatientNode(ctx, patientID); err != nil {
		return fmt.Errorf("delete patient node %s: %w", patientID, err)
	}
	return nil
}

func (b *Bridge) DeleteDoctorNode(ctx context.Context, doctorID string) error {
	if _, err := b.graph.DeleteDoctorNode(ctx, doctorID); err != nil {
		return fmt.Errorf("delete doctor node %s: %w", doctorID, err)
	}
	return nil
}
