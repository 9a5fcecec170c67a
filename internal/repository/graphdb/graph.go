package graphdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sony/gobreaker"

	"github.com/jwalitptl/cabinet-api/internal/model"
	"github.com/jwalitptl/cabinet-api/internal/repository"
	"github.com/jwalitptl/cabinet-api/pkg/metrics"
)

const (
	mergePatientQuery = `
		MERGE (p:Patient {id: $id})
		SET p.name = $name,
			p.email = $email,
			p.phone = $phone,
			p.updated_at = datetime()
	`

	mergeDoctorQuery = `
		MERGE (d:Doctor {id: $id})
		SET d.name = $name,
			d.email = $email,
			d.speciality = $speciality,
			d.updated_at = datetime()
	`

	deletePatientQuery = `
		MATCH (p:Patient {id: $id})
		DETACH DELETE p
		RETURN count(p) AS deleted
	`

	deleteDoctorQuery = `
		MATCH (d:Doctor {id: $id})
		DETACH DELETE d
		RETURN count(d) AS deleted
	`

	getEdgeQuery = `
		MATCH (p:Patient)-[r:CONSULTED_BY {consultation_id: $consultation_id}]->(d:Doctor)
		RETURN p.id AS patient_id, d.id AS doctor_id, properties(r) AS props
		LIMIT 1
	`

	createEdgeQuery = `
		MATCH (p:Patient {id: $patient_id})
		MATCH (d:Doctor {id: $doctor_id})
		CREATE (p)-[r:CONSULTED_BY]->(d)
		SET r = $props,
			r.consultation_id = $consultation_id,
			r.updated_at = datetime()
		RETURN count(r) AS affected
	`

	updateEdgeQuery = `
		MATCH ()-[r:CONSULTED_BY {consultation_id: $consultation_id}]->()
		SET r += $props,
			r.updated_at = datetime()
		RETURN count(r) AS affected
	`

	deleteEdgeQuery = `
		MATCH ()-[r:CONSULTED_BY {consultation_id: $consultation_id}]->()
		DELETE r
		RETURN count(r) AS affected
	`

	patientsOfDoctorQuery = `
		MATCH (p:Patient)-[r:CONSULTED_BY]->(d:Doctor {id: $doctor_id})
		RETURN p.id AS id, p.name AS name, p.email AS email,
			count(r) AS consultations, max(r.date) AS last_visit
		ORDER BY last_visit DESC
	`
)

var errMissingEndpoint = errors.New("consultation endpoints are not in the graph")

type graphRepository struct {
	driver  *Driver
	breaker *gobreaker.CircuitBreaker
}

// NewGraphRepository returns the neo4j store. breaker may be nil.
func NewGraphRepository(driver *Driver, breaker *gobreaker.CircuitBreaker) repository.GraphRepository {
	return &graphRepository{driver: driver, breaker: breaker}
}

func (r *graphRepository) MergePatientNode(ctx context.Context, node *model.PatientNode) error {
	_, err := r.write(ctx, "merge_patient", func(tx neo4j.ManagedTransaction) (any, error) {
		return consume(ctx, tx, mergePatientQuery, map[string]any{
			"id":    node.ID,
			"name":  node.Name,
			"email": node.Email,
			"phone": node.Phone,
		})
	})
	return err
}

func (r *graphRepository) MergeDoctorNode(ctx context.Context, node *model.DoctorNode) error {
	_, err := r.write(ctx, "merge_doctor", func(tx neo4j.ManagedTransaction) (any, error) {
		return consume(ctx, tx, mergeDoctorQuery, map[string]any{
			"id":         node.ID,
			"name":       node.Name,
			"email":      node.Email,
			"speciality": node.Speciality,
		})
	})
	return err
}

func (r *graphRepository) DeletePatientNode(ctx context.Context, id string) (bool, error) {
	n, err := r.affected(ctx, "delete_patient", deletePatientQuery, "deleted", map[string]any{"id": id})
	return n > 0, err
}

func (r *graphRepository) DeleteDoctorNode(ctx context.Context, id string) (bool, error) {
	n, err := r.affected(ctx, "delete_doctor", deleteDoctorQuery, "deleted", map[string]any{"id": id})
	return n > 0, err
}

func (r *graphRepository) GetConsultationEdge(ctx context.Context, consultationID string) (*model.ConsultationEdge, error) {
	res, err := r.read(ctx, "get_edge", func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, getEdgeQuery, map[string]any{"consultation_id": consultationID})
		if err != nil {
			return nil, err
		}
		if !result.Next(ctx) {
			if err := result.Err(); err != nil {
				return nil, err
			}
			return nil, repository.ErrNotFound
		}
		return edgeFromRecord(result.Record()), nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*model.ConsultationEdge), nil
}

func (r *graphRepository) CreateConsultationEdge(ctx context.Context, edge *model.ConsultationEdge) error {
	n, err := r.affected(ctx, "create_edge", createEdgeQuery, "affected", map[string]any{
		"consultation_id": edge.ConsultationID,
		"patient_id":      edge.PatientID,
		"doctor_id":       edge.DoctorID,
		"props":           edge.Properties(),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return errMissingEndpoint
	}
	return nil
}

func (r *graphRepository) UpdateConsultationEdge(ctx context.Context, consultationID string, props map[string]interface{}) error {
	n, err := r.affected(ctx, "update_edge", updateEdgeQuery, "affected", map[string]any{
		"consultation_id": consultationID,
		"props":           props,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *graphRepository) DeleteConsultationEdge(ctx context.Context, consultationID string) (bool, error) {
	n, err := r.affected(ctx, "delete_edge", deleteEdgeQuery, "affected", map[string]any{"consultation_id": consultationID})
	return n > 0, err
}

func (r *graphRepository) PatientsOfDoctor(ctx context.Context, doctorID string) ([]*model.ConsultedPatient, error) {
	res, err := r.read(ctx, "patients_of_doctor", func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, patientsOfDoctorQuery, map[string]any{"doctor_id": doctorID})
		if err != nil {
			return nil, err
		}

		patients := make([]*model.ConsultedPatient, 0)
		for result.Next(ctx) {
			record := result.Record()
			patients = append(patients, &model.ConsultedPatient{
				ID:            getString(record, "id"),
				Name:          getString(record, "name"),
				Email:         getString(record, "email"),
				Consultations: getInt(record, "consultations"),
				LastVisit:     getString(record, "last_visit"),
			})
		}
		return patients, result.Err()
	})
	if err != nil {
		return nil, err
	}
	return res.([]*model.ConsultedPatient), nil
}

func (r *graphRepository) affected(ctx context.Context, op, query, key string, params map[string]any) (int64, error) {
	res, err := r.write(ctx, op, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		return getInt(record, key), nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int64), nil
}

func (r *graphRepository) write(ctx context.Context, op string, work neo4j.ManagedTransactionWork) (any, error) {
	return r.execute(ctx, op, neo4j.AccessModeWrite, work)
}

func (r *graphRepository) read(ctx context.Context, op string, work neo4j.ManagedTransactionWork) (any, error) {
	return r.execute(ctx, op, neo4j.AccessModeRead, work)
}

func (r *graphRepository) execute(ctx context.Context, op string, mode neo4j.AccessMode, work neo4j.ManagedTransactionWork) (any, error) {
	start := time.Now()

	call := func() (interface{}, error) {
		session := r.driver.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: r.driver.database})
		defer session.Close(ctx)

		if mode == neo4j.AccessModeRead {
			return session.ExecuteRead(ctx, work)
		}
		return session.ExecuteWrite(ctx, work)
	}

	var (
		res any
		err error
	)
	if r.breaker != nil {
		res, err = r.breaker.Execute(call)
	} else {
		res, err = call()
	}

	observed := err
	if errors.Is(err, repository.ErrNotFound) {
		observed = nil
	}
	metrics.ObserveStore(storeName, op, start, observed)

	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("neo4j %s: %w", op, err)
	}
	return res, err
}

func consume(ctx context.Context, tx neo4j.ManagedTransaction, query string, params map[string]any) (any, error) {
	result, err := tx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return result.Consume(ctx)
}

func edgeFromRecord(record *neo4j.Record) *model.ConsultationEdge {
	edge := &model.ConsultationEdge{
		PatientID: getString(record, "patient_id"),
		DoctorID:  getString(record, "doctor_id"),
	}

	raw, _ := record.Get("props")
	props, _ := raw.(map[string]any)
	for k, v := range props {
		switch k {
		case model.EdgeConsultationID:
			edge.ConsultationID, _ = v.(string)
		case "updated_at":
			if t, ok := v.(time.Time); ok {
				edge.UpdatedAt = t
			}
		default:
			edge.SetProperty(k, v)
		}
	}
	return edge
}

func getString(record *neo4j.Record, key string) string {
	if v, ok := record.Get(key); ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(record *neo4j.Record, key string) int64 {
	if v, ok := record.Get(key); ok && v != nil {
		if n, ok := v.(int64); ok {
			return n
		}
	}
	return 0
}
