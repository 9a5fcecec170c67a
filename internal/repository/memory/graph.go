package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jwalitptl/cabinet-api/internal/model"
	"github.com/jwalitptl/cabinet-api/internal/repository"
)

var _ repository.GraphRepository = (*GraphRepository)(nil)

// GraphRepository mirrors the Cypher semantics of the graph store: nodes merge by id,
// edges attach only to existing endpoints and are removed with either endpoint.
type GraphRepository struct {
	*Faults
	mu       sync.RWMutex
	patients map[string]model.PatientNode
	doctors  map[string]model.DoctorNode
	edges    map[string]model.ConsultationEdge
}

func NewGraphRepository() *GraphRepository {
	return &GraphRepository{
		Faults:   newFaults(),
		patients: make(map[string]model.PatientNode),
		doctors:  make(map[string]model.DoctorNode),
		edges:    make(map[string]model.ConsultationEdge),
	}
}

func (g *GraphRepository) MergePatientNode(ctx context.Context, node *model.PatientNode) error {
	if err := g.enter("MergePatientNode"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	n := *node
	n.UpdatedAt = time.Now().UTC()
	g.patients[n.ID] = n
	return nil
}

func (g *GraphRepository) MergeDoctorNode(ctx context.Context, node *model.DoctorNode) error {
	if err := g.enter("MergeDoctorNode"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	n := *node
	n.UpdatedAt = time.Now().UTC()
	g.doctors[n.ID] = n
	return nil
}

func (g *GraphRepository) detach(match func(model.ConsultationEdge) bool) {
	for id, e := range g.edges {
		if match(e) {
			delete(g.edges, id)
		}
	}
}

func (g *GraphRepository) DeletePatientNode(ctx context.Context, id string) (bool, error) {
	if err := g.enter("DeletePatientNode"); err != nil {
		return false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.patients[id]; !ok {
		return false, nil
	}
	delete(g.patients, id)
	g.detach(func(e model.ConsultationEdge) bool { return e.PatientID == id })
	return true, nil
}

func (g *GraphRepository) DeleteDoctorNode(ctx context.Context, id string) (bool, error) {
	if err := g.enter("DeleteDoctorNode"); err != nil {
		return false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.doctors[id]; !ok {
		return false, nil
	}
	delete(g.doctors, id)
	g.detach(func(e model.ConsultationEdge) bool { return e.DoctorID == id })
	return true, nil
}

func (g *GraphRepository) GetConsultationEdge(ctx context.Context, consultationID string) (*model.ConsultationEdge, error) {
	if err := g.enter("GetConsultationEdge"); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.edges[consultationID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (g *GraphRepository) CreateConsultationEdge(ctx context.Context, edge *model.ConsultationEdge) error {
	if err := g.enter("CreateConsultationEdge"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	_, hasPatient := g.patients[edge.PatientID]
	_, hasDoctor := g.doctors[edge.DoctorID]
	if !hasPatient || !hasDoctor {
		return fmt.Errorf("%w: edge endpoints for consultation %s", repository.ErrNotFound, edge.ConsultationID)
	}
	e := *edge
	e.UpdatedAt = time.Now().UTC()
	g.edges[e.ConsultationID] = e
	return nil
}

func (g *GraphRepository) UpdateConsultationEdge(ctx context.Context, consultationID string, props map[string]interface{}) error {
	if err := g.enter("UpdateConsultationEdge"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.edges[consultationID]
	if !ok {
		return repository.ErrNotFound
	}
	for k, v := range props {
		e.SetProperty(k, v)
	}
	e.UpdatedAt = time.Now().UTC()
	g.edges[consultationID] = e
	return nil
}

func (g *GraphRepository) DeleteConsultationEdge(ctx context.Context, consultationID string) (bool, error) {
	if err := g.enter("DeleteConsultationEdge"); err != nil {
		return false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.edges[consultationID]; !ok {
		return false, nil
	}
	delete(g.edges, consultationID)
	return true, nil
}

func (g *GraphRepository) PatientsOfDoctor(ctx context.Context, doctorID string) ([]*model.ConsultedPatient, error) {
	if err := g.enter("PatientsOfDoctor"); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	byPatient := make(map[string]*model.ConsultedPatient)
	for _, e := range g.edges {
		if e.DoctorID != doctorID {
			continue
		}
		cp, ok := byPatient[e.PatientID]
		if !ok {
			node := g.patients[e.PatientID]
			cp = &model.ConsultedPatient{ID: node.ID, Name: node.Name, Email: node.Email}
			byPatient[e.PatientID] = cp
		}
		cp.Consultations++
		if e.Date > cp.LastVisit {
			cp.LastVisit = e.Date
		}
	}

	out := make([]*model.ConsultedPatient, 0, len(byPatient))
	for _, cp := range byPatient {
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastVisit == out[j].LastVisit {
			return out[i].ID < out[j].ID
		}
		return out[i].LastVisit > out[j].LastVisit
	})
	return out, nil
}

// Counts returns how many patient nodes, doctor nodes and edges are stored.
func (g *GraphRepository) Counts() (patients, doctors, edges int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.patients), len(g.doctors), len(g.edges)
}

// PatientNode returns a stored patient node, if any.
func (g *GraphRepository) PatientNode(id string) (model.PatientNode, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.patients[id]
	return n, ok
}

// DoctorNode returns a stored doctor node, if any.
func (g *GraphRepository) DoctorNode(id string) (model.DoctorNode, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.doctors[id]
	return n, ok
}
