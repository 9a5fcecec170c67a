package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/cabinet-api/internal/model"
	"github.com/jwalitptl/cabinet-api/internal/repository"
)

var (
	_ repository.UserRepository         = (*UserRepository)(nil)
	_ repository.PatientRepository      = (*PatientRepository)(nil)
	_ repository.DoctorRepository       = (*DoctorRepository)(nil)
	_ repository.ConsultationRepository = (*ConsultationRepository)(nil)
)

// collection is a map of documents that hands out copies.
type collection[T any] struct {
	mu   sync.RWMutex
	docs map[primitive.ObjectID]T
}

func newCollection[T any]() *collection[T] {
	return &collection[T]{docs: make(map[primitive.ObjectID]T)}
}

func (c *collection[T]) get(id primitive.ObjectID) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &doc, nil
}

func (c *collection[T]) find(match func(*T) bool) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, doc := range c.docs {
		doc := doc
		if match(&doc) {
			return &doc, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (c *collection[T]) put(id primitive.ObjectID, doc T, mustExist bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[id]; mustExist && !ok {
		return repository.ErrNotFound
	}
	c.docs[id] = doc
	return nil
}

func (c *collection[T]) remove(id primitive.ObjectID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(c.docs, id)
	return nil
}

// filter returns matching copies ordered by less, then one page of them.
func (c *collection[T]) filter(match func(*T) bool, less func(a, b *T) bool, opts repository.ListOptions) ([]*T, int64) {
	c.mu.RLock()
	all := make([]*T, 0, len(c.docs))
	for _, doc := range c.docs {
		doc := doc
		if match == nil || match(&doc) {
			all = append(all, &doc)
		}
	}
	c.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool { return less(all[i], all[j]) })

	total := int64(len(all))
	start := opts.Skip
	if start > total {
		start = total
	}
	end := total
	if opts.Limit > 0 && start+opts.Limit < total {
		end = start + opts.Limit
	}
	return all[start:end], total
}

func (c *collection[T]) count(match func(*T) bool) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var n int64
	for _, doc := range c.docs {
		doc := doc
		if match == nil || match(&doc) {
			n++
		}
	}
	return n
}

func stamp(base *model.Base, create bool) {
	now := time.Now().UTC()
	if create {
		if base.ID.IsZero() {
			base.ID = primitive.NewObjectID()
		}
		base.CreatedAt = now
	}
	base.UpdatedAt = now
}

func newestFirst(a, b *model.Base) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID.Hex() > b.ID.Hex()
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// UserRepository enforces the unique email index.
type UserRepository struct {
	*Faults
	users *collection[model.User]
}

func NewUserRepository() *UserRepository {
	return &UserRepository{Faults: newFaults(), users: newCollection[model.User]()}
}

func (r *UserRepository) emailTaken(email string, except primitive.ObjectID) bool {
	_, err := r.users.find(func(u *model.User) bool { return u.Email == email && u.ID != except })
	return err == nil
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.enter("Create"); err != nil {
		return err
	}
	user.Email = model.NormalizeEmail(user.Email)
	if r.emailTaken(user.Email, primitive.NilObjectID) {
		return fmt.Errorf("%w: email %s", repository.ErrDuplicate, user.Email)
	}
	stamp(&user.Base, true)
	return r.users.put(user.ID, *user, false)
}

func (r *UserRepository) Get(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	if err := r.enter("Get"); err != nil {
		return nil, err
	}
	return r.users.get(id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if err := r.enter("GetByEmail"); err != nil {
		return nil, err
	}
	email = model.NormalizeEmail(email)
	return r.users.find(func(u *model.User) bool { return u.Email == email })
}

func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	if err := r.enter("Update"); err != nil {
		return err
	}
	user.Email = model.NormalizeEmail(user.Email)
	if r.emailTaken(user.Email, user.ID) {
		return fmt.Errorf("%w: email %s", repository.ErrDuplicate, user.Email)
	}
	stamp(&user.Base, false)
	return r.users.put(user.ID, *user, true)
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	if err := r.enter("UpdateLastLogin"); err != nil {
		return err
	}
	user, err := r.users.get(id)
	if err != nil {
		return err
	}
	at = at.UTC()
	user.LastLogin = &at
	return r.users.put(id, *user, true)
}

func (r *UserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := r.enter("Delete"); err != nil {
		return err
	}
	return r.users.remove(id)
}

func (r *UserRepository) List(ctx context.Context, filter model.UserFilter, opts repository.ListOptions) ([]*model.User, int64, error) {
	if err := r.enter("List"); err != nil {
		return nil, 0, err
	}
	q := strings.ToLower(strings.TrimSpace(filter.Query))
	users, total := r.users.filter(
		func(u *model.User) bool {
			if filter.Role != "" && u.Role != filter.Role {
				return false
			}
			return q == "" ||
				strings.Contains(strings.ToLower(u.Email), q) ||
				strings.Contains(strings.ToLower(u.FirstName), q) ||
				strings.Contains(strings.ToLower(u.LastName), q)
		},
		func(a, b *model.User) bool { return newestFirst(&a.Base, &b.Base) },
		opts,
	)
	return users, total, nil
}

type PatientRepository struct {
	*Faults
	patients *collection[model.Patient]
}

func NewPatientRepository() *PatientRepository {
	return &PatientRepository{Faults: newFaults(), patients: newCollection[model.Patient]()}
}

func (r *PatientRepository) Create(ctx context.Context, p *model.Patient) error {
	if err := r.enter("Create"); err != nil {
		return err
	}
	stamp(&p.Base, true)
	return r.patients.put(p.ID, *p, false)
}

func (r *PatientRepository) Get(ctx context.Context, id primitive.ObjectID) (*model.Patient, error) {
	if err := r.enter("Get"); err != nil {
		return nil, err
	}
	return r.patients.get(id)
}

func (r *PatientRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*model.Patient, error) {
	if err := r.enter("GetByUserID"); err != nil {
		return nil, err
	}
	return r.patients.find(func(p *model.Patient) bool { return p.UserID == userID })
}

func (r *PatientRepository) Update(ctx context.Context, p *model.Patient) error {
	if err := r.enter("Update"); err != nil {
		return err
	}
	stamp(&p.Base, false)
	return r.patients.put(p.ID, *p, true)
}

func (r *PatientRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := r.enter("Delete"); err != nil {
		return err
	}
	return r.patients.remove(id)
}

func (r *PatientRepository) List(ctx context.Context, opts repository.ListOptions) ([]*model.Patient, int64, error) {
	if err := r.enter("List"); err != nil {
		return nil, 0, err
	}
	patients, total := r.patients.filter(nil, func(a, b *model.Patient) bool {
		if a.Name == b.Name {
			return a.ID.Hex() < b.ID.Hex()
		}
		return a.Name < b.Name
	}, opts)
	return patients, total, nil
}

func (r *PatientRepository) Count(ctx context.Context) (int64, error) {
	if err := r.enter("Count"); err != nil {
		return 0, err
	}
	return r.patients.count(nil), nil
}

type DoctorRepository struct {
	*Faults
	doctors *collection[model.Doctor]
}

func NewDoctorRepository() *DoctorRepository {
	return &DoctorRepository{Faults: newFaults(), doctors: newCollection[model.Doctor]()}
}

func (r *DoctorRepository) Create(ctx context.Context, d *model.Doctor) error {
	if err := r.enter("Create"); err != nil {
		return err
	}
	stamp(&d.Base, true)
	return r.doctors.put(d.ID, *d, false)
}

func (r *DoctorRepository) Get(ctx context.Context, id primitive.ObjectID) (*model.Doctor, error) {
	if err := r.enter("Get"); err != nil {
		return nil, err
	}
	return r.doctors.get(id)
}

func (r *DoctorRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*model.Doctor, error) {
	if err := r.enter("GetByUserID"); err != nil {
		return nil, err
	}
	return r.doctors.find(func(d *model.Doctor) bool { return d.UserID == userID })
}

func (r *DoctorRepository) Update(ctx context.Context, d *model.Doctor) error {
	if err := r.enter("Update"); err != nil {
		return err
	}
	stamp(&d.Base, false)
	return r.doctors.put(d.ID, *d, true)
}

func (r *DoctorRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := r.enter("Delete"); err != nil {
		return err
	}
	return r.doctors.remove(id)
}

func (r *DoctorRepository) List(ctx context.Context, opts repository.ListOptions) ([]*model.Doctor, int64, error) {
	if err := r.enter("List"); err != nil {
		return nil, 0, err
	}
	doctors, total := r.doctors.filter(nil, func(a, b *model.Doctor) bool {
		if a.Name == b.Name {
			return a.ID.Hex() < b.ID.Hex()
		}
		return a.Name < b.Name
	}, opts)
	return doctors, total, nil
}

func (r *DoctorRepository) Count(ctx context.Context) (int64, error) {
	if err := r.enter("Count"); err != nil {
		return 0, err
	}
	return r.doctors.count(nil), nil
}

type ConsultationRepository struct {
	*Faults
	consultations *collection[model.Consultation]
}

func NewConsultationRepository() *ConsultationRepository {
	return &ConsultationRepository{Faults: newFaults(), consultations: newCollection[model.Consultation]()}
}

func (r *ConsultationRepository) Create(ctx context.Context, c *model.Consultation) error {
	if err := r.enter("Create"); err != nil {
		return err
	}
	stamp(&c.Base, true)
	return r.consultations.put(c.ID, *c, false)
}

func (r *ConsultationRepository) Get(ctx context.Context, id primitive.ObjectID) (*model.Consultation, error) {
	if err := r.enter("Get"); err != nil {
		return nil, err
	}
	return r.consultations.get(id)
}

func (r *ConsultationRepository) Update(ctx context.Context, c *model.Consultation) error {
	if err := r.enter("Update"); err != nil {
		return err
	}
	stamp(&c.Base, false)
	return r.consultations.put(c.ID, *c, true)
}

func (r *ConsultationRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := r.enter("Delete"); err != nil {
		return err
	}
	return r.consultations.remove(id)
}

func matchConsultation(filter model.ConsultationFilter) func(*model.Consultation) bool {
	return func(c *model.Consultation) bool {
		if !filter.PatientID.IsZero() && c.PatientID != filter.PatientID {
			return false
		}
		if !filter.DoctorID.IsZero() && c.DoctorID != filter.DoctorID {
			return false
		}
		if !filter.DateFrom.IsZero() && c.Date.Before(filter.DateFrom) {
			return false
		}
		return filter.Status == "" || c.Status == filter.Status
	}
}

func (r *ConsultationRepository) List(ctx context.Context, filter model.ConsultationFilter, opts repository.ListOptions) ([]*model.Consultation, int64, error) {
	if err := r.enter("List"); err != nil {
		return nil, 0, err
	}
	consultations, total := r.consultations.filter(matchConsultation(filter), func(a, b *model.Consultation) bool {
		if filter.Ascending {
			a, b = b, a
		}
		if a.Date.Equal(b.Date) {
			return a.ID.Hex() > b.ID.Hex()
		}
		return a.Date.After(b.Date)
	}, opts)
	return consultations, total, nil
}

func (r *ConsultationRepository) Count(ctx context.Context, filter model.ConsultationFilter) (int64, error) {
	if err := r.enter("Count"); err != nil {
		return 0, err
	}
	return r.consultations.count(matchConsultation(filter)), nil
}

func (r *ConsultationRepository) CountByStatus(ctx context.Context) (map[model.ConsultationStatus]int64, error) {
	if err := r.enter("CountByStatus"); err != nil {
		return nil, err
	}
	counts := make(map[model.ConsultationStatus]int64, len(model.ConsultationStatuses))
	for _, s := range model.ConsultationStatuses {
		counts[s] = r.consultations.count(matchConsultation(model.ConsultationFilter{Status: s}))
	}
	return counts, nil
}

func (r *ConsultationRepository) CountByDoctor(ctx context.Context) ([]model.DoctorConsultationCount, error) {
	if err := r.enter("CountByDoctor"); err != nil {
		return nil, err
	}
	all, _ := r.consultations.filter(nil, func(a, b *model.Consultation) bool { return a.ID.Hex() < b.ID.Hex() }, repository.ListOptions{})

	byDoctor := make(map[primitive.ObjectID]int64)
	for _, c := range all {
		byDoctor[c.DoctorID]++
	}

	rows := make([]model.DoctorConsultationCount, 0, len(byDoctor))
	for id, n := range byDoctor {
		rows = append(rows, model.DoctorConsultationCount{DoctorID: id, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].DoctorID.Hex() < rows[j].DoctorID.Hex()
		}
		return rows[i].Count > rows[j].Count
	})
	return rows, nil
}
