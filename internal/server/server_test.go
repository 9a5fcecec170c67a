package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/cabinet-api/internal/config"
	"github.com/jwalitptl/cabinet-api/internal/repository"
	"github.com/jwalitptl/cabinet-api/internal/repository/memory"
	"github.com/jwalitptl/cabinet-api/pkg/security"
)

type pinger struct {
	err error
}

func (p pinger) Ping(context.Context) error { return p.err }

type env struct {
	engine  *gin.Engine
	users   *memory.UserRepository
	doctors *memory.DoctorRepository
	graph   *memory.GraphRepository
}

func newEnv(t *testing.T, graphErr error) *env {
	t.Helper()
	cfg := &config.Config{
		JWT:      config.JWTConfig{Secret: "test-secret", AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour},
		Password: security.DefaultPasswordPolicy(),
		Auth:     config.AuthConfig{AllowAdminRegistration: true},
		CORS:     config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
	e := &env{
		users:   memory.NewUserRepository(),
		doctors: memory.NewDoctorRepository(),
		graph:   memory.NewGraphRepository(),
	}
	stores := Stores{
		Users:         e.users,
		Patients:      memory.NewPatientRepository(),
		Doctors:       e.doctors,
		Consultations: memory.NewConsultationRepository(),
		Graph:         e.graph,
		Pingers: map[string]repository.Pinger{
			"mongodb": pinger{},
			"neo4j":   pinger{err: graphErr},
		},
	}

	r, err := New(cfg, stores, Options{Mode: gin.TestMode, Hasher: security.NewHasher(1000)})
	require.NoError(t, err)
	e.engine = r.Engine()
	return e
}

type envelope struct {
	Status     string          `json:"status"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Pagination *struct {
		Total      int64 `json:"total"`
		TotalPages int   `json:"total_pages"`
	} `json:"pagination"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (e *env) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	var out envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func data[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

type tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	User         struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
}

func (e *env) register(t *testing.T, email, role string, extra map[string]interface{}) tokens {
	t.Helper()
	body := map[string]interface{}{
		"email":      email,
		"password":   "secret",
		"first_name": "Test",
		"last_name":  "User",
		"role":       role,
	}
	for k, v := range extra {
		body[k] = v
	}
	status, resp := e.do(t, http.MethodPost, "/api/auth/register", "", body)
	require.Equal(t, http.StatusCreated, status, resp.Error)
	return data[tokens](t, resp)
}

func TestRegisterLoginAndProfile(t *testing.T) {
	e := newEnv(t, nil)

	reg := e.register(t, "Ann@X.com", "", nil)
	assert.Equal(t, "patient", reg.User.Role)
	assert.Equal(t, "Bearer", reg.TokenType)

	status, resp := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ann@x.com", "password": "secret"})
	require.Equal(t, http.StatusOK, status)
	login := data[tokens](t, resp)
	assert.NotEmpty(t, login.RefreshToken)

	status, resp = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ann@x.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.NotEmpty(t, resp.Error)

	status, resp = e.do(t, http.MethodGet, "/api/auth/profile", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	profile := data[map[string]interface{}](t, resp)
	assert.Equal(t, "ann@x.com", profile["email"])
	assert.NotContains(t, profile, "password_hash")

	status, resp = e.do(t, http.MethodGet, "/api/patients/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	overview := data[map[string]interface{}](t, resp)
	assert.EqualValues(t, 0, overview["total_consultations"])

	status, resp = e.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": login.RefreshToken})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, data[tokens](t, resp).AccessToken)

	status, resp = e.do(t, http.MethodPost, "/api/auth/refresh", login.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid_token", resp.Code)
}

func TestDuplicateRegistration(t *testing.T) {
	e := newEnv(t, nil)
	e.register(t, "dup@x.com", "patient", nil)

	status, resp := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "DUP@x.com", "password": "secret", "first_name": "A", "last_name": "B",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "email already registered", resp.Error)
}

func TestPatientCannotUseAdminEndpoints(t *testing.T) {
	e := newEnv(t, nil)
	patient := e.register(t, "p@x.com", "patient", nil)

	status, resp := e.do(t, http.MethodPost, "/api/admin/doctors", patient.AccessToken, map[string]string{
		"name": "Dr X", "email": "dx@x.com", "speciality": "GP",
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.NotEmpty(t, resp.Error)
	assert.Zero(t, e.doctors.Calls("Create"))

	_, _, edges := e.graph.Counts()
	assert.Zero(t, edges)
}

func TestAuthErrors(t *testing.T) {
	e := newEnv(t, nil)

	status, resp := e.do(t, http.MethodGet, "/api/consultations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "missing_token", resp.Code)

	status, resp = e.do(t, http.MethodGet, "/api/consultations", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid_token", resp.Code)
}

func TestUnknownFieldRejected(t *testing.T) {
	e := newEnv(t, nil)

	status, resp := e.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"a@x.com","password":"x","remember":true}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, resp.Error)

	status, _ = e.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"not-an-email","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestConsultationLifecycle(t *testing.T) {
	e := newEnv(t, nil)
	admin := e.register(t, "admin@x.com", "admin", nil)

	status, resp := e.do(t, http.MethodPost, "/api/admin/doctors", admin.AccessToken, map[string]string{
		"name": "Dr Dee", "email": "d@x.com", "speciality": "Cardiology",
	})
	require.Equal(t, http.StatusCreated, status, resp.Error)
	doctorID := data[map[string]interface{}](t, resp)["id"].(string)
	require.NotEmpty(t, doctorID)

	status, resp = e.do(t, http.MethodPost, "/api/admin/patients", admin.AccessToken, map[string]string{
		"name": "Ann", "email": "ann@x.com",
	})
	require.Equal(t, http.StatusCreated, status, resp.Error)
	patientID := data[map[string]interface{}](t, resp)["id"].(string)

	status, resp = e.do(t, http.MethodPost, "/api/consultations", admin.AccessToken, map[string]string{
		"patient_id": patientID, "doctor_id": doctorID, "motif": "checkup",
	})
	require.Equal(t, http.StatusCreated, status, resp.Error)
	created := data[map[string]interface{}](t, resp)
	consultationID := created["id"].(string)
	assert.Equal(t, "pending", created["status"])

	status, resp = e.do(t, http.MethodPut, "/api/consultations/"+consultationID, admin.AccessToken, map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, status, resp.Error)

	status, resp = e.do(t, http.MethodGet, "/api/consultations/"+consultationID, admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	read := data[map[string]interface{}](t, resp)
	assert.Equal(t, "completed", read["status"])
	assert.Equal(t, "Dr Dee", read["doctor"].(map[string]interface{})["name"])

	edge, err := e.graph.GetConsultationEdge(context.Background(), consultationID)
	require.NoError(t, err)
	assert.Equal(t, "completed", edge.Status)

	status, resp = e.do(t, http.MethodGet, "/api/consultations?status=completed", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, resp.Pagination)
	assert.EqualValues(t, 1, resp.Pagination.Total)

	status, resp = e.do(t, http.MethodGet, "/api/admin/doctors/"+doctorID+"/patients", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, data[[]map[string]interface{}](t, resp), 1)

	status, resp = e.do(t, http.MethodGet, "/api/admin/stats", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	stats := data[map[string]interface{}](t, resp)
	assert.EqualValues(t, 1, stats["total_doctors"])
	assert.EqualValues(t, 1, stats["total_consultations"])

	status, _ = e.do(t, http.MethodDelete, "/api/consultations/"+consultationID, admin.AccessToken, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = e.do(t, http.MethodDelete, "/api/consultations/"+consultationID, admin.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
	_, err = e.graph.GetConsultationEdge(context.Background(), consultationID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDoctorSelfViews(t *testing.T) {
	e := newEnv(t, nil)
	doctor := e.register(t, "doc@x.com", "doctor", map[string]interface{}{"speciality": "GP"})
	patient := e.register(t, "pat@x.com", "patient", nil)

	status, resp := e.do(t, http.MethodGet, "/api/patients/me", patient.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	patientID := data[map[string]interface{}](t, resp)["id"].(string)

	status, resp = e.do(t, http.MethodPost, "/api/consultations", doctor.AccessToken, map[string]string{
		"patient_id": patientID, "motif": "flu",
	})
	require.Equal(t, http.StatusCreated, status, resp.Error)

	status, resp = e.do(t, http.MethodPost, "/api/consultations", patient.AccessToken, map[string]string{
		"patient_id": patientID, "motif": "self",
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, resp = e.do(t, http.MethodGet, "/api/doctors/me/patients", doctor.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	patients := data[[]map[string]interface{}](t, resp)
	require.Len(t, patients, 1)

	status, resp = e.do(t, http.MethodGet, "/api/doctors/me/patients/"+patientID+"/history", doctor.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, resp.Pagination.Total)

	status, resp = e.do(t, http.MethodGet, "/api/consultations", patient.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, resp.Pagination.Total)

	status, _ = e.do(t, http.MethodGet, "/api/doctors/me", patient.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestHealth(t *testing.T) {
	status, resp := newEnv(t, nil).do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "UP", resp.Status)

	w := httptest.NewRecorder()
	newEnv(t, errors.New("connection refused")).engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"DOWN","checks":{"mongodb":"UP","neo4j":"DOWN"}}`, w.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	status, resp := newEnv(t, nil).do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "route not found", resp.Error)
}

func TestAdminUserSearch(t *testing.T) {
	e := newEnv(t, nil)
	admin := e.register(t, "admin@x.com", "admin", nil)
	e.register(t, "doc@x.com", "doctor", map[string]interface{}{"speciality": "GP"})
	patient := e.register(t, "pat@x.com", "patient", nil)

	status, resp := e.do(t, http.MethodGet, "/api/admin/users/search?query=DOC", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, status, resp.Error)
	users := data[[]map[string]interface{}](t, resp)
	require.Len(t, users, 1)
	assert.Equal(t, "doc@x.com", users[0]["email"])
	assert.EqualValues(t, 1, resp.Pagination.Total)

	status, resp = e.do(t, http.MethodGet, "/api/admin/users/search?query=test", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, resp.Pagination.Total)

	status, _ = e.do(t, http.MethodGet, "/api/admin/users/search?query=doc", patient.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestDoctorSchedule(t *testing.T) {
	e := newEnv(t, nil)
	doctor := e.register(t, "doc@x.com", "doctor", map[string]interface{}{"speciality": "GP"})
	patient := e.register(t, "pat@x.com", "patient", nil)

	status, resp := e.do(t, http.MethodGet, "/api/patients/me", patient.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	patientID := data[map[string]interface{}](t, resp)["id"].(string)

	past := time.Now().UTC().AddDate(0, 0, -3)
	later := time.Now().UTC().AddDate(0, 0, 2)
	for motif, date := range map[string]time.Time{"old": past, "upcoming": later} {
		status, resp = e.do(t, http.MethodPost, "/api/consultations", doctor.AccessToken, map[string]interface{}{
			"patient_id": patientID, "motif": motif, "date": date,
		})
		require.Equal(t, http.StatusCreated, status, resp.Error)
	}
	status, resp = e.do(t, http.MethodPost, "/api/consultations", doctor.AccessToken, map[string]string{
		"patient_id": patientID, "motif": "now",
	})
	require.Equal(t, http.StatusCreated, status, resp.Error)

	status, resp = e.do(t, http.MethodGet, "/api/doctors/me/schedule", doctor.AccessToken, nil)
	require.Equal(t, http.StatusOK, status, resp.Error)
	assert.EqualValues(t, 2, resp.Pagination.Total)
	items := data[[]map[string]interface{}](t, resp)
	require.Len(t, items, 2)
	assert.Equal(t, "now", items[0]["motif"])
	assert.Equal(t, "upcoming", items[1]["motif"])
	assert.Equal(t, "pat@x.com", items[0]["patient"].(map[string]interface{})["email"])

	status, _ = e.do(t, http.MethodGet, "/api/doctors/me/schedule", patient.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
}
