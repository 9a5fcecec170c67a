// Package server assembles services and handlers over a set of stores.
package server

import (
	"github.com/jwalitptl/cabinet-api/internal/config"
	adminHandler "github.com/jwalitptl/cabinet-api/internal/handler/admin"
	authHandler "github.com/jwalitptl/cabinet-api/internal/handler/auth"
	consultationHandler "github.com/jwalitptl/cabinet-api/internal/handler/consultation"
	doctorHandler "github.com/jwalitptl/cabinet-api/internal/handler/doctor"
	"github.com/jwalitptl/cabinet-api/internal/handler/health"
	patientHandler "github.com/jwalitptl/cabinet-api/internal/handler/patient"
	"github.com/jwalitptl/cabinet-api/internal/middleware"
	"github.com/jwalitptl/cabinet-api/internal/repository"
	"github.com/jwalitptl/cabinet-api/internal/router"
	authService "github.com/jwalitptl/cabinet-api/internal/service/auth"
	consultationService "github.com/jwalitptl/cabinet-api/internal/service/consultation"
	doctorService "github.com/jwalitptl/cabinet-api/internal/service/doctor"
	"github.com/jwalitptl/cabinet-api/internal/service/graphsync"
	patientService "github.com/jwalitptl/cabinet-api/internal/service/patient"
	userService "github.com/jwalitptl/cabinet-api/internal/service/user"
	"github.com/jwalitptl/cabinet-api/pkg/auth"
	"github.com/jwalitptl/cabinet-api/pkg/ratelimit"
	"github.com/jwalitptl/cabinet-api/pkg/security"
)

// Stores is the store-client set, built once per process.
type Stores struct {
	Users         repository.UserRepository
	Patients      repository.PatientRepository
	Doctors       repository.DoctorRepository
	Consultations repository.ConsultationRepository
	Graph         repository.GraphRepository
	// Pingers are reported by /api/health, keyed by store name.
	Pingers map[string]repository.Pinger
}

type Options struct {
	Mode    string
	Hasher  security.PasswordHasher
	Limiter ratelimit.Limiter
}

// New wires every service and handler over stores.
func New(cfg *config.Config, stores Stores, opts Options) (*router.Router, error) {
	hasher := opts.Hasher
	if hasher == nil {
		hasher = security.NewHasher(cfg.Auth.HashIterations)
	}

	jwtSvc := auth.NewJWTService(auth.Config{
		Secret:     cfg.JWT.Secret,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
	})
	bridge := graphsync.NewBridge(stores.Graph)

	authSvc := authService.NewService(stores.Users, jwtSvc, hasher)
	patientSvc := patientService.NewService(stores.Patients, stores.Consultations, bridge)
	doctorSvc := doctorService.NewService(stores.Doctors, stores.Graph, bridge)
	consultationSvc := consultationService.NewService(stores.Consultations, stores.Patients, stores.Doctors, bridge)
	userSvc := userService.NewService(stores.Users, stores.Consultations, patientSvc, doctorSvc, hasher, userService.Options{
		Policy:                 cfg.Password,
		AllowAdminRegistration: cfg.Auth.AllowAdminRegistration,
	})

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = opts.Limiter
	}

	return router.NewRouter(
		middleware.NewAuthMiddleware(authSvc),
		health.NewHandler(stores.Pingers),
		router.Config{
			Mode:           opts.Mode,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			Limiter:        limiter,
		},
		authHandler.NewHandler(authSvc, userSvc),
		adminHandler.NewHandler(patientSvc, doctorSvc, userSvc),
		consultationHandler.NewHandler(consultationSvc),
		patientHandler.NewHandler(patientSvc),
		doctorHandler.NewHandler(doctorSvc, consultationSvc),
	)
}
