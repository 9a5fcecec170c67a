package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/cabinet-api/internal/config"
	"github.com/jwalitptl/cabinet-api/internal/repository"
	"github.com/jwalitptl/cabinet-api/internal/repository/graphdb"
	"github.com/jwalitptl/cabinet-api/internal/repository/mongodb"
	"github.com/jwalitptl/cabinet-api/internal/server"
	"github.com/jwalitptl/cabinet-api/pkg/logger"
	"github.com/jwalitptl/cabinet-api/pkg/ratelimit"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.New(cfg.Log)

	// Document store
	db, err := connectMongo(cfg.Mongo)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start mongodb")
	}

	// Graph store
	driver, err := connectNeo4j(cfg.Neo4j)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start neo4j")
	}

	limiter, err := ratelimit.New(cfg.RateLimit.StorageURL, ratelimit.Config{
		Requests: cfg.RateLimit.Requests,
		Period:   cfg.RateLimit.Period,
		Burst:    cfg.RateLimit.Burst,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create rate limiter")
	}

	stores := server.Stores{
		Users:         mongodb.NewUserRepository(db),
		Patients:      mongodb.NewPatientRepository(db),
		Doctors:       mongodb.NewDoctorRepository(db),
		Consultations: mongodb.NewConsultationRepository(db),
		Graph:         graphdb.NewGraphRepository(driver, graphdb.NewBreaker(cfg.Neo4j.Breaker)),
		Pingers: map[string]repository.Pinger{
			"mongodb": db,
			"neo4j":   driver,
		},
	}

	r, err := server.New(cfg, stores, server.Options{Mode: gin.ReleaseMode, Limiter: limiter})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	if err := limiter.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close rate limiter")
	}
	if err := driver.Close(ctx); err != nil {
		log.Error().Err(err).Msg("failed to close neo4j driver")
	}
	if err := db.Close(ctx); err != nil {
		log.Error().Err(err).Msg("failed to close mongodb client")
	}

	log.Info().Msg("server exited properly")
}

// connectMongo connects and ensures indexes within the mongo connect timeout.
func connectMongo(cfg config.MongoConfig) (*mongodb.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	db, err := mongodb.NewDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureIndexes(ctx); err != nil {
		_ = db.Close(context.Background())
		return nil, fmt.Errorf("failed to create mongodb indexes: %w", err)
	}
	return db, nil
}

// connectNeo4j verifies connectivity and applies the schema within the acquisition timeout.
func connectNeo4j(cfg config.Neo4jConfig) (*graphdb.Driver, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectionAcquisitionTimeout)
	defer cancel()

	driver, err := graphdb.NewDriver(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := driver.EnsureSchema(ctx); err != nil {
		_ = driver.Close(context.Background())
		return nil, fmt.Errorf("failed to create neo4j constraints: %w", err)
	}
	return driver, nil
}
