package graphdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/jwalitptl/cabinet-api/internal/config"
	"github.com/jwalitptl/cabinet-api/internal/repository"
)

const storeName = "neo4j"

var schema = []string{
	"CREATE CONSTRAINT patient_id_unique IF NOT EXISTS FOR (p:Patient) REQUIRE p.id IS UNIQUE",
	"CREATE CONSTRAINT doctor_id_unique IF NOT EXISTS FOR (d:Doctor) REQUIRE d.id IS UNIQUE",
	"CREATE INDEX consulted_by_consultation_id IF NOT EXISTS FOR ()-[r:CONSULTED_BY]-() ON (r.consultation_id)",
}

// Driver owns the process-wide neo4j driver. Pooling is left to the driver.
type Driver struct {
	driver   neo4j.DriverWithContext
	database string
}

func NewDriver(ctx context.Context, cfg config.Neo4jConfig) (*Driver, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.User, cfg.Password, ""),
		func(c *neo4j.Config) {
			c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
			c.MaxConnectionLifetime = cfg.MaxConnectionLifetime
			c.ConnectionAcquisitionTimeout = cfg.ConnectionAcquisitionTimeout
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	return &Driver{driver: driver, database: cfg.Database}, nil
}

func (d *Driver) Ping(ctx context.Context) error {
	return d.driver.VerifyConnectivity(ctx)
}

func (d *Driver) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

// EnsureSchema creates the node key constraints and the edge lookup index.
func (d *Driver) EnsureSchema(ctx context.Context) error {
	session := d.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: d.database})
	defer session.Close(ctx)

	for _, stmt := range schema {
		result, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return fmt.Errorf("failed to apply %q: %w", stmt, err)
		}
		if _, err := result.Consume(ctx); err != nil {
			return fmt.Errorf("failed to apply %q: %w", stmt, err)
		}
	}
	return nil
}

// NewBreaker returns nil when the breaker is disabled.
func NewBreaker(cfg config.BreakerConfig) *gobreaker.CircuitBreaker {
	if !cfg.Enabled {
		return nil
	}

	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 3
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "Neo4j",
		MaxRequests: 3,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, repository.ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
}
