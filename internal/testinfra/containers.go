//go:build integration

// Package testinfra starts throwaway dependencies for integration tests.
//
//	go test -tags integration ./internal/repository/postgres/...
package testinfra

import (
	"context"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/gdugdh24/soundmatch-backend/internal/config"
)

const (
	DefaultPostgresImage = "postgres:16-alpine"
	postgresPort         = "5432/tcp"
)

// SkipIfNoDocker skips the test when no Docker daemon is reachable.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()
	if !IsDockerAvailable() {
		t.Skip("Skipping test: Docker not available")
	}
}

func IsDockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, "docker", "info").Run() == nil
}

// CleanupContainer terminates container and logs instead of failing.
func CleanupContainer(t *testing.T, ctx context.Context, container testcontainers.Container) {
	t.Helper()
	if container != nil {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	}
}

type PostgresContainer struct {
	testcontainers.Container
	Config *config.DatabaseConfig
}

// NewPostgresContainer starts an empty database and returns connection
// settings for it.
func NewPostgresContainer(ctx context.Context) (*PostgresContainer, error) {
	const (
		user     = "soundmatch"
		password = "soundmatch"
		dbName   = "soundmatch_test"
	)

	req := testcontainers.ContainerRequest{
		Image:        DefaultPostgresImage,
		ExposedPorts: []string{postgresPort},
		Env: map[string]string{
			"POSTGRES_USER":     user,
			"POSTGRES_PASSWORD": password,
			"POSTGRES_DB":       dbName,
		},
		// The server restarts once after initdb, hence two occurrences.
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort(postgresPort),
		).WithStartupTimeout(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create postgres container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("postgres host: %w", err)
	}
	port, err := container.MappedPort(ctx, postgresPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("postgres port: %w", err)
	}

	return &PostgresContainer{
		Container: container,
		Config: &config.DatabaseConfig{
			Host:         host,
			Port:         port.Int(),
			User:         user,
			Password:     password,
			DBName:       dbName,
			SSLMode:      "disable",
			MaxOpenConns: 20,
			MaxIdleConns: 5,
		},
	}, nil
}
