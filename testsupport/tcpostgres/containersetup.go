package tcpostgres

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	defaultImage    = "postgres:16"
	defaultUser     = "postgres"
	defaultPassword = "password"
	defaultDatabase = "journal"
)

// PostgresContainer is a postgres server used by journal tests
type PostgresContainer struct {
	testcontainers.Container
	URL string // connection string for the initial database
}

type (
	PostgresContainerOption func(*containerConfig)
	containerConfig         struct {
		req      testcontainers.ContainerRequest
		user     string
		password string
		database string
	}
)

func WithImage(image string) PostgresContainerOption {
	return func(c *containerConfig) {
		c.req.Image = image
	}
}

// WithName names the container, named containers are reused between test runs
func WithName(containerName string) PostgresContainerOption {
	return func(c *containerConfig) {
		c.req.Name = containerName
	}
}

func WithCredentials(user, password string) PostgresContainerOption {
	return func(c *containerConfig) {
		c.user = user
		c.password = password
	}
}

func WithDatabase(dbName string) PostgresContainerOption {
	return func(c *containerConfig) {
		c.database = dbName
	}
}

// SetupPostgres starts the container and resolves the connection string of
// the initial database. fsync is disabled, the data is disposable.
func SetupPostgres(ctx context.Context, opts ...PostgresContainerOption) (
	*PostgresContainer, error,
) {
	port, err := nat.NewPort("tcp", "5432")
	if err != nil {
		return nil, err
	}
	cfg := &containerConfig{
		req: testcontainers.ContainerRequest{
			Image:        defaultImage,
			ExposedPorts: []string{string(port)},
			Cmd:          []string{"postgres", "-c", "fsync=off"},
			// postgres restarts once after the init scripts
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30 * time.Second),
		},
		user:     defaultUser,
		password: defaultPassword,
		database: defaultDatabase,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.req.Env = map[string]string{
		"POSTGRES_USER":     cfg.user,
		"POSTGRES_PASSWORD": cfg.password,
		"POSTGRES_DB":       cfg.database,
	}

	container, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: cfg.req,
			Started:          true,
			Reuse:            cfg.req.Name != "",
		})
	if err != nil {
		return nil, err
	}
	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		return nil, err
	}
	host, err := container.Host(ctx)
	if err != nil {
		return nil, err
	}
	return &PostgresContainer{
		Container: container,
		URL: fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable",
			cfg.user, cfg.password, host, mapped.Port(), cfg.database),
	}, nil
}
