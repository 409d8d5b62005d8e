package container

import (
	"fmt"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"github.com/rtpcraft/randomtp/testutil"
)

const (
	MongoUsername = "user"
	MongoPassword = "password"
	MongoDatabase = "randomtp-e2e"

	rabbitUser     = "guest"
	rabbitPassword = "guest"
)

// Manager starts docker containers and purges them on ClearResources.
type Manager struct {
	cfg       ImageConfig
	pool      *dockertest.Pool
	resources map[string]*dockertest.Resource
}

func NewManager() (*Manager, error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, err
	}

	return &Manager{
		cfg:       NewImageConfig(),
		pool:      pool,
		resources: make(map[string]*dockertest.Resource),
	}, nil
}

func (m *Manager) Pool() *dockertest.Pool {
	return m.pool
}

// RunMongoResource starts mongo and returns its connection address.
func (m *Manager) RunMongoResource(t *testing.T) (string, error) {
	resource, err := m.run(t, "mongo", &dockertest.RunOptions{
		Repository: m.cfg.MongoRepository,
		Tag:        m.cfg.MongoVersion,
		Env: []string{
			"MONGO_INITDB_ROOT_USERNAME=" + MongoUsername,
			"MONGO_INITDB_ROOT_PASSWORD=" + MongoPassword,
			"MONGO_INITDB_DATABASE=" + MongoDatabase,
		},
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("mongodb://localhost:%s/", resource.GetPort("27017/tcp")), nil
}

// RunRabbitMQResource starts rabbitmq and returns its amqp url.
func (m *Manager) RunRabbitMQResource(t *testing.T) (string, error) {
	resource, err := m.run(t, "rabbitmq", &dockertest.RunOptions{
		Repository: m.cfg.RabbitMQRepository,
		Tag:        m.cfg.RabbitMQVersion,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("amqp://%s:%s@localhost:%s/", rabbitUser, rabbitPassword, resource.GetPort("5672/tcp")), nil
}

func (m *Manager) run(t *testing.T, name string, opts *dockertest.RunOptions) (*dockertest.Resource, error) {
	t.Helper()

	// there can be only 1 container with the same name, so we add
	// random string in the end in case there is still old container running
	suffix, err := testutil.RandomAlphaNum(4)
	if err != nil {
		return nil, err
	}
	opts.Name = fmt.Sprintf("randomtp-e2e-%s-%s", name, suffix)

	resource, err := m.pool.RunWithOptions(opts, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}
	m.resources[name] = resource
	return resource, nil
}

// ClearResources removes all outstanding Docker resources created by the Manager.
func (m *Manager) ClearResources() error {
	for name, resource := range m.resources {
		if err := m.pool.Purge(resource); err != nil {
			return fmt.Errorf("failed to purge %s: %w", name, err)
		}
	}
	return nil
}
