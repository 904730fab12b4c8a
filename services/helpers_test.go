package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"food-order-bot/api"
	"food-order-bot/api/apitest"
	"food-order-bot/models"

	"github.com/stretchr/testify/require"
)

type memStorage struct {
	mu   sync.Mutex
	data map[string]string
	fail error
}

func newMemStorage() *memStorage {
	return &memStorage{data: make(map[string]string)}
}

func memKey(owner int64, key string) string {
	return fmt.Sprintf("%d/%s", owner, key)
}

func (m *memStorage) Get(_ context.Context, owner int64, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return "", false, m.fail
	}
	v, ok := m.data[memKey(owner, key)]
	return v, ok, nil
}

func (m *memStorage) Set(_ context.Context, owner int64, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.data[memKey(owner, key)] = value
	return nil
}

func (m *memStorage) Remove(_ context.Context, owner int64, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	for _, k := range keys {
		delete(m.data, memKey(owner, k))
	}
	return nil
}

func (m *memStorage) has(owner int64, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[memKey(owner, key)]
	return ok
}

type fixture struct {
	backend *apitest.Backend
	client  *api.Client
	store   *memStorage
	app     *App
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := apitest.NewBackend()
	t.Cleanup(b.Close)
	c := api.New(b.BaseURL(), 5*time.Second)
	st := newMemStorage()
	return &fixture{
		backend: b,
		client:  c,
		store:   st,
		app:     NewApp(1, st, c, NewMenuLoader(c)),
	}
}

// registered returns a fixture whose app is logged in as a fresh user.
func registered(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	err := f.app.Session.Register(context.Background(), models.RegisterInput{
		Name: "Ivan", Email: "ivan@example.com", Password: "secret1", Phone: "+7900", Address: "Tverskaya 1",
	})
	require.NoError(t, err)
	return f
}
