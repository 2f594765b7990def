//go:build integration

package postgres

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/doh/internal/prefs"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "doh",
				"POSTGRES_PASSWORD": "doh",
				"POSTGRES_DB":       "doh",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres: %v\n", err)
		return 1
	}
	defer func() {
		_ = container.Terminate(context.Background())
	}()

	host, err := container.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "container host: %v\n", err)
		return 1
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "container port: %v\n", err)
		return 1
	}

	url := fmt.Sprintf("postgres://doh:doh@%s:%s/doh?sslmode=disable", host, port.Port())
	testPool, err = NewPool(ctx, url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create pool: %v\n", err)
		return 1
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		return 1
	}
	// Migrations must be re-runnable.
	if err := RunMigrations(ctx, testPool); err != nil {
		fmt.Fprintf(os.Stderr, "migrate twice: %v\n", err)
		return 1
	}

	return m.Run()
}

func TestPreferenceStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := NewPreferenceStore(testPool)
	key := "crud-" + uuid.NewString()

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, key, "a"))
	require.NoError(t, s.Set(ctx, key, "b"))

	v, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))

	_, ok, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPreferenceStore_SetIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewPreferenceStore(testPool)
	key := "nx-" + uuid.NewString()

	got, err := s.SetIfAbsent(ctx, key, "first")
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	got, err = s.SetIfAbsent(ctx, key, "second")
	require.NoError(t, err)
	assert.Equal(t, "first", got)
}

func TestPreferenceStore_SetIfAbsentReplacesEmpty(t *testing.T) {
	ctx := context.Background()
	s := NewPreferenceStore(testPool)
	key := "empty-" + uuid.NewString()

	require.NoError(t, s.Set(ctx, key, ""))

	got, err := s.SetIfAbsent(ctx, key, "filled")
	require.NoError(t, err)
	assert.Equal(t, "filled", got)

	v, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "filled", v)
}

func TestPreferenceStore_EmptyDeviceID(t *testing.T) {
	ctx := context.Background()
	s := NewPreferenceStore(testPool)
	require.NoError(t, s.Set(ctx, prefs.KeyDeviceID, ""))
	t.Cleanup(func() {
		_, _ = testPool.Exec(context.Background(), `DELETE FROM preferences WHERE key = $1`, prefs.KeyDeviceID)
	})

	id, err := prefs.New(s).DeviceID(ctx)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err, "empty stored id must be replaced, got %q", id)

	again, err := prefs.New(s).DeviceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestPreferenceStore_DeviceIDAcrossProcesses(t *testing.T) {
	ctx := context.Background()
	_, err := testPool.Exec(ctx, `DELETE FROM preferences WHERE key = $1`, prefs.KeyDeviceID)
	require.NoError(t, err)

	// Independent Preferences instances model separate processes sharing
	// one database.
	const n = 8
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := prefs.New(NewPreferenceStore(testPool)).DeviceID(ctx)
			assert.NoError(t, err)
			ids[i] = id
		}()
	}
	wg.Wait()

	_, err = uuid.Parse(ids[0])
	require.NoError(t, err)
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestPreferences_ResetUserData(t *testing.T) {
	ctx := context.Background()
	p := prefs.New(NewPreferenceStore(testPool))

	email := "user@example.com"
	require.NoError(t, p.SetLastUsedLoginEmail(ctx, &email))

	got, ok, err := p.LastUsedLoginEmail(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, email, got)

	require.NoError(t, p.ResetUserData(ctx))

	_, ok, err = p.LastUsedLoginEmail(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
