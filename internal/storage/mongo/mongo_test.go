package mongo

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pribylovaa/rideshare-auth/internal/config"
	"github.com/pribylovaa/rideshare-auth/internal/models"
	"github.com/pribylovaa/rideshare-auth/internal/storage"
)

const testTimeout = 10 * time.Second

// TestMain поднимает MongoDB в контейнере один раз на пакет.
func TestMain(m *testing.M) {
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		os.Exit(m.Run())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	mongoC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7.0",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start mongo testcontainer: %v\n", err)
		os.Exit(1)
	}

	host, err := mongoC.Host(ctx)
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}

	port, err := mongoC.MappedPort(ctx, "27017/tcp")
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get mapped port: %v\n", err)
		os.Exit(1)
	}

	_ = os.Setenv("MONGO_URL", fmt.Sprintf("mongodb://%s:%s", host, port.Port()))

	code := m.Run()

	_ = mongoC.Terminate(context.Background())
	os.Exit(code)
}

// newTestStorage подключается к отдельной БД с уникальным именем.
func newTestStorage(t *testing.T) *Mongo {
	t.Helper()

	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration test; set GO_TEST_INTEGRATION=1")
	}

	base := os.Getenv("MONGO_URL")
	require.NotEmpty(t, base)

	dbName := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	st, err := New(ctx, config.MongoConfig{URL: base + "/" + dbName})
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()
		_ = st.db.Drop(ctx)
		st.Close()
	})

	return st
}

func TestDatabaseFromURI(t *testing.T) {
	t.Parallel()

	require.Equal(t, "auth", databaseFromURI("mongodb://localhost:27017/auth"))
	require.Equal(t, "auth", databaseFromURI("mongodb://localhost:27017/auth?retryWrites=true"))
	require.Equal(t, defaultDBName, databaseFromURI("mongodb://localhost:27017"))
	require.Equal(t, defaultDBName, databaseFromURI("::bad::"))
}

func TestIntegration_RefreshTokens_CRUD(t *testing.T) {
	st := newTestStorage(t)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	id, err := st.InsertRefreshToken(ctx, "acc-1", "tok-1")
	require.NoError(t, err)

	got, err := st.RefreshTokenByValue(ctx, "tok-1")
	require.NoError(t, err)
	require.Equal(t, id, got.ID)
	require.Equal(t, "acc-1", got.AccountID)
	require.WithinDuration(t, time.Now(), got.CreatedAt, 5*time.Second)

	_, err = st.InsertRefreshToken(ctx, "acc-1", "tok-1")
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	_, err = st.InsertRefreshToken(ctx, "acc-1", "tok-2")
	require.NoError(t, err)

	list, err := st.RefreshTokensByAccount(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "tok-1", list[0].Token)

	existed, err := st.DeleteRefreshToken(ctx, id)
	require.NoError(t, err)
	require.True(t, existed)

	existed, err = st.DeleteRefreshToken(ctx, id)
	require.NoError(t, err)
	require.False(t, existed)

	existed, err = st.DeleteRefreshToken(ctx, "not-an-object-id")
	require.NoError(t, err)
	require.False(t, existed)

	_, err = st.RefreshTokenByValue(ctx, "tok-1")
	require.ErrorIs(t, err, storage.ErrNotFound)

	n, err := st.DeleteRefreshTokensByAccount(ctx, "acc-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestIntegration_DeleteRefreshToken_SingleWinner(t *testing.T) {
	st := newTestStorage(t)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	id, err := st.InsertRefreshToken(ctx, "acc-1", "tok-race")
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := st.DeleteRefreshToken(ctx, id)
			if err == nil && ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, winners.Load())
}

func TestIntegration_ScanRefreshTokens(t *testing.T) {
	st := newTestStorage(t)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	for i := 0; i < 3; i++ {
		_, err := st.InsertRefreshToken(ctx, "acc-1", fmt.Sprintf("tok-%d", i))
		require.NoError(t, err)
	}

	seen := 0
	require.NoError(t, st.ScanRefreshTokens(ctx, func(models.RefreshToken) error {
		seen++
		return nil
	}))
	require.Equal(t, 3, seen)
}

func TestIntegration_Accounts(t *testing.T) {
	st := newTestStorage(t)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	acc := &models.Account{
		Email:        "Rider@Example.com",
		Name:         "Rider",
		Role:         models.RoleUser,
		PasswordHash: "hash",
	}
	require.NoError(t, st.SaveAccount(ctx, acc))
	require.NotEmpty(t, acc.ID)

	err := st.SaveAccount(ctx, &models.Account{Email: "rider@example.com", PasswordHash: "x"})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	got, err := st.AccountByEmail(ctx, "RIDER@example.com")
	require.NoError(t, err)
	require.Equal(t, acc.ID, got.ID)

	got, err = st.AccountByID(ctx, acc.ID)
	require.NoError(t, err)
	require.Equal(t, "rider@example.com", got.Email)

	require.NoError(t, st.DeleteAccount(ctx, acc.ID))
	require.ErrorIs(t, st.DeleteAccount(ctx, acc.ID), storage.ErrNotFound)

	_, err = st.AccountByID(ctx, acc.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}
