package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "franchisee-hub/internal/common/errors"
	"franchisee-hub/internal/common/logger"
	"franchisee-hub/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisLocker_AcquireRelease(t *testing.T) {
	mr, client := setupMiniRedis(t)
	l := NewRedisLocker(client, 10*time.Second, logger.NewTestLogger(t))
	ctx := context.Background()

	release, err := l.Acquire(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, mr.Exists(lockPrefix+"a@x.com"))
	assert.Equal(t, 10*time.Second, mr.TTL(lockPrefix+"a@x.com"))

	_, err = l.Acquire(ctx, "a@x.com")
	assert.ErrorIs(t, err, apperrors.ErrLocked)
	assert.Equal(t, apperrors.ErrCodeTransitionInProgress, apperrors.Classify(err))

	other, err := l.Acquire(ctx, "b@x.com")
	require.NoError(t, err)
	other()

	release()
	assert.False(t, mr.Exists(lockPrefix+"a@x.com"))

	again, err := l.Acquire(ctx, "a@x.com")
	require.NoError(t, err)
	again()
}

func TestRedisLocker_ExpiredLockNotReleasedByOldHolder(t *testing.T) {
	mr, client := setupMiniRedis(t)
	l := NewRedisLocker(client, time.Second, logger.NewTestLogger(t))
	ctx := context.Background()

	staleRelease, err := l.Acquire(ctx, "a@x.com")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	freshRelease, err := l.Acquire(ctx, "a@x.com")
	require.NoError(t, err)

	staleRelease()
	assert.True(t, mr.Exists(lockPrefix+"a@x.com"), "stale holder must not delete the new lock")

	freshRelease()
	assert.False(t, mr.Exists(lockPrefix+"a@x.com"))
}

func TestRedisLocker_RedisErrorIsStoreFault(t *testing.T) {
	client, mock := redismock.NewClientMock()
	l := NewRedisLocker(client, 5*time.Second, logger.NewTestLogger(t))
	l.newToken = func() string { return "tok" }

	mock.ExpectSetNX(lockPrefix+"a@x.com", "tok", 5*time.Second).SetErr(errors.New("READONLY"))

	_, err := l.Acquire(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, apperrors.ErrStoreFault)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLocker_ReleaseUsesScript(t *testing.T) {
	client, mock := redismock.NewClientMock()
	l := NewRedisLocker(client, 5*time.Second, logger.NewTestLogger(t))
	l.newToken = func() string { return "tok" }

	mock.ExpectSetNX(lockPrefix+"a@x.com", "tok", 5*time.Second).SetVal(true)
	mock.ExpectEvalSha(releaseScript.Hash(), []string{lockPrefix + "a@x.com"}, "tok").SetVal(int64(1))

	release, err := l.Acquire(context.Background(), "a@x.com")
	require.NoError(t, err)
	release()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkflow_ConcurrentTransitionIsDeclined(t *testing.T) {
	_, client := setupMiniRedis(t)
	f := newFixture(t)
	f.wf.locker = NewRedisLocker(client, 10*time.Second, logger.NewTestLogger(t))
	f.apps.put("a@x.com", models.StatusPending)

	held, err := f.wf.locker.Acquire(context.Background(), "a@x.com")
	require.NoError(t, err)

	_, err = f.wf.Accept(context.Background(), admin, "a@x.com")
	assert.ErrorIs(t, err, apperrors.ErrLocked)
	assert.Equal(t, models.StatusPending, f.apps.status("a@x.com"))

	held()
	res, err := f.wf.Accept(context.Background(), admin, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, res.Status)
}

func TestNopLocker(t *testing.T) {
	release, err := NopLocker{}.Acquire(context.Background(), "a@x.com")
	require.NoError(t, err)
	release()
}
