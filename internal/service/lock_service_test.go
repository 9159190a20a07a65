package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/reportcard/internal/models"
	appErrors "github.com/noah-isme/reportcard/pkg/errors"
)

type lockRepoMock struct {
	lock *models.AppLock
	now  func() time.Time
}

func (m *lockRepoMock) Get(ctx context.Context) (*models.AppLock, error) {
	if m.lock == nil {
		return nil, sql.ErrNoRows
	}
	clone := *m.lock
	return &clone, nil
}

func (m *lockRepoMock) Save(ctx context.Context, lock *models.AppLock) error {
	clone := *lock
	clone.UpdatedAt = m.now()
	m.lock = &clone
	return nil
}

func (m *lockRepoMock) SetFailedAttempts(ctx context.Context, attempts int) error {
	m.lock.FailedAttempts = attempts
	m.lock.UpdatedAt = m.now()
	return nil
}

type pinFailureCounter struct{ n int }

func (c *pinFailureCounter) ObservePINFailure() { c.n++ }

func newLockFixture() (*LockService, *lockRepoMock, *pinFailureCounter, *time.Time) {
	clock := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }
	repo := &lockRepoMock{now: now}
	counter := &pinFailureCounter{}
	svc := NewLockService(repo, LockConfig{MaxAttempts: 3, Lockout: 10 * time.Minute, BcryptCost: bcrypt.MinCost}, counter, nil, nil)
	svc.now = now
	return svc, repo, counter, &clock
}

func TestLockServiceWithoutPIN(t *testing.T) {
	svc, _, _, _ := newLockFixture()
	enabled, err := svc.Enabled(context.Background())
	require.NoError(t, err)
	assert.False(t, enabled)
	assert.NoError(t, svc.Verify(context.Background(), "anything"))
}

func TestLockServiceSetPINValidation(t *testing.T) {
	svc, repo, _, _ := newLockFixture()
	for _, pin := range []string{"", "123", "1234567", "12a4", " 1234", "+123", "12.5"} {
		err := svc.SetPIN(context.Background(), pin)
		assert.True(t, errors.Is(err, appErrors.ErrValidation), pin)
	}
	assert.Nil(t, repo.lock)

	require.NoError(t, svc.SetPIN(context.Background(), "2580"))
	assert.NotEqual(t, "2580", repo.lock.PINHash)
	enabled, err := svc.Enabled(context.Background())
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestLockServiceVerifyAndLockout(t *testing.T) {
	svc, repo, counter, clock := newLockFixture()
	require.NoError(t, svc.SetPIN(context.Background(), "2580"))

	require.NoError(t, svc.Verify(context.Background(), "2580"))

	err := svc.Verify(context.Background(), "0000")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidPIN))
	assert.Contains(t, err.Error(), "2 attempts left")
	assert.True(t, errors.Is(svc.Verify(context.Background(), "1111"), appErrors.ErrInvalidPIN))
	assert.True(t, errors.Is(svc.Verify(context.Background(), "2222"), appErrors.ErrLocked))
	assert.Equal(t, 3, counter.n)

	assert.True(t, errors.Is(svc.Verify(context.Background(), "2580"), appErrors.ErrLocked))
	assert.Equal(t, 3, repo.lock.FailedAttempts)

	*clock = clock.Add(11 * time.Minute)
	require.NoError(t, svc.Verify(context.Background(), "2580"))
	assert.Equal(t, 0, repo.lock.FailedAttempts)
}

func TestLockServiceSuccessResetsCounter(t *testing.T) {
	svc, repo, _, _ := newLockFixture()
	require.NoError(t, svc.SetPIN(context.Background(), "123456"))

	assert.Error(t, svc.Verify(context.Background(), "654321"))
	assert.Equal(t, 1, repo.lock.FailedAttempts)
	require.NoError(t, svc.Verify(context.Background(), "123456"))
	assert.Equal(t, 0, repo.lock.FailedAttempts)
}
