package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/reportcard/internal/models"
	appErrors "github.com/noah-isme/reportcard/pkg/errors"
)

type lockRepository interface {
	Get(ctx context.Context) (*models.AppLock, error)
	Save(ctx context.Context, lock *models.AppLock) error
	SetFailedAttempts(ctx context.Context, attempts int) error
}

type pinFailureObserver interface {
	ObservePINFailure()
}

// LockConfig tunes the PIN lock.
type LockConfig struct {
	MaxAttempts int
	Lockout     time.Duration
	BcryptCost  int
}

type setPINRequest struct {
	PIN string `validate:"required,number,min=4,max=6"`
}

// LockService guards the local data with a numeric PIN.
type LockService struct {
	repo      lockRepository
	metrics   pinFailureObserver
	validator *validator.Validate
	logger    *zap.Logger
	cfg       LockConfig
	now       func() time.Time
}

// NewLockService constructs LockService.
func NewLockService(repo lockRepository, cfg LockConfig, metrics pinFailureObserver, validate *validator.Validate, logger *zap.Logger) *LockService {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Lockout <= 0 {
		cfg.Lockout = 15 * time.Minute
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LockService{repo: repo, metrics: metrics, validator: validate, logger: logger, cfg: cfg, now: time.Now}
}

// Enabled reports whether a PIN has been set.
func (s *LockService) Enabled(ctx context.Context) (bool, error) {
	_, err := s.repo.Get(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to read lock")
	}
	return true, nil
}

// SetPIN stores the bcrypt hash of a 4-6 digit PIN and clears failed attempts.
func (s *LockService) SetPIN(ctx context.Context, pin string) error {
	if err := s.validator.Struct(setPINRequest{PIN: pin}); err != nil {
		return appErrors.WithField(appErrors.ErrValidation, "pin", "PIN must be 4 to 6 digits")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), s.cfg.BcryptCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to hash PIN")
	}
	if err := s.repo.Save(ctx, &models.AppLock{PINHash: string(hash)}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to save PIN")
	}
	s.logger.Info("PIN updated")
	return nil
}

// Verify checks pin. Without a configured PIN every input passes. After
// MaxAttempts consecutive failures the lock refuses all input until Lockout
// has elapsed since the last failure.
func (s *LockService) Verify(ctx context.Context, pin string) error {
	lock, err := s.repo.Get(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to read lock")
	}

	attempts := lock.FailedAttempts
	if attempts >= s.cfg.MaxAttempts {
		remaining := lock.UpdatedAt.Add(s.cfg.Lockout).Sub(s.now())
		if remaining > 0 {
			return appErrors.Clone(appErrors.ErrLocked, fmt.Sprintf("too many failed attempts, try again in %s", remaining.Round(time.Second)))
		}
		attempts = 0
	}

	if bcrypt.CompareHashAndPassword([]byte(lock.PINHash), []byte(pin)) != nil {
		attempts++
		if err := s.repo.SetFailedAttempts(ctx, attempts); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to record attempt")
		}
		if s.metrics != nil {
			s.metrics.ObservePINFailure()
		}
		s.logger.Warn("PIN rejected", zap.Int("attempts", attempts))
		if attempts >= s.cfg.MaxAttempts {
			return appErrors.Clone(appErrors.ErrLocked, fmt.Sprintf("too many failed attempts, try again in %s", s.cfg.Lockout))
		}
		return appErrors.Clone(appErrors.ErrInvalidPIN, fmt.Sprintf("incorrect PIN, %d attempts left", s.cfg.MaxAttempts-attempts))
	}

	if lock.FailedAttempts != 0 {
		if err := s.repo.SetFailedAttempts(ctx, 0); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to reset attempts")
		}
	}
	return nil
}
