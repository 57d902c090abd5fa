package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/adminpanel/apiserver/internal/metrics"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// PasswordHasher runs bcrypt with a bounded number of concurrent
// computations so login floods cannot monopolise every CPU.
type PasswordHasher struct {
	cost int
	sem  *semaphore.Weighted

	dummyOnce sync.Once
	dummy     []byte
}

// NewPasswordHasher returns a hasher using cost rounds and at most
// concurrency simultaneous computations. Out of range values fall back to
// bcrypt.DefaultCost and 1.
func NewPasswordHasher(cost, concurrency int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &PasswordHasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(concurrency)),
	}
}

// Cost returns the bcrypt cost used for new hashes.
func (h *PasswordHasher) Cost() int {
	return h.cost
}

// Hash returns a salted bcrypt hash of password.
func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	var hashed []byte
	err := h.run(ctx, "hash", func() error {
		var err error
		hashed, err = bcrypt.GenerateFromPassword([]byte(password), h.cost)
		return err
	})
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare reports whether password matches hash. A malformed hash never
// matches. The error is only set when ctx ends before a slot frees up.
func (h *PasswordHasher) Compare(ctx context.Context, hash, password string) (bool, error) {
	var match bool
	err := h.run(ctx, "compare", func() error {
		match = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
		return nil
	})
	return match, err
}

// CompareDummy spends the same work as Compare against a hash no password
// matches, so callers can hide whether an account exists.
func (h *PasswordHasher) CompareDummy(ctx context.Context, password string) error {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("adminpanel-no-such-user"), h.cost)
	})
	_, err := h.Compare(ctx, string(h.dummy), password)
	return err
}

func (h *PasswordHasher) run(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer h.sem.Release(1)
	defer func() {
		metrics.PasswordHashDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	err := fn()
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return invalid("password", "password must be at most 72 bytes")
	}
	return err
}
