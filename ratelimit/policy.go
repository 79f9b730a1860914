package ratelimit

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-maxbridge/core"
)

var ErrStateNotFound = errors.New("ratelimit: state not found")

// Key identifies one throttle bucket: an account and the request kind.
type Key struct {
	Account string
	Bucket  string
}

// State is the cooldown bookkeeping of one bucket. A zero CooldownUntil
// means the bucket is open.
type State struct {
	Key           Key
	Strikes       int
	CooldownUntil time.Time
	Reason        string
	UpdatedAt     time.Time
}

type StateStore interface {
	Get(ctx context.Context, key Key) (State, error)
	Upsert(ctx context.Context, state State) error
}

// ThrottledError is returned locally while a bucket cools down after the
// server rejected it as too many requests.
type ThrottledError struct {
	Account    string
	Bucket     string
	RetryAfter time.Duration
}

func (e ThrottledError) Error() string {
	return fmt.Sprintf(
		"ratelimit: %s throttled for %s",
		strings.TrimSpace(e.Bucket),
		e.RetryAfter.Round(time.Millisecond),
	)
}

func (e ThrottledError) ToServiceError() *goerrors.Error {
	metadata := map[string]any{
		"bucket": strings.TrimSpace(e.Bucket),
	}
	if e.RetryAfter > 0 {
		metadata["retry_after_ms"] = e.RetryAfter.Milliseconds()
	}
	return goerrors.New(e.Error(), goerrors.CategoryRateLimit).
		WithCode(http.StatusTooManyRequests).
		WithTextCode(core.HostErrorRateLimited).
		WithMetadata(metadata)
}

// AdaptivePolicy backs off exponentially per bucket after server throttling
// and resets once a call in that bucket succeeds.
type AdaptivePolicy struct {
	Store          StateStore
	Now            func() time.Time
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func NewAdaptivePolicy(store StateStore) *AdaptivePolicy {
	return &AdaptivePolicy{
		Store:          store,
		Now:            func() time.Time { return time.Now().UTC() },
		InitialBackoff: 5 * time.Second,
		MaxBackoff:     5 * time.Minute,
	}
}

func (p *AdaptivePolicy) BeforeCall(ctx context.Context, key Key) error {
	if p == nil || p.Store == nil {
		return nil
	}
	key = normalizeKey(key)
	state, found, err := p.load(ctx, key)
	if err != nil || !found {
		return err
	}
	now := p.now()
	if now.Before(state.CooldownUntil) {
		return ThrottledError{Account: key.Account, Bucket: key.Bucket, RetryAfter: state.CooldownUntil.Sub(now)}
	}
	return nil
}

// AfterCall records the outcome of a call that reached the server. A
// throttled outcome opens a cooldown window; anything else closes it.
func (p *AdaptivePolicy) AfterCall(ctx context.Context, key Key, throttled bool, reason string) error {
	if p == nil || p.Store == nil {
		return nil
	}
	key = normalizeKey(key)
	state, found, err := p.load(ctx, key)
	if err != nil {
		return err
	}
	if !found && !throttled {
		return nil
	}

	now := p.now()
	next := State{Key: key, UpdatedAt: now}
	if throttled {
		next.Strikes = state.Strikes + 1
		next.Reason = strings.TrimSpace(reason)
		next.CooldownUntil = now.Add(p.cooldown(next.Strikes))
	}
	return p.Store.Upsert(ctx, next)
}

func (p *AdaptivePolicy) load(ctx context.Context, key Key) (State, bool, error) {
	state, err := p.Store.Get(ctx, key)
	switch {
	case errors.Is(err, ErrStateNotFound):
		return State{}, false, nil
	case err != nil:
		return State{}, false, err
	}
	return state, true, nil
}

func (p *AdaptivePolicy) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

// cooldown is InitialBackoff doubled for every strike after the first,
// capped at MaxBackoff.
func (p *AdaptivePolicy) cooldown(strikes int) time.Duration {
	base := cmp.Or(max(p.InitialBackoff, 0), 5*time.Second)
	ceiling := cmp.Or(max(p.MaxBackoff, 0), 5*time.Minute)
	delay := base
	for range strikes - 1 {
		if delay >= ceiling/2 {
			return ceiling
		}
		delay *= 2
	}
	return min(delay, ceiling)
}

func normalizeKey(key Key) Key {
	return Key{
		Account: strings.TrimSpace(key.Account),
		Bucket:  strings.ToUpper(strings.TrimSpace(key.Bucket)),
	}
}

// MemoryStateStore keeps bucket state for the life of the process.
type MemoryStateStore struct {
	mu     sync.RWMutex
	states map[Key]State
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: map[Key]State{}}
}

func (s *MemoryStateStore) Get(_ context.Context, key Key) (State, error) {
	s.mu.RLock()
	state, ok := s.states[normalizeKey(key)]
	s.mu.RUnlock()
	if !ok {
		return State{}, ErrStateNotFound
	}
	return state, nil
}

func (s *MemoryStateStore) Upsert(_ context.Context, state State) error {
	state.Key = normalizeKey(state.Key)
	s.mu.Lock()
	s.states[state.Key] = state
	s.mu.Unlock()
	return nil
}

var _ core.ServiceErrorConverter = ThrottledError{}
