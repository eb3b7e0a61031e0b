package bundlestore

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedStore wraps a Store and throttles byte throughput in both
// directions. Useful when bundle sync runs next to latency-sensitive work.
type RateLimitedStore struct {
	inner   Store
	limiter *rate.Limiter
}

// NewRateLimitedStore wraps inner with a bytes-per-second throughput cap.
// A non-positive limit disables throttling.
func NewRateLimitedStore(inner Store, bytesPerSec int) *RateLimitedStore {
	var limiter *rate.Limiter
	if bytesPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(bytesPerSec), bytesPerSec)
	}
	return &RateLimitedStore{inner: inner, limiter: limiter}
}

// waitBytes reserves n bytes of throughput, in burst-sized chunks so large
// bundles do not overflow the limiter.
func (s *RateLimitedStore) waitBytes(ctx context.Context, n int) error {
	if s.limiter == nil {
		return nil
	}
	burst := s.limiter.Burst()
	for n > 0 {
		chunk := n
		if chunk > burst {
			chunk = burst
		}
		if err := s.limiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// Put writes a bundle after reserving its size against the limit.
func (s *RateLimitedStore) Put(ctx context.Context, name string, data []byte) error {
	if err := s.waitBytes(ctx, len(data)); err != nil {
		return err
	}
	return s.inner.Put(ctx, name, data)
}

// Get returns the bundle's bytes, charging them against the limit.
func (s *RateLimitedStore) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := s.inner.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := s.waitBytes(ctx, len(data)); err != nil {
		return nil, err
	}
	return data, nil
}

// Delete removes a bundle.
func (s *RateLimitedStore) Delete(ctx context.Context, name string) error {
	return s.inner.Delete(ctx, name)
}

// List returns the names of all bundles matching the prefix.
func (s *RateLimitedStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}
