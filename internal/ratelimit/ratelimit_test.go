package ratelimit

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idregistry/pkg/domain"
	"idregistry/pkg/requestcontext"
)

// =============================================================================
// Rate Limit Tests
// =============================================================================
// Justification for unit tests: the limiter feeds every timestamp through
// explicitly, so refill and burst behavior can be pinned deterministically
// here; at the API level the budget only shows up as flaky 429s.

type RateLimitSuite struct {
	suite.Suite
	now time.Time
}

func TestRateLimitSuite(t *testing.T) {
	suite.Run(t, new(RateLimitSuite))
}

func (s *RateLimitSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *RateLimitSuite) TestBurstThenDeny() {
	limiter := NewMapLimiter(1, 2, time.Minute)

	s.True(limiter.Allow("caller", s.now))
	s.True(limiter.Allow("caller", s.now))
	s.False(limiter.Allow("caller", s.now), "the burst is spent")
}

func (s *RateLimitSuite) TestRefillOverTime() {
	limiter := NewMapLimiter(1, 1, time.Minute)

	s.True(limiter.Allow("caller", s.now))
	s.False(limiter.Allow("caller", s.now))
	s.True(limiter.Allow("caller", s.now.Add(time.Second)), "one token refills per second")
}

func (s *RateLimitSuite) TestKeysAreIndependent() {
	limiter := NewMapLimiter(1, 1, time.Minute)

	s.True(limiter.Allow("alice", s.now))
	s.False(limiter.Allow("alice", s.now))
	s.True(limiter.Allow("bob", s.now), "one caller's burst must not starve another")
}

func (s *RateLimitSuite) TestDisabledLimiter() {
	s.Nil(NewMapLimiter(0, 10, time.Minute), "zero rate disables limiting")
	s.Nil(NewMapLimiter(10, 0, time.Minute))

	var limiter *MapLimiter
	for i := 0; i < 100; i++ {
		s.True(limiter.Allow("caller", s.now))
	}
}

func (s *RateLimitSuite) TestEmptyKeyAllows() {
	limiter := NewMapLimiter(1, 1, time.Minute)

	for i := 0; i < 10; i++ {
		s.True(limiter.Allow("", s.now))
		s.True(limiter.Allow("   ", s.now))
	}
}

func (s *RateLimitSuite) TestMiddlewareEnforcesBudget() {
	limiter := NewMapLimiter(1, 2, time.Minute)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	m := New(limiter, logger)

	handler := m.Limit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	caller := domain.Address("id1Caller")

	do := func(at time.Time) *httptest.ResponseRecorder {
		ctx := requestcontext.WithCallerAddress(context.Background(), caller)
		ctx = requestcontext.WithTime(ctx, at)
		req := httptest.NewRequest(http.MethodPost, "/v1/identities", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	s.Equal(http.StatusNoContent, do(s.now).Code)
	s.Equal(http.StatusNoContent, do(s.now).Code)

	rec := do(s.now)
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.Equal("1", rec.Header().Get("Retry-After"))
	s.Contains(rec.Body.String(), "rate_limit_exceeded")

	s.Equal(http.StatusNoContent, do(s.now.Add(time.Second)).Code, "the budget refills")
}

func (s *RateLimitSuite) TestMiddlewareFallsBackToClientIP() {
	limiter := NewMapLimiter(1, 1, time.Minute)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	m := New(limiter, logger)

	handler := m.Limit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(ip string) *httptest.ResponseRecorder {
		ctx := requestcontext.WithClientMetadata(context.Background(), ip, "test-agent")
		ctx = requestcontext.WithTime(ctx, s.now)
		req := httptest.NewRequest(http.MethodPost, "/v1/identities", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	s.Equal(http.StatusNoContent, do("10.0.0.1").Code)
	s.Equal(http.StatusTooManyRequests, do("10.0.0.1").Code)
	s.Equal(http.StatusNoContent, do("10.0.0.2").Code)
}

func (s *RateLimitSuite) TestMiddlewareDisabled() {
	limiter := NewMapLimiter(1, 1, time.Minute)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	m := New(limiter, logger, WithDisabled(true))

	handler := m.Limit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 10; i++ {
		ctx := requestcontext.WithCallerAddress(context.Background(), domain.Address("id1Caller"))
		req := httptest.NewRequest(http.MethodPost, "/v1/identities", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		s.Equal(http.StatusNoContent, rec.Code)
	}
}
