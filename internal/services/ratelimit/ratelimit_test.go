// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/portal-ops/portal-auth/internal/services/ratelimit"
	"github.com/portal-ops/portal-auth/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_AllowsUnderLimit(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	limiter := ratelimit.New(repo, time.Minute, 3)

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Check(ctx, "a@b.com", ratelimit.ActionSendOTP))
		require.NoError(t, limiter.Record(ctx, "a@b.com", ratelimit.ActionSendOTP))
	}
}

func TestCheck_FourthCallRejected(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	limiter := ratelimit.New(repo, time.Minute, 3)

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Check(ctx, "a@b.com", ratelimit.ActionSendOTP))
		require.NoError(t, limiter.Record(ctx, "a@b.com", ratelimit.ActionSendOTP))
	}

	err := limiter.Check(ctx, "a@b.com", ratelimit.ActionSendOTP)
	var rle *ratelimit.RateLimitedError
	require.ErrorAs(t, err, &rle)
	assert.Greater(t, rle.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, rle.RetryAfter, time.Minute)
}

func TestCheck_RetryAfterTracksOldestEntry(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	limiter := ratelimit.New(repo, time.Minute, 3)

	// Three rapid calls within ten seconds; the fourth must wait roughly
	// the remainder of the window.
	base := time.Now().UTC()
	clock := base
	limiter.SetClock(func() time.Time { return clock })

	for i := 0; i < 3; i++ {
		clock = base.Add(time.Duration(i) * 5 * time.Second)
		require.NoError(t, limiter.Check(ctx, "a@b.com", ratelimit.ActionSendOTP))
		require.NoError(t, limiter.Record(ctx, "a@b.com", ratelimit.ActionSendOTP))
	}

	clock = base.Add(10 * time.Second)
	err := limiter.Check(ctx, "a@b.com", ratelimit.ActionSendOTP)
	var rle *ratelimit.RateLimitedError
	require.ErrorAs(t, err, &rle)
	assert.InDelta(t, (50 * time.Second).Seconds(), rle.RetryAfter.Seconds(), 2)
}

func TestCheck_WindowElapses(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	limiter := ratelimit.New(repo, time.Minute, 3)

	base := time.Now().UTC()
	clock := base
	limiter.SetClock(func() time.Time { return clock })

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Record(ctx, "a@b.com", ratelimit.ActionSendOTP))
	}
	var rle *ratelimit.RateLimitedError
	require.ErrorAs(t, limiter.Check(ctx, "a@b.com", ratelimit.ActionSendOTP), &rle)

	// After the window fully elapses the identifier is allowed again.
	clock = base.Add(61 * time.Second)
	assert.NoError(t, limiter.Check(ctx, "a@b.com", ratelimit.ActionSendOTP))
}

func TestCheck_ActionsAreIndependent(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	limiter := ratelimit.New(repo, time.Minute, 3)

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Record(ctx, "a@b.com", ratelimit.ActionSendOTP))
	}

	assert.Error(t, limiter.Check(ctx, "a@b.com", ratelimit.ActionSendOTP))
	assert.NoError(t, limiter.Check(ctx, "a@b.com", ratelimit.ActionVerifyOTP))
	assert.NoError(t, limiter.Check(ctx, "other@b.com", ratelimit.ActionSendOTP))
}
