package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type callFixture struct {
	store  *memStore
	clock  *fixedClock
	events *recordingPublisher
	svc    CallService
	caller string
	callee string
	third  string
}

func newCallFixture() *callFixture {
	store := newMemStore()
	clock := newFixedClock(t0)
	events := &recordingPublisher{}
	f := &callFixture{
		store:  store,
		clock:  clock,
		events: events,
		svc:    NewCallService(&fakeCallRepo{s: store}, &fakeUserRepo{s: store}, events, clock),
	}
	f.caller = store.addUser("Caller", "caller@example.com", t0)
	f.callee = store.addUser("Callee", "callee@example.com", t0)
	f.third = store.addUser("Third", "third@example.com", t0)
	return f
}

func TestStartAndEndCall(t *testing.T) {
	f := newCallFixture()
	ctx := context.Background()

	call, err := f.svc.StartCall(ctx, as(f.caller), f.callee)
	require.NoError(t, err)
	assert.Equal(t, "active", call.Status)
	assert.Equal(t, t0, call.StartedAt)
	assert.Nil(t, call.EndedAt)

	f.clock.Set(t0.Add(30 * time.Second))
	ended, err := f.svc.EndCall(ctx, as(f.caller), call.ID)
	require.NoError(t, err)
	assert.Equal(t, "ended", ended.Status)
	require.NotNil(t, ended.DurationSeconds)
	assert.Equal(t, int64(30), *ended.DurationSeconds)

	// Ending again re-stamps the duration.
	f.clock.Set(t0.Add(90 * time.Second))
	again, err := f.svc.EndCall(ctx, as(f.callee), call.ID)
	require.NoError(t, err)
	require.NotNil(t, again.DurationSeconds)
	assert.Equal(t, int64(90), *again.DurationSeconds)
	assert.Equal(t, t0.Add(90*time.Second), *again.EndedAt)

	assert.Equal(t, []string{EventCallStarted, EventCallEnded, EventCallEnded}, f.events.types())
	assert.Equal(t, f.callee, f.events.events[1].UserID)
	assert.Equal(t, f.caller, f.events.events[2].UserID)
}

func TestStartCallValidation(t *testing.T) {
	f := newCallFixture()
	ctx := context.Background()

	for name, receiver := range map[string]string{
		"empty":     "",
		"malformed": "nope",
		"self":      f.caller,
		"unknown":   uuid.New().String(),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.StartCall(ctx, as(f.caller), receiver)
			assert.True(t, errors.Is(err, ErrValidation), "got %v", err)
		})
	}

	_, err := f.svc.StartCall(ctx, Principal{}, f.callee)
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestEndCallGuards(t *testing.T) {
	f := newCallFixture()
	ctx := context.Background()

	call, err := f.svc.StartCall(ctx, as(f.caller), f.callee)
	require.NoError(t, err)

	_, err = f.svc.EndCall(ctx, as(f.third), call.ID)
	assert.True(t, errors.Is(err, ErrNotFound), "non-participant")

	_, err = f.svc.EndCall(ctx, as(f.caller), uuid.New().String())
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = f.svc.EndCall(ctx, as(f.caller), "bad-id")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = f.svc.EndCall(ctx, as(f.caller), "")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestCallIDsAreCanonicalized(t *testing.T) {
	f := newCallFixture()
	ctx := context.Background()

	_, err := f.svc.StartCall(ctx, as(f.caller), strings.ToUpper(f.caller))
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "cannot call yourself", err.Error())
	assert.Empty(t, f.store.calls)

	call, err := f.svc.StartCall(ctx, as(f.caller), "urn:uuid:"+f.callee)
	require.NoError(t, err)
	assert.Equal(t, f.callee, call.ReceiverID)

	ended, err := f.svc.EndCall(ctx, as(strings.ToUpper(f.callee)), strings.ToUpper(call.ID))
	require.NoError(t, err)
	assert.Equal(t, "ended", ended.Status)
}

func TestCallsAreNotExclusive(t *testing.T) {
	f := newCallFixture()
	ctx := context.Background()

	first, err := f.svc.StartCall(ctx, as(f.caller), f.callee)
	require.NoError(t, err)
	second, err := f.svc.StartCall(ctx, as(f.callee), f.caller)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestHistory(t *testing.T) {
	f := newCallFixture()
	ctx := context.Background()

	_, err := f.svc.StartCall(ctx, as(f.caller), f.callee)
	require.NoError(t, err)
	f.clock.Set(t0.Add(time.Minute))
	_, err = f.svc.StartCall(ctx, as(f.third), f.caller)
	require.NoError(t, err)
	f.clock.Set(t0.Add(2 * time.Minute))
	_, err = f.svc.StartCall(ctx, as(f.callee), f.third)
	require.NoError(t, err)

	history, err := f.svc.History(ctx, as(f.caller), 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, f.third, history[0].OtherUserID)
	assert.Equal(t, "Third", history[0].OtherUserName)
	assert.Equal(t, f.callee, history[1].OtherUserID)

	limited, err := f.svc.History(ctx, as(f.caller), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	empty, err := f.svc.History(ctx, as(uuid.New().String()), 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestHistoryLimitClamped(t *testing.T) {
	f := newCallFixture()
	ctx := context.Background()

	for i := 0; i < MaxHistoryLimit+5; i++ {
		f.clock.Set(t0.Add(time.Duration(i) * time.Second))
		_, err := f.svc.StartCall(ctx, as(f.caller), f.callee)
		require.NoError(t, err)
	}

	history, err := f.svc.History(ctx, as(f.caller), 500)
	require.NoError(t, err)
	assert.Len(t, history, MaxHistoryLimit)

	history, err = f.svc.History(ctx, as(f.caller), -3)
	require.NoError(t, err)
	assert.Len(t, history, DefaultHistoryLimit)
}
