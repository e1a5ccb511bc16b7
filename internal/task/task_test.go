package task

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectCallRunsLocally(t *testing.T) {
	pub := &fakePublisher{}
	app := newTestApp(pub)
	sample := app.MustTask(addInts)
	withOptions := app.MustTask(multiplyInts, WithName("custom_task"), Deduplicated())

	got, err := sample.Call(context.Background(), 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, got)

	got, err = withOptions.Call(context.Background(), 4, 5)
	require.NoError(t, err)
	assert.Equal(t, 20, got)

	assert.Empty(t, pub.calls(), "direct calls never touch the network")
}

func TestDirectCallPropagatesHandlerError(t *testing.T) {
	app := newTestApp(&fakePublisher{})
	sample := app.MustTask(addInts)

	_, err := sample.Call(context.Background(), 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingArgument)
}

func TestDelayPublishesOnce(t *testing.T) {
	pub := &fakePublisher{}
	app := newTestApp(pub)
	sample := app.MustTask(addInts)

	res, err := sample.Delay(context.Background(), 2, 3)
	require.NoError(t, err)
	assert.Equal(t, "test-id-123", res.TaskID)

	calls := pub.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "https://example.com/hooks/", calls[0].Destination)
	assert.Empty(t, calls[0].Delay)
	assert.False(t, calls[0].Deduplicated)

	p := decodePayload(t, calls[0].Body)
	assert.Equal(t, sample.Name(), p.TaskName)
	require.Len(t, p.Args, 2)
	assert.JSONEq(t, "2", string(p.Args[0]))
	assert.JSONEq(t, "3", string(p.Args[1]))
	assert.Empty(t, p.Kwargs)
}

func TestApplyAsyncWithCountdown(t *testing.T) {
	pub := &fakePublisher{}
	app := newTestApp(pub)
	sample := app.MustTask(addInts)

	res, err := sample.ApplyAsync(context.Background(), AsyncOptions{Args: []any{2, 3}, Countdown: 60 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "test-id-123", res.TaskID)

	calls := pub.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "60s", calls[0].Delay)
}

func TestApplyAsyncDelayIsAliasOfCountdown(t *testing.T) {
	pub := &fakePublisher{}
	app := newTestApp(pub)
	sample := app.MustTask(addInts)

	_, err := sample.ApplyAsync(context.Background(), AsyncOptions{
		Args:   []any{12, 12},
		Kwargs: map[string]any{"note": "x"},
		Delay:  10 * time.Second,
	})
	require.NoError(t, err)

	calls := pub.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "10s", calls[0].Delay)
	p := decodePayload(t, calls[0].Body)
	assert.JSONEq(t, `"x"`, string(p.Kwargs["note"]))
}

func TestApplyAsyncRejectsBadDelays(t *testing.T) {
	pub := &fakePublisher{}
	app := newTestApp(pub)
	sample := app.MustTask(addInts)

	_, err := sample.ApplyAsync(context.Background(), AsyncOptions{Delay: time.Second, Countdown: time.Second})
	assert.ErrorIs(t, err, ErrConflictingDelay)

	_, err = sample.ApplyAsync(context.Background(), AsyncOptions{Countdown: -time.Second})
	assert.ErrorIs(t, err, ErrNegativeDelay)

	assert.Empty(t, pub.calls())
}

func TestPublishCarriesTaskOptions(t *testing.T) {
	pub := &fakePublisher{}
	app := newTestApp(pub)
	withOptions := app.MustTask(multiplyInts, WithName("custom_task"), Deduplicated(), WithRetries(2))

	_, err := withOptions.Delay(context.Background(), 4, 5)
	require.NoError(t, err)

	calls := pub.calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Deduplicated)
	require.NotNil(t, calls[0].Retries)
	assert.Equal(t, 2, *calls[0].Retries)
	assert.Equal(t, "custom_task", decodePayload(t, calls[0].Body).TaskName)
}

func TestCallbackURLIsComputedPerPublish(t *testing.T) {
	pub := &fakePublisher{}
	domainName := "one.example.com"
	app := NewApp(NewRegistry(), pub, func() string { return "https://" + domainName + "/hooks/" }, discardLogger())
	sample := app.MustTask(addInts)

	_, err := sample.Delay(context.Background(), 1, 2)
	require.NoError(t, err)
	domainName = "two.example.com"
	_, err = sample.Delay(context.Background(), 1, 2)
	require.NoError(t, err)

	calls := pub.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "https://one.example.com/hooks/", calls[0].Destination)
	assert.Equal(t, "https://two.example.com/hooks/", calls[1].Destination)
}

func TestPublishErrors(t *testing.T) {
	t.Run("publisher failure is returned, not retried", func(t *testing.T) {
		pub := &fakePublisher{err: errors.New("provider unavailable")}
		sample := newTestApp(pub).MustTask(addInts)

		_, err := sample.Delay(context.Background(), 1, 2)
		require.Error(t, err)
		assert.Len(t, pub.calls(), 1)
	})

	t.Run("no publisher", func(t *testing.T) {
		sample := newTestApp(nil).MustTask(addInts)

		_, err := sample.Delay(context.Background(), 1, 2)
		assert.ErrorIs(t, err, ErrNoPublisher)
	})

	t.Run("unencodable argument", func(t *testing.T) {
		pub := &fakePublisher{}
		sample := newTestApp(pub).MustTask(addInts)

		_, err := sample.Delay(context.Background(), make(chan int))
		require.Error(t, err)
		var unsupported *json.UnsupportedTypeError
		assert.True(t, errors.As(err, &unsupported))
		assert.Empty(t, pub.calls())
	})
}

func TestArguments(t *testing.T) {
	args, err := NewArguments([]any{"a", 2.5}, map[string]any{"z": 1, "flag": true})
	require.NoError(t, err)

	assert.Equal(t, 2, args.Len())
	var s string
	require.NoError(t, args.Arg(0, &s))
	assert.Equal(t, "a", s)

	var n int
	assert.Error(t, args.Arg(1, &n), "2.5 does not fit an int")
	assert.ErrorIs(t, args.Arg(5, &n), ErrMissingArgument)

	var flag bool
	ok, err := args.Kwarg("flag", &flag)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, flag)

	ok, err = args.Kwarg("missing", &flag)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []string{"flag", "z"}, args.KwargNames())
}
