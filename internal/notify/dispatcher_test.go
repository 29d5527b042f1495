package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jscomlabs/contactd/internal/domain"
)

type fakeChannel struct {
	name    string
	enabled bool
	result  Result
	panics  bool
	calls   atomic.Int32
}

func (f *fakeChannel) Enabled() bool { return f.enabled }
func (f *fakeChannel) Name() string  { return f.name }

func (f *fakeChannel) Send(ctx context.Context, env domain.Envelope) Result {
	f.calls.Add(1)
	if f.panics {
		panic("channel blew up")
	}
	return f.result
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustEnvelope(t *testing.T, payload string) domain.Envelope {
	t.Helper()
	env, err := domain.ParseEnvelope([]byte(payload))
	require.NoError(t, err)
	return env
}

func TestDispatch_MissingMessageAttemptsNoChannels(t *testing.T) {
	ch := &fakeChannel{name: "email", enabled: true, result: succeeded("email", "ok")}
	d := NewDispatcher([]Channel{ch}, testLogger())

	env := mustEnvelope(t, `{"contact_name":"jane"}`)
	report, err := d.Dispatch(context.Background(), env)

	require.ErrorIs(t, err, domain.ErrMissingMessage)
	assert.False(t, report.Success)
	assert.Equal(t, int32(0), ch.calls.Load())
	assert.Empty(t, report.Results)
}

func TestDispatch_AllChannelsSucceed(t *testing.T) {
	email := &fakeChannel{name: "email", enabled: true, result: succeeded("email", "sent")}
	discord := &fakeChannel{name: "discord", enabled: true, result: succeeded("discord", "sent")}
	d := NewDispatcher([]Channel{email, discord}, testLogger())

	env := mustEnvelope(t, `{"contact_message":"hello"}`)
	report, err := d.Dispatch(context.Background(), env)

	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Len(t, report.Results, 2)
	assert.Equal(t, int32(1), email.calls.Load())
	assert.Equal(t, int32(1), discord.calls.Load())
}

func TestDispatch_OneFailureFailsAggregateButAttemptsAll(t *testing.T) {
	email := &fakeChannel{name: "email", enabled: true, result: succeeded("email", "sent")}
	discord := &fakeChannel{
		name:    "discord",
		enabled: true,
		result:  failed("discord", "webhook rejected message", errors.New("status 500")),
	}
	d := NewDispatcher([]Channel{email, discord}, testLogger())

	env := mustEnvelope(t, `{"contact_message":"hi","contact_type":"standard"}`)
	report, err := d.Dispatch(context.Background(), env)

	require.NoError(t, err)
	assert.False(t, report.Success)
	require.Len(t, report.Results, 2)

	byName := map[string]Result{}
	for _, r := range report.Results {
		byName[r.Channel] = r
	}
	assert.True(t, byName["email"].Success)
	assert.False(t, byName["discord"].Success)
	assert.Equal(t, int32(1), email.calls.Load())
	assert.Equal(t, int32(1), discord.calls.Load())
}

func TestDispatch_ZeroEnabledChannelsIsDistinctSuccess(t *testing.T) {
	email := &fakeChannel{name: "email", enabled: false}
	discord := &fakeChannel{name: "discord", enabled: false}
	d := NewDispatcher([]Channel{email, discord}, testLogger())

	env := mustEnvelope(t, `{"contact_message":"hello"}`)
	report, err := d.Dispatch(context.Background(), env)

	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Equal(t, "no notification channels enabled", report.Message)
	assert.Empty(t, report.Results)
	assert.Equal(t, int32(0), email.calls.Load())
	assert.Equal(t, int32(0), discord.calls.Load())
}

func TestDispatch_DisabledChannelIsSkipped(t *testing.T) {
	email := &fakeChannel{name: "email", enabled: true, result: succeeded("email", "sent")}
	telegram := &fakeChannel{name: "telegram", enabled: false}
	d := NewDispatcher([]Channel{email, telegram}, testLogger())

	env := mustEnvelope(t, `{"contact_message":"hello"}`)
	report, err := d.Dispatch(context.Background(), env)

	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Len(t, report.Results, 1)
	assert.Equal(t, int32(0), telegram.calls.Load())
}

func TestDispatch_PanickingChannelBecomesFailedResult(t *testing.T) {
	email := &fakeChannel{name: "email", enabled: true, result: succeeded("email", "sent")}
	discord := &fakeChannel{name: "discord", enabled: true, panics: true}
	d := NewDispatcher([]Channel{email, discord}, testLogger())

	env := mustEnvelope(t, `{"contact_message":"hello"}`)
	report, err := d.Dispatch(context.Background(), env)

	require.NoError(t, err)
	assert.False(t, report.Success)

	byName := map[string]Result{}
	for _, r := range report.Results {
		byName[r.Channel] = r
	}
	assert.True(t, byName["email"].Success)
	assert.False(t, byName["discord"].Success)
	assert.Contains(t, byName["discord"].Error, "panic")
}
