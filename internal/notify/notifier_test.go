package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	name string
	err  error
	sent []string
}

func (f *fakeSender) Send(ctx context.Context, title, message string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, title)
	return nil
}

func (f *fakeSender) Name() string { return f.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotify_DeliversToAllSenders(t *testing.T) {
	a := &fakeSender{name: "a"}
	b := &fakeSender{name: "b"}
	n := NewNotifier([]Sender{a, b}, nil, testLogger())

	require.NoError(t, n.Notify(context.Background(), "round_settled", "Round settled", "details"))
	assert.Equal(t, []string{"Round settled"}, a.sent)
	assert.Equal(t, []string{"Round settled"}, b.sent)
}

func TestNotify_FiltersDisallowedEvents(t *testing.T) {
	a := &fakeSender{name: "a"}
	n := NewNotifier([]Sender{a}, []string{"round_settled"}, testLogger())

	require.NoError(t, n.Notify(context.Background(), "round_created", "Round created", "details"))
	assert.Empty(t, a.sent)

	require.NoError(t, n.Notify(context.Background(), "round_settled", "Round settled", "details"))
	assert.Len(t, a.sent, 1)
}

func TestNotify_SenderFailureDoesNotBlockOthers(t *testing.T) {
	bad := &fakeSender{name: "bad", err: errors.New("boom")}
	good := &fakeSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, testLogger())

	err := n.Notify(context.Background(), "round_settled", "Round settled", "details")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	assert.Len(t, good.sent, 1)
}

func TestNotify_NoSendersIsNoOp(t *testing.T) {
	n := NewNotifier(nil, nil, testLogger())
	assert.NoError(t, n.Notify(context.Background(), "round_settled", "Round settled", "details"))
}
