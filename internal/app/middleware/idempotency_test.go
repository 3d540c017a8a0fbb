package middleware_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staynest/internal/app/commands"
	"staynest/internal/app/middleware"
	"staynest/internal/infra/storage/memory"
)

type echoCommand struct {
	Value   string
	IdemKey string
}

func (c echoCommand) Key() string            { return "test.echo" }
func (c echoCommand) IdempotencyKey() string { return c.IdemKey }
func (c echoCommand) ResultPrototype() any   { return &echoResult{} }

type echoResult struct {
	Value string `json:"value"`
}

type echoHandler struct {
	calls int
	fail  error
}

func (h *echoHandler) Handle(ctx context.Context, cmd echoCommand) (*echoResult, error) {
	h.calls++
	if h.fail != nil {
		return nil, h.fail
	}
	return &echoResult{Value: cmd.Value}, nil
}

func TestIdempotencyReplaysStoredResult(t *testing.T) {
	bus := commands.NewInMemoryBus()
	handler := &echoHandler{}
	commands.RegisterHandler(bus, echoCommand{}.Key(), handler)

	wrapped := middleware.ChainCommands(bus, middleware.Idempotency(memory.NewIdempotencyStore(), nil))

	first, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), wrapped, echoCommand{Value: "one", IdemKey: "k-1"})
	require.NoError(t, err)
	assert.Equal(t, "one", first.Value)

	replayed, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), wrapped, echoCommand{Value: "two", IdemKey: "k-1"})
	require.NoError(t, err)
	assert.Equal(t, "one", replayed.Value, "second dispatch with the same key replays the stored result")
	assert.Equal(t, 1, handler.calls)
}

func TestIdempotencyDistinctKeysRunSeparately(t *testing.T) {
	bus := commands.NewInMemoryBus()
	handler := &echoHandler{}
	commands.RegisterHandler(bus, echoCommand{}.Key(), handler)

	wrapped := middleware.ChainCommands(bus, middleware.Idempotency(memory.NewIdempotencyStore(), nil))

	_, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), wrapped, echoCommand{Value: "one", IdemKey: "k-1"})
	require.NoError(t, err)
	_, err = commands.Dispatch[echoCommand, *echoResult](context.Background(), wrapped, echoCommand{Value: "two", IdemKey: "k-2"})
	require.NoError(t, err)
	assert.Equal(t, 2, handler.calls)
}

func TestIdempotencyEmptyKeyBypassesCache(t *testing.T) {
	bus := commands.NewInMemoryBus()
	handler := &echoHandler{}
	commands.RegisterHandler(bus, echoCommand{}.Key(), handler)

	wrapped := middleware.ChainCommands(bus, middleware.Idempotency(memory.NewIdempotencyStore(), nil))

	for i := 0; i < 3; i++ {
		_, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), wrapped, echoCommand{Value: "x"})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, handler.calls)
}

func TestIdempotencyReplaysErrors(t *testing.T) {
	bus := commands.NewInMemoryBus()
	handler := &echoHandler{fail: errors.New("boom")}
	commands.RegisterHandler(bus, echoCommand{}.Key(), handler)

	wrapped := middleware.ChainCommands(bus, middleware.Idempotency(memory.NewIdempotencyStore(), nil))

	_, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), wrapped, echoCommand{IdemKey: "k-err"})
	require.EqualError(t, err, "boom")

	handler.fail = nil
	_, err = commands.Dispatch[echoCommand, *echoResult](context.Background(), wrapped, echoCommand{IdemKey: "k-err"})
	require.EqualError(t, err, "boom", "stored failure replays instead of re-running the handler")
	assert.Equal(t, 1, handler.calls)
}
