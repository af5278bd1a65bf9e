package hub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Owskar/collaborative-code-editor/internal/domain"
	"github.com/Owskar/collaborative-code-editor/internal/dto"
	"github.com/Owskar/collaborative-code-editor/internal/presence"
	"github.com/Owskar/collaborative-code-editor/internal/repository"
	"github.com/Owskar/collaborative-code-editor/internal/service"
)

type stubHandle struct {
	closed  int
	records []json.RawMessage
	readAll func(context.Context) ([]json.RawMessage, error)
}

func (h *stubHandle) Append(context.Context, json.RawMessage) (int64, error) { return 1, nil }
func (h *stubHandle) ReadRange(context.Context, int64, int64) ([]json.RawMessage, error) {
	return nil, nil
}
func (h *stubHandle) ReadAll(ctx context.Context) ([]json.RawMessage, error) {
	if h.readAll != nil {
		return h.readAll(ctx)
	}
	return h.records, nil
}
func (h *stubHandle) Len(context.Context) (int64, error) { return int64(len(h.records)), nil }
func (h *stubHandle) Close() error                       { h.closed++; return nil }

type stubLog struct {
	handle *stubHandle
	err    error
}

func (l *stubLog) Open(context.Context, string) (repository.UpdateLogHandle, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.handle, nil
}

type stubSub struct {
	out    chan dto.Envelope
	closed int
}

func (s *stubSub) Deliveries() <-chan dto.Envelope { return s.out }
func (s *stubSub) Close() error                    { s.closed++; return nil }

type stubBus struct {
	sub *stubSub
	err error
}

func (b *stubBus) Subscribe(context.Context, string) (repository.Subscription, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.sub, nil
}

func (b *stubBus) Publish(context.Context, string, dto.Envelope) error { return nil }

func newStubHub(logErr, busErr error) (*Hub, *stubHandle, *stubSub) {
	handle := &stubHandle{}
	sub := &stubSub{out: make(chan dto.Envelope)}
	bus := &stubBus{sub: sub, err: busErr}
	h := NewHub(&stubLog{handle: handle, err: logErr}, bus, service.NewSyncService(bus, nil), 0)
	return h, handle, sub
}

func TestPrepare(t *testing.T) {
	h, _, _ := newStubHub(nil, nil)

	c, err := h.Prepare(context.Background(), "doc-1", domain.NewUserIdentity(42))
	require.NoError(t, err)
	assert.Equal(t, StateConnecting, c.State())
	assert.Equal(t, "doc-1", c.DocumentID())
	assert.Equal(t, "42", c.Identity().String())
	assert.Equal(t, presence.ColorFor("42"), c.Color())
	assert.NotEmpty(t, c.SessionID())
	assert.Equal(t, int64(DefaultMaxMessageSize), h.maxMessageSize)
	// Not registered until activated.
	assert.Equal(t, 0, h.Count())
}

func TestPrepareDefaultsToAnonymous(t *testing.T) {
	h, _, _ := newStubHub(nil, nil)
	c, err := h.Prepare(context.Background(), "doc-1", domain.Identity{})
	require.NoError(t, err)
	assert.True(t, c.Identity().Anonymous)
	assert.Equal(t, presence.ColorFor(domain.AnonymousUserID), c.Color())
}

func TestPrepareRejectsEmptyDocument(t *testing.T) {
	h, _, _ := newStubHub(nil, nil)
	_, err := h.Prepare(context.Background(), "", domain.AnonymousIdentity())
	assert.Error(t, err)
}

func TestPrepareStoreUnavailable(t *testing.T) {
	h, _, sub := newStubHub(repository.ErrUnavailable, nil)
	_, err := h.Prepare(context.Background(), "doc-1", domain.AnonymousIdentity())
	assert.ErrorIs(t, err, repository.ErrUnavailable)
	assert.Zero(t, sub.closed)
}

func TestPrepareBusUnavailableReleasesLogHandle(t *testing.T) {
	busErr := errors.New("bus down")
	h, handle, _ := newStubHub(nil, busErr)
	_, err := h.Prepare(context.Background(), "doc-1", domain.AnonymousIdentity())
	assert.ErrorIs(t, err, busErr)
	assert.Equal(t, 1, handle.closed)
}

func TestAbortReleasesResourcesOnce(t *testing.T) {
	h, handle, sub := newStubHub(nil, nil)
	c, err := h.Prepare(context.Background(), "doc-1", domain.AnonymousIdentity())
	require.NoError(t, err)

	c.Abort()
	c.Close()

	assert.Equal(t, StateClosed, c.State())
	assert.Equal(t, 1, handle.closed)
	assert.Equal(t, 1, sub.closed)
	assert.False(t, c.Send([]byte("x")))
}

func TestNewHubPanicsOnNilDependencies(t *testing.T) {
	bus := &stubBus{}
	syncService := service.NewSyncService(bus, nil)
	assert.Panics(t, func() { NewHub(nil, bus, syncService, 0) })
	assert.Panics(t, func() { NewHub(&stubLog{}, nil, syncService, 0) })
	assert.Panics(t, func() { NewHub(&stubLog{}, bus, nil, 0) })
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "CONNECTING", StateConnecting.String())
	assert.Equal(t, "ACTIVE", StateActive.String())
	assert.Equal(t, "CLOSED", StateClosed.String())
}
