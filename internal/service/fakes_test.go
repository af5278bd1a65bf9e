package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/Owskar/collaborative-code-editor/internal/domain"
	"github.com/Owskar/collaborative-code-editor/internal/dto"
	"github.com/Owskar/collaborative-code-editor/internal/repository"
)

var errStoreDown = errors.New("store down")

type fakeLog struct {
	mu       sync.Mutex
	records  []json.RawMessage
	failures int
	attempts int
}

func (l *fakeLog) Append(_ context.Context, update json.RawMessage) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts++
	if l.failures != 0 {
		if l.failures > 0 {
			l.failures--
		}
		return 0, errStoreDown
	}
	l.records = append(l.records, update)
	return int64(len(l.records)), nil
}

func (l *fakeLog) ReadRange(_ context.Context, start, stop int64) ([]json.RawMessage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if stop < 0 || stop >= int64(len(l.records)) {
		stop = int64(len(l.records)) - 1
	}
	if start > stop {
		return nil, nil
	}
	return append([]json.RawMessage(nil), l.records[start:stop+1]...), nil
}

func (l *fakeLog) ReadAll(ctx context.Context) ([]json.RawMessage, error) {
	return l.ReadRange(ctx, 0, -1)
}

func (l *fakeLog) Len(context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int64(len(l.records)), nil
}

func (l *fakeLog) Close() error { return nil }

type publishedEnvelope struct {
	documentID string
	env        dto.Envelope
}

type fakeBus struct {
	mu        sync.Mutex
	published []publishedEnvelope
	err       error
}

func (b *fakeBus) Subscribe(context.Context, string) (repository.Subscription, error) {
	return nil, errors.New("not used")
}

func (b *fakeBus) Publish(_ context.Context, documentID string, env dto.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.published = append(b.published, publishedEnvelope{documentID: documentID, env: env})
	return nil
}

type fakePeer struct {
	sessionID  string
	documentID string
	identity   domain.Identity
	color      string
	log        *fakeLog
	sent       [][]byte
}

func (p *fakePeer) SessionID() string                   { return p.sessionID }
func (p *fakePeer) DocumentID() string                  { return p.documentID }
func (p *fakePeer) Identity() domain.Identity           { return p.identity }
func (p *fakePeer) Color() string                       { return p.color }
func (p *fakePeer) Updates() repository.UpdateLogHandle { return p.log }
func (p *fakePeer) Send(frame []byte) bool {
	p.sent = append(p.sent, frame)
	return true
}

type submission struct {
	documentID string
	content    string
	version    int64
}

type fakeSink struct {
	submissions []submission
}

func (s *fakeSink) Submit(documentID, content string, version int64) {
	s.submissions = append(s.submissions, submission{documentID, content, version})
}
