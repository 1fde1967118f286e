package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/telestrator/internal/config"
	"github.com/OCAP2/telestrator/internal/storage"
	"github.com/OCAP2/telestrator/pkg/core"
	"github.com/OCAP2/telestrator/pkg/streaming"
)

// Compile-time interface checks.
var (
	_ storage.Backend = (*Backend)(nil)
	_ storage.Loader  = (*Backend)(nil)
)

// fakeServer keeps one document per video, acks updates and answers loads.
type fakeServer struct {
	mu       sync.Mutex
	docs     map[string]core.AnnotationDocument
	messages []streaming.Envelope
	secret   string
	reject   string // non-empty makes updates fail with this error
	silent   bool   // never ack
}

func newFakeServer() *fakeServer {
	return &fakeServer{docs: make(map[string]core.AnnotationDocument)}
}

func (f *fakeServer) handle(t *testing.T) http.HandlerFunc {
	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.secret = r.URL.Query().Get("secret")
		f.mu.Unlock()

		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}

			ack := streaming.AckMessage{Type: streaming.TypeAck, For: env.Type, Seq: env.Seq}

			f.mu.Lock()
			f.messages = append(f.messages, env)
			silent := f.silent
			switch env.Type {
			case streaming.TypeUpdateAnnotations:
				var p streaming.UpdateAnnotationsPayload
				_ = json.Unmarshal(env.Payload, &p)
				if f.reject != "" {
					ack.Error = f.reject
				} else {
					f.docs[p.VideoID] = p.Document
				}
			case streaming.TypeLoadAnnotations:
				var p streaming.LoadAnnotationsPayload
				_ = json.Unmarshal(env.Payload, &p)
				if doc, ok := f.docs[p.VideoID]; ok {
					ack.Payload, _ = json.Marshal(doc)
				}
			}
			f.mu.Unlock()

			if silent {
				continue
			}
			data, _ := json.Marshal(ack)
			if err := c.WriteMessage(ws.TextMessage, data); err != nil {
				return
			}
		}
	}
}

func (f *fakeServer) all() []streaming.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]streaming.Envelope, len(f.messages))
	copy(cp, f.messages)
	return cp
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func setup(t *testing.T, f *fakeServer) *Backend {
	t.Helper()
	srv := httptest.NewServer(f.handle(t))
	t.Cleanup(srv.Close)

	b := New(config.WebSocketConfig{URL: wsURL(srv), Secret: "s3cret"}, nil)
	require.NoError(t, b.Init())
	t.Cleanup(func() { b.Close() })
	return b
}

func annotation(id string) core.VideoAnnotation {
	return core.VideoAnnotation{
		ID:          id,
		Timestamp:   1.25,
		Tool:        core.ToolLine,
		Points:      []core.Point{{X: 1, Y: 2}, {X: 3, Y: 4}},
		Color:       "#ff0000",
		StrokeWidth: 3,
		CreatedAt:   time.Date(2026, 6, 7, 8, 9, 10, 0, time.UTC),
	}
}

func TestUpdateAndLoad(t *testing.T) {
	f := newFakeServer()
	b := setup(t, f)
	ctx := context.Background()

	doc := core.AnnotationDocument{Annotations: []core.VideoAnnotation{annotation("a"), annotation("b")}}
	require.NoError(t, b.Update(ctx, "v1", doc))

	got, err := b.Load(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, doc.Annotations, got)

	msgs := f.all()
	require.Len(t, msgs, 2)
	assert.Equal(t, streaming.TypeUpdateAnnotations, msgs[0].Type)
	assert.Equal(t, streaming.TypeLoadAnnotations, msgs[1].Type)
	assert.Less(t, msgs[0].Seq, msgs[1].Seq)
}

func TestSecretSentAsQueryParam(t *testing.T) {
	f := newFakeServer()
	b := setup(t, f)
	require.NoError(t, b.Update(context.Background(), "v1", core.AnnotationDocument{}))

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, "s3cret", f.secret)
}

func TestUpdate_NilListSentAsEmpty(t *testing.T) {
	f := newFakeServer()
	b := setup(t, f)
	require.NoError(t, b.Update(context.Background(), "v1", core.AnnotationDocument{}))

	msgs := f.all()
	require.Len(t, msgs, 1)
	assert.JSONEq(t, `{"videoId":"v1","document":{"annotations":[]}}`, string(msgs[0].Payload))
}

func TestLoad_Unknown(t *testing.T) {
	b := setup(t, newFakeServer())

	got, err := b.Load(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdate_Rejected(t *testing.T) {
	f := newFakeServer()
	f.reject = "read only"
	b := setup(t, f)

	err := b.Update(context.Background(), "v1", core.AnnotationDocument{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejected))
	assert.Contains(t, err.Error(), "read only")
}

func TestUpdate_Timeout(t *testing.T) {
	f := newFakeServer()
	f.silent = true
	b := setup(t, f)
	b.ackTimeout = 50 * time.Millisecond

	err := b.Update(context.Background(), "v1", core.AnnotationDocument{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestUpdate_ContextCanceled(t *testing.T) {
	f := newFakeServer()
	f.silent = true
	b := setup(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := b.Update(ctx, "v1", core.AnnotationDocument{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUpdate_AfterClose(t *testing.T) {
	b := setup(t, newFakeServer())
	require.NoError(t, b.Close())

	err := b.Update(context.Background(), "v1", core.AnnotationDocument{})
	assert.Error(t, err)
}

func TestConcurrentUpdates(t *testing.T) {
	f := newFakeServer()
	b := setup(t, f)

	var wg sync.WaitGroup
	for _, id := range []string{"v1", "v2", "v3", "v4"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, b.Update(context.Background(), id, core.AnnotationDocument{
				Annotations: []core.VideoAnnotation{annotation(id)},
			}))
		}(id)
	}
	wg.Wait()

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Len(t, f.docs, 4)
}

func TestInit_BadURL(t *testing.T) {
	b := New(config.WebSocketConfig{URL: "ws://127.0.0.1:1/none"}, nil)
	assert.Error(t, b.Init())
}

func TestClose_Idempotent(t *testing.T) {
	b := setup(t, newFakeServer())
	assert.NoError(t, b.Close())
	assert.NoError(t, b.Close())
}
