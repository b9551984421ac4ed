// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package generate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/nimbus/internal/auth"
	"github.com/ManuGH/nimbus/internal/personality"
	"github.com/ManuGH/nimbus/internal/resilience"
	"github.com/ManuGH/nimbus/internal/store"
	"github.com/ManuGH/nimbus/internal/upstream"
)

type stubGenerator struct {
	answer string
	err    error
	got    []upstream.Request
}

func (g *stubGenerator) Generate(_ context.Context, req upstream.Request) (string, error) {
	g.got = append(g.got, req)
	return g.answer, g.err
}

// constGenerator is safe for concurrent use.
type constGenerator string

func (g constGenerator) Generate(context.Context, upstream.Request) (string, error) {
	return string(g), nil
}

type denyQuota struct{ keys []string }

func (q *denyQuota) Allow(key string) bool {
	q.keys = append(q.keys, key)
	return false
}

type fixedRand float64

func (r fixedRand) Float64() float64 { return float64(r) }

func newService(t *testing.T, gen Generator, q Quota) (*Service, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	t.Cleanup(func() { _ = st.Close() })
	svc := NewService(gen, q, st)
	svc.rng = fixedRand(0)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, st
}

var alice = &auth.Principal{ID: "alice", Email: "alice@example.com"}

func TestGenerate_MessageRequired(t *testing.T) {
	gen := &stubGenerator{answer: "x"}
	svc, _ := newService(t, gen, nil)

	for _, msg := range []string{"", "   \n\t"} {
		_, err := svc.Generate(context.Background(), alice, Request{Message: msg})
		assert.ErrorIs(t, err, ErrMessageRequired)
	}
	assert.Empty(t, gen.got)
}

func TestGenerate_QuotaExceeded(t *testing.T) {
	gen := &stubGenerator{answer: "x"}
	q := &denyQuota{}
	svc, _ := newService(t, gen, q)

	_, err := svc.Generate(context.Background(), alice, Request{Message: "hi", IP: "203.0.113.1"})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Empty(t, gen.got)

	_, err = svc.Generate(context.Background(), nil, Request{Message: "hi", IP: "203.0.113.1"})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, []string{"alice", "ip:203.0.113.1"}, q.keys)
}

func TestGenerate_AppliesStoredPersonality(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{answer: "Hey, this is simple."}
	svc, st := newService(t, gen, nil)

	settings := store.DefaultSettings(alice.ID)
	settings.Personality = personality.Personality{
		Traits:       []string{"witty"},
		Tone:         personality.ToneFormal,
		HumorLevel:   5,
		EmpathyLevel: 5,
	}
	require.NoError(t, st.PutSettings(ctx, settings))

	got, err := svc.Generate(ctx, alice, Request{Message: "explain"})
	require.NoError(t, err)
	assert.Equal(t, "Greetings, this is elementary, my dear user.", got)

	require.Len(t, gen.got, 1)
	assert.Equal(t, "explain", gen.got[0].Message)
}

func TestGenerate_LogsInteractions(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{answer: "ok"}
	svc, st := newService(t, gen, nil)

	_, err := svc.Generate(ctx, alice, Request{Message: "first", IP: "198.51.100.2"})
	require.NoError(t, err)

	gen.err = errors.New("upstream down")
	_, err = svc.Generate(ctx, alice, Request{Message: "second", IP: "198.51.100.2"})
	require.Error(t, err)

	items, err := st.ListInteractions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)

	byQuestion := map[string]store.Interaction{}
	for _, it := range items {
		byQuestion[it.Question] = it
	}
	assert.True(t, byQuestion["first"].Sent)
	assert.False(t, byQuestion["second"].Sent)
	assert.Equal(t, "198.51.100.2", byQuestion["first"].IP)
	assert.Equal(t, "alice", byQuestion["first"].UserID)
}

func TestGenerate_WrapsUpstreamErrors(t *testing.T) {
	gen := &stubGenerator{err: resilience.ErrCircuitOpen}
	svc, _ := newService(t, gen, nil)

	_, err := svc.Generate(context.Background(), alice, Request{Message: "hi"})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
}

func TestGenerate_AppendsToThread(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{answer: "answer"}
	svc, st := newService(t, gen, nil)

	th, err := st.CreateThread(ctx, alice.ID)
	require.NoError(t, err)

	_, err = svc.Generate(ctx, alice, Request{Message: "question", ThreadID: th.ID})
	require.NoError(t, err)

	got, err := st.GetThread(ctx, alice.ID, th.ID)
	require.NoError(t, err)
	require.Len(t, got.History, 1)
	assert.Equal(t, "question", got.History[0].Query)
	assert.Equal(t, "answer", got.History[0].Response)
	assert.NotNil(t, got.History[0].Files)
}

func TestGenerate_ConcurrentAppendsKeepEveryExchange(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t, constGenerator("answer"), nil)

	th, err := st.CreateThread(ctx, alice.ID)
	require.NoError(t, err)

	const n = 16
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Generate(ctx, alice, Request{Message: fmt.Sprintf("q%d", i), ThreadID: th.ID})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := st.GetThread(ctx, alice.ID, th.ID)
	require.NoError(t, err)
	assert.Len(t, got.History, n)
}

func TestGenerate_MissingThreadIsNotFatal(t *testing.T) {
	gen := &stubGenerator{answer: "answer"}
	svc, _ := newService(t, gen, nil)

	got, err := svc.Generate(context.Background(), alice, Request{Message: "q", ThreadID: "missing"})
	require.NoError(t, err)
	assert.Equal(t, "answer", got)
}
