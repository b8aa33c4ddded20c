package engine

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/pkg/anthropic"
	"github.com/sells-group/outreach-cli/pkg/ollama"
)

// mockOllama implements ollama.Client.
type mockOllama struct {
	mock.Mock
}

func (m *mockOllama) Generate(ctx context.Context, req ollama.GenerateRequest) (*ollama.GenerateResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ollama.GenerateResponse), args.Error(1)
}

func (m *mockOllama) Tags(ctx context.Context) (*ollama.TagsResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ollama.TagsResponse), args.Error(1)
}

// mockAnthropic implements anthropic.Client.
type mockAnthropic struct {
	mock.Mock
}

func (m *mockAnthropic) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// step is one scripted generator response.
type step func(ctx context.Context) (string, error)

func reply(text string) step {
	return func(context.Context) (string, error) { return text, nil }
}

func fail(err error) step {
	return func(context.Context) (string, error) { return "", err }
}

// hang blocks until the attempt deadline expires.
func hang() step {
	return func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
}

// scriptedGenerator plays steps in order and repeats the last one.
type scriptedGenerator struct {
	mu    sync.Mutex
	steps []step
	calls int
}

func script(steps ...step) *scriptedGenerator {
	return &scriptedGenerator{steps: steps}
}

func (g *scriptedGenerator) Generate(ctx context.Context, _ string) (string, error) {
	g.mu.Lock()
	i := g.calls
	if i >= len(g.steps) {
		i = len(g.steps) - 1
	}
	g.calls++
	s := g.steps[i]
	g.mu.Unlock()
	return s(ctx)
}

func (g *scriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// pingGenerator adds a scripted Ping to scriptedGenerator.
type pingGenerator struct {
	*scriptedGenerator
	pings []error
	n     int
}

func (g *pingGenerator) Ping(context.Context) error {
	i := g.n
	if i >= len(g.pings) {
		i = len(g.pings) - 1
	}
	g.n++
	return g.pings[i]
}

type attemptLog struct {
	mu   sync.Mutex
	seen []string
}

func (l *attemptLog) ObserveAttempt(stage model.Stage, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := "error"
	if ok {
		r = "ok"
	}
	l.seen = append(l.seen, string(stage)+":"+r)
}
