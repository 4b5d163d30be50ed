package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Mocks ---

type mockPinger struct {
	err   error
	block bool
}

func (m *mockPinger) Ping(ctx context.Context) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return m.err
}

type mockEmbeddingChecker struct {
	err error
}

func (m *mockEmbeddingChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockPinger{}, &mockEmbeddingChecker{}, &mockPinger{}, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, c := range []string{ComponentBackend, ComponentEmbedding, ComponentCache} {
		if r.Checks[c] != CheckOK {
			t.Errorf("expected %s %q, got %q", c, CheckOK, r.Checks[c])
		}
	}
}

func TestCheck_BackendError(t *testing.T) {
	svc := New(&mockPinger{err: errors.New("conn refused")}, &mockEmbeddingChecker{}, nil, nil)
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks[ComponentBackend] != CheckError {
		t.Errorf("expected backend %q, got %q", CheckError, r.Checks[ComponentBackend])
	}
	if r.Checks[ComponentEmbedding] != CheckOK {
		t.Errorf("expected embedding %q, got %q", CheckOK, r.Checks[ComponentEmbedding])
	}
}

func TestCheck_EmbeddingError(t *testing.T) {
	svc := New(&mockPinger{}, &mockEmbeddingChecker{err: errors.New("timeout")}, nil, nil)
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks[ComponentEmbedding] != CheckError {
		t.Errorf("expected embedding %q, got %q", CheckError, r.Checks[ComponentEmbedding])
	}
}

func TestCheck_BackendAndCacheFail(t *testing.T) {
	svc := New(&mockPinger{err: errors.New("down")}, nil, &mockPinger{err: errors.New("down")}, nil)
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks[ComponentCache] != CheckError {
		t.Error("expected cache error")
	}
}

func TestCheck_OptionalComponentsAbsent(t *testing.T) {
	svc := New(&mockPinger{}, nil, nil, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if len(r.Checks) != 1 {
		t.Errorf("expected only the backend check, got %v", r.Checks)
	}
}

func TestCheck_Timeout(t *testing.T) {
	svc := New(&mockPinger{}, nil, &mockPinger{block: true}, nil).WithTimeout(20 * time.Millisecond)

	done := make(chan Report, 1)
	go func() { done <- svc.Check(context.Background()) }()

	select {
	case r := <-done:
		if r.Status != Degraded || r.Checks[ComponentCache] != CheckError {
			t.Errorf("expected degraded with cache timeout, got %+v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("check did not honor its timeout")
	}
}
