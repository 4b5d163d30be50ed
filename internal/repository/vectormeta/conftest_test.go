package vectormeta

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/mantadmin/internal/cache"
	"github.com/kailas-cloud/mantadmin/internal/domain/request"
	"github.com/kailas-cloud/mantadmin/internal/normalizer"
)

// fakeBackend answers by path; admin commands are matched on their leading text.
type fakeBackend struct {
	search func(body string) ([]byte, error)
	admin  map[string]func(cmd string) ([]byte, error)
	calls  []string
}

func (f *fakeBackend) Do(_ context.Context, req request.Compiled) ([]byte, error) {
	body := string(req.Body())
	f.calls = append(f.calls, req.Path()+" "+body)
	if req.Path() == request.PathSearch {
		if f.search == nil {
			return []byte(`{"hits":{"total":0,"hits":[]}}`), nil
		}
		return f.search(body)
	}
	for prefix, fn := range f.admin {
		if strings.HasPrefix(body, prefix) {
			return fn(body)
		}
	}
	return []byte(`[{"columns":[],"data":[],"total":0,"error":"","warning":""}]`), nil
}

func (f *fakeBackend) adminCalls(prefix string) []string {
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, request.PathCLIJSON+" "+prefix) {
			out = append(out, strings.TrimPrefix(c, request.PathCLIJSON+" "))
		}
	}
	return out
}

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T, b *fakeBackend) *Repo {
	t.Helper()
	clock := cache.ClockFunc(func() time.Time { return fixedNow })
	return New(b, normalizer.New(zap.NewNop()), clock, zap.NewNop())
}

func ok(body string) func(string) ([]byte, error) {
	return func(string) ([]byte, error) { return []byte(body), nil }
}
