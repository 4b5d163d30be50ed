package normalizer

import (
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/mantadmin/internal/domain"
	"github.com/kailas-cloud/mantadmin/internal/domain/result"
)

func newObserved() (*Normalizer, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.WarnLevel)
	return New(zap.New(core)), logs
}

func TestNormalize_Hits(t *testing.T) {
	raw := []byte(`{"took":1,"timed_out":false,"hits":{"total":12,"hits":[
		{"_id":1,"_score":1,"_source":{"title":"a","price":100}},
		{"_id":1234567890123456789,"_score":1,"_knn_dist":0.25,"_source":{"title":"b"}}
	]}}`)
	n, _ := newObserved()

	res, err := n.Normalize(raw, result.Hits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 12 {
		t.Errorf("expected total 12, got %d", res.Total)
	}
	if len(res.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(res.Records))
	}
	first := res.Records[0]
	if first["id"] != json.Number("1") || first["title"] != "a" {
		t.Errorf("unexpected first record: %v", first)
	}
	second := res.Records[1]
	if second["id"] != json.Number("1234567890123456789") {
		t.Errorf("long id must keep every digit, got %v", second["id"])
	}
	if second["_knn_dist"] != json.Number("0.25") {
		t.Errorf("expected _knn_dist, got %v", second["_knn_dist"])
	}
	if _, ok := first["_knn_dist"]; ok {
		t.Error("_knn_dist must be absent when not returned")
	}
}

func TestNormalize_HitsKeepJSONAttributesStructured(t *testing.T) {
	raw := []byte(`{"hits":{"total":1,"hits":[
		{"_id":7,"_source":{"title":"a","meta":{"color":"red","sizes":[1,2]},"tags":["x","y"]}}
	]}}`)
	n, _ := newObserved()

	res, err := n.Normalize(raw, result.Hits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := res.Records[0]
	if _, ok := rec["_source"]; ok {
		t.Error("_source must be hoisted into the record")
	}
	meta, ok := rec["meta"].(map[string]any)
	if !ok {
		t.Fatalf("expected meta to stay an object, got %T", rec["meta"])
	}
	if meta["color"] != "red" {
		t.Errorf("expected meta.color red, got %v", meta["color"])
	}
	if sizes, ok := meta["sizes"].([]any); !ok || len(sizes) != 2 {
		t.Errorf("expected meta.sizes to stay a list, got %v", meta["sizes"])
	}
	if tags, ok := rec["tags"].([]any); !ok || len(tags) != 2 {
		t.Errorf("expected tags to stay a list, got %v", rec["tags"])
	}
	if _, ok := rec["meta.color"]; ok {
		t.Error("nested keys must not be flattened into dotted names")
	}
}

func TestNormalize_HitsWithoutTotal(t *testing.T) {
	n, _ := newObserved()
	res, err := n.Normalize([]byte(`{"hits":{"hits":[{"_id":3,"_source":{}}]}}`), result.Hits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 1 {
		t.Errorf("expected total to fall back to record count, got %d", res.Total)
	}
}

func TestNormalize_Aggregations(t *testing.T) {
	raw := []byte(`{"hits":{"total":3,"hits":[]},"aggregations":{"facet_brand_0":{"buckets":[
		{"key":"acme","doc_count":2},{"key":"zeta","doc_count":1}]}}}`)
	n, _ := newObserved()

	res, err := n.Normalize(raw, result.Hits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	buckets := res.Facets["facet_brand_0"]
	if len(buckets) != 2 || buckets[0].Key != "acme" || buckets[0].Count != 2 {
		t.Errorf("unexpected buckets: %+v", buckets)
	}
}

func TestNormalize_HitsErrorPayload(t *testing.T) {
	n, _ := newObserved()
	for _, raw := range []string{
		`{"error":"unknown table 'x'"}`,
		`{"error":{"type":"parse_exception","reason":"unknown table 'x'"}}`,
	} {
		_, err := n.Normalize([]byte(raw), result.Hits)
		var te *domain.TransportError
		if !errors.As(err, &te) {
			t.Fatalf("%s: expected TransportError, got %v", raw, err)
		}
		if te.Message != "unknown table 'x'" {
			t.Errorf("unexpected message %q", te.Message)
		}
	}
}

func TestNormalize_ShapeMismatchIsSoft(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		shape result.Shape
	}{
		{"hits missing", `{"data":[]}`, result.Hits},
		{"invalid json", `{not json`, result.Hits},
		{"tabular object without data", `{"foo":1}`, result.Tabular},
		{"tabular scalar", `42`, result.Tabular},
		{"empty admin", ``, result.Admin},
		{"unknown shape", `{}`, result.Shape("other")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, logs := newObserved()
			res, err := n.Normalize([]byte(tc.raw), tc.shape)
			if err != nil {
				t.Fatalf("mismatch must not error, got %v", err)
			}
			if res.Total != 0 || len(res.Records) != 0 || res.Records == nil {
				t.Errorf("expected empty result, got %+v", res)
			}
			if logs.FilterMessage("Response shape mismatch").Len() != 1 {
				t.Errorf("expected one mismatch log, got %d", logs.Len())
			}
		})
	}
}

func TestNormalize_Tabular(t *testing.T) {
	raw := []byte(`[{"columns":[{"id":{"type":"long long"}},{"title":{"type":"string"}}],
		"data":[{"id":1,"title":"a"},{"id":2,"title":"b"}],"total":2,"error":"","warning":""}]`)
	n, _ := newObserved()

	res, err := n.Normalize(raw, result.Tabular)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 2 || len(res.Records) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Records[1]["title"] != "b" {
		t.Errorf("unexpected row: %v", res.Records[1])
	}
}

func TestNormalize_TabularSingleObject(t *testing.T) {
	n, _ := newObserved()
	res, err := n.Normalize([]byte(`{"columns":[],"data":[{"Value":"x"}]}`), result.Tabular)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 1 || res.Records[0]["Value"] != "x" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestNormalize_AdminLowercasesKeys(t *testing.T) {
	raw := []byte(`[{"columns":[{"Field":{"type":"string"}},{"Type":{"type":"string"}}],
		"data":[{"Field":"id","Type":"bigint"},{"Field":"emb","Type":"float_vector"}],"total":2,"error":"","warning":""}]`)
	n, _ := newObserved()

	res, err := n.Normalize(raw, result.Admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Records[1]["field"] != "emb" || res.Records[1]["type"] != "float_vector" {
		t.Errorf("expected lower-cased keys, got %v", res.Records[1])
	}
}

func TestNormalize_AdminErrorInResultSet(t *testing.T) {
	raw := []byte(`[{"total":0,"error":"table 'x' absent","warning":""}]`)
	n, _ := newObserved()

	_, err := n.Normalize(raw, result.Admin)
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestNormalize_AdminWarningLogged(t *testing.T) {
	raw := []byte(`[{"data":[],"total":0,"error":"","warning":"deprecated"}]`)
	n, logs := newObserved()

	if _, err := n.Normalize(raw, result.Admin); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logs.FilterMessage("Backend warning").Len() != 1 {
		t.Error("expected warning to be logged")
	}
}

func TestErrorMessage(t *testing.T) {
	tests := map[string]string{
		``:                          "",
		`null`:                      "",
		`"boom"`:                    "boom",
		`{"reason":"bad"}`:          "bad",
		`{"type":"action_request"}`: "action_request",
		`[1]`:                       "[1]",
	}
	for in, want := range tests {
		if got := ErrorMessage(json.RawMessage(in)); got != want {
			t.Errorf("ErrorMessage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMutation(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		result   string
		affected int
		created  bool
	}{
		{"insert", `{"table":"products","_id":1657860156022587406,"created":true,"result":"created","status":201}`, "created", 1, true},
		{"update", `{"table":"products","_id":1,"result":"updated"}`, "updated", 1, false},
		{"update by query", `{"table":"products","updated":3}`, "updated", 3, false},
		{"delete", `{"table":"products","_id":5,"found":true,"result":"deleted"}`, "deleted", 1, false},
		{"delete missing", `{"table":"products","_id":5,"found":false,"result":"not found"}`, "not found", 0, false},
	}
	n, _ := newObserved()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := n.Mutation([]byte(tc.raw))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.Result != tc.result || m.Affected != tc.affected || m.Created != tc.created {
				t.Errorf("unexpected mutation %+v", m)
			}
		})
	}
}

func TestMutation_LongIDKeepsDigits(t *testing.T) {
	n, _ := newObserved()
	m, _ := n.Mutation([]byte(`{"_id":1657860156022587406,"created":true,"result":"created"}`))
	if m.ID != json.Number("1657860156022587406") {
		t.Errorf("expected exact id, got %v", m.ID)
	}
}

func TestMutation_Error(t *testing.T) {
	n, _ := newObserved()
	_, err := n.Mutation([]byte(`{"error":{"type":"duplicate_id","reason":"duplicate id '1'"},"status":409}`))
	var te *domain.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.StatusCode != 409 || te.Message != "duplicate id '1'" {
		t.Errorf("unexpected error %+v", te)
	}
}

func TestMutation_Garbage(t *testing.T) {
	n, logs := newObserved()
	m, err := n.Mutation([]byte(`<html>`))
	if err != nil {
		t.Fatalf("expected soft failure, got %v", err)
	}
	if m.Result != "" || logs.Len() != 1 {
		t.Errorf("expected empty mutation and one warning, got %+v / %d", m, logs.Len())
	}
}
