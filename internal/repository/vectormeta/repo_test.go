package vectormeta

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kailas-cloud/mantadmin/internal/domain"
	"github.com/kailas-cloud/mantadmin/internal/domain/vector"
)

const settingsHits = `{"hits":{"total":4,"hits":[
{"_id":101,"_score":1,"_source":{"tbl_name":"products","col_name":"embedding","mdl_name":"all-MiniLM","combined_fields":"{\"source_fields\":[\"title\",\"body\"],\"weights\":{\"title\":2}}","created_at":1,"updated_at":5}},
{"_id":102,"_score":1,"_source":{"tbl_name":"products archive","col_name":"embedding","mdl_name":"other","created_at":1,"updated_at":1}},
{"_id":103,"_score":1,"_source":{"tbl_name":"products","col_name":"embedding","mdl_name":"newer","created_at":1,"updated_at":9}},
{"_id":104,"_score":1,"_source":{"tbl_name":"products","col_name":"image_vec","mdl_name":"clip","combined_fields":{"source_fields":["image"]},"created_at":2,"updated_at":2}}
]}}`

const showCreate = `[{"columns":[{"Table":{"type":"string"}},{"Create Table":{"type":"string"}}],"data":[{"Table":"products","Create Table":"CREATE TABLE products (\nid bigint,\ntitle text,\nembedding float_vector knn_type='hnsw' knn_dims='384' hnsw_similarity='COSINE',\nimage_vec float_vector knn_type='hnsw' knn_dims='512' hnsw_similarity='L2'\n)"}],"total":1,"error":"","warning":""}]`

const emptySet = `[{"columns":[],"data":[],"total":0,"error":"","warning":""}]`

func TestFetch_MergesSettingsAndSchema(t *testing.T) {
	b := &fakeBackend{
		search: ok(settingsHits),
		admin:  map[string]func(string) ([]byte, error){"SHOW CREATE TABLE products": ok(showCreate)},
	}
	r := newTestRepo(t, b)

	cols, err := r.Fetch(context.Background(), "products")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cols) != 2 {
		t.Fatalf("expected 2 columns, got %d: %+v", len(cols), cols)
	}

	emb := cols[0]
	if emb.Column != "embedding" || emb.ModelName != "newer" {
		t.Errorf("expected latest row to win, got %+v", emb)
	}
	if emb.Dimensions != 384 || emb.KNNType != "hnsw" || emb.SimilarityMetric != "cosine" {
		t.Errorf("expected schema attributes merged, got %+v", emb)
	}
	if emb.CombinedFields != nil {
		t.Errorf("newer row has no combined fields, got %+v", emb.CombinedFields)
	}

	img := cols[1]
	if img.Column != "image_vec" || img.Dimensions != 512 || img.SimilarityMetric != "l2" {
		t.Errorf("unexpected image column %+v", img)
	}
	if !img.IsMultiField() || img.CombinedFields.SourceFields[0] != "image" {
		t.Errorf("expected combined fields parsed from object, got %+v", img.CombinedFields)
	}

	if !strings.Contains(b.calls[0], `"match":{"tbl_name":"products"}`) || !strings.Contains(b.calls[0], `"limit":100`) {
		t.Errorf("unexpected settings lookup %s", b.calls[0])
	}
}

func TestFetch_SchemaFailureKeepsSettings(t *testing.T) {
	b := &fakeBackend{
		search: ok(settingsHits),
		admin: map[string]func(string) ([]byte, error){
			"SHOW CREATE TABLE": ok(`[{"columns":[],"data":[],"total":0,"error":"unknown table","warning":""}]`),
		},
	}
	cols, err := newTestRepo(t, b).Fetch(context.Background(), "products")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cols) != 2 || cols[0].Dimensions != 0 {
		t.Errorf("expected settings without schema attributes, got %+v", cols)
	}
}

func TestFetch_NoSettings(t *testing.T) {
	b := &fakeBackend{}
	cols, err := newTestRepo(t, b).Fetch(context.Background(), "products")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols == nil || len(cols) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", cols)
	}
	if len(b.calls) != 1 {
		t.Errorf("schema must not be read without settings, got %d calls", len(b.calls))
	}
}

func TestFetch_InvalidTable(t *testing.T) {
	b := &fakeBackend{}
	_, err := newTestRepo(t, b).Fetch(context.Background(), "x; DROP TABLE y")
	if !errors.Is(err, domain.ErrCompilation) {
		t.Fatalf("expected ErrCompilation, got %v", err)
	}
	if len(b.calls) != 0 {
		t.Errorf("expected no backend calls, got %v", b.calls)
	}
}

func TestFetch_BackendError(t *testing.T) {
	b := &fakeBackend{search: func(string) ([]byte, error) {
		return nil, domain.NewTransportError(500, "unknown table")
	}}
	_, err := newTestRepo(t, b).Fetch(context.Background(), "products")
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestSave_InsertsNewRow(t *testing.T) {
	b := &fakeBackend{}
	r := newTestRepo(t, b)

	err := r.Save(context.Background(), vector.ColumnConfig{
		Table:     "products",
		Column:    "embedding",
		ModelName: "all-MiniLM",
		CombinedFields: &vector.CombinedFields{
			SourceFields: []string{"title"},
			Weights:      map[string]float64{"title": 2},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(b.adminCalls("CREATE TABLE IF NOT EXISTS "+vector.SettingsTable)) != 1 {
		t.Error("expected settings table to be ensured")
	}
	inserts := b.adminCalls("INSERT INTO")
	if len(inserts) != 1 {
		t.Fatalf("expected 1 insert, got %v", b.calls)
	}
	want := fmt.Sprintf(
		`INSERT INTO manager_vector_column_settings (id, tbl_name, col_name, mdl_name, combined_fields, created_at, updated_at) VALUES (%d, 'products', 'embedding', 'all-MiniLM', '{"source_fields":["title"],"weights":{"title":2}}', %d, %d)`,
		fixedNow.UnixMicro(), fixedNow.Unix(), fixedNow.Unix(),
	)
	if inserts[0] != want {
		t.Errorf("unexpected statement\n got: %s\nwant: %s", inserts[0], want)
	}
}

func TestSave_ReplacesExistingRow(t *testing.T) {
	b := &fakeBackend{search: ok(`{"hits":{"total":1,"hits":[{"_id":101,"_source":{"tbl_name":"products","col_name":"embedding","mdl_name":"old","created_at":1700000000,"updated_at":1700000000}}]}}`)}
	r := newTestRepo(t, b)

	if err := r.Save(context.Background(), vector.ColumnConfig{Table: "products", Column: "embedding", ModelName: "new"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	replaces := b.adminCalls("REPLACE INTO")
	if len(replaces) != 1 {
		t.Fatalf("expected 1 replace, got %v", b.calls)
	}
	want := fmt.Sprintf(
		`REPLACE INTO manager_vector_column_settings (id, tbl_name, col_name, mdl_name, combined_fields, created_at, updated_at) VALUES (101, 'products', 'embedding', 'new', NULL, 1700000000, %d)`,
		fixedNow.Unix(),
	)
	if replaces[0] != want {
		t.Errorf("unexpected statement\n got: %s\nwant: %s", replaces[0], want)
	}
}

func TestSave_Validation(t *testing.T) {
	r := newTestRepo(t, &fakeBackend{})
	if err := r.Save(context.Background(), vector.ColumnConfig{Table: "products", Column: "embedding"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput without model, got %v", err)
	}
	if err := r.Save(context.Background(), vector.ColumnConfig{Table: "p'", Column: "e", ModelName: "m"}); !errors.Is(err, domain.ErrCompilation) {
		t.Errorf("expected ErrCompilation for bad identifier, got %v", err)
	}
}

func TestDelete_RemovesMatchingRows(t *testing.T) {
	b := &fakeBackend{search: ok(settingsHits)}
	if err := newTestRepo(t, b).Delete(context.Background(), "products", "embedding"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	deletes := b.adminCalls("DELETE FROM")
	if len(deletes) != 1 || deletes[0] != "DELETE FROM manager_vector_column_settings WHERE id IN (101,103)" {
		t.Errorf("unexpected delete %v", deletes)
	}
}

func TestDelete_NotFound(t *testing.T) {
	b := &fakeBackend{search: ok(settingsHits)}
	err := newTestRepo(t, b).Delete(context.Background(), "products", "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTable(t *testing.T) {
	b := &fakeBackend{search: ok(settingsHits)}
	if err := newTestRepo(t, b).DeleteTable(context.Background(), "products"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	deletes := b.adminCalls("DELETE FROM")
	if len(deletes) != 1 || deletes[0] != "DELETE FROM manager_vector_column_settings WHERE id IN (101,103,104)" {
		t.Errorf("unexpected delete %v", deletes)
	}
}

func TestEnsureSettingsTable_Exists(t *testing.T) {
	b := &fakeBackend{admin: map[string]func(string) ([]byte, error){
		"DESCRIBE": ok(`[{"columns":[{"Field":{}},{"Type":{}}],"data":[{"Field":"id","Type":"bigint"}],"total":1,"error":"","warning":""}]`),
	}}
	if err := newTestRepo(t, b).EnsureSettingsTable(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b.adminCalls("CREATE")) != 0 {
		t.Error("table must not be created when DESCRIBE finds it")
	}
}

func TestEnsureSettingsTable_Creates(t *testing.T) {
	b := &fakeBackend{admin: map[string]func(string) ([]byte, error){
		"DESCRIBE": ok(`[{"columns":[],"data":[],"total":0,"error":"no such table","warning":""}]`),
		"CREATE":   ok(emptySet),
	}}
	if err := newTestRepo(t, b).EnsureSettingsTable(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b.adminCalls("CREATE TABLE IF NOT EXISTS")) != 1 {
		t.Errorf("expected create, got %v", b.calls)
	}
}

func TestEnsureSettingsTable_CreateFails(t *testing.T) {
	b := &fakeBackend{admin: map[string]func(string) ([]byte, error){
		"DESCRIBE": ok(`[{"error":"no such table"}]`),
		"CREATE": func(string) ([]byte, error) {
			return nil, domain.NewTransportError(0, "connection refused")
		},
	}}
	if err := newTestRepo(t, b).EnsureSettingsTable(context.Background()); !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestParseVectorAttrs(t *testing.T) {
	got := parseVectorAttrs("CREATE TABLE t (\n`vec` float_vector knn_type='HNSW' knn_dims='3' hnsw_similarity='IP', title text, plain float_vector)")
	if got["vec"] != (vectorAttrs{KNNType: "hnsw", Similarity: "ip", Dims: 3}) {
		t.Errorf("unexpected vec attrs %+v", got["vec"])
	}
	if _, ok := got["plain"]; !ok {
		t.Error("expected float_vector without attributes to be listed")
	}
	if _, ok := got["title"]; ok {
		t.Error("text column must not be listed")
	}
}
