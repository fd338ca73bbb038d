package retrieval

import (
	"testing"

	"github.com/hpungsan/asesor/internal/docstore"
	"github.com/hpungsan/asesor/internal/document"
)

type fakeRecorder struct {
	kinds   []string
	results []int
}

func (f *fakeRecorder) ObserveSearch(kind string, results int) {
	f.kinds = append(f.kinds, kind)
	f.results = append(f.results, results)
}

func ids(docs []document.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func equalIDs(t *testing.T, got []document.Document, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("ids = %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("ids = %v, want %v", g, want)
		}
	}
}

func TestSearch_EmptyStore(t *testing.T) {
	e := New(docstore.New())
	got := e.Search("balde bobcat s70", nil, 5)
	if got == nil || len(got) != 0 {
		t.Errorf("Search() = %v, want empty non-nil", got)
	}
}

func TestSearch_SingleDocument(t *testing.T) {
	store := docstore.New(document.New("d1", "Bobcat S70: balde compatible hasta 0.3m3", map[string]string{"marca": "Bobcat"}))
	results := New(store).SearchScored("balde", nil, 5)

	if len(results) != 1 {
		t.Fatalf("len = %d, want 1", len(results))
	}
	if results[0].Document.ID != "d1" || results[0].Score < 1 {
		t.Errorf("result = %+v", results[0])
	}
}

func TestSearch_RankingAndTies(t *testing.T) {
	store := docstore.New(
		document.New("a", "balde estándar", nil),
		document.New("b", "balde para bobcat s70", nil),
		document.New("c", "otro balde", nil),
		document.New("d", "martillo hidráulico", nil),
	)
	e := New(store)

	got := e.Search("balde bobcat", nil, 5)
	equalIDs(t, got, "b", "a", "c")

	// Determinism
	for i := 0; i < 3; i++ {
		equalIDs(t, e.Search("balde bobcat", nil, 5), "b", "a", "c")
	}
}

func TestSearch_TopK(t *testing.T) {
	store := docstore.New()
	for i := 0; i < 8; i++ {
		store.AddContent("balde", nil, "")
	}
	e := New(store)

	if got := e.Search("balde", nil, 3); len(got) != 3 {
		t.Errorf("topK 3 returned %d", len(got))
	}
	got := e.Search("balde", nil, 0)
	equalIDs(t, got, "doc_001", "doc_002", "doc_003", "doc_004", "doc_005")
	if got := e.Search("balde", nil, -2); len(got) != DefaultTopK {
		t.Errorf("topK -2 returned %d, want %d", len(got), DefaultTopK)
	}
}

func TestSearch_DistinctWordsAndSubstring(t *testing.T) {
	store := docstore.New(document.New("a", "Baldes reforzados", nil))
	results := New(store).SearchScored("balde BALDE balde", nil, 5)

	if len(results) != 1 || results[0].Score != 1 {
		t.Errorf("results = %+v, want single score 1", results)
	}
}

func TestSearch_Filters(t *testing.T) {
	store := docstore.New(
		document.New("no-marca", "balde balde", map[string]string{"modelo": "S70"}),
		document.New("jcb", "balde", map[string]string{"marca": "JCB"}),
		document.New("bobcat", "balde", map[string]string{"marca": "BOBCAT", "modelo": "s70"}),
	)
	e := New(store)

	equalIDs(t, e.Search("balde", map[string]string{"marca": "bobcat"}, 5), "bobcat")
	equalIDs(t, e.Search("balde", map[string]string{"marca": "Bobcat", "modelo": "S70"}, 5), "bobcat")
	equalIDs(t, e.Search("balde", map[string]string{"tipo": "manual"}, 5))
	equalIDs(t, e.Search("balde", map[string]string{}, 5), "no-marca", "jcb", "bobcat")
}

func TestSearch_FilterMissingKeyNeverReturned(t *testing.T) {
	store := docstore.New(
		document.New("rich", "compatibilidad balde martillo bobcat s70 cvm 120", map[string]string{}),
		document.New("poor", "balde", map[string]string{"marca": "Bobcat"}),
	)
	got := New(store).Search("compatibilidad balde martillo bobcat s70 cvm", map[string]string{"marca": "Bobcat"}, 5)
	equalIDs(t, got, "poor")
}

func TestScore_CVMBonus(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		content string
		want    int
	}{
		{"cvm with 120", "cvm", "Alkimax CVM 120", 6},
		{"cvm with letter l", "cvm", "cvm hidráulico", 6},
		{"cvm without bonus text", "cvm", "cvm 99", 1},
		{"cvm not matched", "cvm balde", "balde 120", 1},
		{"no words", "", "anything", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(queryWords(tt.query), tt.content); got != tt.want {
				t.Errorf("Score(%q, %q) = %d, want %d", tt.query, tt.content, got, tt.want)
			}
		})
	}
}

func TestSearch_Recorder(t *testing.T) {
	rec := &fakeRecorder{}
	e := New(docstore.New(docstore.ExampleCorpus()...), WithRecorder(rec))

	e.Search("bobcat", nil, 5)
	e.ValidateCompatibility("balde", "Bobcat", "")
	e.GetSpecifications("Bobcat", "S70")

	want := []string{KindSearch, KindCompatibility, KindSpecifications}
	if len(rec.kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", rec.kinds, want)
	}
	for i := range want {
		if rec.kinds[i] != want[i] {
			t.Errorf("kinds[%d] = %q, want %q", i, rec.kinds[i], want[i])
		}
	}
	if rec.results[0] != 1 {
		t.Errorf("results[0] = %d, want 1", rec.results[0])
	}
}
