package docstore

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/hpungsan/asesor/internal/document"
	"github.com/hpungsan/asesor/internal/errors"
)

func TestStore_AddPreservesOrder(t *testing.T) {
	s := New()
	s.Add(document.New("a", "first", nil), document.New("b", "second", nil))
	s.Add(document.New("a", "duplicate id", nil))

	docs := s.All()
	if len(docs) != 3 {
		t.Fatalf("Len = %d, want 3", len(docs))
	}
	want := []string{"first", "second", "duplicate id"}
	for i, w := range want {
		if docs[i].Content != w {
			t.Errorf("docs[%d].Content = %q, want %q", i, docs[i].Content, w)
		}
	}
}

func TestStore_AddContentGeneratesID(t *testing.T) {
	s := New(ExampleCorpus()...)

	id := s.AddContent("Kubota SVL75: compatible con ahoyadoras", map[string]string{"marca": "Kubota"}, "")
	if id != "doc_003" {
		t.Errorf("AddContent() id = %q, want doc_003", id)
	}

	custom := s.AddContent("texto", nil, "manual_jcb")
	if custom != "manual_jcb" {
		t.Errorf("AddContent() id = %q, want manual_jcb", custom)
	}
	if s.Len() != 4 {
		t.Errorf("Len = %d, want 4", s.Len())
	}
}

func TestStore_AllIsSnapshot(t *testing.T) {
	s := New(document.New("a", "x", nil))
	snap := s.All()
	s.Add(document.New("b", "y", nil))

	if len(snap) != 1 {
		t.Errorf("snapshot changed: len = %d", len(snap))
	}
}

func TestStore_ConcurrentAdds(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddContent("contenido", nil, "")
			_ = s.All()
		}()
	}
	wg.Wait()

	if s.Len() != 20 {
		t.Errorf("Len = %d, want 20", s.Len())
	}
}

func TestExampleCorpus(t *testing.T) {
	docs := ExampleCorpus()
	if len(docs) != 2 {
		t.Fatalf("len = %d, want 2", len(docs))
	}
	if docs[0].ID != "doc_001" || docs[0].Categoria != "especificaciones" || docs[0].Marca != "Bobcat" {
		t.Errorf("docs[0] = %+v", docs[0])
	}
	if docs[1].ID != "doc_002" || docs[1].Categoria != "compatibilidad" || docs[1].Modelo != "242D" {
		t.Errorf("docs[1] = %+v", docs[1])
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rag_documents.json")

	s := New(ExampleCorpus()...)
	s.AddContent("sin metadata", nil, "")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	loaded := New()
	n, err := loaded.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Load() = %d, want 3", n)
	}

	second := filepath.Join(t.TempDir(), "again.json")
	if err := loaded.Save(second); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	again, err := os.ReadFile(second)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(first, again) {
		t.Errorf("save->load->save differs:\n%s\n---\n%s", first, again)
	}
}

func TestSave_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docs.json")

	if err := New(ExampleCorpus()...).Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want 1", len(entries))
	}
}

func TestSave_RefusesSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	dir := t.TempDir()
	target := filepath.Join(dir, "target.json")
	if err := os.WriteFile(target, []byte("keep"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	link := filepath.Join(dir, "link.json")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("Symlink() error = %v", err)
	}

	err := New(ExampleCorpus()...).Save(link)
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Fatalf("Save(symlink) error = %v, want INVALID_REQUEST", err)
	}

	data, _ := os.ReadFile(target)
	if string(data) != "keep" {
		t.Errorf("symlink target overwritten: %q", data)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := New().Load(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("Load(missing) error = %v, want NOT_FOUND", err)
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"documents":[{"content":"no id"}]}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	s := New()
	_, err := s.Load(path)
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Fatalf("Load(malformed) error = %v, want INVALID_REQUEST", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d after failed load, want 0", s.Len())
	}
}
