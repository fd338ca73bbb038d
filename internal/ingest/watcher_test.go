package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hpungsan/asesor/internal/docstore"
)

func TestWatcher_AppendsNewFiles(t *testing.T) {
	dir := t.TempDir()
	store := docstore.New()

	w, err := NewWatcher(store, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()
	w.settle = 300 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := w.Watch(ctx, dir)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	// Written in two chunks with a pause shorter than the settle period.
	go func() {
		time.Sleep(100 * time.Millisecond)
		os.WriteFile(filepath.Join(dir, "ignored.json"), []byte(`{}`), 0644)
		f, err := os.Create(filepath.Join(dir, "bobcat_s70.txt"))
		if err != nil {
			return
		}
		defer f.Close()
		f.WriteString("Bobcat S70 parte uno")
		time.Sleep(150 * time.Millisecond)
		f.WriteString(" balde compatible")
	}()

	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatal("events closed before ingest")
		}
		if ev.Err != nil {
			t.Fatalf("ingest error = %v", ev.Err)
		}
		if filepath.Base(ev.Path) != "bobcat_s70.txt" {
			t.Fatalf("unexpected event for %s", ev.Path)
		}
		if ev.DocumentID != "txt_bobcat_s70" {
			t.Errorf("DocumentID = %q", ev.DocumentID)
		}
	case <-ctx.Done():
		t.Fatal("timeout waiting for ingest event")
	}

	// No further event may follow for the same file.
	select {
	case ev, ok := <-events:
		if ok {
			t.Fatalf("unexpected second event %+v", ev)
		}
	case <-time.After(2 * w.settle):
	}

	docs := store.All()
	if len(docs) != 1 {
		t.Fatalf("store has %d documents, want 1", len(docs))
	}
	if docs[0].Content != "Bobcat S70 parte uno balde compatible" {
		t.Errorf("Content = %q", docs[0].Content)
	}
}

func TestWatcher_ClosesOnCancel(t *testing.T) {
	w, err := NewWatcher(docstore.New(), nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	events, err := w.Watch(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Error("unexpected event after cancel")
		}
	case <-time.After(time.Second):
		t.Error("events not closed after cancel")
	}
}

func TestWatcher_MissingDir(t *testing.T) {
	w, err := NewWatcher(docstore.New(), nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	if _, err := w.Watch(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("Watch() on missing dir succeeded")
	}
}
