package docstore

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hpungsan/asesor/internal/document"
	"github.com/hpungsan/asesor/internal/errors"
)

// Save writes the store to path in the interchange format.
// The file is written to a temp file first and renamed, so an existing file
// survives a failed save.
func (s *Store) Save(path string) error {
	return WriteFile(path, s.All())
}

// Load reads an interchange file and appends its documents to the store.
// Returns the number of documents appended.
func (s *Store) Load(path string) (int, error) {
	docs, err := ReadFile(path)
	if err != nil {
		return 0, err
	}
	s.Add(docs...)
	return len(docs), nil
}

// ReadFile parses an interchange file.
func ReadFile(path string) ([]document.Document, error) {
	f, err := openFileNoFollowRead(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to read %s: %w", path, err))
	}

	docs, err := document.Decode(data)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("malformed document file %s: %v", path, err))
	}
	return docs, nil
}

// WriteFile atomically writes docs to path in the interchange format.
func WriteFile(path string, docs []document.Document) error {
	var buf bytes.Buffer
	if err := document.Encode(&buf, docs); err != nil {
		return errors.NewInternal(err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create document file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(buf.Bytes()); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Close(); err != nil {
		file = nil
		return errors.NewInternal(err)
	}
	file = nil

	// os.Rename would follow a symlink at the destination
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("cannot write to symlink")
	}

	if err := os.Rename(tempPath, path); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to finalize document file: %w", err))
	}

	success = true
	return nil
}
