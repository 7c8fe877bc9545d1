// Package audiocache is the file-backed store for synthesized audio
// artifacts. Artifacts are written once under an opaque id and served
// read-only afterwards.
package audiocache

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no stored artifact matches a reference.
var ErrNotFound = errors.New("audio artifact not found")

// ErrOutsideRoot is returned when a reference would resolve outside the
// storage root.
var ErrOutsideRoot = errors.New("audio reference resolves outside storage root")

// stubArtifact is the minimal placeholder written when synthesis fails in
// audio mode, so clients still receive a resolvable reference.
var stubArtifact = []byte("RIFF....WAVEfmt ")

// Store holds audio artifacts in a single directory.
type Store struct {
	root string
}

// NewStore creates the storage directory if needed.
func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve audio cache root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audio cache root: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute storage directory.
func (s *Store) Root() string {
	return s.root
}

// Put stores one artifact under a fresh id and returns the id. ext must
// include the leading dot.
func (s *Store) Put(data []byte, ext string) (string, error) {
	id := uuid.NewString()
	path := filepath.Join(s.root, id+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write audio artifact: %w", err)
	}
	return id, nil
}

// PutStub stores the placeholder artifact used when synthesis fails and
// returns its id.
func (s *Store) PutStub() (string, error) {
	return s.Put(stubArtifact, ".wav")
}

// Resolve maps an audio reference to the stored file path and its content
// type. References may omit the extension; the first stored filename with
// the reference as prefix wins. Anything escaping the storage root is
// rejected.
func (s *Store) Resolve(ref string) (path string, contentType string, err error) {
	name := filepath.Base(ref)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", "", ErrNotFound
	}

	path = filepath.Join(s.root, name)
	if _, statErr := os.Stat(path); statErr != nil {
		entries, dirErr := os.ReadDir(s.root)
		if dirErr != nil {
			return "", "", ErrNotFound
		}
		path = ""
		for _, entry := range entries {
			if strings.HasPrefix(entry.Name(), name) {
				path = filepath.Join(s.root, entry.Name())
				break
			}
		}
		if path == "" {
			return "", "", ErrNotFound
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil || !strings.HasPrefix(abs, s.root+string(filepath.Separator)) {
		return "", "", ErrOutsideRoot
	}

	contentType = mime.TypeByExtension(filepath.Ext(abs))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return abs, contentType, nil
}
