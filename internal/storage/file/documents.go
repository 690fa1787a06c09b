package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sandevgo/tuskthread/internal/core"
)

const (
	headFile  = "HEAD"
	extension = ".yaml"
)

// DocumentStore keeps every session document as a YAML stream on disk,
// one file per document and one directory per slot:
//
//	<root>/<slot id>/<document id>.yaml
//	<root>/<slot id>/HEAD
type DocumentStore struct {
	root  string
	locks sync.Map
}

func NewDocumentStore(root string) (*DocumentStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create documents directory: %w", err)
	}
	return &DocumentStore{root: root}, nil
}

func (s *DocumentStore) lock(key string) func() {
	mu, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func (s *DocumentStore) path(key string) (string, error) {
	slot, doc, ok := strings.Cut(key, "/")
	if !ok || !validName(slot) || !validName(doc) {
		return "", fmt.Errorf("%w: document key %q", core.ErrInvalidRequest, key)
	}
	return filepath.Join(s.root, slot, doc+extension), nil
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// Append writes entry as the next YAML document of the stream and syncs the
// file before returning.
func (s *DocumentStore) Append(ctx context.Context, key string, entry core.DocumentEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.path(key)
	if err != nil {
		return err
	}

	body, err := yaml.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	unlock := s.lock(key)
	defer unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create slot directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(body)

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return f.Sync()
}

// Read returns the entries of a document. A stream that stops decoding
// midway, such as after a torn append, yields the entries before the damage
// together with ErrDocumentCorrupt.
func (s *DocumentStore) Read(ctx context.Context, key string) ([]core.DocumentEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	unlock := s.lock(key)
	defer unlock()

	return readEntries(path, key)
}

// Repair moves a damaged document aside and rewrites it with the entries
// that still decode, so later appends land in a readable stream.
func (s *DocumentStore) Repair(ctx context.Context, key string) ([]core.DocumentEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	unlock := s.lock(key)
	defer unlock()

	entries, err := readEntries(path, key)
	if err == nil || !errors.Is(err, core.ErrDocumentCorrupt) {
		return entries, err
	}

	aside := fmt.Sprintf("%s.%d.corrupt", path, time.Now().UnixNano())
	if err := os.Rename(path, aside); err != nil {
		return nil, fmt.Errorf("failed to move damaged document aside: %w", err)
	}

	var buf bytes.Buffer
	for _, entry := range entries {
		body, err := yaml.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal entry: %w", err)
		}
		buf.WriteString("---\n")
		buf.Write(body)
	}
	if err := writeAtomic(filepath.Dir(path), filepath.Base(path), buf.Bytes()); err != nil {
		return nil, err
	}
	return entries, nil
}

func readEntries(path, key string) ([]core.DocumentEntry, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", core.ErrDocumentNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	var entries []core.DocumentEntry
	dec := yaml.NewDecoder(f)
	for {
		var entry core.DocumentEntry
		err := dec.Decode(&entry)
		if errors.Is(err, io.EOF) {
			break
		}
		if err == nil && !entry.Kind.Valid() {
			err = fmt.Errorf("unknown entry kind %q", entry.Kind)
		}
		if err == nil && len(entries) > 0 && entry.Seq <= entries[len(entries)-1].Seq {
			err = fmt.Errorf("sequence %d after %d", entry.Seq, entries[len(entries)-1].Seq)
		}
		if err != nil {
			return entries, fmt.Errorf("%w: %s entry %d: %v", core.ErrDocumentCorrupt, key, len(entries)+1, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *DocumentStore) Head(ctx context.Context, slotID string) (string, error) {
	if !validName(slotID) {
		return "", fmt.Errorf("%w: slot id %q", core.ErrInvalidRequest, slotID)
	}

	data, err := os.ReadFile(filepath.Join(s.root, slotID, headFile))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read head: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SetHead replaces the HEAD pointer atomically.
func (s *DocumentStore) SetHead(ctx context.Context, slotID, documentID string) error {
	if !validName(slotID) || !validName(documentID) {
		return fmt.Errorf("%w: head %q -> %q", core.ErrInvalidRequest, slotID, documentID)
	}

	dir := filepath.Join(s.root, slotID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create slot directory: %w", err)
	}
	return writeAtomic(dir, headFile, []byte(documentID+"\n"))
}

// writeAtomic replaces dir/name through a temp file and a rename.
func writeAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, name+".*")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}
