package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"placescout/services/placescout/record"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/placescout/store")

var (
	ErrDuplicate = errors.New("store: duplicate record")
	// the record was kept in memory but the document on disk is stale
	ErrPersist = errors.New("store: failed to persist")
)

// Store holds every known record in discovery order and mirrors them to a
// single json document that is rewritten after each accepted record.
// it is owned by a single run and is not safe for concurrent use.
type Store struct {
	path    string
	records []record.Restaurant

	// derived from records, only ever extended
	knownLinks map[string]struct{}
	identities map[record.Identity]struct{}
}

func newStore(path string) *Store {
	return &Store{
		path:       path,
		records:    []record.Restaurant{},
		knownLinks: map[string]struct{}{},
		identities: map[record.Identity]struct{}{},
	}
}

// Load reads the document at path. it never fails, a missing document gives
// an empty store and an unreadable one is moved aside before starting empty
// so that the next write does not destroy it.
func Load(ctx context.Context, path string) *Store {
	ctx, span := tracer.Start(ctx, "store:Load")
	defer span.End()

	s := newStore(path)

	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.InfoContext(ctx, "no existing store, starting empty", "path", path)
		return s
	}
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "failed to read store, starting empty", "path", path, "err", err)
		return s
	}

	records, err := decode(contents)
	if err != nil {
		span.RecordError(err)
		aside := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
		renameErr := os.Rename(path, aside)
		if renameErr != nil {
			slog.WarnContext(ctx, "failed to move unreadable store aside", "path", path, "err", renameErr)
		}
		slog.WarnContext(ctx, "failed to parse store, starting empty", "path", path, "moved_to", aside, "err", err)
		return s
	}

	for _, r := range records {
		s.records = append(s.records, r)
		s.index(r)
	}
	span.SetAttributes(attribute.Int("records", len(s.records)))
	slog.InfoContext(ctx, "loaded store", "path", path, "records", len(s.records), "share_links", len(s.knownLinks))
	return s
}

// Read returns the records of the document at path and never changes it,
// a missing document has no records. unlike Load a document that cannot be
// parsed is an error.
func Read(ctx context.Context, path string) ([]record.Restaurant, error) {
	ctx, span := tracer.Start(ctx, "store:Read")
	defer span.End()

	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []record.Restaurant{}, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read store")
		return nil, fmt.Errorf("failed to read store: %w", err)
	}
	records, err := decode(contents)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse store")
		return nil, fmt.Errorf("failed to parse store %s: %w", path, err)
	}
	span.SetAttributes(attribute.Int("records", len(records)))
	return records, nil
}

func (s *Store) index(r record.Restaurant) {
	if r.HasShareLink() {
		s.knownLinks[*r.ShareLink] = struct{}{}
	}
	if id := r.Identity(); id.Complete() {
		s.identities[id] = struct{}{}
	}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Len() int {
	return len(s.records)
}

// Records returns a copy of the stored records in insertion order.
func (s *Store) Records() []record.Restaurant {
	out := make([]record.Restaurant, len(s.records))
	copy(out, s.records)
	return out
}

// Append adds r unless it is a duplicate (ErrDuplicate) and rewrites the
// document. when the rewrite fails the record stays in memory and the
// returned error wraps ErrPersist.
func (s *Store) Append(ctx context.Context, r record.Restaurant) error {
	ctx, span := tracer.Start(ctx, "store:Append")
	defer span.End()

	if s.IsDuplicate(r) {
		span.SetStatus(codes.Ok, "DUPLICATE")
		return ErrDuplicate
	}

	s.records = append(s.records, r)
	s.index(r)

	err := s.flush()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write store")
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

func encode(records []record.Restaurant) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	err := enc.Encode(records)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// flush replaces the document through a rename so that a crash at any point
// leaves either the previous or the new complete document on disk.
func (s *Store) flush() error {
	contents, err := encode(s.records)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	// temp files are private, keep the mode of the document being replaced
	mode := os.FileMode(0644)
	if info, err := os.Stat(s.path); err == nil {
		mode = info.Mode().Perm()
	}
	err = tmp.Chmod(mode)
	if err != nil {
		tmp.Close()
		return err
	}

	_, err = tmp.Write(contents)
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Sync()
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}
