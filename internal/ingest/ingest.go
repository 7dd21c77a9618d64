// Package ingest registers source documents for a run: content-hash each
// file, keep a stored copy under the sources root, and record provenance.
// Remote registration (file upload, vector-store attachment) is an external
// collaborator behind the Registrar interface; this package never interprets
// document bytes.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"github.com/mtian8/physics-agent/internal/errors"
	"github.com/mtian8/physics-agent/internal/store"
	"github.com/mtian8/physics-agent/internal/workspace"
)

// Registrar registers a stored document with a remote search index and
// returns opaque references for provenance bookkeeping.
type Registrar interface {
	Register(ctx context.Context, storedPath string) (fileRef, storeFileRef string, err error)
}

// Ingestor hashes, copies, and records source documents.
type Ingestor struct {
	layout *workspace.Layout
	store  *store.Store
	// registrar may be nil; ingestion is then local-only.
	registrar Registrar
	storeRef  string
}

// New creates an Ingestor. registrar may be nil to disable remote
// registration; storeRef names the remote store for recorded provenance.
func New(layout *workspace.Layout, st *store.Store, registrar Registrar, storeRef string) *Ingestor {
	return &Ingestor{layout: layout, store: st, registrar: registrar, storeRef: storeRef}
}

// IngestDocs registers each document for the run and returns the created
// records. A missing source file fails the whole batch before any remote
// registration happens for it.
func (i *Ingestor) IngestDocs(ctx context.Context, runID string, docPaths []string) ([]store.SourceRecord, error) {
	if err := i.layout.EnsureSourcesDir(); err != nil {
		return nil, errors.NewPersistenceError("write", i.layout.SourcesDir(), err)
	}

	var records []store.SourceRecord
	for _, docPath := range docPaths {
		src, err := filepath.Abs(docPath)
		if err != nil {
			return nil, errors.NewNotFoundError("source", docPath).WithCause(err)
		}
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, errors.NewNotFoundError("source", src).WithCause(err)
		}

		sum := sha256.Sum256(data)
		sha := hex.EncodeToString(sum[:])
		storedName := sha[:8] + "_" + filepath.Base(src)
		dest := filepath.Join(i.layout.SourcesDir(), storedName)
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return nil, errors.NewPersistenceError("write", dest, err)
		}

		rec := store.SourceRecord{
			ID:         sha[:16],
			RunID:      runID,
			SourcePath: src,
			StoredPath: dest,
			SHA256:     sha,
			AddedAt:    time.Now().UTC().Format(time.RFC3339),
		}

		if i.registrar != nil {
			fileRef, storeFileRef, err := i.registrar.Register(ctx, dest)
			if err != nil {
				return nil, errors.Wrapf(err, "register source %s", storedName)
			}
			rec.FileRef = fileRef
			rec.StoreRef = i.storeRef
			rec.StoreFileRef = storeFileRef
		}

		if err := i.store.RecordSource(rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
