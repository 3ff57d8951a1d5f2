package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sagar-developer08/idp/internal/domain"
	domdoc "github.com/sagar-developer08/idp/internal/domain/document"
	"github.com/sagar-developer08/idp/internal/normalize"
	"github.com/sagar-developer08/idp/internal/registry"
)

// ErrNoFiles is returned when an upload carries no files.
var ErrNoFiles = errors.New("no files to upload")

// Service orchestrates uploads, refreshes and the simulated progress ticker.
type Service struct {
	backend Backend
	reg     Registry
	log     *zap.Logger
}

// New creates a document service. log can be nil.
func New(backend Backend, reg Registry, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{backend: backend, reg: reg, log: log}
}

// Refresh replaces the registry with the backend listing.
// On failure the registry keeps its last-known state.
func (s *Service) Refresh(ctx context.Context) error {
	raw, err := s.backend.ListDocuments(ctx)
	if err != nil {
		s.log.Warn("document refresh failed", zap.Error(err))
		return fmt.Errorf("list documents: %w", err)
	}
	if err := s.reg.ReplaceAllFromServer(raw); err != nil {
		s.log.Warn("document listing rejected", zap.Error(err))
		return domain.NewDecodeError("list documents", err)
	}

	snap := s.reg.Snapshot()
	s.log.Debug("documents refreshed",
		zap.Int("total", snap.Total),
		zap.Int("overall_progress", snap.OverallProgress),
	)
	return nil
}

// Upload adds a pending entry per file, submits them and refreshes the listing.
// Pending ids are returned even when the submission fails; those entries stay in the registry.
func (s *Service) Upload(ctx context.Context, files []domdoc.File) ([]string, error) {
	if len(files) == 0 {
		return []string{}, ErrNoFiles
	}

	ids := s.reg.AddPending(files)

	raw, err := s.backend.Upload(ctx, files)
	if err != nil {
		s.log.Warn("upload failed", zap.Int("files", len(files)), zap.Error(err))
		return ids, fmt.Errorf("upload: %w", err)
	}

	// The upload response is only a success signal; it may still name the accepted documents.
	if accepted, nerr := normalize.DocumentList(raw); nerr == nil {
		serverIDs := make([]string, 0, len(accepted))
		for _, d := range accepted {
			serverIDs = append(serverIDs, d.ServerID)
		}
		s.reg.MarkNew(serverIDs...)
	}

	s.log.Info("upload accepted", zap.Int("files", len(files)))

	if err := s.Refresh(ctx); err != nil {
		return ids, err
	}
	return ids, nil
}

// Remove deletes a document from the registry. It reports whether it was present.
func (s *Service) Remove(id string) bool {
	return s.reg.Remove(id)
}

// Get returns the registry entry with id.
func (s *Service) Get(id string) (domdoc.Document, error) {
	doc, ok := s.reg.Get(id)
	if !ok {
		return domdoc.Document{}, fmt.Errorf("document %q: %w", id, domain.ErrNotFound)
	}
	return doc, nil
}

// Clear empties the registry.
func (s *Service) Clear() {
	s.reg.Clear()
}

// Tick advances simulated progress once.
func (s *Service) Tick() int {
	return s.reg.TickProgress()
}

// Snapshot returns the current registry state.
func (s *Service) Snapshot() registry.Snapshot {
	return s.reg.Snapshot()
}

// Run ticks simulated progress every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.reg.TickProgress(); n > 0 {
				s.log.Debug("progress tick", zap.Int("advanced", n))
			}
		}
	}
}
