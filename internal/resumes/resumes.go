// Package resumes lists, deletes and wipes the resume records and files of a user.
package resumes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resumind/internal/kv"
	"github.com/jonathan/resumind/internal/types"
)

// wipeConcurrency bounds the parallel file deletions of Wipe.
const wipeConcurrency = 8

// ErrNotFound is returned when a resume does not exist.
var ErrNotFound = errors.New("resume not found")

// ErrNotDeleted is returned when the store reports that a resume key was not removed.
var ErrNotDeleted = errors.New("resume was not deleted")

// Files is the part of the upload store used here.
type Files interface {
	ReadDir(ctx context.Context, owner string) ([]types.FSItem, error)
	Delete(ctx context.Context, path string) error
}

// WipeResult reports what Wipe removed.
type WipeResult struct {
	FilesDeleted int      `json:"filesDeleted"`
	Failed       []string `json:"failed,omitempty"`
}

// Service serves the home listing and the wipe page.
type Service struct {
	kv     kv.Store
	files  Files
	logger *zap.Logger

	// keys remembers the store key of each listed resume id, per owner.
	mu   sync.Mutex
	keys map[string]map[string]string
}

// NewService creates a Service. A nil logger disables logging.
func NewService(store kv.Store, files Files, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		kv:     store,
		files:  files,
		logger: logger,
		keys:   make(map[string]map[string]string),
	}
}

// List returns owner's resumes, newest first. Records that cannot be parsed are skipped.
func (s *Service) List(ctx context.Context, owner string) ([]types.Resume, error) {
	entries, err := s.kv.List(ctx, owner, "resume:*", true)
	if err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}

	resumes := make([]types.Resume, 0, len(entries))
	keys := make(map[string]string, len(entries))
	for _, e := range entries {
		var r types.Resume
		if err := json.Unmarshal([]byte(e.Value), &r); err != nil || r.ID == "" {
			s.logger.Debug("skipping unparsable resume record",
				zap.String("owner", owner),
				zap.String("key", e.Key),
				zap.Error(err))
			continue
		}
		resumes = append(resumes, r)
		keys[r.ID] = e.Key
	}

	s.mu.Lock()
	s.keys[owner] = keys
	s.mu.Unlock()

	sort.SliceStable(resumes, func(i, j int) bool {
		return resumes[i].CreatedAt.After(resumes[j].CreatedAt)
	})
	return resumes, nil
}

// Get returns one resume of owner.
func (s *Service) Get(ctx context.Context, owner, id string) (*types.Resume, error) {
	raw, ok, err := s.kv.Get(ctx, owner, types.KVKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get resume: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	var r types.Resume
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("failed to decode resume %s: %w", id, err)
	}
	return &r, nil
}

// Delete removes a resume record. The key comes from the last listing and falls back to
// "resume:<id>". Only an explicit "not deleted" answer from the store is a failure.
func (s *Service) Delete(ctx context.Context, owner, id string) error {
	key := s.keyFor(owner, id)
	deleted, err := s.kv.Delete(ctx, owner, key)
	if err != nil {
		return fmt.Errorf("failed to delete resume: %w", err)
	}
	if !deleted {
		return ErrNotDeleted
	}

	s.mu.Lock()
	delete(s.keys[owner], id)
	s.mu.Unlock()
	return nil
}

func (s *Service) keyFor(owner, id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key, ok := s.keys[owner][id]; ok {
		return key
	}
	return types.KVKey(id)
}

// Files lists owner's stored files, oldest first.
func (s *Service) Files(ctx context.Context, owner string) ([]types.FSItem, error) {
	items, err := s.files.ReadDir(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return items, nil
}

// Wipe deletes every stored file of owner, then flushes owner's key-value data.
// The flush runs even when some files could not be deleted, but not when ctx is
// cancelled part way through.
func (s *Service) Wipe(ctx context.Context, owner string) (*WipeResult, error) {
	items, err := s.Files(ctx, owner)
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		result WipeResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(wipeConcurrency)
	for _, item := range items {
		g.Go(func() error {
			err := s.files.Delete(gctx, item.Path)
			mu.Lock()
			defer mu.Unlock()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				s.logger.Warn("failed to delete file",
					zap.String("owner", owner),
					zap.String("path", item.Path),
					zap.Error(err))
				result.Failed = append(result.Failed, item.Path)
				return nil
			}
			result.FilesDeleted++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("wipe interrupted",
			zap.String("owner", owner),
			zap.Int("files_deleted", result.FilesDeleted),
			zap.Error(err))
		return &result, fmt.Errorf("wipe interrupted: %w", err)
	}

	if err := s.kv.Flush(ctx, owner); err != nil {
		return &result, fmt.Errorf("failed to flush key-value data: %w", err)
	}

	s.mu.Lock()
	delete(s.keys, owner)
	s.mu.Unlock()

	sort.Strings(result.Failed)
	s.logger.Info("wiped user data",
		zap.String("owner", owner),
		zap.Int("files_deleted", result.FilesDeleted),
		zap.Int("files_failed", len(result.Failed)))

	if len(result.Failed) > 0 {
		return &result, fmt.Errorf("failed to delete %d file(s): %s", len(result.Failed), strings.Join(result.Failed, ", "))
	}
	return &result, nil
}
