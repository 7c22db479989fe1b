// Package memory implements the content store in process memory.
//
// Everything lives in one map guarded by a RWMutex. Data is copied on both
// write and read so caller-owned buffers never alias store state. Intended
// for tests and ephemeral deployments; nothing survives a restart.
package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/clusterfs/clusterfs/pkg/content"
)

// Store is the in-memory content store.
type Store struct {
	mu   sync.RWMutex
	data map[content.ID][]byte
}

// New creates an empty in-memory content store.
func New() *Store {
	return &Store{data: make(map[content.ID][]byte)}
}

func (s *Store) Read(ctx context.Context, id content.ID) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[id]
	if !ok {
		return nil, content.ErrNotFound
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return io.NopCloser(bytes.NewReader(buf)), nil
}

func (s *Store) Write(ctx context.Context, id content.ID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	s.data[id] = buf
	return nil
}

func (s *Store) Delete(ctx context.Context, id content.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, id)
	return nil
}

func (s *Store) Exists(ctx context.Context, id content.ID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.data[id]
	return ok, nil
}

func (s *Store) Size(ctx context.Context, id content.ID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[id]
	if !ok {
		return 0, content.ErrNotFound
	}
	return int64(len(data)), nil
}

func (s *Store) Stats(ctx context.Context) (*content.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var used int64
	for _, data := range s.data {
		used += int64(len(data))
	}
	return &content.Stats{
		UsedBytes: used,
		Objects:   int64(len(s.data)),
	}, nil
}

var _ content.Store = (*Store)(nil)
