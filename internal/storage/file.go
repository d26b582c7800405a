package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "crontimer/pkg/logx"
)

// fileStore appends one JSON object per hit to a .jsonl file.
// The newest records are mirrored in a ring so RecentHits never rereads disk.
type fileStore struct {
	log logx.Logger

	mu   sync.Mutex
	f    *os.File
	enc  *json.Encoder
	ring []HitRecord
	next int
	size int
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if filepath.Ext(path) == "" {
		path += ".jsonl"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	s := &fileStore{log: log, ring: make([]HitRecord, cfg.maxRecords())}
	if n, err := s.replay(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("journal replay failed", logx.String("path", path), logx.Err(err))
	} else if n > 0 {
		log.Debug("journal replayed", logx.String("path", path), logx.Int("records", n))
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	s.f = f
	s.enc = json.NewEncoder(f)
	return s, nil
}

// replay loads the tail of an existing journal into the ring. Lines that do
// not decode are skipped.
func (s *fileStore) replay(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r HitRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			continue
		}
		s.push(r)
		n++
	}
	return n, sc.Err()
}

func (s *fileStore) push(r HitRecord) {
	s.ring[s.next] = r
	s.next = (s.next + 1) % len(s.ring)
	if s.size < len(s.ring) {
		s.size++
	}
}

func (s *fileStore) AppendHit(ctx context.Context, r HitRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return ErrClosed
	}
	if err := s.enc.Encode(r); err != nil {
		return err
	}
	s.push(r)
	return nil
}

func (s *fileStore) RecentHits(ctx context.Context, limit int) ([]HitRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil, ErrClosed
	}
	if limit <= 0 || limit > s.size {
		limit = s.size
	}
	out := make([]HitRecord, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (s.next - i + len(s.ring)) % len(s.ring)
		out = append(out, s.ring[idx])
	}
	return out, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
