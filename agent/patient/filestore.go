package patient

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// FileStore reads patient records from a JSON array on disk. It is the
// development-time implementation of Store; see pkg/patientdb for the
// database-backed one.
type FileStore struct {
	path string

	once     sync.Once
	loadErr  error
	profiles []Profile
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(ctx context.Context, patientID string) (*Profile, error) {
	if err := s.read(); err != nil {
		return nil, err
	}
	for i := range s.profiles {
		if s.profiles[i].ID == patientID {
			p := s.profiles[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: id=%s", ErrNotFound, patientID)
}

func (s *FileStore) First(ctx context.Context) (*Profile, error) {
	if err := s.read(); err != nil {
		return nil, err
	}
	if len(s.profiles) == 0 {
		return nil, ErrNotFound
	}
	p := s.profiles[0]
	return &p, nil
}

func (s *FileStore) read() error {
	s.once.Do(func() {
		path := strings.TrimSpace(s.path)
		if path == "" {
			path = "patients.json"
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			s.loadErr = fmt.Errorf("read patient file: %w", err)
			return
		}
		if err := json.Unmarshal(raw, &s.profiles); err != nil {
			s.loadErr = fmt.Errorf("decode patient file: %w", err)
		}
	})
	return s.loadErr
}
