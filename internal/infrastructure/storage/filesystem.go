package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/shelfsense/backend/internal/domain"
)

const recordExt = ".json"

// ids become file names, so keep them to a safe alphabet
var validID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// FileStore keeps one pretty-printed JSON document per product record in a
// directory, named <id>.json. Writes go through a temp file and rename so a
// reader never sees a partial record.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileStore creates the directory if needed and returns a store over it
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create products dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Get reads one record
func (s *FileStore) Get(ctx context.Context, id string) (*domain.Product, error) {
	if !validID.MatchString(id) {
		return nil, domain.ErrProductNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.read(filepath.Join(s.dir, id+recordExt))
}

// Save writes one record, replacing any previous version
func (s *FileStore) Save(ctx context.Context, id string, product *domain.Product) error {
	if !validID.MatchString(id) {
		return fmt.Errorf("%w: invalid product id %q", domain.ErrInvalidRequest, id)
	}
	if product == nil {
		return fmt.Errorf("%w: nil product", domain.ErrInvalidRequest)
	}

	data, err := json.MarshalIndent(product, "", "  ")
	if err != nil {
		return fmt.Errorf("encode product %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "."+id+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write product %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	return os.Rename(tmp.Name(), filepath.Join(s.dir, id+recordExt))
}

// List reads every record in the directory keyed by id
func (s *FileStore) List(ctx context.Context) (map[string]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]*domain.Product{}, nil
		}
		return nil, fmt.Errorf("read products dir: %w", err)
	}

	products := make(map[string]*domain.Product, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != recordExt {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		product, err := s.read(filepath.Join(s.dir, name))
		if err != nil {
			return nil, err
		}
		products[strings.TrimSuffix(name, recordExt)] = product
	}
	return products, nil
}

func (s *FileStore) read(path string) (*domain.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	var product domain.Product
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &product, nil
}
