package supplicant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/ray10k/raspberry-wifi-conf/internal/atomicfile"
	"github.com/ray10k/raspberry-wifi-conf/internal/logging"
)

// ErrStoreIO wraps failures to read or write the credential file.
var ErrStoreIO = errors.New("credential store i/o failed")

// FileStore keeps credentials in a supplicant config file. It holds no state
// between calls; every Load reads the file and every Save rewrites it.
// Update serializes read-modify-write cycles across processes through an
// flock on a sibling ".lock" file.
type FileStore struct {
	mu     sync.Mutex
	path   string
	header Header
	logger *logging.Logger
}

// NewFileStore returns a store for path that writes header on every save.
func NewFileStore(path string, header Header, logger *logging.Logger) *FileStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &FileStore{
		path:   path,
		header: header,
		logger: logger.WithComponent("supplicant"),
	}
}

// Path returns the file the store reads and writes.
func (s *FileStore) Path() string { return s.path }

// LoadFile parses the store file. A missing file is an empty store.
func (s *FileStore) LoadFile(ctx context.Context) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &File{Header: s.header}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreIO, err)
	}

	f, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}
	for _, w := range f.Warnings {
		s.logger.Warn("credential file problem", "path", s.path, "detail", w)
	}
	return f, nil
}

// Load returns the stored credentials in priority order.
func (s *FileStore) Load(ctx context.Context) ([]Credential, error) {
	f, err := s.LoadFile(ctx)
	if err != nil {
		return nil, err
	}
	if f.Networks == nil {
		return []Credential{}, nil
	}
	return f.Networks, nil
}

// Save replaces the file with creds. The previous file survives any failure.
func (s *FileStore) Save(ctx context.Context, creds []Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, s.header, creds); err != nil {
		return fmt.Errorf("%w: encode: %v", ErrStoreIO, err)
	}
	if err := atomicfile.Write(s.path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreIO, err)
	}
	s.logger.Debug("credential file saved", "path", s.path, "networks", len(creds))
	return nil
}

// Update loads the credentials, passes them to fn and saves what fn returns,
// holding the store lock throughout. Nothing is written when fn fails.
func (s *FileStore) Update(ctx context.Context, fn func([]Credential) ([]Credential, error)) ([]Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := lockFile(ctx, s.path+".lock")
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := fn(existing)
	if err != nil {
		return nil, err
	}
	if err := s.Save(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// ForgetAll removes every credential.
func (s *FileStore) ForgetAll(ctx context.Context) error {
	_, err := s.Update(ctx, func([]Credential) ([]Credential, error) { return nil, nil })
	return err
}
