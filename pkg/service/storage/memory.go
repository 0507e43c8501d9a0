package storage

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
)

// Object is a stored blob with its content type
type Object struct {
	ContentType string
	Data        []byte
}

// Memory keeps documents in process. Used by tests and the memory backend.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]Object
}

var _ interfaces.DocumentStorage = &Memory{}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]Object)}
}

func (m *Memory) Put(ctx context.Context, path, contentType string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return goerr.Wrap(err, "failed to read document", goerr.V("path", path))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = Object{ContentType: contentType, Data: data}
	return nil
}

func (m *Memory) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[path]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "object not found", goerr.V("path", path))
	}
	return io.NopCloser(bytes.NewReader(obj.Data)), nil
}

// Paths returns the stored object paths
func (m *Memory) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	paths := make([]string, 0, len(m.objects))
	for p := range m.objects {
		paths = append(paths, p)
	}
	return paths
}
