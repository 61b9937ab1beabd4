package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// MemoryIndex is an in-memory vector index using brute-force inner product search.
// Extracted sections are small (tens of paragraphs per document), so a flat scan is enough.
type MemoryIndex struct {
	dimensions int
	ids        []string
	pos        map[string]int
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		ids:        make([]string, 0),
		pos:        make(map[string]int),
		vectors:    make([][]float32, 0),
	}, nil
}

// Add stores vectors under the given IDs. An existing ID is overwritten.
func (m *MemoryIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		if len(vectors[i]) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), m.dimensions)
		}
		vec := make([]float32, m.dimensions)
		copy(vec, vectors[i])
		if p, ok := m.pos[id]; ok {
			m.vectors[p] = vec
			continue
		}
		m.pos[id] = len(m.ids)
		m.ids = append(m.ids, id)
		m.vectors = append(m.vectors, vec)
	}
	return nil
}

// Search returns the top-k vectors by inner product. Ties keep insertion order.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.ids) == 0 {
		return nil, nil
	}
	results := make([]*VectorResult, len(m.ids))
	for i, vec := range m.vectors {
		results[i] = &VectorResult{ID: m.ids[i], Score: InnerProduct(query, vec)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Remove drops vectors by ID.
func (m *MemoryIndex) Remove(ctx context.Context, ids []string) error {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter(func(id string) bool { return drop[id] })
	return nil
}

// RemovePrefix drops every vector whose ID starts with prefix and returns how many were removed.
func (m *MemoryIndex) RemovePrefix(ctx context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := len(m.ids)
	m.filter(func(id string) bool { return strings.HasPrefix(id, prefix) })
	return before - len(m.ids), nil
}

// filter rebuilds the slices without entries for which drop is true. Caller holds the write lock.
func (m *MemoryIndex) filter(drop func(string) bool) {
	ids := make([]string, 0, len(m.ids))
	vectors := make([][]float32, 0, len(m.vectors))
	pos := make(map[string]int, len(m.ids))
	for i, id := range m.ids {
		if drop(id) {
			continue
		}
		pos[id] = len(ids)
		ids = append(ids, id)
		vectors = append(vectors, m.vectors[i])
	}
	m.ids, m.vectors, m.pos = ids, vectors, pos
}

// Save persists the index to path. Directory is created if needed. Format: dimension (4), n (4),
// then per vector: idLen (4), id bytes, vector (dimension*4 bytes).
func (m *MemoryIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(m.ids))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, id := range m.ids {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(id))); err != nil {
			return fmt.Errorf("write id len: %w", err)
		}
		if _, err := w.WriteString(id); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if _, err := w.Write(float32SliceToBytes(m.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush index: %w", err)
	}
	return nil
}

// Load reads the index from path and replaces the in-memory contents. Dimensions must match.
// If the file does not exist, no error is returned and the index is unchanged.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)
	var dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", dim, m.dimensions)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	ids := make([]string, 0, n)
	vectors := make([][]float32, 0, n)
	pos := make(map[string]int, n)
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var idLen uint32
		if err := binary.Read(r, binary.LittleEndian, &idLen); err != nil {
			return fmt.Errorf("read id len: %w", err)
		}
		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(r, idBytes); err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		pos[string(idBytes)] = len(ids)
		ids = append(ids, string(idBytes))
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}
	m.mu.Lock()
	m.ids, m.vectors, m.pos = ids, vectors, pos
	m.mu.Unlock()
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
