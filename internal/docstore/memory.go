package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/TaffyWrinkle/TeamCloud/internal/domain"
)

// MemoryConfig configures the in-memory store.
type MemoryConfig struct {
	PageSize int
}

// MemoryStore is a map-backed Store with the same uniqueness, paging and
// error semantics as the remote backends. It backs tests and local
// development. Query results are returned in id order so paging is
// deterministic.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string]map[memoryKey][]byte
	pageSize int
	logger   *slog.Logger
}

type memoryKey struct {
	partition string
	id        string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(cfg MemoryConfig, logger *slog.Logger) *MemoryStore {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	store := &MemoryStore{
		data:     make(map[string]map[memoryKey][]byte),
		pageSize: cfg.PageSize,
		logger:   logger,
	}
	for _, def := range containers {
		store.data[def.Name] = make(map[memoryKey][]byte)
	}
	return store
}

// EnsureContainers is a no-op: containers exist from construction.
func (s *MemoryStore) EnsureContainers(_ context.Context) error {
	s.logger.Debug("memory store containers ready", "containers", len(containers))
	return nil
}

// Read returns the document with the given id.
func (s *MemoryStore) Read(_ context.Context, container, partition, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.data[container][memoryKey{partition, id}]
	if !ok {
		return nil, fmt.Errorf("document %s/%s: %w", container, id, domain.ErrNotFound)
	}
	return bytes.Clone(doc), nil
}

// Create inserts a new document.
func (s *MemoryStore) Create(_ context.Context, container, partition, id string, doc []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.containerData(container)
	key := memoryKey{partition, id}
	if _, exists := docs[key]; exists {
		return nil, fmt.Errorf("document %s/%s: %w", container, id, domain.ErrConflict)
	}
	if err := s.checkUniqueKeys(container, partition, id, doc); err != nil {
		return nil, err
	}
	docs[key] = bytes.Clone(doc)
	return bytes.Clone(doc), nil
}

// Upsert inserts or replaces the document with the given id.
func (s *MemoryStore) Upsert(_ context.Context, container, partition, id string, doc []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUniqueKeys(container, partition, id, doc); err != nil {
		return nil, err
	}
	s.containerData(container)[memoryKey{partition, id}] = bytes.Clone(doc)
	return bytes.Clone(doc), nil
}

// Delete removes the document with the given id.
func (s *MemoryStore) Delete(_ context.Context, container, partition, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoryKey{partition, id}
	if _, ok := s.data[container][key]; !ok {
		return fmt.Errorf("document %s/%s: %w", container, id, domain.ErrNotFound)
	}
	delete(s.data[container], key)
	return nil
}

// Query filters one partition and pages the matches in id order. The result
// is a snapshot: writes after Query do not show up in later pages.
func (s *MemoryStore) Query(container, partition string, query Query) Pager {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]memoryKey, 0)
	for key := range s.data[container] {
		if key.partition == partition {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].id < keys[j].id })

	matches := make([][]byte, 0, len(keys))
	for _, key := range keys {
		doc := s.data[container][key]
		ok, err := matchDocument(doc, query)
		if err != nil {
			return &errPager{err: err}
		}
		if ok {
			matches = append(matches, bytes.Clone(doc))
		}
	}
	return &memoryPager{docs: matches, pageSize: s.pageSize}
}

// Close is a no-op.
func (s *MemoryStore) Close(_ context.Context) error {
	return nil
}

func (s *MemoryStore) containerData(container string) map[memoryKey][]byte {
	docs, ok := s.data[container]
	if !ok {
		docs = make(map[memoryKey][]byte)
		s.data[container] = docs
	}
	return docs
}

// checkUniqueKeys enforces the container's unique-key constraints against
// every other document in the partition. Documents without a value at the
// unique path do not participate, matching the partial indexes the remote
// backends create.
func (s *MemoryStore) checkUniqueKeys(container, partition, id string, doc []byte) error {
	def, ok := containerDef(container)
	if !ok || len(def.UniqueKeys) == 0 {
		return nil
	}
	decoded, err := decodeDocument(doc)
	if err != nil {
		return err
	}
	for _, path := range def.UniqueKeys {
		segments, err := splitPath(path)
		if err != nil {
			return err
		}
		value, ok := lookupPath(decoded, segments)
		if !ok {
			continue
		}
		for key, other := range s.data[container] {
			if key.partition != partition || key.id == id {
				continue
			}
			otherDecoded, err := decodeDocument(other)
			if err != nil {
				return err
			}
			if otherValue, ok := lookupPath(otherDecoded, segments); ok && jsonEqual(value, otherValue) {
				return fmt.Errorf("document %s/%s: %s %v taken: %w", container, id, path, value, domain.ErrConflict)
			}
		}
	}
	return nil
}

func containerDef(name string) (Container, bool) {
	for _, def := range containers {
		if def.Name == name {
			return def, true
		}
	}
	return Container{}, false
}

type memoryPager struct {
	docs     [][]byte
	pageSize int
	offset   int
}

func (p *memoryPager) More() bool { return p.offset < len(p.docs) }

func (p *memoryPager) NextPage(ctx context.Context) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.offset >= len(p.docs) {
		return nil, nil
	}
	end := p.offset + p.pageSize
	if end > len(p.docs) {
		end = len(p.docs)
	}
	page := p.docs[p.offset:end]
	p.offset = end
	return page, nil
}

func (p *memoryPager) Close() error {
	p.offset = len(p.docs)
	return nil
}

// matchDocument evaluates a structured query against one document.
func matchDocument(doc []byte, query Query) (bool, error) {
	decoded, err := decodeDocument(doc)
	if err != nil {
		return false, err
	}
	for _, clause := range query.Clauses {
		if len(clause.Any) == 0 {
			continue
		}
		matched := false
		for _, condition := range clause.Any {
			ok, err := matchCondition(decoded, condition)
			if err != nil {
				return false, err
			}
			if ok {
				matched = true
				break
			}
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

func matchCondition(decoded map[string]any, condition Condition) (bool, error) {
	segments, err := splitPath(condition.Path)
	if err != nil {
		return false, err
	}
	value, ok := lookupPath(decoded, segments)
	if !ok {
		return false, nil
	}
	switch condition.Op {
	case OpEq:
		return jsonEqual(value, condition.Value), nil
	case OpIn:
		for _, candidate := range condition.Values {
			if jsonEqual(value, candidate) {
				return true, nil
			}
		}
		return false, nil
	case OpContains:
		elements, ok := value.([]any)
		if !ok {
			return false, nil
		}
		for _, element := range elements {
			if elementMatches(element, condition.Value) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("unsupported query operator %q", condition.Op)
	}
}

// elementMatches compares an array element against a containment value. Map
// values match partially: every field of the value must be present and equal
// in the element.
func elementMatches(element, value any) bool {
	fields, partial := value.(map[string]any)
	if !partial {
		return jsonEqual(element, value)
	}
	elementFields, ok := element.(map[string]any)
	if !ok {
		return false
	}
	for name, want := range fields {
		got, ok := elementFields[name]
		if !ok || !jsonEqual(got, want) {
			return false
		}
	}
	return true
}

func decodeDocument(doc []byte) (map[string]any, error) {
	decoded := make(map[string]any)
	if err := json.Unmarshal(doc, &decoded); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return decoded, nil
}

func lookupPath(decoded map[string]any, segments []string) (any, bool) {
	var value any = decoded
	for _, segment := range segments {
		fields, ok := value.(map[string]any)
		if !ok {
			return nil, false
		}
		value, ok = fields[segment]
		if !ok {
			return nil, false
		}
	}
	return value, true
}

// jsonEqual compares two values by their canonical JSON encoding, so typed
// Go values from conditions compare correctly against decoded documents.
func jsonEqual(a, b any) bool {
	aEncoded, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bEncoded, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(aEncoded, bEncoded)
}
