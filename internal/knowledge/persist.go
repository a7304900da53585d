package knowledge

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/synthql/synthql/internal/errors"
	"github.com/synthql/synthql/internal/schema"
)

const snapshotVersion = 1

// snapshot is the durable representation of the store: every element field
// with embeddings as flat arrays, the id/handle mappings, the relationship
// graph, and the ingested table descriptors.
type snapshot struct {
	Version    int                      `json:"version"`
	Dimensions int                      `json:"dimensions"`
	Elements   []*Element               `json:"elements"`
	Handles    map[string]int64         `json:"handles"`
	NextHandle int64                    `json:"next_handle"`
	Graph      *Graph                   `json:"relationship_graph"`
	Tables     []schema.TableDescriptor `json:"tables"`
}

// Save serializes the store to the configured path. Save failures propagate:
// silent data loss is worse than a failed command.
func (s *Store) Save() error {
	s.mu.RLock()

	snap := snapshot{
		Version:    snapshotVersion,
		Dimensions: s.cfg.Dimensions,
		Handles:    make(map[string]int64, len(s.index.handles)),
		NextHandle: s.index.nextHandle,
		Graph:      s.graph,
	}

	for _, element := range s.elements {
		snap.Elements = append(snap.Elements, element.clone())
	}

	for id, handle := range s.index.handles {
		snap.Handles[id] = handle
	}

	for _, table := range s.tables {
		snap.Tables = append(snap.Tables, table)
	}

	s.mu.RUnlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrTypePersistence, "failed to serialize knowledge store")
	}

	if err := os.MkdirAll(filepath.Dir(s.cfg.Path), 0755); err != nil {
		return errors.Wrap(err, errors.ErrTypePersistence, "failed to create store directory")
	}

	// Write to a sibling temp file and rename over the target, so an
	// interrupted save can never truncate the previous good snapshot.
	tmp, err := os.CreateTemp(filepath.Dir(s.cfg.Path), ".knowledge-*.tmp")
	if err != nil {
		return errors.Wrap(err, errors.ErrTypePersistence, "failed to create temporary store file")
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return errors.Wrapf(err, errors.ErrTypePersistence,
			"failed to write knowledge store to %s", s.cfg.Path)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return errors.Wrap(err, errors.ErrTypePersistence, "failed to flush knowledge store")
	}

	if err := os.Rename(tmp.Name(), s.cfg.Path); err != nil {
		os.Remove(tmp.Name())

		return errors.Wrapf(err, errors.ErrTypePersistence,
			"failed to replace knowledge store at %s", s.cfg.Path)
	}

	return nil
}

// Load restores the store from the configured path. A missing or corrupt
// artifact degrades to an empty store with a warning rather than an error.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.cfg.Path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debugf("no knowledge store at %s, starting empty", s.cfg.Path)
			return nil
		}

		s.logger.WithError(err).Warnf(
			"failed to read knowledge store at %s, starting empty", s.cfg.Path)

		return nil
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.WithError(err).Warnf(
			"corrupt knowledge store at %s, starting empty", s.cfg.Path)

		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.elements = make(map[string]*Element, len(snap.Elements))
	s.index = newVectorIndex(snap.Dimensions)
	s.tables = make(map[string]schema.TableDescriptor, len(snap.Tables))

	for _, element := range snap.Elements {
		s.elements[element.ID] = element

		handle, ok := snap.Handles[element.ID]
		if !ok {
			// Sidecar and handle map disagree; issue a fresh handle
			s.index.add(element.ID, element.Embedding)
			continue
		}

		s.index.restore(element.ID, handle, element.Embedding)
	}

	if s.index.nextHandle < snap.NextHandle {
		s.index.nextHandle = snap.NextHandle
	}

	if snap.Graph != nil {
		s.graph = snap.Graph
	}

	if s.graph.Domains == nil {
		s.graph.Domains = map[string]string{}
	}

	for _, table := range snap.Tables {
		s.tables[table.QualifiedName()] = table
	}

	s.logger.Infof("loaded %d elements from %s", len(s.elements), s.cfg.Path)

	return nil
}
