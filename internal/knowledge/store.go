package knowledge

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/synthql/synthql/internal/config"
	"github.com/synthql/synthql/internal/embedding"
	"github.com/synthql/synthql/internal/errors"
	"github.com/synthql/synthql/internal/logging"
	"github.com/synthql/synthql/internal/schema"
)

// Embedder is the minimal embedding surface the store depends on
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Store is the schema knowledge store: one vector record per schema element,
// a flat inner-product index over those vectors, and the relationship graph.
// Mutations take the exclusive lock; searches run under the shared lock.
type Store struct {
	mu sync.RWMutex

	embedder Embedder
	cfg      config.StoreConfig
	scoring  config.ScoringConfig
	logger   *logging.Logger

	elements map[string]*Element
	index    *vectorIndex
	graph    *Graph
	tables   map[string]schema.TableDescriptor
}

// NewStore creates an empty knowledge store
func NewStore(
	embedder Embedder,
	cfg config.StoreConfig,
	scoring config.ScoringConfig,
	logger *logging.Logger,
) *Store {
	if logger == nil {
		logger = logging.GetLogger()
	}

	return &Store{
		embedder: embedder,
		cfg:      cfg,
		scoring:  scoring,
		logger:   logger,
		elements: make(map[string]*Element),
		index:    newVectorIndex(cfg.Dimensions),
		graph:    &Graph{Domains: map[string]string{}},
		tables:   make(map[string]schema.TableDescriptor),
	}
}

// StoreElement embeds and indexes a schema element, returning its
// deterministic id. Storing an id that already exists replaces the element
// in place; the old index handle is retired before the new entry is added.
func (s *Store) StoreElement(
	ctx context.Context,
	elementType ElementType,
	schemaName, name string,
	metadata map[string]string,
	tags []string,
	businessContext map[string]string,
) (string, error) {
	element := &Element{
		ID:              ElementID(elementType, schemaName, name),
		Type:            elementType,
		SchemaName:      schemaName,
		Name:            name,
		Metadata:        metadata,
		SemanticTags:    tags,
		BusinessContext: businessContext,
	}

	vec, err := s.embedder.Embed(ctx, describeElement(element))
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrTypeEmbedding,
			"failed to embed %s %s", elementType, name)
	}

	element.Embedding = embedding.Normalize(vec)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	if existing, ok := s.elements[element.ID]; ok {
		s.logger.Debugf("replacing existing element %s", element.ID)

		element.CreatedAt = existing.CreatedAt
	} else {
		element.CreatedAt = now
	}

	element.UpdatedAt = now

	s.elements[element.ID] = element
	s.index.add(element.ID, element.Embedding)

	return element.ID, nil
}

// EmbedText embeds free text into the store's vector space, normalized so it
// can be used directly for inner-product search.
func (s *Store) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbedding, "failed to embed query text")
	}

	return embedding.Normalize(vec), nil
}

// Retrieve returns the element for an exact id, if present
func (s *Store) Retrieve(elementID string) (*Element, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	element, ok := s.elements[elementID]
	if !ok {
		return nil, false
	}

	return element.clone(), true
}

// Update merges the provided fields into an existing element. A metadata
// change regenerates the embedding and swaps the index entry under the same
// id. Returns false when the id is unknown.
func (s *Store) Update(
	ctx context.Context,
	elementID string,
	metadata map[string]string,
	tags []string,
	businessContext map[string]string,
) (bool, error) {
	s.mu.RLock()
	existing, ok := s.elements[elementID]

	var staged *Element
	if ok {
		staged = existing.clone()
	}
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}

	metadataChanged := false

	if metadata != nil {
		if staged.Metadata == nil {
			staged.Metadata = make(map[string]string, len(metadata))
		}

		for k, v := range metadata {
			if staged.Metadata[k] != v {
				metadataChanged = true
			}

			staged.Metadata[k] = v
		}
	}

	if tags != nil {
		staged.SemanticTags = append([]string(nil), tags...)
	}

	if businessContext != nil {
		if staged.BusinessContext == nil {
			staged.BusinessContext = make(map[string]string, len(businessContext))
		}

		for k, v := range businessContext {
			staged.BusinessContext[k] = v
		}
	}

	// Re-embed outside the lock, then swap atomically
	if metadataChanged {
		vec, err := s.embedder.Embed(ctx, describeElement(staged))
		if err != nil {
			return false, errors.Wrapf(err, errors.ErrTypeEmbedding,
				"failed to re-embed element %s", elementID)
		}

		staged.Embedding = embedding.Normalize(vec)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, stillThere := s.elements[elementID]; !stillThere {
		return false, nil
	}

	staged.UpdatedAt = time.Now().UTC()
	s.elements[elementID] = staged

	if metadataChanged {
		s.index.remove(elementID)
		s.index.add(elementID, staged.Embedding)
	}

	return true, nil
}

// Delete removes the element from the index and all auxiliary maps. Returns
// false when the id is unknown.
func (s *Store) Delete(elementID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.elements[elementID]; !ok {
		return false
	}

	delete(s.elements, elementID)
	s.index.remove(elementID)

	return true
}

// FindSimilar searches over-fetched candidates by inner product, filters by
// element type when a filter is given, and returns the top k hits.
func (s *Store) FindSimilar(queryVec []float32, k int, typeFilter ElementType) []Hit {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.findSimilarLocked(queryVec, k, typeFilter)
}

func (s *Store) findSimilarLocked(queryVec []float32, k int, typeFilter ElementType) []Hit {
	if k <= 0 {
		return nil
	}

	overfetch := k * s.cfg.OverfetchFactor
	if overfetch < 2*k {
		overfetch = 2 * k
	}

	raw := s.index.search(queryVec, overfetch)
	if typeFilter == "" {
		if len(raw) > k {
			raw = raw[:k]
		}

		return raw
	}

	hits := make([]Hit, 0, k)

	for _, hit := range raw {
		element, ok := s.elements[hit.ElementID]
		if !ok || element.Type != typeFilter {
			continue
		}

		hits = append(hits, hit)
		if len(hits) == k {
			break
		}
	}

	return hits
}

// FindSimilarTables ranks table elements by the composite score
// similarity/context-relevance/business-priority. Ties order by raw
// similarity, then ascending element id.
func (s *Store) FindSimilarTables(queryVec []float32, k int) []TableMatch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := s.findSimilarLocked(queryVec, k, ElementTable)

	matches := make([]TableMatch, 0, len(hits))

	for _, hit := range hits {
		element := s.elements[hit.ElementID]

		match := TableMatch{
			Name:             element.Name,
			Schema:           element.SchemaName,
			SimilarityScore:  hit.Score,
			ContextRelevance: contextRelevance(element),
			BusinessPriority: businessPriority(element, s.scoring.UsageFrequencyFloor),
			Metadata:         element.clone().Metadata,
		}

		match.CompositeScore = s.scoring.TableSimilarityWeight*match.SimilarityScore +
			s.scoring.TableContextWeight*match.ContextRelevance +
			s.scoring.TableBusinessWeight*match.BusinessPriority

		matches = append(matches, match)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CompositeScore != matches[j].CompositeScore {
			return matches[i].CompositeScore > matches[j].CompositeScore
		}

		if matches[i].SimilarityScore != matches[j].SimilarityScore {
			return matches[i].SimilarityScore > matches[j].SimilarityScore
		}

		return matches[i].QualifiedName() < matches[j].QualifiedName()
	})

	return matches
}

// FindSimilarColumns ranks column elements by similarity and context
// relevance, optionally restricted to a single owning table.
func (s *Store) FindSimilarColumns(queryVec []float32, tableContext string, k int) []ColumnMatch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Over-fetch beyond k since the table filter discards candidates
	fetchK := k
	if tableContext != "" {
		fetchK = k * 4
	}

	hits := s.findSimilarLocked(queryVec, fetchK, ElementColumn)

	matches := make([]ColumnMatch, 0, k)

	for _, hit := range hits {
		element := s.elements[hit.ElementID]

		owning := element.Metadata["table"]
		if tableContext != "" && !strings.EqualFold(owning, tableContext) {
			continue
		}

		match := ColumnMatch{
			Name:             element.Name,
			Schema:           element.SchemaName,
			Table:            owning,
			DataType:         element.Metadata["data_type"],
			SimilarityScore:  hit.Score,
			ContextRelevance: contextRelevance(element),
			Metadata:         element.clone().Metadata,
		}

		match.CompositeScore = s.scoring.ColumnSimilarityWeight*match.SimilarityScore +
			s.scoring.ColumnContextWeight*match.ContextRelevance

		matches = append(matches, match)

		if len(matches) == k {
			break
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CompositeScore != matches[j].CompositeScore {
			return matches[i].CompositeScore > matches[j].CompositeScore
		}

		if matches[i].SimilarityScore != matches[j].SimilarityScore {
			return matches[i].SimilarityScore > matches[j].SimilarityScore
		}

		return matches[i].Name < matches[j].Name
	})

	return matches
}

// RelationshipContext returns the graph subset touching any of the given
// tables plus the closure of nodes those edges connect.
func (s *Store) RelationshipContext(tableNames []string) *Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.graph.Subset(tableNames)
}

// Ingest stores one table element and one column element per column for every
// descriptor, then rebuilds the relationship graph wholesale. Malformed
// tables are logged and skipped; ingestion continues for the remainder.
func (s *Store) Ingest(ctx context.Context, tables []schema.TableDescriptor) error {
	graph := BuildGraph(tables)

	related := make(map[string][]string)

	for _, edge := range graph.Edges {
		related[edge.SourceTable] = append(related[edge.SourceTable], edge.TargetTable)
		related[edge.TargetTable] = append(related[edge.TargetTable], edge.SourceTable)
	}

	for _, table := range tables {
		if table.Name == "" {
			s.logger.Warn("skipping table with empty name during ingestion")
			continue
		}

		qualified := table.QualifiedName()

		tags := []string{graph.Domains[qualified]}

		_, err := s.StoreElement(ctx, ElementTable, table.Schema, table.Name,
			tableMetadata(table, related[qualified]), tags, nil)
		if err != nil {
			s.logger.WithError(err).Warnf("failed to ingest table %s", qualified)
			continue
		}

		for _, col := range table.Columns {
			if col.Name == "" {
				s.logger.Warnf("skipping unnamed column in table %s", qualified)
				continue
			}

			_, err := s.StoreElement(ctx, ElementColumn, table.Schema,
				table.Name+"."+col.Name, columnMetadata(table, col), nil, nil)
			if err != nil {
				s.logger.WithError(err).Warnf(
					"failed to ingest column %s.%s", qualified, col.Name)
			}
		}
	}

	// Relationship elements make join context retrievable by similarity too
	for _, edge := range graph.Edges {
		name := edge.SourceTable + "_" + edge.Metadata.SourceColumn + "_" + edge.TargetTable

		meta := map[string]string{
			"description": edge.SourceTable + " " + edge.Metadata.SourceColumn +
				" references " + edge.TargetTable + " " + edge.Metadata.TargetColumn,
			"relationship_type": string(edge.Type),
		}

		if _, err := s.StoreElement(ctx, ElementRelationship, "", name, meta, nil, nil); err != nil {
			s.logger.WithError(err).Warnf("failed to ingest relationship %s", name)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.graph = graph

	for _, table := range tables {
		if table.Name == "" {
			continue
		}

		s.tables[table.QualifiedName()] = table
	}

	return nil
}

// RecordPattern stores a successful natural-language/SQL pair as a
// pattern-typed vector for future retrieval. Failures are logged, never
// returned: the learning hook must not break the synthesis path.
func (s *Store) RecordPattern(ctx context.Context, nlText, sqlText string, success bool) {
	if !success || nlText == "" {
		return
	}

	meta := map[string]string{
		"natural_language": nlText,
		"sql":              sqlText,
	}

	if _, err := s.StoreElement(ctx, ElementPattern, "", uuid.NewString(), meta, nil, nil); err != nil {
		s.logger.WithError(err).Warn("failed to record query pattern")
	}
}

// Table returns the ingested descriptor for a qualified table name
func (s *Store) Table(qualified string) (schema.TableDescriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table, ok := s.tables[qualified]

	return table, ok
}

// Tables returns all ingested table descriptors sorted by qualified name
func (s *Store) Tables() []schema.TableDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]schema.TableDescriptor, 0, len(s.tables))
	for _, table := range s.tables {
		out = append(out, table)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].QualifiedName() < out[j].QualifiedName()
	})

	return out
}

// Stats summarizes store contents for reporting
type Stats struct {
	ElementCounts map[ElementType]int `json:"element_counts"`
	TableCount    int                 `json:"table_count"`
	EdgeCount     int                 `json:"edge_count"`
}

// GetStats returns element counts by type and graph size
func (s *Store) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		ElementCounts: make(map[ElementType]int),
		TableCount:    len(s.tables),
		EdgeCount:     len(s.graph.Edges),
	}

	for _, element := range s.elements {
		stats.ElementCounts[element.Type]++
	}

	return stats
}
