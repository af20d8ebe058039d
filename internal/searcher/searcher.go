package searcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/docdrift-mcp/internal/vectorstore"
	"github.com/dshills/docdrift-mcp/pkg/types"
)

const (
	DefaultLimit      = 5
	MaxLimit          = 100
	DefaultCollection = "documents"
	DefaultCacheSize  = 1000
	DefaultCacheTTL   = time.Hour

	// PreviewLength is the number of bytes of document text returned per hit
	PreviewLength = 500
)

// ErrEmptyQuery is returned for a blank query
var ErrEmptyQuery = errors.New("query cannot be empty")

// Request contains parameters for a search operation
type Request struct {
	Query      string
	Collection string
	Limit      int
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	collection string
	response   *types.SearchResponse
	expiresAt  time.Time
}

// Option configures a Searcher
type Option func(*Searcher)

// WithCacheTTL sets how long responses are served from cache; zero disables caching
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Searcher) {
		s.ttl = ttl
	}
}

// WithCacheSize sets the number of cached responses
func WithCacheSize(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.cacheSize = n
		}
	}
}

// Searcher answers documentation queries against the vector store
type Searcher struct {
	store     vectorstore.Store
	cache     *lru.Cache[[32]byte, *cacheEntry]
	cacheMu   sync.RWMutex
	cacheSize int
	ttl       time.Duration
	now       func() time.Time
}

// NewSearcher creates a new Searcher instance
func NewSearcher(store vectorstore.Store, opts ...Option) *Searcher {
	s := &Searcher{
		store:     store,
		cacheSize: DefaultCacheSize,
		ttl:       DefaultCacheTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	cache, err := lru.New[[32]byte, *cacheEntry](s.cacheSize)
	if err != nil {
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}
	s.cache = cache
	return s
}

// Search runs a semantic query and returns ranked, display-ready hits
func (s *Searcher) Search(ctx context.Context, req Request) (*types.SearchResponse, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	hash := computeQueryHash(req)
	if cached, ok := s.checkCache(hash); ok {
		return cached, nil
	}

	matches, err := s.store.Query(ctx, req.Collection, types.QueryPrefix+req.Query, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", req.Collection, err)
	}

	response := &types.SearchResponse{
		Query:        req.Query,
		Results:      make([]types.SearchResult, 0, len(matches)),
		TotalResults: len(matches),
	}
	for i, m := range matches {
		result := types.SearchResult{
			Rank:           i + 1,
			ID:             m.ID,
			Document:       Preview(m.Content),
			Metadata:       m.Metadata,
			RelevanceScore: types.Relevance(m.Distance),
		}
		if err := result.Validate(); err != nil {
			return nil, fmt.Errorf("search %s: result %s: %w", req.Collection, m.ID, err)
		}
		response.Results = append(response.Results, result)
	}

	s.storeInCache(hash, req.Collection, response)
	return response, nil
}

// Preview strips the indexing prefix and truncates text for display
func Preview(content string) string {
	return types.Truncate(types.StripDocumentPrefix(content), PreviewLength)
}

// validateRequest applies defaults and clamps the limit to [1, MaxLimit]
func validateRequest(req *Request) error {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return ErrEmptyQuery
	}
	if req.Collection == "" {
		req.Collection = DefaultCollection
	}
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}
	return nil
}

// checkCache looks up a live cached response
func (s *Searcher) checkCache(hash [32]byte) (*types.SearchResponse, bool) {
	if s.ttl <= 0 {
		return nil, false
	}

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil, false
	}

	if s.now().After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil, false
	}

	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()
	return response, true
}

// storeInCache saves a deep copy of response
func (s *Searcher) storeInCache(hash [32]byte, collection string, response *types.SearchResponse) {
	if s.ttl <= 0 {
		return
	}
	entry := &cacheEntry{
		collection: collection,
		response:   copySearchResponse(response),
		expiresAt:  s.now().Add(s.ttl),
	}

	s.cacheMu.Lock()
	s.cache.Add(hash, entry)
	s.cacheMu.Unlock()
}

// copySearchResponse creates a deep copy of a SearchResponse
func copySearchResponse(src *types.SearchResponse) *types.SearchResponse {
	if src == nil {
		return nil
	}

	dst := &types.SearchResponse{
		Query:        src.Query,
		TotalResults: src.TotalResults,
		Results:      make([]types.SearchResult, len(src.Results)),
	}
	for i, result := range src.Results {
		dst.Results[i] = result
		// Metadata values are JSON scalars, a shallow map copy is enough
		dst.Results[i].Metadata = maps.Clone(result.Metadata)
	}
	return dst
}

// computeQueryHash computes a unique hash for a normalized request
func computeQueryHash(req Request) [32]byte {
	var data strings.Builder
	data.WriteString(req.Collection)
	data.WriteString("|")
	data.WriteString(strconv.Itoa(req.Limit))
	data.WriteString("|")
	data.WriteString(req.Query)
	return sha256.Sum256([]byte(data.String()))
}

// InvalidateCollection drops cached responses for one collection
func (s *Searcher) InvalidateCollection(collection string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	for _, key := range s.cache.Keys() {
		if entry, ok := s.cache.Peek(key); ok && entry.collection == collection {
			s.cache.Remove(key)
		}
	}
}

// InvalidateCache drops every cached response
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// CacheLen returns the number of cached responses
func (s *Searcher) CacheLen() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Len()
}
