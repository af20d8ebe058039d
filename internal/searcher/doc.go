// Package searcher answers free-text documentation queries.
//
// A query is prefixed with "search_query: ", embedded by the vector store and
// matched against a collection. Each hit is returned with its metadata, its
// text stripped of the "search_document: " prefix and cut to 500 bytes, and a
// relevance score of 1 - cosine distance.
//
// # Basic Usage
//
//	s := searcher.NewSearcher(store)
//
//	resp, err := s.Search(ctx, searcher.Request{
//	    Query:      "how do I configure the database",
//	    Collection: "documents",
//	    Limit:      5,
//	})
//
// Limit defaults to 5 and is clamped to 100.
//
// # Caching
//
// Responses are kept in an LRU cache (hashicorp/golang-lru) for one hour by
// default. Register InvalidateCollection as a vector store write hook so that
// re-indexing never serves stale hits:
//
//	store.OnWrite(s.InvalidateCollection)
package searcher
