// Package storage provides SQLite-based persistence for named collections of
// embedded documents.
//
// # Database Schema
//
// Tables:
//   - schema_version: Applied migrations (semver ordered)
//   - collections: Named collections ("documents", "git_changes", ...)
//   - documents: Chunk or diff text, JSON metadata and source file, unique per (collection, doc_id)
//   - embeddings: One vector per document
//
// Deleting a collection cascades to its documents and their embeddings.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.docdrift/docdrift.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	col, err := db.EnsureCollection(ctx, "documents")
//
// # Transactions
//
// Writes for one file or one diff batch go through a transaction:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	doc := &storage.Document{CollectionID: col.ID, DocID: id, Content: text}
//	if err := tx.UpsertDocument(ctx, doc); err != nil {
//	    return err
//	}
//	if err := tx.UpsertEmbedding(ctx, &storage.Embedding{DocumentID: doc.ID, ...}); err != nil {
//	    return err
//	}
//	return tx.Commit()
//
// # Vector Search
//
// SearchVector ranks the documents of one collection by cosine similarity to a
// query vector. Embeddings whose dimension differs from the query are ignored.
// With the sqlite_vec build tag the ranking runs in SQL via vec_distance_cosine;
// otherwise, or when the extension is not loaded, it runs in Go with ties
// broken by doc id.
//
// # Build Tags
//
// CGO Build (sqlite_vec tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//     CGO_ENABLED=1 go build -tags "sqlite_vec"
//
// Pure Go Build (default):
//
//   - Uses modernc.org/sqlite driver
//
//     CGO_ENABLED=0 go build
package storage
