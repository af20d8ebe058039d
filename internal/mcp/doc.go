// Package mcp implements the Model Context Protocol (MCP) server for docdrift.
//
// The MCP server exposes six tools to AI coding assistants:
//   - index_documentation: Index markdown files from a folder into a collection
//   - check_docs: Suggest documentation that may be stale after code changes
//   - search_documentation: Search indexed documentation
//   - list_collections: List the collections in the database
//   - delete_collection: Delete a collection
//   - index_git_diff: Index summaries of significant code changes
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport. The server is started
// by the serve command:
//
//	docdrift serve
//
// It listens on stdin and writes responses to stdout, so all logging goes to
// stderr.
//
// # Tool: check_docs
//
//	Request:
//	{
//	  "name": "check_docs",
//	  "arguments": {
//	    "repo_path": "/path/to/repo",
//	    "commit_range": "HEAD~5..HEAD",
//	    "collection_name": "documents"
//	  }
//	}
//
//	Response:
//	{
//	  "total_code_changes": 3,
//	  "documentation_suggestions": [
//	    {
//	      "code_file": "api/server.py",
//	      "related_doc": "docs/api.md",
//	      "relevance_score": 0.82,
//	      "suggestion": "Added 1 new function/class definitions; API endpoint changes detected",
//	      "doc_preview": "# API ...",
//	      "diff_summary": "Score: 12, 3 lines added, 0 lines removed",
//	      "is_in_docs_directory": true,
//	      "commit_range": "HEAD~5..HEAD",
//	      "change_type": "major"
//	    }
//	  ],
//	  "affected_docs": ["docs/api.md"],
//	  "docs_directory_suggestions": [...],
//	  "new_docs_needed": [],
//	  "summary": "Found 4 documentation items that may need updates across 2 files"
//	}
//
// When commit_range is omitted, the changes of the last since_days days
// (default 7) are analyzed.
//
// # Notifications
//
// Informational messages and per-file warnings are sent as
// notifications/message. When the request carries a progress token, file
// progress is sent as notifications/progress.
//
// # Error Handling
//
// Errors are returned as MCPError values:
//   - -32602: Invalid params (missing arguments, missing path, since_days < 1)
//   - -32603: Internal error (database, embedding provider, git)
//   - -32002: Indexing already in progress for the collection
//   - -32003: Collection not found
package mcp
