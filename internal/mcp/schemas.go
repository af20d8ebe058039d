package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/docdrift-mcp/internal/indexer"
	"github.com/dshills/docdrift-mcp/internal/searcher"
)

// indexDocumentationTool returns the tool definition for index_documentation
func indexDocumentationTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_documentation",
		Description: "Index markdown documentation from a folder into a vector database collection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"folder_path": map[string]interface{}{
					"type":        "string",
					"description": "Path to the folder containing markdown files",
				},
				"collection_name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the collection to store documents in",
					"default":     indexer.DefaultDocsCollection,
				},
			},
			Required: []string{"folder_path"},
		},
	}
}

// checkDocsTool returns the tool definition for check_docs
func checkDocsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "check_docs",
		Description: "Analyze git diffs of a repository and suggest which documentation may need updates",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"repo_path":       repoPathProperty(),
				"commit_range":    commitRangeProperty(),
				"since_days":      sinceDaysProperty(),
				"collection_name": collectionProperty("Documentation collection to search", indexer.DefaultDocsCollection),
			},
			Required: []string{"repo_path"},
		},
	}
}

// searchDocumentationTool returns the tool definition for search_documentation
func searchDocumentationTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_documentation",
		Description: "Search indexed documentation with a natural language query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query",
				},
				"collection_name": collectionProperty("Collection to search", searcher.DefaultCollection),
				"n_results": map[string]interface{}{
					"type":        "integer",
					"description": "Number of results to return (1-100)",
					"default":     searcher.DefaultLimit,
					"minimum":     1,
					"maximum":     searcher.MaxLimit,
				},
			},
			Required: []string{"query"},
		},
	}
}

// listCollectionsTool returns the tool definition for list_collections
func listCollectionsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_collections",
		Description: "List all collections in the vector database",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// deleteCollectionTool returns the tool definition for delete_collection
func deleteCollectionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_collection",
		Description: "Delete a collection and every document in it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"collection_name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the collection to delete",
				},
			},
			Required: []string{"collection_name"},
		},
	}
}

// indexGitDiffTool returns the tool definition for index_git_diff
func indexGitDiffTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_git_diff",
		Description: "Index significant git diff content so code changes become searchable",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"repo_path":       repoPathProperty(),
				"commit_range":    commitRangeProperty(),
				"since_days":      sinceDaysProperty(),
				"collection_name": collectionProperty("Collection to store diff summaries in", indexer.DefaultDiffCollection),
			},
			Required: []string{"repo_path"},
		},
	}
}

func repoPathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Path to the git repository",
	}
}

func commitRangeProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Commit range to analyze (e.g. 'HEAD~5..HEAD'). Takes precedence over since_days",
	}
}

func sinceDaysProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Analyze commits from the last N days when no commit range is given",
		"default":     indexer.DefaultSinceDays,
		"minimum":     1,
	}
}

func collectionProperty(description, defaultValue string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
		"default":     defaultValue,
	}
}
