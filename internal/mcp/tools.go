package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/docdrift-mcp/internal/gitdiff"
	"github.com/dshills/docdrift-mcp/internal/indexer"
	"github.com/dshills/docdrift-mcp/internal/searcher"
	"github.com/dshills/docdrift-mcp/internal/storage"
	"github.com/dshills/docdrift-mcp/internal/suggest"
	"github.com/dshills/docdrift-mcp/internal/vectorstore"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running on the collection
	ErrorCodeCollectionNotFound = -32003 // Collection does not exist
)

// maxReportedErrors bounds the per-file errors included in a response
const maxReportedErrors = 5

// handleIndexDocumentation handles the index_documentation tool invocation
func (s *Server) handleIndexDocumentation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	folder, ok := args["folder_path"].(string)
	if !ok || strings.TrimSpace(folder) == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "folder_path parameter is required", map[string]interface{}{
			"param":  "folder_path",
			"reason": "missing or empty",
		})
	}
	collection := getStringDefault(args, "collection_name", s.app.Config.Collections.Docs)

	reporter := newReporter(ctx, request)
	stats, err := s.app.Indexer.IndexDocumentation(ctx, folder, collection, reporter)
	if err != nil {
		reporter.Error(ctx, fmt.Sprintf("Indexing failed: %v", err))
		return nil, toMCPError("indexing failed", err)
	}

	response := statsResponse(stats)
	response["collection"] = collection
	response["message"] = fmt.Sprintf("Successfully indexed %d documents with %d chunks", stats.FilesFound, stats.ChunksCreated)
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleCheckDocs handles the check_docs tool invocation
func (s *Server) handleCheckDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	repoPath, err := requireRepoPath(args)
	if err != nil {
		return nil, err
	}
	req := suggest.Request{
		RepoPath:    repoPath,
		CommitRange: getStringDefault(args, "commit_range", ""),
		SinceDays:   getIntDefault(args, "since_days", suggest.DefaultSinceDays),
		Collection:  getStringDefault(args, "collection_name", s.app.Config.Collections.Docs),
	}

	reporter := newReporter(ctx, request)
	report, err := s.app.Suggest.CheckDocs(ctx, req, reporter)
	if err != nil {
		reporter.Error(ctx, fmt.Sprintf("Analysis failed: %v", err))
		return nil, toMCPError("analysis failed", err)
	}

	return mcp.NewToolResultText(formatJSON(report)), nil
}

// handleSearchDocumentation handles the search_documentation tool invocation
func (s *Server) handleSearchDocumentation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	resp, err := s.app.Searcher.Search(ctx, searcher.Request{
		Query:      query,
		Collection: getStringDefault(args, "collection_name", s.app.Config.Collections.Docs),
		Limit:      getIntDefault(args, "n_results", searcher.DefaultLimit),
	})
	if err != nil {
		newReporter(ctx, request).Error(ctx, fmt.Sprintf("Search failed: %v", err))
		return nil, toMCPError("search failed", err)
	}

	return mcp.NewToolResultText(formatJSON(resp)), nil
}

// handleListCollections handles the list_collections tool invocation
func (s *Server) handleListCollections(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reporter := newReporter(ctx, request)

	names, err := s.app.Store.ListCollections(ctx)
	if err != nil {
		reporter.Error(ctx, fmt.Sprintf("Failed to list collections: %v", err))
		return nil, toMCPError("failed to list collections", err)
	}
	reporter.Info(ctx, fmt.Sprintf("Found %d collections", len(names)))

	return mcp.NewToolResultText(formatJSON(names)), nil
}

// handleDeleteCollection handles the delete_collection tool invocation
func (s *Server) handleDeleteCollection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	name, ok := args["collection_name"].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "collection_name parameter is required", map[string]interface{}{
			"param":  "collection_name",
			"reason": "missing or empty",
		})
	}

	reporter := newReporter(ctx, request)
	if err := s.app.Store.DeleteCollection(ctx, name); err != nil {
		reporter.Error(ctx, fmt.Sprintf("Failed to delete collection: %v", err))
		return nil, toMCPError("failed to delete collection", err)
	}
	reporter.Info(ctx, fmt.Sprintf("Deleted collection: %s", name))

	return mcp.NewToolResultText(fmt.Sprintf("Successfully deleted collection: %s", name)), nil
}

// handleIndexGitDiff handles the index_git_diff tool invocation
func (s *Server) handleIndexGitDiff(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	repoPath, err := requireRepoPath(args)
	if err != nil {
		return nil, err
	}
	req := indexer.DiffRequest{
		RepoPath:    repoPath,
		CommitRange: getStringDefault(args, "commit_range", ""),
		SinceDays:   getIntDefault(args, "since_days", indexer.DefaultSinceDays),
		Collection:  getStringDefault(args, "collection_name", s.app.Config.Collections.Diffs),
	}

	reporter := newReporter(ctx, request)
	stats, err := s.app.Indexer.IndexGitDiff(ctx, req, reporter)
	if err != nil {
		reporter.Error(ctx, fmt.Sprintf("Git diff indexing failed: %v", err))
		return nil, toMCPError("git diff indexing failed", err)
	}

	response := statsResponse(stats)
	response["collection"] = req.Collection
	response["message"] = fmt.Sprintf("Indexed %d git diff entries from %d total code changes", stats.FilesIndexed, stats.FilesFound)
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

func requireRepoPath(args map[string]interface{}) (string, error) {
	repoPath, ok := args["repo_path"].(string)
	if !ok || strings.TrimSpace(repoPath) == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "repo_path parameter is required", map[string]interface{}{
			"param":  "repo_path",
			"reason": "missing or empty",
		})
	}
	return repoPath, nil
}

func statsResponse(stats *indexer.Statistics) map[string]interface{} {
	response := map[string]interface{}{
		"files_found":    stats.FilesFound,
		"files_indexed":  stats.FilesIndexed,
		"files_skipped":  stats.FilesSkipped,
		"files_failed":   stats.FilesFailed,
		"chunks_created": stats.ChunksCreated,
		"duration_ms":    stats.Duration.Milliseconds(),
	}

	if len(stats.ErrorMessages) > 0 {
		errorCount := len(stats.ErrorMessages)
		if errorCount > maxReportedErrors {
			response["errors"] = stats.ErrorMessages[:maxReportedErrors]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}
	return response
}

// toMCPError maps an operation error to its protocol error code
func toMCPError(message string, err error) error {
	code := ErrorCodeInternalError
	switch {
	case errors.Is(err, indexer.ErrPathNotFound),
		errors.Is(err, indexer.ErrNotDirectory),
		errors.Is(err, gitdiff.ErrInvalidSinceDays),
		errors.Is(err, searcher.ErrEmptyQuery),
		errors.Is(err, storage.ErrInvalidName):
		code = ErrorCodeInvalidParams
	case errors.Is(err, indexer.ErrIndexingInProgress):
		code = ErrorCodeIndexingInProgress
	case errors.Is(err, vectorstore.ErrCollectionNotFound):
		code = ErrorCodeCollectionNotFound
	}
	return newMCPError(code, message, map[string]interface{}{
		"error": err.Error(),
	})
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	if m, ok := e.Data.(map[string]interface{}); ok {
		if detail, ok := m["error"].(string); ok {
			return fmt.Sprintf("MCP error %d: %s: %s", e.Code, e.Message, detail)
		}
	}
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value; blank counts as unset
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && strings.TrimSpace(val) != "" {
		return val
	}
	return defaultValue
}
