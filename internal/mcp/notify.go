package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/docdrift-mcp/internal/logging"
)

const (
	methodMessage  = "notifications/message"
	methodProgress = "notifications/progress"
)

// notifier sends notifications to the client of the current request
type notifier interface {
	SendNotificationToClient(ctx context.Context, method string, params map[string]any) error
}

// clientReporter forwards operation updates to the MCP client as log
// messages and, when the request carries a progress token, as progress
// notifications. Every update is also logged to stderr.
type clientReporter struct {
	client notifier
	token  mcp.ProgressToken
	logger *logging.Logger
}

func newReporter(ctx context.Context, request mcp.CallToolRequest) *clientReporter {
	r := &clientReporter{logger: logging.Default()}
	if s := server.ServerFromContext(ctx); s != nil {
		r.client = s
	}
	if request.Params.Meta != nil {
		r.token = request.Params.Meta.ProgressToken
	}
	return r
}

func (r *clientReporter) send(ctx context.Context, method string, params map[string]any) {
	if r.client == nil {
		return
	}
	if err := r.client.SendNotificationToClient(ctx, method, params); err != nil {
		r.logger.Debugf("notification %s not delivered: %v", method, err)
	}
}

func (r *clientReporter) message(ctx context.Context, level mcp.LoggingLevel, msg string) {
	r.send(ctx, methodMessage, map[string]any{
		"level":  level,
		"logger": ServerName,
		"data":   msg,
	})
}

func (r *clientReporter) Info(ctx context.Context, msg string) {
	r.logger.Infof("%s", msg)
	r.message(ctx, mcp.LoggingLevelInfo, msg)
}

func (r *clientReporter) Warn(ctx context.Context, msg string) {
	r.logger.Warnf("%s", msg)
	r.message(ctx, mcp.LoggingLevelWarning, msg)
}

// Error reports a failed operation before its error is returned
func (r *clientReporter) Error(ctx context.Context, msg string) {
	r.logger.Errorf("%s", msg)
	r.message(ctx, mcp.LoggingLevelError, msg)
}

func (r *clientReporter) Progress(ctx context.Context, current, total int) {
	r.logger.Debugf("progress %d/%d", current, total)
	if r.token == nil {
		return
	}
	r.send(ctx, methodProgress, map[string]any{
		"progressToken": r.token,
		"progress":      current,
		"total":         total,
	})
}
