package tools

import (
	"context"
	"errors"

	"github.com/kayz/kakaomap-mcp/internal/places"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const methodProgress = "notifications/progress"

var errNoServer = errors.New("no MCP server in context")

// SessionEmitter sends each event as a progress notification to the session
// that issued req. The instructional event carries only a message. When the
// transport put a Delivery in ctx, each emit returns only after the
// notification was written.
func SessionEmitter(ctx context.Context, req mcp.CallToolRequest) places.Emitter {
	var token mcp.ProgressToken
	if req.Params.Meta != nil {
		token = req.Params.Meta.ProgressToken
	}
	srv := server.ServerFromContext(ctx)
	delivery := DeliveryFromContext(ctx)

	return places.EmitterFunc(func(ctx context.Context, ev places.Event) error {
		if srv == nil {
			return errNoServer
		}
		params := progressParams(token, ev)
		send := func() error {
			return srv.SendNotificationToClient(ctx, methodProgress, params)
		}
		if delivery == nil {
			return send()
		}
		return delivery.Send(ctx, send)
	})
}

func progressParams(token mcp.ProgressToken, ev places.Event) map[string]any {
	params := map[string]any{
		"message": ev.Message,
	}
	if token != nil {
		params["progressToken"] = token
	}
	if !ev.IsInstruction() {
		params["progress"] = ev.Progress
		params["total"] = ev.Total
	}
	return params
}
