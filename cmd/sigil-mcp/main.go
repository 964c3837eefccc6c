package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rphilander/sigil"
)

var (
	conn   net.Conn
	connMu sync.Mutex
)

// send sends a request to the session daemon and returns the response.
func send(req map[string]any) (map[string]any, error) {
	req["id"] = sigil.NextID()
	connMu.Lock()
	defer connMu.Unlock()
	if err := sigil.WriteMsg(conn, req); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	resp, err := sigil.ReadMsg(conn)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return resp, nil
}

// formatResult turns a daemon response into an MCP tool result.
func formatResult(resp map[string]any) (*mcp.CallToolResult, error) {
	ok, _ := resp["ok"].(bool)
	if !ok {
		errMsg, _ := resp["error"].(string)
		if errMsg == "" {
			errMsg = "unknown error"
		}
		return mcp.NewToolResultError(errMsg), nil
	}
	out, err := json.MarshalIndent(resp["value"], "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func handleEval(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr, err := request.RequireString("expr")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp, err := send(map[string]any{"op": "eval", "expr": expr})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return formatResult(resp)
}

func handleExpand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr, err := request.RequireString("expr")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp, err := send(map[string]any{"op": "expand", "expr": expr})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return formatResult(resp)
}

func handleDefine(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	expr, err := request.RequireString("expr")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp, err := send(map[string]any{"op": "define", "name": name, "expr": expr})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return formatResult(resp)
}

func handleUndefine(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp, err := send(map[string]any{"op": "undefine", "name": name})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return formatResult(resp)
}

func handleNames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := send(map[string]any{"op": "names"})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return formatResult(resp)
}

func handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := map[string]any{"op": "history"}
	if n := request.GetInt("n", 0); n > 0 {
		req["n"] = n
	}
	resp, err := send(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return formatResult(resp)
}

func handleLibraryList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := send(map[string]any{"op": "library-list"})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return formatResult(resp)
}

func handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := send(map[string]any{"op": "reset"})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return formatResult(resp)
}

func main() {
	sockPath := os.Getenv("SIGIL_SOCK")
	if sockPath == "" {
		sockPath = "/tmp/sigil.sock"
	}

	var err error
	conn, err = net.Dial("unix", sockPath)
	if err != nil {
		log.Fatalf("connect to %s: %v", sockPath, err)
	}
	defer conn.Close()
	log.Printf("connected to sigild: %s", sockPath)

	s := server.NewMCPServer(
		"sigil",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.AddTool(
		mcp.NewTool("sigil_eval",
			mcp.WithDescription("Evaluate a sigil expression. Returns the result value."),
			mcp.WithString("expr",
				mcp.Required(),
				mcp.Description("Expression to evaluate, e.g. (add 1 2)"),
			),
		),
		handleEval,
	)

	s.AddTool(
		mcp.NewTool("sigil_expand",
			mcp.WithDescription("Macroexpand a sigil expression without evaluating the result."),
			mcp.WithString("expr",
				mcp.Required(),
				mcp.Description("Expression to expand, e.g. (-> x (f 1) g)"),
			),
		),
		handleExpand,
	)

	s.AddTool(
		mcp.NewTool("sigil_define",
			mcp.WithDescription("Define a named value in the session. The expression is evaluated and the definition persists across restarts."),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Name to define"),
			),
			mcp.WithString("expr",
				mcp.Required(),
				mcp.Description("Expression for the value"),
			),
		),
		handleDefine,
	)

	s.AddTool(
		mcp.NewTool("sigil_undefine",
			mcp.WithDescription("Remove a named value from the session."),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Name to remove"),
			),
		),
		handleUndefine,
	)

	s.AddTool(
		mcp.NewTool("sigil_names",
			mcp.WithDescription("List the names defined in the session and its libraries."),
		),
		handleNames,
	)

	s.AddTool(
		mcp.NewTool("sigil_history",
			mcp.WithDescription("Return recent evals with their results or errors."),
			mcp.WithNumber("n",
				mcp.Description("Return at most this many entries, newest last"),
			),
		),
		handleHistory,
	)

	s.AddTool(
		mcp.NewTool("sigil_library_list",
			mcp.WithDescription("List libraries in load order and which one is open."),
		),
		handleLibraryList,
	)

	s.AddTool(
		mcp.NewTool("sigil_reset",
			mcp.WithDescription("Clear the session: truncate the log, rebuild the root scope, reload libraries."),
		),
		handleReset,
	)

	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
