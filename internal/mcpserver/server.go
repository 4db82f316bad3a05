// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the sync pipeline as tools for LLM-driven publishing, over
// stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/changeset"
	"github.com/starford/raido/internal/document"
	"github.com/starford/raido/internal/mapper"
	"github.com/starford/raido/internal/reconcile"
	"github.com/starford/raido/internal/render"
	"github.com/starford/raido/internal/state"
	"github.com/starford/raido/internal/storage"
)

// Server wraps the MCP server with the sync tools.
type Server struct {
	mcp    *server.MCPServer
	corpus storage.Provider
	states state.Store
	mapper *mapper.Mapper
	runner *reconcile.Runner
}

// New creates a new MCP server with all sync tools registered.
func New(corpus storage.Provider, states state.Store, m *mapper.Mapper, runner *reconcile.Runner) *Server {
	s := &Server{corpus: corpus, states: states, mapper: m, runner: runner}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("preview_document",
		mcp.WithDescription("Parse and map a corpus document without calling the CMS: "+
			"shows the intended operation (create or update), the draft state, and the mapped payload."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. posts/hello.md)")),
	), s.previewDocument)

	s.mcp.AddTool(mcp.NewTool("sync_document",
		mcp.WithDescription("Sync a single corpus document to the CMS. Creates or updates the "+
			"bound record and performs identifier write-back on first creation."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document")),
	), s.syncDocument)

	s.mcp.AddTool(mcp.NewTool("sync_changed",
		mcp.WithDescription("Sync every document changed since the last recorded sync. "+
			"Falls back to the whole corpus on a first run."),
	), s.syncChanged)

	s.mcp.AddTool(mcp.NewTool("sync_all",
		mcp.WithDescription("Sync the whole corpus regardless of recorded state."),
	), s.syncAll)

	s.mcp.AddTool(mcp.NewTool("list_bindings",
		mcp.WithDescription("List every document's recorded sync state: checksum, bound CMS "+
			"record id, and last sync time."),
	), s.listBindings)

	// Resource: frontmatter contract.
	s.mcp.AddResource(
		mcp.NewResource("raido://frontmatter-format", "Frontmatter Contract",
			mcp.WithResourceDescription("Header keys the sync pipeline recognizes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type previewResult struct {
	Locator    string         `json:"locator"`
	Operation  string         `json:"operation"`
	ExternalID string         `json:"externalId,omitempty"`
	Draft      bool           `json:"draft"`
	Skip       bool           `json:"skip"`
	Payload    map[string]any `json:"payload"`
}

func (s *Server) previewDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := s.corpus.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	doc, err := document.Parse(path, raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.mapper.Map(doc, render.HTML(doc.Body))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	op := "create"
	id := rec.ExternalID
	if id == "" {
		if bound, bindErr := s.states.Binding(path); bindErr == nil {
			id = bound
		}
	}
	if id != "" {
		op = "update"
	}

	out, _ := json.MarshalIndent(previewResult{
		Locator:    path,
		Operation:  op,
		ExternalID: id,
		Draft:      rec.DraftState,
		Skip:       rec.SkipSync,
		Payload:    rec.Payload,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) syncDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.runAndReport(ctx, changeset.Delta, changeset.Options{Explicit: []string{path}})
}

func (s *Server) syncChanged(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.runAndReport(ctx, changeset.Delta, changeset.Options{})
}

func (s *Server) syncAll(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.runAndReport(ctx, changeset.All, changeset.Options{})
}

func (s *Server) runAndReport(ctx context.Context, mode changeset.Mode, opts changeset.Options) (*mcp.CallToolResult, error) {
	summary, err := s.runner.Run(ctx, mode, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	type outcomeJSON struct {
		Locator    string `json:"locator"`
		Operation  string `json:"operation"`
		ExternalID string `json:"externalId,omitempty"`
		Reason     string `json:"reason,omitempty"`
		Error      string `json:"error,omitempty"`
	}
	outcomes := make([]outcomeJSON, 0, len(summary.Outcomes))
	for _, o := range summary.Outcomes {
		oj := outcomeJSON{
			Locator:    o.Locator,
			Operation:  string(o.Operation),
			ExternalID: o.ExternalID,
			Reason:     o.Reason,
		}
		if o.Err != nil {
			oj.Error = o.Err.Error()
		}
		outcomes = append(outcomes, oj)
	}
	out, _ := json.MarshalIndent(map[string]any{
		"created":  summary.Created,
		"updated":  summary.Updated,
		"skipped":  summary.Skipped,
		"failed":   summary.Failures,
		"outcomes": outcomes,
	}, "", "  ")
	if summary.Failed() {
		return mcp.NewToolResultError(string(out)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listBindings(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rows, err := s.states.All()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(rows, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readContractResource(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     FrontmatterContract,
		},
	}, nil
}
