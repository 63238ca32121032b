// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the app catalog to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/iplantc/decat/internal/apperr"
	"github.com/iplantc/decat/internal/appservice"
)

const (
	categoriesURI = "decat://categories"
	seedFormatURI = "decat://seed-format"
)

// Server wraps the MCP server with catalog tools.
type Server struct {
	mcp *server.MCPServer
	svc *appservice.Service
}

// New creates a new MCP server with all catalog tools registered.
func New(svc *appservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"decat",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_categories",
		mcp.WithDescription("Return the whole category forest as JSON, with the number of apps in each subtree."),
	), s.listCategories)

	s.mcp.AddTool(mcp.NewTool("find_category",
		mcp.WithDescription("Find the first category with the given name (case-insensitive, pre-order)."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Category name, e.g. Favorite Apps")),
	), s.findCategory)

	s.mcp.AddTool(mcp.NewTool("category_hierarchy",
		mcp.WithDescription("Return the category names from the root down to the given category."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Category id")),
	), s.categoryHierarchy)

	s.mcp.AddTool(mcp.NewTool("list_category_apps",
		mcp.WithDescription("List the apps filed anywhere under a category."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Category id")),
	), s.listCategoryApps)

	s.mcp.AddTool(mcp.NewTool("app_hierarchies",
		mcp.WithDescription("Return the hierarchy of every category an app is filed under."),
		mcp.WithString("app_id", mcp.Required(), mcp.Description("App id")),
	), s.appHierarchies)

	s.mcp.AddTool(mcp.NewTool("search_apps",
		mcp.WithDescription("Search apps by name and description."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchApps)

	s.mcp.AddResource(
		mcp.NewResource(categoriesURI, "Category Tree",
			mcp.WithResourceDescription("Current category forest with app counts."),
			mcp.WithMIMEType("application/json"),
		),
		s.readCategoriesResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(seedFormatURI, "Catalog Seed Format",
			mcp.WithResourceDescription("YAML format of the catalog seed file."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSeedFormatResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found: " + err.Error())
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listCategories(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cats, err := s.svc.Categories(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(cats)
}

func (s *Server) findCategory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.FindCategory(ctx, name)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(d)
}

func (s *Server) categoryHierarchy(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := s.svc.Hierarchy(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(strings.Join(path, " / ")), nil
}

func (s *Server) listCategoryApps(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	apps, err := s.svc.ListApps(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}
	if len(apps) == 0 {
		return mcp.NewToolResultText("no apps in category"), nil
	}
	lines := make([]string, 0, len(apps))
	for _, a := range apps {
		lines = append(lines, fmt.Sprintf("%s\t%s", a.ID, a.Name))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) appHierarchies(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	appID, err := req.RequireString("app_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths, err := s.svc.AppHierarchies(ctx, appID)
	if err != nil {
		return errorResult(err), nil
	}
	lines := make([]string, 0, len(paths))
	for _, p := range paths {
		lines = append(lines, strings.Join(p, " / "))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) searchApps(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.SearchApps(ctx, query, 20)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(results)
}

func (s *Server) readCategoriesResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	cats, err := s.svc.Categories(ctx)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(cats)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      categoriesURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}

func (s *Server) readSeedFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      seedFormatURI,
			MIMEType: "text/markdown",
			Text:     SeedFormatContract,
		},
	}, nil
}
