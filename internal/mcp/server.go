package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/gpsearch/internal/async"
	"github.com/Aman-CERP/gpsearch/internal/config"
	"github.com/Aman-CERP/gpsearch/internal/index"
	"github.com/Aman-CERP/gpsearch/internal/search"
	"github.com/Aman-CERP/gpsearch/internal/telemetry"
	"github.com/Aman-CERP/gpsearch/pkg/version"
)

// Limits applied to the search tool's page length.
const (
	minLimit = 1
	maxLimit = 100
)

// Server is the MCP server for gpsearch.
// It exposes the Gameplan search index to AI clients as tools.
type Server struct {
	mcp     *mcp.Server
	indexer *index.Indexer
	config  *config.Config
	logger  *slog.Logger

	// Query telemetry (optional, set via SetQueryLog)
	queries *telemetry.QueryLog

	// Background rebuild progress (optional, set via SetProgress)
	progress *async.IndexProgress

	mu sync.RWMutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        "search",
		Description: "Full-text search over Gameplan discussions, pages and tasks. Supports paging with start/limit, ordering by the sortable 'modified' field and <mark> highlighting of matched terms.",
	},
	{
		Name:        "spellcheck",
		Description: "Suggest corrections for misspelled query terms using the index dictionary. Use when a search returns nothing.",
	},
	{
		Name:        "index_status",
		Description: "Report whether the search index exists, how many documents it holds and whether the backing store supports search.",
	},
}

// NewServer creates a new MCP server over the indexer's search index.
func NewServer(ix *index.Indexer, cfg *config.Config) (*Server, error) {
	if ix == nil || ix.Index() == nil {
		return nil, errors.New("indexer is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		indexer: ix,
		config:  cfg,
		logger:  slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "gpsearch",
			Version: version.Version,
		},
		nil, // capabilities are inferred from registered tools
	)

	s.registerTools()

	return s, nil
}

// SetQueryLog sets the query log that records every search served.
func (s *Server) SetQueryLog(q *telemetry.QueryLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = q
}

// SetProgress reports a background rebuild through index_status.
func (s *Server) SetProgress(p *async.IndexProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = p
}

// SetLogger replaces the server logger.
func (s *Server) SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = l
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "gpsearch", version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

// CallTool invokes a tool by name with JSON-decoded arguments.
// search and spellcheck return markdown; index_status returns *IndexStatusOutput.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "search":
		input := SearchInput{}
		input.Query, _ = args["query"].(string)
		input.Start = intArg(args, "start")
		input.Limit = intArg(args, "limit")
		input.SortBy, _ = args["sort_by"].(string)
		if h, ok := args["highlight"].(bool); ok {
			input.Highlight = &h
		}
		out, err := s.search(ctx, input)
		if err != nil {
			return "", err
		}
		return FormatSearchResults(input.Query, out), nil
	case "spellcheck":
		input := SpellCheckInput{Distance: intArg(args, "distance")}
		input.Query, _ = args["query"].(string)
		out, err := s.spellCheck(ctx, input)
		if err != nil {
			return "", err
		}
		return FormatSpellCheck(input.Query, out), nil
	case "index_status":
		return s.indexStatus(ctx)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

// search validates input, runs the query and converts the hits.
func (s *Server) search(ctx context.Context, input SearchInput) (*SearchOutput, error) {
	s.mu.RLock()
	logger, queries := s.logger, s.queries
	s.mu.RUnlock()

	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}
	if input.Start < 0 {
		return nil, NewInvalidParamsError("start must not be negative")
	}

	def := s.config.Search.PageLength
	if def <= 0 {
		def = search.DefaultPageLength
	}
	limit := clampLimit(input.Limit, def, minLimit, maxLimit)
	highlight := s.config.Search.Highlight
	if input.Highlight != nil {
		highlight = *input.Highlight
	}

	start := time.Now()
	requestID := generateRequestID()
	logger.Info("search_started",
		slog.String("request_id", requestID),
		slog.String("query", query),
		slog.Int("start", input.Start),
		slog.Int("limit", limit))

	res, err := s.indexer.Index().Search(ctx, query, search.SearchOptions{
		Start:        input.Start,
		PageLength:   limit,
		SortBy:       input.SortBy,
		Highlight:    highlight,
		WithPayloads: true,
	})
	duration := time.Since(start)
	if err != nil {
		logger.Error("search_failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	queries.Record(query, res.Total, duration)

	out := &SearchOutput{
		Total:      res.Total,
		DurationMS: float64(res.Duration.Microseconds()) / 1000,
		Results:    make([]SearchResultOutput, 0, len(res.Docs)),
	}
	for _, d := range res.Docs {
		h := index.NewHit(d)
		out.Results = append(out.Results, SearchResultOutput{
			ID:       h.ID,
			Doctype:  h.Doctype,
			Name:     h.Name,
			Title:    h.Title,
			Content:  h.Content,
			Team:     h.Team,
			Project:  h.Project,
			Owner:    h.Owner,
			Modified: h.Modified,
		})
	}

	logger.Info("search_completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("total", res.Total),
		slog.Int("result_count", len(out.Results)))
	return out, nil
}

// spellCheck runs a spellcheck with the configured default distance.
func (s *Server) spellCheck(ctx context.Context, input SpellCheckInput) (*SpellCheckOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}
	distance := input.Distance
	if distance == 0 {
		distance = s.config.Search.SpellcheckDistance
	}

	suggestions, err := s.indexer.Index().SpellCheck(ctx, query, search.SpellCheckOptions{Distance: distance})
	if err != nil {
		return nil, MapError(err)
	}

	out := &SpellCheckOutput{Suggestions: make([]SuggestionOutput, 0, len(suggestions))}
	for _, sg := range suggestions {
		so := SuggestionOutput{Term: sg.Term, Candidates: make([]CandidateOutput, 0, len(sg.Candidates))}
		for _, c := range sg.Candidates {
			so.Candidates = append(so.Candidates, CandidateOutput{Value: c.Value, Score: c.Score})
		}
		out.Suggestions = append(out.Suggestions, so)
	}
	return out, nil
}

// indexStatus reports the index state, defaults and query telemetry.
func (s *Server) indexStatus(ctx context.Context) (*IndexStatusOutput, error) {
	s.mu.RLock()
	queries, progress := s.queries, s.progress
	s.mu.RUnlock()

	st, err := s.indexer.Index().Status(ctx)
	if err != nil {
		return nil, MapError(err)
	}

	status := "ready"
	switch {
	case st.Degraded:
		status = "degraded"
	case progress != nil && progress.IsIndexing():
		status = "indexing"
	case !st.Exists:
		status = "missing"
	}

	out := &IndexStatusOutput{
		Index: IndexInfo{
			Name:     st.Name,
			Prefix:   st.Prefix,
			Backend:  st.Backend,
			Status:   status,
			Degraded: st.Degraded,
			Exists:   st.Exists,
			NumDocs:  st.NumDocs,
		},
		Config: SearchDefault{
			PageLength:         s.config.Search.PageLength,
			Highlight:          s.config.Search.Highlight,
			SpellcheckDistance: s.config.Search.SpellcheckDistance,
		},
	}

	if progress != nil {
		snap := progress.Snapshot()
		out.Indexing = &snap
	}

	if queries != nil {
		snap := queries.Snapshot(10)
		info := &QueryInfo{
			Total:             snap.TotalQueries,
			ZeroResults:       snap.ZeroResultCount,
			ZeroResultPercent: snap.ZeroResultPercentage(),
			TopTerms:          make([]string, 0, len(snap.TopTerms)),
			Since:             snap.Since.Format(time.RFC3339),
		}
		for _, tc := range snap.TopTerms {
			info.TopTerms = append(info.TopTerms, tc.Term)
		}
		out.Queries = info
	}
	return out, nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	s.logger.Debug("registering_mcp_tools")

	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpSearchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpSpellCheckHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description}, s.mcpIndexStatusHandler)

	s.logger.Info("mcp_tools_registered", slog.Int("count", len(tools)))
}

// mcpSearchHandler is the MCP SDK handler for the search tool.
func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	*SearchOutput,
	error,
) {
	out, err := s.search(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

// mcpSpellCheckHandler is the MCP SDK handler for the spellcheck tool.
func (s *Server) mcpSpellCheckHandler(ctx context.Context, _ *mcp.CallToolRequest, input SpellCheckInput) (
	*mcp.CallToolResult,
	*SpellCheckOutput,
	error,
) {
	out, err := s.spellCheck(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

// mcpIndexStatusHandler is the MCP SDK handler for the index_status tool.
func (s *Server) mcpIndexStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	out, err := s.indexStatus(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "", "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped",
				slog.String("error", err.Error()))
		} else {
			s.logger.Info("mcp_server_stopped")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// intArg reads a JSON number argument.
func intArg(args map[string]any, name string) int {
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
