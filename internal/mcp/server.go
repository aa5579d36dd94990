package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fixmate/kbsearch/internal/pipeline"
	"github.com/fixmate/kbsearch/pkg/version"
)

// Server is the MCP server exposing knowledge lookup to AI clients.
type Server struct {
	mcp      *mcp.Server
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

// LookupInput defines the input schema for the lookup tool.
type LookupInput struct {
	Query    string `json:"query" jsonschema:"the support question to look up"`
	Urgent   bool   `json:"urgent,omitempty" jsonschema:"true when the user needs an immediate answer, prioritizes internal records"`
	Category string `json:"category,omitempty" jsonschema:"optional category hint, e.g. engine, brake, battery"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
}

// LookupOutput defines the output schema for the lookup tool.
type LookupOutput struct {
	Results      []LookupResultOutput `json:"results" jsonschema:"ranked knowledge results"`
	Intents      []string             `json:"intents" jsonschema:"detected query intents"`
	Degraded     bool                 `json:"degraded" jsonschema:"true when one or more sources failed and results are partial"`
	SourceErrors map[string]string    `json:"source_errors,omitempty" jsonschema:"failed sources mapped to their error messages"`
}

// LookupResultOutput is a single ranked result.
type LookupResultOutput struct {
	Source     string  `json:"source" jsonschema:"origin of the result: vector, web, or structured"`
	Title      string  `json:"title" jsonschema:"result title"`
	Content    string  `json:"content,omitempty" jsonschema:"result content snippet"`
	URL        string  `json:"url,omitempty" jsonschema:"source URL when available"`
	Category   string  `json:"category,omitempty" jsonschema:"result category"`
	TotalScore float64 `json:"total_score" jsonschema:"final normalized score, top result is 1.0"`
}

// NewServer creates a new MCP server over a lookup pipeline.
func NewServer(p *pipeline.Pipeline, logger *slog.Logger) (*Server, error) {
	if p == nil {
		return nil, errors.New("pipeline is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		pipeline: p,
		logger:   logger,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "kbsearch",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "lookup_knowledge",
		Description: "Look up repair knowledge for a support question. Queries the internal knowledge base, past repair records, and the web in parallel, then returns one ranked, deduplicated list. Set urgent=true to prioritize internal records over web results.",
	}, s.mcpLookupHandler)
	s.logger.Debug("Registered tool", slog.String("name", "lookup_knowledge"))
}

// mcpLookupHandler is the MCP SDK handler for the lookup tool.
func (s *Server) mcpLookupHandler(ctx context.Context, _ *mcp.CallToolRequest, input LookupInput) (
	*mcp.CallToolResult,
	LookupOutput,
	error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, LookupOutput{}, NewInvalidParamsError("query parameter is required")
	}

	resp, err := s.pipeline.Lookup(ctx, pipeline.Request{
		Query:        input.Query,
		Urgent:       input.Urgent,
		CategoryHint: input.Category,
		MaxResults:   input.Limit,
	})
	if err != nil {
		return nil, LookupOutput{}, MapError(err)
	}

	output := LookupOutput{
		Results:  make([]LookupResultOutput, 0, len(resp.Results)),
		Degraded: resp.Degraded,
	}
	for _, intent := range resp.Context.Intents {
		output.Intents = append(output.Intents, string(intent))
	}
	if len(resp.SourceErrors) > 0 {
		output.SourceErrors = make(map[string]string, len(resp.SourceErrors))
		for src, msg := range resp.SourceErrors {
			output.SourceErrors[string(src)] = msg
		}
	}
	for _, doc := range resp.Results {
		output.Results = append(output.Results, LookupResultOutput{
			Source:     string(doc.Source),
			Title:      doc.Title,
			Content:    doc.Content,
			URL:        doc.URL,
			Category:   doc.Category,
			TotalScore: doc.TotalScore,
		})
	}

	return nil, output, nil
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("MCP server stopped with error",
				slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}
