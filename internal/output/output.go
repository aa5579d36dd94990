// Package output renders lookup results for the CLI in text or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/fixmate/kbsearch/internal/pipeline"
)

// Format selects the rendering mode.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

const snippetLength = 160

// Renderer writes lookup responses to an output stream.
type Renderer struct {
	out    io.Writer
	format Format
	styles Styles
}

// NewRenderer creates a renderer. Colors are enabled only when out is
// a terminal and NO_COLOR is unset.
func NewRenderer(out io.Writer, format Format) *Renderer {
	return &Renderer{
		out:    out,
		format: format,
		styles: GetStyles(!useColor(out)),
	}
}

// useColor reports whether styled output is appropriate for w.
func useColor(w io.Writer) bool {
	if _, noColor := os.LookupEnv("NO_COLOR"); noColor {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Render writes a lookup response in the configured format.
func (r *Renderer) Render(resp *pipeline.Response) error {
	if r.format == FormatJSON {
		return r.renderJSON(resp)
	}
	return r.renderText(resp)
}

// jsonResult is the JSON shape for one ranked result.
type jsonResult struct {
	Rank       int     `json:"rank"`
	Source     string  `json:"source"`
	Title      string  `json:"title"`
	URL        string  `json:"url,omitempty"`
	Category   string  `json:"category,omitempty"`
	Snippet    string  `json:"snippet,omitempty"`
	BaseScore  float64 `json:"base_score"`
	TotalScore float64 `json:"total_score"`
}

// jsonResponse is the JSON shape for a whole lookup.
type jsonResponse struct {
	Query         string            `json:"query"`
	Intents       []string          `json:"intents"`
	Keywords      []string          `json:"keywords,omitempty"`
	Results       []jsonResult      `json:"results"`
	Degraded      bool              `json:"degraded"`
	SourceErrors  map[string]string `json:"source_errors,omitempty"`
	ElapsedMillis int64             `json:"elapsed_ms"`
}

func (r *Renderer) renderJSON(resp *pipeline.Response) error {
	out := jsonResponse{
		Query:         resp.Context.OriginalQuery,
		Results:       make([]jsonResult, 0, len(resp.Results)),
		Degraded:      resp.Degraded,
		ElapsedMillis: resp.Elapsed.Milliseconds(),
	}
	for _, intent := range resp.Context.Intents {
		out.Intents = append(out.Intents, string(intent))
	}
	out.Keywords = resp.Context.Keywords
	if len(resp.SourceErrors) > 0 {
		out.SourceErrors = make(map[string]string, len(resp.SourceErrors))
		for src, msg := range resp.SourceErrors {
			out.SourceErrors[string(src)] = msg
		}
	}
	for i, doc := range resp.Results {
		out.Results = append(out.Results, jsonResult{
			Rank:       i + 1,
			Source:     string(doc.Source),
			Title:      doc.Title,
			URL:        doc.URL,
			Category:   doc.Category,
			Snippet:    snippet(doc.Content),
			BaseScore:  doc.BaseScore,
			TotalScore: doc.TotalScore,
		})
	}

	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (r *Renderer) renderText(resp *pipeline.Response) error {
	s := r.styles

	header := fmt.Sprintf("%d results for %q", len(resp.Results), resp.Context.OriginalQuery)
	fmt.Fprintln(r.out, s.Header.Render(header))
	if len(resp.Context.Intents) > 0 {
		intents := make([]string, 0, len(resp.Context.Intents))
		for _, intent := range resp.Context.Intents {
			intents = append(intents, string(intent))
		}
		fmt.Fprintln(r.out, s.Label.Render("intents: "+strings.Join(intents, ", ")))
	}
	fmt.Fprintln(r.out)

	for i, doc := range resp.Results {
		rank := s.Dim.Render(fmt.Sprintf("%2d.", i+1))
		score := s.Score.Render(fmt.Sprintf("%.3f", doc.TotalScore))
		source := s.Source.Render("[" + string(doc.Source) + "]")
		fmt.Fprintf(r.out, "%s %s %s %s\n", rank, score, source, s.Title.Render(doc.Title))

		if doc.URL != "" {
			fmt.Fprintf(r.out, "    %s\n", s.Label.Render(doc.URL))
		}
		if text := snippet(doc.Content); text != "" {
			fmt.Fprintf(r.out, "    %s\n", text)
		}
	}

	if resp.Degraded {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, s.Warning.Render("⚠ partial results: some sources failed"))
		for src, msg := range resp.SourceErrors {
			fmt.Fprintf(r.out, "  %s %s\n", s.Source.Render(string(src)+":"), s.Label.Render(msg))
		}
	}

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, s.Dim.Render(formatElapsed(resp.Elapsed)))
	return nil
}

// snippet trims content for display.
func snippet(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	if len(content) <= snippetLength {
		return content
	}
	cut := content[:snippetLength]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "…"
}

func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("took %dms", d.Milliseconds())
	}
	return fmt.Sprintf("took %.2fs", d.Seconds())
}
