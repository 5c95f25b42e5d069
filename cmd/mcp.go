package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"alaidocs/internal/search"
	"alaidocs/internal/store"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing knowledge-base search tools",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := os.Stat(kbPath(cfg)); os.IsNotExist(err) {
		return fmt.Errorf("knowledge base not found at %s\nRun 'alaidocs classify' and 'alaidocs index' first", kbPath(cfg))
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open knowledge base: %w", err)
	}
	defer st.Close()

	retriever := newRetriever(cfg, st)
	maxDocs := cfg.Search.MaxDocs

	s := mcpserver.NewMCPServer("alaidocs", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(searchLibraryTool(), makeSearchHandler(retriever, maxDocs))
	s.AddTool(getDocumentTool(), makeGetDocumentHandler(st))
	s.AddTool(listDocumentsTool(), makeListDocumentsHandler(st))
	s.AddTool(libraryStatsTool(), makeStatsHandler(st))

	return mcpserver.ServeStdio(s)
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func searchLibraryTool() mcp.Tool {
	return mcp.NewTool("search_library",
		mcp.WithDescription("Search the PDF library with hybrid BM25 + vector retrieval. Returns ranked documents with scores, taxonomy labels, and the best matching text chunk."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language or keyword query"),
		),
		mcp.WithNumber("max_docs",
			mcp.Description("Maximum number of documents to return"),
		),
	)
}

func getDocumentTool() mcp.Tool {
	return mcp.NewTool("get_document",
		mcp.WithDescription("Get the stored metadata for one document by its content hash."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("doc_id",
			mcp.Required(),
			mcp.Description("SHA-256 content hash identifying the document"),
		),
	)
}

func listDocumentsTool() mcp.Tool {
	return mcp.NewTool("list_documents",
		mcp.WithDescription("List documents in the library with their taxonomy labels, newest first."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("vendor",
			mcp.Description("Optional vendor filter. Case-insensitive."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum entries to return (default 50)"),
		),
	)
}

func libraryStatsTool() mcp.Tool {
	return mcp.NewTool("library_stats",
		mcp.WithDescription("Get document, chunk, and embedding counts plus vendor and doc-type breakdowns."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

// --- Handler factories ---

func makeSearchHandler(r *search.Retriever, maxDocs int) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		limit := req.GetInt("max_docs", maxDocs)
		if limit <= 0 {
			limit = maxDocs
		}

		results, _, err := r.Search(ctx, query)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		results = search.SelectDiverse(results, limit)

		return mcp.NewToolResultText(formatSearchResults(query, results)), nil
	}
}

func makeGetDocumentHandler(st store.Store) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		docID := req.GetString("doc_id", "")
		if docID == "" {
			return mcp.NewToolResultError("doc_id is required"), nil
		}
		d, err := st.GetDocument(docID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("get document failed: %v", err)), nil
		}
		if d == nil {
			return mcp.NewToolResultError(fmt.Sprintf("document %q not found; call list_documents to see available IDs", docID)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf(
			"## %s\n\n**Path:** %s\n**Vendor:** %s\n**Type:** %s\n**Topic:** %s\n**Topology:** %s\n**Confidence:** %.2f\n**Language:** %s\n**Pages:** %d\n**Added:** %s\n",
			d.Title, d.Path, d.Vendor, d.DocType, d.Topic, d.Topology,
			d.Confidence, d.Language, d.PageCount, d.AddedAt.Format("2006-01-02"))), nil
	}
}

func makeListDocumentsHandler(st store.Store) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		vendorFilter := strings.ToLower(req.GetString("vendor", ""))
		limit := req.GetInt("limit", 50)
		if limit <= 0 {
			limit = 50
		}

		docs, err := st.ListDocuments(0)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list documents failed: %v", err)), nil
		}

		var sb strings.Builder
		count := 0
		for _, d := range docs {
			if vendorFilter != "" && strings.ToLower(d.Vendor) != vendorFilter {
				continue
			}
			if count >= limit {
				break
			}
			title := d.Title
			if title == "" {
				title = d.Path
			}
			fmt.Fprintf(&sb, "- **%s** (%s/%s/%s/%s) `%s`\n",
				title, d.Vendor, d.DocType, d.Topic, d.Topology, short(d.DocID))
			count++
		}
		header := fmt.Sprintf("## Documents (%d shown)\n\n", count)
		if vendorFilter != "" {
			header = fmt.Sprintf("## Documents (%d shown, vendor: %s)\n\n", count, vendorFilter)
		}
		return mcp.NewToolResultText(header + sb.String()), nil
	}
}

func makeStatsHandler(st store.Store) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := st.Stats()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("stats failed: %v", err)), nil
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "## Library statistics\n\n")
		fmt.Fprintf(&sb, "- Documents: %d\n- Chunks: %d\n- Embeddings: %d\n",
			stats.Documents, stats.Chunks, stats.Embeddings)
		fmt.Fprintf(&sb, "\n### By vendor\n\n")
		for _, k := range sortedKeys(stats.ByVendor) {
			fmt.Fprintf(&sb, "- %s: %d\n", k, stats.ByVendor[k])
		}
		fmt.Fprintf(&sb, "\n### By document type\n\n")
		for _, k := range sortedKeys(stats.ByDocType) {
			fmt.Fprintf(&sb, "- %s: %d\n", k, stats.ByDocType[k])
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- Formatting helpers ---

func formatSearchResults(query string, results []search.DocResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for query: %q", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search results for %q (%d documents)\n\n", query, len(results))
	for i, r := range results {
		title := r.Title
		if title == "" {
			title = r.Path
		}
		fmt.Fprintf(&sb, "### %d. %s\n\n", i+1, title)
		fmt.Fprintf(&sb, "**Score:** %.2f (%s)  \n**Category:** %s/%s  \n**Path:** %s  \n**Page:** %d\n\n",
			r.Score, r.Method, r.Vendor, r.DocType, r.Path, r.PageStart)
		fmt.Fprintf(&sb, "> %s\n\n", truncate(r.BestChunk, 500))
	}
	return sb.String()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func short(docID string) string {
	if len(docID) > 12 {
		return docID[:12]
	}
	return docID
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
