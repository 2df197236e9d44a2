package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpadapter "github.com/kirillkom/project-brain/internal/adapters/mcp"
)

func newMCPCommand(a *app) *cobra.Command {
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Model Context Protocol server commands",
	}

	var port int
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the document tools over MCP",
		Long: `Serve search_documents, ask_question, detect_conflicts and
extract_entities as MCP tools. Without --port the server speaks JSON-RPC on
stdio; with --port it serves the streamable HTTP transport.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.services(cmd.Context())
			if err != nil {
				return err
			}
			server, err := mcpadapter.NewServer(mcpadapter.Ports{
				Search:    svc.Search,
				Query:     svc.Query,
				Conflicts: svc.Conflicts,
				Extract:   svc.Extract,
				DefaultK:  svc.DefaultK,
			})
			if err != nil {
				return err
			}
			if port > 0 {
				addr := fmt.Sprintf(":%d", port)
				cmd.PrintErrf("MCP server listening on http://localhost%s\n", addr)
				return server.RunHTTP(cmd.Context(), addr)
			}
			return server.Run(cmd.Context(), os.Stdin, cmd.OutOrStdout())
		},
	}
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port (0 = stdio)")
	mcpCmd.AddCommand(serveCmd)
	return mcpCmd
}
