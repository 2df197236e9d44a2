package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/project-brain/internal/core/domain"
)

type filterFlags struct {
	document      string
	pageMin       int
	pageMax       int
	minConfidence float64
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.document, "document", "", "restrict to one filename or document id")
	cmd.Flags().IntVar(&f.pageMin, "page-min", 0, "lowest page number to include")
	cmd.Flags().IntVar(&f.pageMax, "page-max", 0, "highest page number to include")
	cmd.Flags().Float64Var(&f.minConfidence, "min-confidence", 0, "drop chunks scoring below this value")
}

func (f *filterFlags) filter(cmd *cobra.Command) (domain.SearchFilter, error) {
	raw := map[string]any{}
	if f.document != "" {
		raw["document"] = f.document
	}
	if cmd.Flags().Changed("page-min") {
		raw["page_min"] = f.pageMin
	}
	if cmd.Flags().Changed("page-max") {
		raw["page_max"] = f.pageMax
	}
	if cmd.Flags().Changed("min-confidence") {
		raw["min_confidence"] = f.minConfidence
	}
	return domain.ParseSearchFilter(raw)
}

func newSearchCommand(a *app) *cobra.Command {
	var (
		k       int
		asJSON  bool
		filters filterFlags
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Rank indexed chunks with hybrid dense and BM25 scoring",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := filters.filter(cmd)
			if err != nil {
				return err
			}
			svc, err := a.services(cmd.Context())
			if err != nil {
				return err
			}
			if svc.Search == nil {
				return errors.New("search service not configured")
			}

			query := strings.Join(args, " ")
			result, err := svc.Search.Search(cmd.Context(), query, svc.topK(cmd, k), filter)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			if asJSON {
				return printJSON(cmd, result)
			}
			if len(result.Chunks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No results found.")
				return nil
			}
			for i, sc := range result.Chunks {
				fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s p.%d (%.3f)\n", i+1, sc.Chunk.Filename, sc.Chunk.PageNumber, sc.Score)
				fmt.Fprintf(cmd.OutOrStdout(), "    %s\n", snippet(sc.Chunk.Text, 160))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&k, "top-k", "k", 0, "number of results (default from RAG_TOP_K)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	filters.register(cmd)
	return cmd
}

func newAskCommand(a *app) *cobra.Command {
	var (
		k              int
		asJSON         bool
		conversationID string
		filters        filterFlags
	)
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question from the indexed documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := filters.filter(cmd)
			if err != nil {
				return err
			}
			svc, err := a.services(cmd.Context())
			if err != nil {
				return err
			}
			if svc.Query == nil {
				return errors.New("query service not configured")
			}

			answer, err := svc.Query.Answer(cmd.Context(), domain.QueryRequest{
				Question:       strings.Join(args, " "),
				ConversationID: conversationID,
				Limit:          svc.topK(cmd, k),
				Filter:         filter,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, answer)
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer.Text)
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintf(cmd.OutOrStdout(), "Confidence: %s (%d chunks)\n", answer.Confidence, answer.ChunksFound)
			fmt.Fprintf(cmd.OutOrStdout(), "Conversation: %s\n", answer.ConversationID)
			for _, src := range answer.Sources {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s, page %d (%.3f)\n", src.Filename, src.PageNumber, src.RelevanceScore)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&k, "top-k", "k", 0, "number of context chunks")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the answer as JSON")
	cmd.Flags().StringVar(&conversationID, "conversation", "", "continue an earlier conversation by id")
	filters.register(cmd)
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func snippet(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
