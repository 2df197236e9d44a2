package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newConflictsCommand(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Report topics where documents disagree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.services(cmd.Context())
			if err != nil {
				return err
			}
			if svc.Conflicts == nil {
				return errors.New("conflict service not configured")
			}
			report, err := svc.Conflicts.DetectConflicts(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, report)
			}

			fmt.Fprintln(cmd.OutOrStdout(), report.Analysis)
			for _, c := range report.Conflicts {
				fmt.Fprintln(cmd.OutOrStdout())
				fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", c.Topic)
				for _, st := range c.Statements {
					fmt.Fprintf(cmd.OutOrStdout(), "  %-12s %s\n", st.Value, st.ChunkID)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
