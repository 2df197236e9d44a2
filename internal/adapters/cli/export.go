package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kirillkom/project-brain/internal/core/domain"
	"github.com/kirillkom/project-brain/internal/infrastructure/export/xlsx"
)

func newExportCommand(a *app) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:       "export [door_schedule|room_summary|equipment_list]",
		Short:     "Extract a schedule and write it as an xlsx workbook",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(domain.EntityDoorSchedule), string(domain.EntityRoomSummary), string(domain.EntityEquipmentList)},
		RunE: func(cmd *cobra.Command, args []string) error {
			entityType, err := domain.ParseEntityType(args[0])
			if err != nil {
				return err
			}
			svc, err := a.services(cmd.Context())
			if err != nil {
				return err
			}
			if svc.Extract == nil {
				return errors.New("extraction service not configured")
			}

			result, err := svc.Extract.Extract(cmd.Context(), entityType)
			if err != nil {
				return err
			}
			if len(result.Records) == 0 {
				return fmt.Errorf("no %s data found", entityType)
			}

			path := filepath.Join(outDir, xlsx.Filename(entityType))
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create workbook file: %w", err)
			}
			if err := xlsx.Write(f, result); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close workbook file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d records to %s", len(result.Records), path)
			if result.Dropped > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), " (%d incomplete records omitted)", result.Dropped)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory to write the workbook into")
	return cmd
}
