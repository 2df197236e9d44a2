// Package cli is the brainctl command tree. Commands run the engine in
// process against the shared database and model endpoints.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/kirillkom/project-brain/internal/core/domain"
	"github.com/kirillkom/project-brain/internal/core/ports"
)

// Services are the engine operations the commands need.
type Services struct {
	Search    ports.SearchService
	Query     ports.QueryService
	Conflicts ports.ConflictService
	Extract   ports.ExtractionService
	// DefaultK applies when --top-k is not given.
	DefaultK int
}

func (s *Services) topK(cmd *cobra.Command, k int) int {
	if cmd.Flags().Changed("top-k") {
		return k
	}
	if s.DefaultK > 0 {
		return s.DefaultK
	}
	return domain.DefaultTopK
}

// Loader builds Services on first use. The returned func releases them.
type Loader func(ctx context.Context) (Services, func(), error)

type app struct {
	load    Loader
	svc     *Services
	release func()
}

func NewRootCommand(load Loader) *cobra.Command {
	a := &app{load: load}
	root := &cobra.Command{
		Use:           "brainctl",
		Short:         "Query and inspect the construction document index",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.release != nil {
				a.release()
			}
		},
	}
	root.AddCommand(
		newSearchCommand(a),
		newAskCommand(a),
		newConflictsCommand(a),
		newExportCommand(a),
		newMCPCommand(a),
	)
	return root
}

func (a *app) services(ctx context.Context) (*Services, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	if a.load == nil {
		return nil, errors.New("no service loader configured")
	}
	svc, release, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	a.svc = &svc
	a.release = release
	return a.svc, nil
}
