package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"parcelroute/internal/model"
)

func newSamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "samples",
		Short: "List the built-in sample problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range model.SampleNames() {
				p, _ := model.Sample(name)
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-14s %2d packages  %d vehicles\n", name, len(p.Packages), len(p.Vehicles)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
