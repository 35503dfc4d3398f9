package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/fmueller/scribe/internal/whisper"
	"github.com/spf13/cobra"
)

func newModelsCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List model tiers and whether they are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			modelDir, err := app.modelStorageDir()
			if err != nil {
				return err
			}

			statuses, err := whisper.ListTiers(modelDir)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tFILE\tSTATUS")
			for _, s := range statuses {
				name := s.Name
				if s.Default {
					name += " (default)"
				}
				state := "missing"
				if s.Installed {
					state = "installed"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, s.FileName, state)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\nModels directory: %s\n", modelDir)
			return nil
		},
	}
}
