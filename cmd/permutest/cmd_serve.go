package main

import (
	"github.com/spf13/cobra"

	"github.com/exchangelabs/permutest/internal/dashboard"
)

func newServeCommand() *cobra.Command {
	var port int
	var resultsDir string
	var noBrowser bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a local dashboard of saved results",
		Long: `Serve a local dashboard of saved study results.

Lists every result JSON file in the results directory (written with
'run --output') and renders each report as HTML. The server binds to
127.0.0.1 only.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := dashboard.New(dashboard.Config{
				Port:       port,
				ResultsDir: resultsDir,
				NoBrowser:  noBrowser,
			})
			if err != nil {
				return err
			}
			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&port, "port", 3000, "Port to listen on")
	cmd.Flags().StringVar(&resultsDir, "results-dir", ".", "Directory containing result JSON files")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Do not open a browser")

	return cmd
}
