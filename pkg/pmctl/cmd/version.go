package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/playmetrics-tools/pmctl/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show pmctl version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.GetBuildInfo()

			writer := cmd.OutOrStdout()
			if rt, _ := getRuntime(cmd); rt != nil {
				writer = rt.Writer()
			}

			if outputFormat == "json" {
				encoder := json.NewEncoder(writer)
				encoder.SetIndent("", "  ")
				return encoder.Encode(info)
			}
			_, _ = fmt.Fprintf(writer, "pmctl %s (commit: %s, built: %s)\n", info.Version, info.GitCommit, info.BuildDate)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "Output format: json")

	return cmd
}
