package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gamscheck/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show gamscheck build information",
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	versionCmd.Flags().Bool("hash", false, "include git commit hash")
	versionCmd.Flags().Bool("date", false, "include build timestamp")
	versionCmd.Flags().Bool("full", false, "show all recorded build metadata")
}

// versionView is the build info trimmed to what the flags asked for.
type versionView struct {
	Tool string `json:"tool"`
	version.Info
}

func runVersion(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	full, _ := cmd.Flags().GetBool("full")
	hash, _ := cmd.Flags().GetBool("hash")
	date, _ := cmd.Flags().GetBool("date")

	view := versionView{Tool: "gamscheck", Info: version.Current()}
	if hash || full {
		view.GitCommit = valueOrUnknown(view.GitCommit)
	} else {
		view.GitCommit = ""
	}
	if date || full {
		view.BuildDate = valueOrUnknown(view.BuildDate)
	} else {
		view.BuildDate = ""
	}

	out := cmd.OutOrStdout()
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	case "pretty":
		mode, _ := cmd.Root().PersistentFlags().GetString("color")
		color, err := readColorMode(mode)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", view.Tool, version.Colored(view.Version, color))
		if view.GitCommit != "" {
			fmt.Fprintf(out, "commit: %s\n", view.GitCommit)
		}
		if view.BuildDate != "" {
			fmt.Fprintf(out, "built:  %s\n", view.BuildDate)
		}
		return nil
	}
	return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
