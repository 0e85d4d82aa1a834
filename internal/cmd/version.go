package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/output"
)

type versionReport struct {
	Binary    string `json:"binary" yaml:"binary"`
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit,omitempty" yaml:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty" yaml:"build_date,omitempty"`
	Go        string `json:"go,omitempty" yaml:"go,omitempty"`
	Gofulmen  string `json:"gofulmen,omitempty" yaml:"gofulmen,omitempty"`
	Crucible  string `json:"crucible,omitempty" yaml:"crucible,omitempty"`
}

func (v versionReport) text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", v.Binary, v.Version)
	if v.Commit == "" {
		return b.String()
	}
	fmt.Fprintf(&b, "Commit: %s\nBuilt: %s\nGo: %s\n\nGofulmen: %s\nCrucible: %s\n",
		v.Commit, v.BuildDate, v.Go, v.Gofulmen, v.Crucible)
	return b.String()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended for build, Go, Gofulmen and Crucible versions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		extended, _ := cmd.Flags().GetBool("extended")

		report := versionReport{Binary: GetAppIdentity().BinaryName, Version: versionInfo.Version}
		if extended {
			deps := crucible.GetVersion()
			report.Commit = versionInfo.Commit
			report.BuildDate = versionInfo.BuildDate
			report.Go = runtime.Version()
			report.Gofulmen = deps.Gofulmen
			report.Crucible = deps.Crucible
		}
		return output.Write(cmd.OutOrStdout(), format, report, report.text)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("extended", "e", false, "show extended version information")
	addOutputFlag(versionCmd, "table")
}
