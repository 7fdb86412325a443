package cli

import (
	"fmt"

	"github.com/hashicorp/go-version"
	"github.com/spf13/cobra"
)

// Build information, overridden with -ldflags at release time.
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// CurrentVersion parses Version. A malformed build version reports as 0.0.0.
func CurrentVersion() *version.Version {
	v, err := version.NewVersion(Version)
	if err != nil {
		return version.Must(version.NewVersion("0.0.0"))
	}
	return v
}

// UserAgent is the default User-Agent sent by HTTP transfers.
func UserAgent() string {
	return "fetchurl/" + CurrentVersion().String()
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	var require string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display version information for fetchurl.

With --require the command fails unless the running version satisfies the
given constraint, e.g. --require ">= 0.1, < 1.0".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVersion(cmd, require)
		},
	}

	cmd.Flags().StringVar(&require, "require", "", "version constraint that must be satisfied")

	return cmd
}

func runVersion(cmd *cobra.Command, require string) error {
	current := CurrentVersion()
	out := cmd.OutOrStdout()

	_, _ = fmt.Fprintf(out, "fetchurl version %s\n", current)
	_, _ = fmt.Fprintf(out, "Build date: %s\n", BuildDate)
	_, _ = fmt.Fprintf(out, "Git commit: %s\n", GitCommit)

	if require == "" {
		return nil
	}
	constraints, err := version.NewConstraint(require)
	if err != nil {
		return fmt.Errorf("invalid version constraint %q: %w", require, err)
	}
	if !constraints.Check(current) {
		return fmt.Errorf("fetchurl %s does not satisfy %q", current, require)
	}
	return nil
}
