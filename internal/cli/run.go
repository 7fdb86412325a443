package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/fetchurl/internal/logger"
	"github.com/glorpus-work/fetchurl/pkg/script"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	var (
		vars    map[string]string
		modules []string
	)

	cmd := &cobra.Command{
		Use:   "run SCRIPT",
		Short: "Run a tengo script",
		Long: `Run a tengo script with the url module imported as:

    url := import("url")
    url.fetch("http://example.org/", func(req, body) { ... })

The command returns once the script has finished and every fetch it started
has completed or been cancelled.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(cmd.Context(), args[0], vars, modules)
		},
	}

	cmd.Flags().StringToStringVar(&vars, "var", nil, "set a script variable (name=value), can be repeated")
	cmd.Flags().StringSliceVar(&modules, "module", nil, "standard library modules to make importable (default: "+strings.Join(script.DefaultModules, ",")+")")

	return cmd
}

func runScript(ctx context.Context, path string, vars map[string]string, modules []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	m, err := newManager(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = m.Shutdown() }()

	opts := make([]script.Option, 0, len(vars)+1)
	if len(modules) > 0 {
		opts = append(opts, script.WithModules(modules...))
	}
	for name, value := range vars {
		opts = append(opts, script.WithVariable(name, value))
	}

	logger.Debug("Running script", logger.Fields{"path": path, "variables": len(vars)})
	if err := script.NewHost(m, opts...).RunFile(ctx, path); err != nil {
		return err
	}
	logger.Debug("Script finished", logger.Fields{"path": path})
	return nil
}
