package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/glorpus-work/fetchurl/internal/logger"
	"github.com/glorpus-work/fetchurl/pkg/errors"
	"github.com/glorpus-work/fetchurl/pkg/fetch"
	"github.com/glorpus-work/fetchurl/pkg/fsutil"
)

type getFlags struct {
	post        string
	head        bool
	failOnError bool
	timeout     time.Duration
	output      string
}

// NewGetCmd creates the get command.
func NewGetCmd() *cobra.Command {
	var flags getFlags

	cmd := &cobra.Command{
		Use:   "get URL...",
		Short: "Fetch one or more URLs",
		Long: `Fetch URLs concurrently and print what was learned about each transfer:
status, response code, bytes received, reported size and modification time.

URLs without a scheme are fetched over http. The command fails if any URL is
rejected or any transfer fails; every failure is reported.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := fetch.Options{
				Head:        flags.head,
				FailOnError: flags.failOnError,
				Timeout:     flags.timeout,
			}
			if cmd.Flags().Changed("post") {
				body := flags.post
				opts.Post = &body
			}
			return runGet(cmd.Context(), cmd.OutOrStdout(), args, opts, flags.output)
		},
	}

	cmd.Flags().StringVarP(&flags.post, "post", "d", "", "send a POST request with this form-encoded body")
	cmd.Flags().BoolVarP(&flags.head, "head", "I", false, "fetch headers only")
	cmd.Flags().BoolVarP(&flags.failOnError, "fail", "f", false, "treat HTTP status codes >= 400 as failures")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "per transfer timeout (default: http_timeout from config, 0s there means none)")
	cmd.Flags().StringVarP(&flags.output, "output", "O", "", "write the body to FILE (single URL only)")

	return cmd
}

type getResult struct {
	url     string
	req     *fetch.Request
	outcome fetch.Outcome
}

func (r *getResult) complete(_ *fetch.Request, out fetch.Outcome) error {
	r.outcome = out
	return nil
}

func runGet(ctx context.Context, out io.Writer, urls []string, opts fetch.Options, outputFile string) error {
	if outputFile != "" && len(urls) != 1 {
		return fmt.Errorf("--output needs exactly one URL, got %d", len(urls))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	m, err := newManager(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = m.Shutdown() }()

	var errs *multierror.Error
	results := make([]*getResult, 0, len(urls))
	for _, rawURL := range urls {
		res := &getResult{url: rawURL}
		req, err := m.Fetch(rawURL, opts, fetch.CallbackFunc(res.complete))
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", rawURL, err))
			continue
		}
		res.req = req
		results = append(results, res)
	}

	if err := waitForTransfers(ctx, m, out, isTerminal(out)); err != nil {
		return err
	}

	if err := printResults(out, results); err != nil {
		return err
	}

	for _, res := range results {
		if !res.outcome.OK {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w (code %d)", res.url, errors.ErrFetchFailed, res.req.HTTPCode()))
		}
	}

	if outputFile != "" && len(results) == 1 && results[0].outcome.OK {
		if err := writeBody(outputFile, results[0].outcome.Body); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	return errs.ErrorOrNil()
}

// waitForTransfers dispatches completions until no request is active.
// On a terminal, progress is printed every ProgressInterval.
func waitForTransfers(ctx context.Context, m *fetch.Manager, out io.Writer, progress bool) error {
	for m.Active() > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, ProgressInterval)
		_, err := m.Wait(waitCtx)
		cancel()

		if ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), "transfers interrupted")
		}
		if err != nil && progress {
			printProgress(out, m)
		}
	}
	m.Poll()
	return nil
}

func printProgress(out io.Writer, m *fetch.Manager) {
	for _, req := range m.Requests() {
		if req.IsActive() {
			_, _ = fmt.Fprintf(out, "  %s: %s received\n", req.URL(), humanize.Bytes(uint64(req.Length())))
		}
	}
}

func printResults(out io.Writer, results []*getResult) error {
	tabWriter := tabwriter.NewWriter(out, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "URL\tSTATUS\tCODE\tRECEIVED\tSIZE\tMODIFIED")

	for _, res := range results {
		status := "ok"
		if !res.outcome.OK {
			status = fetch.FailureMarker
		}

		size := "-"
		if n := res.req.FileSize(); n >= 0 {
			size = humanize.Bytes(uint64(n))
		}

		modified := "-"
		if formatted, _, ok := res.req.FileTime(); ok {
			modified = formatted
		}

		_, _ = fmt.Fprintf(tabWriter, "%s\t%s\t%d\t%s\t%s\t%s\n",
			res.req.URL(), status, res.req.HTTPCode(),
			humanize.Bytes(uint64(res.req.Length())), size, modified)
	}

	return tabWriter.Flush()
}

func writeBody(path string, body []byte) error {
	if err := fsutil.EnsureFileDir(path); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}
	if err := fsutil.WriteFileAtomic(path, body, fsutil.FileModeDefault); err != nil {
		return err
	}
	logger.Success("Body written", logger.Fields{"path": path, "bytes": len(body)})
	return nil
}
