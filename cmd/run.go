// File: cmd/run.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/xkilldash9x/guestpass/internal/autofill"
	"github.com/xkilldash9x/guestpass/internal/browser"
	"github.com/xkilldash9x/guestpass/internal/config"
	"github.com/xkilldash9x/guestpass/internal/observability"
)

// newRunCmd creates the `run` command, which fills one form in a browser.
func newRunCmd(st *rootState) *cobra.Command {
	var (
		overrides []string
		asJSON    bool
	)

	runCmd := &cobra.Command{
		Use:   "run [url]",
		Short: "Fill and submit the registration form at url",
		Long: `Launches Chromium, fills the registration form at url (or form.target_url
from the configuration) with the configured values, clicks Next/Submit and
completes the consent page if one follows.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return st.v.BindPFlag("browser.headless", cmd.Flags().Lookup("headless"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := st.loadConfig()
			if err != nil {
				return err
			}
			form, target, err := resolveForm(cfg, overrides, args)
			if err != nil {
				return err
			}

			logger := observability.GetLogger()
			launcher := browser.NewLauncher(cfg.Browser(), cfg.Timing(), logger)
			runner := autofill.NewRunner(form, cfg.Timing(), launcher, nil, logger)

			ctx := cmd.Context()
			if timeout := cfg.Runner().RunTimeout; timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			report, runErr := runner.Run(ctx, target)
			if err := printReport(cmd.OutOrStdout(), report, asJSON); err != nil {
				return err
			}
			return runErr
		},
	}

	runCmd.Flags().Bool("headless", true, "Run the browser without a visible window")
	runCmd.Flags().StringArrayVar(&overrides, "set", nil, "Override a form value, e.g. --set first=Ada (repeatable)")
	runCmd.Flags().BoolVar(&asJSON, "json", false, "Print the run report as JSON")
	return runCmd
}

// resolveForm applies --set overrides and picks the target URL.
func resolveForm(cfg *config.Config, overrides []string, args []string) (config.FormConfig, string, error) {
	form := cfg.Form()
	if len(overrides) > 0 {
		values, err := config.ParseOverrides(overrides)
		if err != nil {
			return config.FormConfig{}, "", err
		}
		form = form.WithValues(values)
	}

	target := form.TargetURL
	if len(args) > 0 {
		target = args[0]
	}
	if err := config.ValidateTarget(target); err != nil {
		return config.FormConfig{}, "", err
	}
	return form, target, nil
}

// printReport writes report as indented JSON or as a short table.
func printReport(w io.Writer, report *autofill.Report, asJSON bool) error {
	if report == nil {
		return nil
	}
	if asJSON {
		b, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Target:\t%s\n", report.Target)
	fmt.Fprintf(tw, "Duration:\t%s\n", report.Duration)
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "FIELD\tOUTCOME\tELEMENT")
	for _, f := range report.Fields {
		detail := f.Element
		if detail == "" {
			detail = f.Keyword
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Field, f.Outcome, detail)
	}
	fmt.Fprintln(tw)
	switch {
	case report.Action.Clicked:
		fmt.Fprintf(tw, "Action:\tclicked %q\n", report.Action.Caption)
	case report.Action.Found:
		fmt.Fprintf(tw, "Action:\tfound %q but could not click it\n", report.Action.Caption)
	default:
		fmt.Fprintln(tw, "Action:\tno Next/Submit button found")
	}
	if c := report.Consent; c != nil {
		fmt.Fprintf(tw, "Consent:\t%d checked, submit found=%t clicked=%t\n", c.Checked, c.SubmitFound, c.SubmitClicked)
	}
	if report.Error != "" {
		fmt.Fprintf(tw, "Error:\t%s\n", report.Error)
	}
	return tw.Flush()
}
