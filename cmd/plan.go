// File: cmd/plan.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/xkilldash9x/guestpass/internal/autofill"
	"github.com/xkilldash9x/guestpass/internal/dom"
	"github.com/xkilldash9x/guestpass/internal/observability"
	"github.com/xkilldash9x/guestpass/internal/snapshot"
)

// newPlanCmd creates the `plan` command: a dry run against a saved page.
func newPlanCmd(st *rootState) *cobra.Command {
	var (
		overrides []string
		asJSON    bool
		output    string
	)

	planCmd := &cobra.Command{
		Use:   "plan <file.html>",
		Short: "Dry-run the form heuristics against a saved HTML page",
		Long: `Runs the same matching and filling steps as 'run' against a saved copy of a
registration page, without a browser. Scripts do not execute, so pages that
build their form in JavaScript must be saved after rendering.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := st.loadConfig()
			if err != nil {
				return err
			}
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			form, _, err := resolveForm(cfg, overrides, nil)
			if err != nil {
				return err
			}

			page, err := snapshot.New("")
			if err != nil {
				return err
			}
			factory := autofill.PageFactoryFunc(func(context.Context) (dom.Page, error) { return page, nil })

			timing := cfg.Timing()
			timing.FinalSettle = 0
			timing.ConsentWait = 0
			runner := autofill.NewRunner(form, timing, factory, nil, observability.GetLogger())

			report, runErr := runner.Run(cmd.Context(), "file://"+filepath.ToSlash(path))
			if err := printReport(cmd.OutOrStdout(), report, asJSON); err != nil {
				return err
			}
			if runErr != nil {
				return runErr
			}

			if output != "" {
				rendered, err := page.Render()
				if err != nil {
					return fmt.Errorf("rendering filled page: %w", err)
				}
				if err := os.WriteFile(output, []byte(rendered), 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", output, err)
				}
			}
			return nil
		},
	}

	planCmd.Flags().StringArrayVar(&overrides, "set", nil, "Override a form value, e.g. --set first=Ada (repeatable)")
	planCmd.Flags().BoolVar(&asJSON, "json", false, "Print the run report as JSON")
	planCmd.Flags().StringVarP(&output, "output", "o", "", "Write the filled page to this file")
	return planCmd
}
