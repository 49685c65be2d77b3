package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/zentab/tabagent/api/schemas"
	"github.com/zentab/tabagent/internal/actuator"
	"github.com/zentab/tabagent/internal/browser"
	"github.com/zentab/tabagent/internal/config"
	"github.com/zentab/tabagent/internal/observability"
	"github.com/zentab/tabagent/internal/observer"
	"github.com/zentab/tabagent/internal/orchestrator"
	"github.com/zentab/tabagent/internal/plan"
	"github.com/zentab/tabagent/internal/planclient"
	"github.com/zentab/tabagent/internal/planner"
	"github.com/zentab/tabagent/internal/safety"
)

// newRunCmd creates the `run` command: plan toward a goal on the active
// page and execute the steps one at a time under per-step approval.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run \"<goal>\"",
		Short: "Plan and execute browser actions toward a goal, one approved step at a time",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("client.endpoint", cmd.Flags().Lookup("endpoint")); err != nil {
				return err
			}
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			return viper.BindPFlag("browser.remote_url", cmd.Flags().Lookup("attach"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			var cfg config.Config
			if err := viper.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("failed to unmarshal config: %w", err)
			}

			session, err := browser.NewSession(ctx, cfg.Browser, logger)
			if err != nil {
				return err
			}
			defer session.Close()

			obs := observer.New(session, cfg.Observer, logger)
			act := actuator.New(session, cfg.Browser, logger)
			gate := safety.NewGate(cfg.Safety, logger)
			machine := plan.NewMachine(obs, gate, actuator.NewStepExecutor(act, logger), logger)
			client := planclient.New(cfg.Client, logger)

			orch, err := orchestrator.New(obs, client, planner.NewRuleBased(logger), machine, logger)
			if err != nil {
				return err
			}

			if startURL, _ := cmd.Flags().GetString("url"); startURL != "" {
				logger.Info("navigating to start page", zap.String("url", startURL))
				if err := act.Navigate(ctx, startURL); err != nil {
					return fmt.Errorf("could not open %s: %w", startURL, err)
				}
			}

			out := cmd.OutOrStdout()
			resp := orch.HandleAgentRequest(ctx, schemas.AgentRequest{Text: args[0]})
			if resp.Error != "" {
				return fmt.Errorf("%s", resp.Error)
			}

			fmt.Fprintf(out, "Plan: %s\n", resp.Summary)
			for i, step := range resp.Steps {
				fmt.Fprintf(out, "  %d. %s %s\n", i+1, step.Tool, describeStep(step))
			}
			if len(resp.Steps) == 0 {
				return nil
			}

			// Per-step approval loop. Every step waits for an explicit yes;
			// anything else stops the run.
			reader := bufio.NewReader(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "run next step? [y/N] ")
				line, err := reader.ReadString('\n')
				if err != nil {
					return nil
				}
				answer := strings.ToLower(strings.TrimSpace(line))
				if answer != "y" && answer != "yes" {
					fmt.Fprintln(out, "stopped")
					return nil
				}

				result, err := orch.RunNextStep(ctx)
				if err != nil {
					fmt.Fprintf(out, "error: %v\n", err)
					continue
				}
				switch {
				case result.Blocked:
					fmt.Fprintf(out, "blocked: %s\n", result.Message)
				case result.Error != "":
					fmt.Fprintf(out, "failed: %s\n", result.Message)
				default:
					fmt.Fprintln(out, result.Message)
				}
				if result.Done {
					fmt.Fprintln(out, "plan finished")
					return nil
				}
			}
		},
	}

	runCmd.Flags().String("url", "", "navigate to this URL before planning")
	runCmd.Flags().String("endpoint", "http://127.0.0.1:8765", "planning service endpoint")
	runCmd.Flags().Bool("headless", true, "run the browser headless")
	runCmd.Flags().String("attach", "", "attach to a running browser via its devtools websocket URL")
	return runCmd
}

func describeStep(step schemas.Step) string {
	switch step.Tool {
	case schemas.ToolClick:
		return step.Selector
	case schemas.ToolType:
		return fmt.Sprintf("%s %q", step.Selector, step.Text)
	case schemas.ToolScroll:
		return fmt.Sprintf("deltaY=%d", step.DeltaY)
	case schemas.ToolNavigate:
		return step.URL
	}
	return step.Note
}
