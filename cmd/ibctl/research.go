package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	tclient "go.temporal.io/sdk/client"

	"investorbase/internal/app"
	"investorbase/internal/research"
	"investorbase/internal/workflows"
)

func (c *cli) researchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "research",
		Short: "Run and inspect company research",
	}
	cmd.AddCommand(c.researchRunCmd(), c.researchBatchCmd(), c.researchShowCmd())
	return cmd
}

func (c *cli) researchRunCmd() *cobra.Command {
	var points []string
	var provider string
	var async bool
	cmd := &cobra.Command{
		Use:   "run <company-id>",
		Short: "Request research for one company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			req := research.Request{CompanyID: args[0], AssessmentPoints: points, Provider: provider}
			if !async {
				rec, err := a.Orchestrator.Run(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rec)
			}

			p, err := a.Orchestrator.Begin(cmd.Context(), req)
			if err != nil {
				return err
			}
			tc, err := tclient.Dial(tclient.Options{HostPort: c.cfg.TemporalAddress})
			if err != nil {
				c.settleUnstarted(cmd.Context(), a, p, "dial temporal: "+err.Error())
				return fmt.Errorf("dial temporal: %w", err)
			}
			defer tc.Close()
			we, err := tc.ExecuteWorkflow(cmd.Context(), tclient.StartWorkflowOptions{
				ID:        workflows.ResearchWorkflowID(p.ResearchID),
				TaskQueue: c.cfg.TemporalTaskQueue,
			}, workflows.ResearchWorkflow, workflows.ResearchInput{
				Pending:         &p,
				WriteArtifacts:  true,
				DispatchTimeout: workflows.DispatchTimeout(c.cfg.ProviderTimeout),
			})
			if err != nil {
				c.settleUnstarted(cmd.Context(), a, p, "start research workflow: "+err.Error())
				return fmt.Errorf("start research workflow: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"research_id": p.ResearchID,
				"workflow_id": we.GetID(),
				"run_id":      we.GetRunID(),
			})
		},
	}
	cmd.Flags().StringArrayVarP(&points, "point", "p", nil, "assessment point (repeatable)")
	cmd.Flags().StringVar(&provider, "provider", "", "provider name override")
	cmd.Flags().BoolVar(&async, "async", false, "run through the Temporal research workflow")
	return cmd
}

// settleUnstarted fails a pending record whose workflow never started.
func (c *cli) settleUnstarted(ctx context.Context, a *app.App, p research.Pending, reason string) {
	_, err := a.Orchestrator.Fail(context.WithoutCancel(ctx), p, research.Dispatched{ResearchID: p.ResearchID, Error: reason})
	if err != nil {
		c.log.WithError(err).WithField("research_id", p.ResearchID).Error("research record left pending")
	}
}

func (c *cli) researchBatchCmd() *cobra.Command {
	var points, companies []string
	var provider string
	var maxChildren int
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Research several companies through the portfolio workflow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(companies) == 0 {
				return fmt.Errorf("at least one --company is required")
			}
			tc, err := tclient.Dial(tclient.Options{HostPort: c.cfg.TemporalAddress})
			if err != nil {
				return fmt.Errorf("dial temporal: %w", err)
			}
			defer tc.Close()
			batchID := uuid.NewString()
			we, err := tc.ExecuteWorkflow(cmd.Context(), tclient.StartWorkflowOptions{
				ID:        "portfolio-" + batchID,
				TaskQueue: c.cfg.TemporalTaskQueue,
			}, workflows.PortfolioResearchWorkflow, workflows.PortfolioResearchInput{
				BatchID:               batchID,
				CompanyIDs:            companies,
				AssessmentPoints:      points,
				Provider:              provider,
				MaxConcurrentChildren: maxChildren,
				WriteArtifacts:        true,
				DispatchTimeout:       workflows.DispatchTimeout(c.cfg.ProviderTimeout),
			})
			if err != nil {
				return fmt.Errorf("start portfolio workflow: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"batch_id":    batchID,
				"workflow_id": we.GetID(),
				"run_id":      we.GetRunID(),
			})
		},
	}
	cmd.Flags().StringArrayVarP(&points, "point", "p", nil, "assessment point (repeatable)")
	cmd.Flags().StringArrayVarP(&companies, "company", "c", nil, "company id (repeatable)")
	cmd.Flags().StringVar(&provider, "provider", "", "provider name override")
	cmd.Flags().IntVar(&maxChildren, "max-concurrent", 3, "companies researched at once")
	return cmd
}

func (c *cli) researchShowCmd() *cobra.Command {
	var section, theme string
	var asHTML bool
	cmd := &cobra.Command{
		Use:   "show <research-id>",
		Short: "Show a research record or one of its sections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			if strings.TrimSpace(section) == "" {
				rec, err := a.Research.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rec)
			}
			view, err := a.Sections.Section(cmd.Context(), args[0], section, theme)
			if err != nil {
				return err
			}
			if asHTML {
				fmt.Fprintln(cmd.OutOrStdout(), view.HTML)
				return nil
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}
	cmd.Flags().StringVarP(&section, "section", "s", "", "section name, e.g. \"Latest News\"")
	cmd.Flags().StringVar(&theme, "theme", "", "theme override")
	cmd.Flags().BoolVar(&asHTML, "html", false, "print sanitized HTML")
	return cmd
}
