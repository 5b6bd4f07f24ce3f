package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"investorbase/internal/render"
	"investorbase/internal/util"
)

func (c *cli) memoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memo",
		Short: "Export investment memos",
	}
	var out string
	var asJSON bool
	export := &cobra.Command{
		Use:   "export <research-id>",
		Short: "Write a research record as an HTML memo or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			rec, err := a.Research.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(out) == "" {
				ext := ".html"
				if asJSON {
					ext = ".json"
				}
				out = util.SafeJoin(util.SafeJoin(c.cfg.DataOutRoot, rec.CompanyID), rec.ResearchID+ext)
			}
			if asJSON {
				err = util.WriteJSONAtomic(out, rec)
			} else {
				name := ""
				if co, cerr := a.Companies.GetCompany(cmd.Context(), rec.CompanyID); cerr == nil {
					name = co.Name
				}
				err = util.WriteTextAtomic(out, render.HTML(a.Renderer.Memo(rec, name)))
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	export.Flags().StringVarP(&out, "out", "o", "", "output path (default: <data-out>/<company>/<research>.html)")
	export.Flags().BoolVar(&asJSON, "json", false, "export the raw record as JSON")
	cmd.AddCommand(export)
	return cmd
}
