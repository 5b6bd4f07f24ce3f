package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"investorbase/internal/deck"
	"investorbase/internal/models"
	"investorbase/internal/util"
)

func (c *cli) companyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "company",
		Short: "Manage companies",
	}

	var name, id string
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a company",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name = strings.TrimSpace(name)
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			if strings.TrimSpace(id) == "" {
				id = uuid.NewString()
			}
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			if err := a.Companies.CreateCompany(cmd.Context(), models.Company{CompanyID: id, Name: name}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "company name")
	add.Flags().StringVar(&id, "id", "", "company id (default: new uuid)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List companies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			companies, err := a.Companies.ListCompanies(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tDECK")
			for _, co := range companies {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", co.CompanyID, co.Name, util.DisplaySnippet(co.DeckExcerpt, 48))
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func (c *cli) deckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deck",
		Short: "Manage pitch decks",
	}
	ingest := &cobra.Command{
		Use:   "ingest <company-id> <deck.pdf>",
		Short: "Extract a pitch deck and store its excerpt on the company",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			companyID, path := args[0], args[1]
			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read deck: %w", err)
			}
			d, err := deck.FromBytes(raw, c.cfg.DeckExcerptRunes)
			if err != nil {
				return err
			}
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			if _, err := a.Companies.GetCompany(cmd.Context(), companyID); err != nil {
				return fmt.Errorf("company %s: %w", companyID, err)
			}
			stored, err := deck.Archive(c.cfg.DataInRoot, companyID, path, raw)
			if err != nil {
				return err
			}
			if err := a.Companies.UpdateDeck(cmd.Context(), companyID, d.DeckID, d.Excerpt); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deck %s stored at %s (%d excerpt runes)\n", d.DeckID[:12], stored, len([]rune(d.Excerpt)))
			return nil
		},
	}
	cmd.AddCommand(ingest)
	return cmd
}
