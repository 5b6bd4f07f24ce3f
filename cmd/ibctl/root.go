package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"investorbase/internal/app"
	"investorbase/internal/config"
	"investorbase/internal/logging"
)

// cli carries state shared by all subcommands. The app is opened lazily so
// that help and flag errors never need a database.
type cli struct {
	cfg     config.Config
	log     *logrus.Logger
	verbose bool
	app     *app.App
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "ibctl",
		Short: "InvestorBase operator CLI",
		Long: `ibctl manages the InvestorBase research pipeline from the command line.

Example usage:
  ibctl migrate                                     # Create or update the schema
  ibctl company add --name "Acme"                   # Register a company
  ibctl deck ingest <company-id> pitch.pdf          # Attach a pitch deck excerpt
  ibctl research run <company-id> -p "market size"  # Run research inline
  ibctl research show <research-id> --section "Latest News"
  ibctl memo export <research-id> --out memo.html`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.app != nil {
				c.app.Close()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		c.migrateCmd(),
		c.companyCmd(),
		c.deckCmd(),
		c.researchCmd(),
		c.memoCmd(),
	)
	return root
}

func (c *cli) init() error {
	c.cfg = config.Load()
	level := "warn"
	if c.verbose {
		level = "debug"
	}
	log, err := logging.New(level, "")
	if err != nil {
		return err
	}
	// Command output owns stdout.
	log.SetOutput(os.Stderr)
	c.log = log
	return nil
}

func (c *cli) open(cmd *cobra.Command) (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := app.Open(cmd.Context(), c.cfg, c.log)
	if err != nil {
		return nil, fmt.Errorf("open investorbase: %w", err)
	}
	c.app = a
	return a, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
