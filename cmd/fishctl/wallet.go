package main

import (
	"github.com/lukasbauer/fishaudio/internal/eventlog"
	"github.com/spf13/cobra"
)

func newWalletCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Show API credit and prepaid package",
	}

	var checkFree bool
	credit := &cobra.Command{
		Use:   "credit",
		Short: "Show the API credit balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cr, err := c.app.Client().Wallet.Credit(cmd.Context(), checkFree)
			if err != nil {
				return err
			}
			c.record(eventlog.EventCreditChecked, map[string]any{"credit": cr.Credit})
			return printJSON(cmd.OutOrStdout(), cr)
		},
	}
	credit.Flags().BoolVar(&checkFree, "check-free", false, "also report whether free credit remains")

	pkg := &cobra.Command{
		Use:   "package",
		Short: "Show the prepaid package",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.app.Client().Wallet.Package(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}

	cmd.AddCommand(credit, pkg)
	return cmd
}
