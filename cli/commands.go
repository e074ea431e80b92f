package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vote-ledger/blockchain"
	"vote-ledger/tui"
)

// withApp opens the ledger for the duration of a command.
func withApp(base *baseConfiguration, fn func(cmd *cobra.Command, app *App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := base.openApp()
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(cmd, app, args)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newVoteCmd(base *baseConfiguration) *cobra.Command {
	return &cobra.Command{
		Use:   "vote <voter> <candidate>",
		Short: "Cast a vote with the connected wallet",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(base, func(cmd *cobra.Command, app *App, args []string) error {
			block, err := app.Service.CastVote(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(base.out, "Vote added in block #%d\n", block.Index)
			return printJSON(base.out, block)
		}),
	}
}

func newResultsCmd(base *baseConfiguration) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show the vote tally",
		Args:  cobra.NoArgs,
		RunE: withApp(base, func(cmd *cobra.Command, app *App, args []string) error {
			tally := app.Service.Tally()
			if asJSON {
				return printJSON(base.out, tally)
			}

			tw := tabwriter.NewWriter(base.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPARTY\tVOTES\tPERCENT")
			for _, row := range tally.Candidates {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d%%\n", row.ID, row.Name, row.Party, row.Votes, row.Percent)
			}
			ids := make([]string, 0, len(tally.Unlisted))
			for id := range tally.Unlisted {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				fmt.Fprintf(tw, "%s\t-\t-\t%d\t-\n", id, tally.Unlisted[id])
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(base.out, "Total votes: %d\n", tally.TotalVotes)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newVerifyCmd(base *baseConfiguration) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify the hash links and block hashes of the chain",
		Args:  cobra.NoArgs,
		RunE: withApp(base, func(cmd *cobra.Command, app *App, args []string) error {
			res := app.Service.Verify()
			if err := res.Err(); err != nil {
				return err
			}
			fmt.Fprintf(base.out, "Chain valid, %d blocks\n", len(app.Service.Blocks()))
			return nil
		}),
	}
}

func newExportCmd(base *baseConfiguration) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the chain as JSON",
		Args:  cobra.NoArgs,
		RunE: withApp(base, func(cmd *cobra.Command, app *App, args []string) error {
			data, err := app.Service.Export()
			if err != nil {
				return err
			}
			if output == "-" {
				_, err := base.out.Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(base.out, "Blockchain exported to %s\n", output)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", blockchain.ExportFileName, "output file, - for stdout")
	return cmd
}

func newImportCmd(base *baseConfiguration) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the chain with an exported one",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(base, func(cmd *cobra.Command, app *App, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			res, err := app.Service.Import(data)
			if err != nil {
				return err
			}
			fmt.Fprintf(base.out, "Imported %d blocks\n", len(app.Service.Blocks()))
			if !res.OK {
				fmt.Fprintf(base.out, "Warning: %v\n", res.Err())
			}
			return nil
		}),
	}
}

func newResetCmd(base *baseConfiguration) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear chain, votes, candidates and wallet",
		Args:  cobra.NoArgs,
		RunE: withApp(base, func(cmd *cobra.Command, app *App, args []string) error {
			if err := app.Service.Reset(); err != nil {
				return err
			}
			fmt.Fprintln(base.out, "Ledger reset")
			return nil
		}),
	}
}

func newCandidatesCmd(base *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "List or add candidates",
		Args:  cobra.NoArgs,
		RunE: withApp(base, func(cmd *cobra.Command, app *App, args []string) error {
			return printJSON(base.out, app.Service.Candidates())
		}),
	}

	var party, img string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a candidate to the roster",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(base, func(cmd *cobra.Command, app *App, args []string) error {
			c, err := app.Service.AddCandidate(args[0], party, img)
			if err != nil {
				return err
			}
			fmt.Fprintf(base.out, "Candidate %q added as %s\n", c.Name, c.ID)
			return nil
		}),
	}
	add.Flags().StringVar(&party, "party", "", "party name, Independent when empty")
	add.Flags().StringVar(&img, "img", "", "image URL")
	cmd.AddCommand(add)
	return cmd
}

func newWalletCmd(base *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Show the connected wallet",
		Args:  cobra.NoArgs,
		RunE: withApp(base, func(cmd *cobra.Command, app *App, args []string) error {
			w, ok := app.Service.Wallets().Current()
			if !ok {
				fmt.Fprintln(base.out, "No wallet connected")
				return nil
			}
			return printJSON(base.out, w)
		}),
	}

	var (
		balance    float64
		balanceWei string
		external   bool
	)
	connect := &cobra.Command{
		Use:   "connect <address>",
		Short: "Connect a demo wallet, or an external one with --external",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(base, func(cmd *cobra.Command, app *App, args []string) error {
			wallets := app.Service.Wallets()
			var err error
			if external {
				_, err = wallets.ConnectExternal(args[0], balanceWei)
			} else {
				_, err = wallets.Connect(args[0], balance)
			}
			if err != nil {
				return err
			}
			w, _ := wallets.Current()
			return printJSON(base.out, w)
		}),
	}
	connect.Flags().Float64Var(&balance, "balance", 10, "demo balance")
	connect.Flags().StringVar(&balanceWei, "balance-wei", "", "hex wei balance of an external wallet")
	connect.Flags().BoolVar(&external, "external", false, "wallet signs and pays gas on its own")

	disconnect := &cobra.Command{
		Use:   "disconnect",
		Short: "Forget the connected wallet",
		Args:  cobra.NoArgs,
		RunE: withApp(base, func(cmd *cobra.Command, app *App, args []string) error {
			return app.Service.Wallets().Disconnect()
		}),
	}

	cmd.AddCommand(connect, disconnect)
	return cmd
}

func newExplorerCmd(base *baseConfiguration) *cobra.Command {
	return &cobra.Command{
		Use:   "explorer",
		Short: "Browse blocks and results in the terminal",
		Args:  cobra.NoArgs,
		RunE: withApp(base, func(cmd *cobra.Command, app *App, args []string) error {
			return tui.Run(app.Service)
		}),
	}
}
