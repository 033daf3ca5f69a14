package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/jetid/internal/rpc"
	"github.com/danielpatrickdp/jetid/internal/runner"
)

var cutsRemote string

var cutsCmd = &cobra.Command{
	Use:   "cuts",
	Short: "Show the configured cuts",
	Long: `List every registered cut in evaluation order and whether it is ignored.

With --remote the configuration of a running jetid server is shown instead.

Example:
  jetid cuts -q TIGHT --disable TIGHT_EMF
  jetid cuts --remote localhost:50061 -o json`,
	Args: cobra.NoArgs,
	RunE: runCuts,
}

func init() {
	cutsCmd.Flags().StringVar(&cutsRemote, "remote", "", "gRPC address of a jetid server")
	rootCmd.AddCommand(cutsCmd)
}

func runCuts(cmd *cobra.Command, args []string) error {
	var desc runner.CutsResponse
	if cutsRemote != "" {
		client, err := rpc.NewClient(cutsRemote)
		if err != nil {
			return err
		}
		defer client.Close()
		if desc, err = client.Cuts(cmd.Context()); err != nil {
			return err
		}
	} else {
		sel, err := cfg.Selector()
		if err != nil {
			return err
		}
		desc = runner.NewRunner(sel, nil, logger).Describe()
	}

	w := cmd.OutOrStdout()
	if ok, err := writeStructured(w, desc); ok || err != nil {
		return err
	}
	fmt.Fprintf(w, "%s %s\n\n", desc.Version, desc.Quality)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CUT\tSTATE")
	for _, c := range desc.Cuts {
		state := "enabled"
		if c.Ignored {
			state = "ignored"
		}
		fmt.Fprintf(tw, "%s\t%s\n", c.Name, state)
	}
	return tw.Flush()
}
