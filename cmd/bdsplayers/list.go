package main

import (
	"fmt"

	"github.com/reedfamily/bdspanel/internal/presence"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
)

func newListCmd(p *paths) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the players currently online",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := p.adapter()
			if err != nil {
				return err
			}
			set, err := presence.Load(p.logFile, adapter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			players := set.Sorted()
			if len(players) == 0 {
				fmt.Fprintln(out, "No players online.")
				return nil
			}
			t := table.New("#", "Player").WithWriter(out)
			for i, name := range players {
				t.AddRow(i+1, name)
			}
			t.Print()
			return nil
		},
	}
}
