package main

import (
	"fmt"

	"github.com/reedfamily/bdspanel/internal/catalog"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
)

func newItemsCmd(p *paths) *cobra.Command {
	return &cobra.Command{
		Use:   "items [query]",
		Short: "Search the give-item catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := catalog.Load(p.itemCatalog)
			if err != nil {
				return err
			}
			query := ""
			if len(args) == 1 {
				query = args[0]
			}

			out := cmd.OutOrStdout()
			matches := catalog.Filter(items, query)
			if len(matches) == 0 {
				fmt.Fprintf(out, "No items match %q.\n", query)
				return nil
			}
			t := table.New("Name", "Token").WithWriter(out)
			for _, it := range matches {
				t.AddRow(it.Name, it.Token)
			}
			t.Print()
			return nil
		},
	}
}
