package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

func newRawCmd(p *paths) *cobra.Command {
	return &cobra.Command{
		Use:   "raw <command...>",
		Short: "Queue a console command as written",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := strings.TrimSpace(strings.Join(args, " "))
			if command == "" {
				return errors.New("empty command")
			}
			return enqueue(cmd, p.commandFile, []string{command})
		},
	}
}
