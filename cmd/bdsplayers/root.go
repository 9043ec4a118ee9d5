package main

import (
	"github.com/reedfamily/bdspanel/internal/config"
	"github.com/reedfamily/bdspanel/internal/game"
	"github.com/spf13/cobra"

	_ "github.com/reedfamily/bdspanel/internal/game/bedrock"
	_ "github.com/reedfamily/bdspanel/internal/game/java"
)

// paths are the shared files, defaulting to the panel's configuration.
type paths struct {
	logFile     string
	commandFile string
	itemCatalog string
	game        string
}

func newRootCmd() *cobra.Command {
	p := &paths{}

	root := &cobra.Command{
		Use:   "bdsplayers",
		Short: "List online players and queue admin commands",
		Long: `bdsplayers reads the server log to find who is online and appends
commands to the command queue file, which the panel relays to the server
console every poll interval.

Paths default to the panel's configuration (bdspanel.toml and BDSPANEL_*
environment variables).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return p.resolve()
		},
	}

	root.PersistentFlags().StringVar(&p.logFile, "log", "", "Server log to scan for players")
	root.PersistentFlags().StringVar(&p.commandFile, "queue", "", "Command queue file")
	root.PersistentFlags().StringVar(&p.itemCatalog, "items", "", "Item catalog CSV")
	root.PersistentFlags().StringVar(&p.game, "game", "", "Game adapter (bedrock, java)")

	root.AddCommand(newListCmd(p), newSendCmd(p), newRawCmd(p), newItemsCmd(p))
	return root
}

// resolve fills unset paths from the panel configuration.
func (p *paths) resolve() error {
	if p.logFile != "" && p.commandFile != "" && p.itemCatalog != "" && p.game != "" {
		return nil
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if p.logFile == "" {
		p.logFile = cfg.LogFile
	}
	if p.commandFile == "" {
		p.commandFile = cfg.CommandFile
	}
	if p.itemCatalog == "" {
		p.itemCatalog = cfg.ItemCatalog
	}
	if p.game == "" {
		p.game = cfg.Game
	}
	return nil
}

func (p *paths) adapter() (game.GameAdapter, error) {
	return game.Lookup(p.game)
}
