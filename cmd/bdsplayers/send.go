package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reedfamily/bdspanel/internal/admin"
	"github.com/reedfamily/bdspanel/internal/catalog"
	"github.com/reedfamily/bdspanel/internal/queue"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newSendCmd(p *paths) *cobra.Command {
	var req admin.Request

	cmd := &cobra.Command{
		Use:   "send <command> <player>...",
		Short: "Queue an admin command for each player",
		Long: `Queue an admin command for each named player.

Commands: ` + strings.Join(admin.Commands(), ", ") + `

Examples:
  bdsplayers send op Alice Bob
  bdsplayers send gamemode Alice --mode creative
  bdsplayers send teleport Alice --to "100 64 -20" --check-blocks
  bdsplayers send effect Alice --effect night_vision --duration 600
  bdsplayers send enchant Alice --category swords --level sharpness=5,unbreaking=3
  bdsplayers send give Alice --item diamond_sword --quantity 2`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Command = args[0]
			req.Players = args[1:]

			if strings.EqualFold(req.Command, "give") && req.Item != "" {
				item, err := resolveItem(p.itemCatalog, req.Item)
				if err != nil {
					return err
				}
				req.Item = item
			}

			commands, err := admin.Build(req)
			if err != nil {
				return err
			}
			return enqueue(cmd, p.commandFile, commands)
		},
	}

	addAdminFlags(cmd.Flags(), &req)
	return cmd
}

func addAdminFlags(fs *pflag.FlagSet, req *admin.Request) {
	fs.StringVar(&req.Destination, "to", "", "teleport: destination coordinates or player")
	fs.BoolVar(&req.CheckForBlocks, "check-blocks", false, "teleport: check for blocks at the destination")
	fs.StringVar(&req.Gamemode, "mode", "", "gamemode: survival, creative, adventure or 0-2")
	fs.StringVar(&req.Effect, "effect", "", "effect: effect name, or clear")
	fs.IntVar(&req.Duration, "duration", 30, "effect: duration in seconds (1-1000)")
	fs.IntVar(&req.Amplifier, "amplifier", 0, "effect: amplifier (0-255)")
	fs.StringVar(&req.Category, "category", "", "enchant: item category")
	fs.StringToIntVar(&req.Levels, "level", nil, "enchant: levels as name=level pairs")
	fs.StringVar(&req.Item, "item", "", "give: item token or \"Name - token\" label")
	fs.IntVar(&req.Quantity, "quantity", 1, "give: quantity")
}

// resolveItem checks the item against the catalog when one is available.
func resolveItem(path, item string) (string, error) {
	items, err := catalog.Load(path)
	if errors.Is(err, catalog.ErrNotFound) {
		return item, nil
	}
	if err != nil {
		return "", err
	}
	it, ok := catalog.Resolve(items, item)
	if !ok {
		return "", fmt.Errorf("item %q is not in the catalog (try: bdsplayers items %s)", item, item)
	}
	return it.Token, nil
}

func enqueue(cmd *cobra.Command, path string, commands []string) error {
	if err := queue.Open(path).Enqueue(commands...); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, c := range commands {
		fmt.Fprintf(out, "queued: %s\n", c)
	}
	return nil
}
