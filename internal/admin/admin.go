// Package admin turns an operator's selection into Bedrock console commands,
// one per selected player.
package admin

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrNoPlayers      = errors.New("no players selected")
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalid        = errors.New("invalid argument")
)

// Request carries the command name, the selected players and whatever the
// command needs. Fields a command does not use are ignored.
type Request struct {
	Command string   `json:"command"`
	Players []string `json:"players"`

	// teleport
	Destination    string `json:"destination,omitempty"`
	CheckForBlocks bool   `json:"check_for_blocks,omitempty"`

	// gamemode: a name or its numeric code
	Gamemode string `json:"gamemode,omitempty"`

	// effect; Effect "clear" removes all effects
	Effect    string `json:"effect,omitempty"`
	Duration  int    `json:"duration,omitempty"`
	Amplifier int    `json:"amplifier,omitempty"`

	// enchant; zero levels are skipped
	Category string         `json:"category,omitempty"`
	Levels   map[string]int `json:"levels,omitempty"`

	// give; zero quantity means 1
	Item     string `json:"item,omitempty"`
	Quantity int    `json:"quantity,omitempty"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Build validates req and returns the commands to relay, in player order.
func Build(req Request) ([]string, error) {
	players, err := cleanPlayers(req.Players)
	if err != nil {
		return nil, err
	}

	command := strings.ToLower(strings.TrimSpace(req.Command))
	switch {
	case isSimple(command):
		return each(players, func(p string) []string { return []string{command + " " + p} }), nil
	case command == "teleport":
		return teleport(req, players)
	case command == "gamemode":
		return gamemode(req, players)
	case command == "effect":
		return effect(req, players)
	case command == "enchant":
		return enchant(req, players)
	case command == "give":
		return give(req, players)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, req.Command)
}

func cleanPlayers(in []string) ([]string, error) {
	var out []string
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.ContainsAny(p, "\r\n") {
			return nil, invalid("player name %q spans lines", p)
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, ErrNoPlayers
	}
	return out, nil
}

func each(players []string, fn func(player string) []string) []string {
	var out []string
	for _, p := range players {
		out = append(out, fn(p)...)
	}
	return out
}

func singleToken(what, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", invalid("%s is required", what)
	}
	if strings.ContainsAny(v, "\r\n") {
		return "", invalid("%s spans lines", what)
	}
	return v, nil
}

func teleport(req Request, players []string) ([]string, error) {
	dest, err := singleToken("destination", req.Destination)
	if err != nil {
		return nil, err
	}
	check := strconv.FormatBool(req.CheckForBlocks)
	return each(players, func(p string) []string {
		return []string{fmt.Sprintf("teleport %s %s %s", p, dest, check)}
	}), nil
}

// ParseGamemode accepts a gamemode name in any case or its numeric code.
func ParseGamemode(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, g := range gamemodes {
		if s == g.Name || s == strconv.Itoa(g.Code) {
			return g.Code, nil
		}
	}
	return 0, invalid("unknown gamemode %q", s)
}

func gamemode(req Request, players []string) ([]string, error) {
	code, err := ParseGamemode(req.Gamemode)
	if err != nil {
		return nil, err
	}
	return each(players, func(p string) []string {
		return []string{fmt.Sprintf("gamemode %d %s", code, p)}
	}), nil
}

func effect(req Request, players []string) ([]string, error) {
	name := strings.ToLower(strings.TrimSpace(req.Effect))
	if name == "clear" {
		return each(players, func(p string) []string { return []string{"effect " + p + " clear"} }), nil
	}
	if !isEffect(name) {
		return nil, invalid("unknown effect %q", req.Effect)
	}
	if req.Duration < 1 || req.Duration > 1000 {
		return nil, invalid("duration %d outside 1-1000", req.Duration)
	}
	if req.Amplifier < 0 || req.Amplifier > 255 {
		return nil, invalid("amplifier %d outside 0-255", req.Amplifier)
	}
	return each(players, func(p string) []string {
		return []string{fmt.Sprintf("effect %s %s %d %d", p, name, req.Duration, req.Amplifier)}
	}), nil
}

func enchant(req Request, players []string) ([]string, error) {
	cat, ok := category(strings.ToLower(strings.TrimSpace(req.Category)))
	if !ok {
		return nil, invalid("unknown item category %q", req.Category)
	}

	levels := make(map[string]int, len(req.Levels))
	for name, level := range req.Levels {
		levels[strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")] = level
	}
	for name := range levels {
		found := false
		for _, e := range cat.Enchantments {
			if e.Name == name {
				found = true
				break
			}
		}
		if !found {
			return nil, invalid("enchantment %q does not apply to %s", name, cat.Name)
		}
	}

	// Table order keeps the output stable regardless of map iteration.
	var selected []string
	for _, e := range cat.Enchantments {
		level, ok := levels[e.Name]
		if !ok || level == 0 {
			continue
		}
		if level < 0 || level > e.MaxLevel {
			return nil, invalid("%s level %d outside 1-%d", e.Name, level, e.MaxLevel)
		}
		selected = append(selected, fmt.Sprintf("%s %d", e.Name, level))
	}
	if len(selected) == 0 {
		return nil, invalid("no enchantment levels selected")
	}

	return each(players, func(p string) []string {
		out := make([]string, len(selected))
		for i, s := range selected {
			out[i] = "enchant " + p + " " + s
		}
		return out
	}), nil
}

func give(req Request, players []string) ([]string, error) {
	item, err := singleToken("item", req.Item)
	if err != nil {
		return nil, err
	}
	if strings.ContainsAny(item, " \t") {
		return nil, invalid("item token %q contains spaces", item)
	}
	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 1 {
		return nil, invalid("quantity %d must be at least 1", qty)
	}
	return each(players, func(p string) []string {
		return []string{fmt.Sprintf("give %s %s %d", p, item, qty)}
	}), nil
}
