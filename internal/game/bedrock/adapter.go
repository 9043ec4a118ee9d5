// Package bedrock recognises Bedrock Dedicated Server console output.
package bedrock

import (
	"regexp"
	"strings"

	"github.com/reedfamily/bdspanel/internal/game"
)

func init() {
	game.Register(&Adapter{})
}

type Adapter struct{}

// Connect names end at the first comma ("Player connected: Steve, xuid: 123").
// Disconnect names run to a comma or end of line.
var (
	connectRe    = regexp.MustCompile(`Player connected: ([^,]+),`)
	disconnectRe = regexp.MustCompile(`Player disconnected: ([^,]+)`)
)

func (a *Adapter) Game() string { return "bedrock" }

func (a *Adapter) ParseLogLine(line string) *game.LogEvent {
	line = strings.TrimRight(line, "\r\n")
	if m := connectRe.FindStringSubmatch(line); m != nil {
		return &game.LogEvent{Type: game.EventConnect, Player: m[1]}
	}
	if m := disconnectRe.FindStringSubmatch(line); m != nil {
		return &game.LogEvent{Type: game.EventDisconnect, Player: m[1]}
	}
	if strings.Contains(line, " ERROR]") {
		return &game.LogEvent{Type: game.EventError, Message: line}
	}
	return nil
}

func (a *Adapter) StopCommand() string { return "stop" }
