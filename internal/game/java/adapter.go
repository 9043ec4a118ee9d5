// Package java reads Minecraft Java Edition consoles, vanilla and Paper.
package java

import (
	"regexp"
	"strings"

	"github.com/reedfamily/bdspanel/internal/game"
)

func init() {
	game.Register(&Adapter{})
}

type Adapter struct{}

// Vanilla prints "[12:00:00] [Server thread/INFO]: "; Paper prints
// "[12:00:00 INFO]: ".
const infoPrefix = `^\[[^\]]+\] \[Server thread/INFO\]: |^\[[0-9:]+ INFO\]: `

var (
	joinRe  = regexp.MustCompile(`(?:` + infoPrefix + `)(\w{1,16}) joined the game$`)
	leaveRe = regexp.MustCompile(`(?:` + infoPrefix + `)(\w{1,16}) left the game$`)
	chatRe  = regexp.MustCompile(`(?:` + infoPrefix + `)<(\w{1,16})> (.+)$`)
	errorRe = regexp.MustCompile(`^\[[^\]]+\] \[[^\]]*/(?:ERROR|FATAL)\]|^\[[0-9:]+ (?:ERROR|FATAL)\]`)
)

func (a *Adapter) Game() string { return "java" }

func (a *Adapter) ParseLogLine(line string) *game.LogEvent {
	line = strings.TrimRight(line, "\r")
	if m := joinRe.FindStringSubmatch(line); m != nil {
		return &game.LogEvent{Type: game.EventConnect, Player: m[1]}
	}
	if m := leaveRe.FindStringSubmatch(line); m != nil {
		return &game.LogEvent{Type: game.EventDisconnect, Player: m[1]}
	}
	if m := chatRe.FindStringSubmatch(line); m != nil {
		return &game.LogEvent{Type: game.EventChat, Player: m[1], Message: m[2]}
	}
	if errorRe.MatchString(line) {
		return &game.LogEvent{Type: game.EventError, Message: line}
	}
	return nil
}

func (a *Adapter) StopCommand() string { return "stop" }
