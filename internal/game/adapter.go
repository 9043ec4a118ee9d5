package game

// Log event types produced by adapters.
const (
	EventConnect    = "player_connect"
	EventDisconnect = "player_disconnect"
	EventChat       = "chat"
	EventError      = "error"
)

// GameAdapter provides game-specific behavior for a server type.
type GameAdapter interface {
	// Game returns the game identifier (e.g., "bedrock", "java")
	Game() string

	// ParseLogLine extracts a structured event from a console line, or nil.
	// Connect records must be recognised before disconnect records.
	ParseLogLine(line string) *LogEvent

	// StopCommand returns the graceful stop command for the server
	StopCommand() string
}

type LogEvent struct {
	Type    string
	Player  string
	Message string
}
