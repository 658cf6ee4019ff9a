package main

// Room phases
const (
	phaseLobby    = "lobby"
	phaseActive   = "active"
	phaseFinished = "finished"
)

// Log entry kinds
const (
	entrySystem = "system"
	entryPlayer = "player"
	entryChat   = "chat"
)

// LogEntry is one line of a room's message log.
type LogEntry struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Role string `json:"role,omitempty"`
	Name string `json:"name,omitempty"`
	Text string `json:"text"`
}

// PlayerView is the client-visible slice of a player slot. The concealed
// animal identity deliberately has no field here; it never crosses the
// serialization boundary.
type PlayerView struct {
	Name      string  `json:"name"`
	HP        float64 `json:"hp"`
	CanAct    bool    `json:"canAct"`
	Connected bool    `json:"connected"`
}

// RoomSnapshot is the state view broadcast after every mutating action.
// Messages are trimmed to the most recent snapshotMessageCap entries.
type RoomSnapshot struct {
	Phase        string                `json:"phase"`
	CurrentTurn  string                `json:"currentTurn,omitempty"`
	Items        []string              `json:"items"`
	Letters      []string              `json:"letters"`
	BrokenItems  []string              `json:"brokenItems"`
	DoorUnlocked bool                  `json:"doorUnlocked"`
	Players      map[string]PlayerView `json:"players"`
	Messages     []LogEntry            `json:"messages"`
}

// ClientMessage covers every inbound action.
type ClientMessage struct {
	Type     string `json:"type"`               // "createRoom", "joinRoom", "startGame", "sendKeyword", "tryEscape", "sendMessage", "reconnect", "leaveRoom"
	Name     string `json:"name,omitempty"`     // createRoom / joinRoom
	RoomID   string `json:"roomId,omitempty"`   // joinRoom / reconnect
	Keyword  string `json:"keyword,omitempty"`  // sendKeyword
	Password string `json:"password,omitempty"` // tryEscape
	Text     string `json:"text,omitempty"`     // sendMessage
}

// RoomEventMessage is the common outbound envelope: "roomCreated",
// "joinedRoom", "playerJoined", "playerLeft", "gameStarted",
// "gameStateUpdate", "escapeSuccess", "playerDisconnected",
// "playerReconnected".
type RoomEventMessage struct {
	Type      string        `json:"type"`
	RoomID    string        `json:"roomId,omitempty"`
	Role      string        `json:"role,omitempty"`
	GameState *RoomSnapshot `json:"gameState,omitempty"`
}

// ErrorMessage is sent only to the connection whose action failed.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}
