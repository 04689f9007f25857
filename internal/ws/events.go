package ws

import "encoding/json"

// Wire protocol: every frame is a JSON envelope naming the event and
// carrying its payload. Event names and payload shapes are shared with the
// browser client.
const (
	// client -> server
	EventJoin           = "join"
	EventCodeChange     = "codechange"
	EventRunCode        = "runcode"
	EventTabSwitch      = "tabswitch"
	EventLeaveRoom      = "leaveroom"
	EventTyping         = "typing"
	EventLanguageChange = "languagechange"
	EventCompileCode    = "compilecode"

	// server -> room
	EventUserJoined      = "userjoined"
	EventCodeUpdate      = "codeupdate"
	EventCodeExecuted    = "codeexecuted"
	EventTabStatus       = "tabstatus"
	EventUserTyping      = "usertyping"
	EventLanguageUpdate  = "languageupdate"
	EventCodeResponse    = "coderesponse"
	EventExecutionFailed = "executionfailed"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type joinPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
	// Sent by clients replaying a cached session on reload. A rejoin is
	// handled exactly like a fresh join.
	Rejoin bool `json:"rejoin,omitempty"`
}

type codeChangePayload struct {
	RoomID string `json:"roomId"`
	Code   string `json:"code"`
}

type tabSwitchPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
	State    string `json:"state"` // "visible" or "hidden"
}

type tabStatusPayload struct {
	Username string `json:"username"`
	State    string `json:"state"`
}

type typingPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type languageChangePayload struct {
	RoomID   string `json:"roomId"`
	Language string `json:"language"`
}

type compileCodePayload struct {
	RoomID   string `json:"roomId"`
	Code     string `json:"code"`
	Language string `json:"language"`
	Version  string `json:"version"`
}

type executionFailedPayload struct {
	Error string `json:"error"`
}

// encode builds an outbound frame. Payloads are our own types; marshal
// errors cannot occur for them.
func encode(event string, data any) []byte {
	raw, _ := json.Marshal(data)
	b, _ := json.Marshal(envelope{Event: event, Data: raw})
	return b
}
