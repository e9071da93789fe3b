package models

// PlayerStatus is the lifecycle label of a participant as seen by clients.
type PlayerStatus string

const (
	PlayerStatusInLobby      PlayerStatus = "in_lobby"
	PlayerStatusReady        PlayerStatus = "ready"
	PlayerStatusInGame       PlayerStatus = "in_game"
	PlayerStatusIdle         PlayerStatus = "idle"
	PlayerStatusDisconnected PlayerStatus = "disconnected"
)
