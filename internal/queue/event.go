// Package queue defines message payloads exchanged over the message broker.
package queue

// GameFinishedQueue is the durable queue game results are published to.
const GameFinishedQueue = "game.finished"

// GameFinishedEvent is published when a game reaches a final position.  It
// carries enough for downstream consumers to log or aggregate results
// without querying the primary database.
type GameFinishedEvent struct {
	GameID     string `json:"game_id"`
	UserID     uint64 `json:"user_id,omitempty"`
	Source     string `json:"source"`
	FinalBoard string `json:"final_board"`
	P1Score    int    `json:"p1_score"`
	P2Score    int    `json:"p2_score"`
	Winner     string `json:"winner"`
	Margin     int    `json:"margin"`
	FinishedAt string `json:"finished_at"`
}
