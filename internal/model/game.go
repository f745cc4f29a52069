package model

import "time"

// Game sources.
const (
	SourceWeb = "web"
	SourceAPI = "api"
)

// Winners as stored in games.winner.
const (
	WinnerHuman = "HUMAN"
	WinnerAI    = "AI"
	WinnerDraw  = "DRAW"
)

// Game represents a finished game as stored in the `games` table.  The
// human always plays Player One, so P1Score is the human's total.
//
// Fields:
//
//	ID         – primary key identifier.
//	PublicID   – uuid exposed through the API.
//	UserID     – player who finished the game (nullable for guests).
//	Source     – "web" or "api".
//	FinalBoard – comma separated bead counts of the final position.
//	P1Score    – beads on Player One's half including the base.
//	P2Score    – beads on Player Two's half including the base.
//	Margin     – P1Score - P2Score.
//	Winner     – HUMAN, AI or DRAW.
//	CreatedAt  – when the game was recorded.
type Game struct {
	ID         uint64    // games.id
	PublicID   string    // games.public_id
	UserID     *uint64   // games.user_id (nullable)
	Source     string    // games.source
	FinalBoard string    // games.final_board
	P1Score    int       // games.p1_score
	P2Score    int       // games.p2_score
	Margin     int       // games.margin
	Winner     string    // games.winner
	CreatedAt  time.Time // games.created_at
}

// GameStats aggregates all recorded games.
type GameStats struct {
	Total         int
	HumanWins     int
	AIWins        int
	Draws         int
	AverageMargin float64
}
