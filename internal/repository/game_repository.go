package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/iliyamo/mancala/internal/model"
)

// GameRepo provides data access to the games table.  Rows are written once
// when a game ends and never updated.
type GameRepo struct {
	db *sql.DB
}

func NewGameRepo(db *sql.DB) *GameRepo { return &GameRepo{db: db} }

// Create inserts g, filling in ID and PublicID.  The public id is generated
// here when the caller leaves it empty.
func (r *GameRepo) Create(ctx context.Context, g *model.Game) error {
	if g.PublicID == "" {
		g.PublicID = uuid.NewString()
	}
	var userID any
	if g.UserID != nil {
		userID = *g.UserID
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO games (public_id, user_id, source, final_board, p1_score, p2_score, margin, winner)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.PublicID, userID, g.Source, g.FinalBoard, g.P1Score, g.P2Score, g.Margin, g.Winner)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = uint64(id)
	return nil
}

// ListByUser returns the user's games, newest first.  A non-positive limit
// defaults to 20.
func (r *GameRepo) ListByUser(ctx context.Context, userID uint64, limit int) ([]model.Game, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, public_id, user_id, source, final_board, p1_score, p2_score, margin, winner, created_at
		 FROM games WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	games := []model.Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// Stats aggregates every recorded game.
func (r *GameRepo) Stats(ctx context.Context) (model.GameStats, error) {
	var (
		s   model.GameStats
		avg sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(winner = 'HUMAN'), 0),
		        COALESCE(SUM(winner = 'AI'), 0),
		        COALESCE(SUM(winner = 'DRAW'), 0),
		        AVG(margin)
		 FROM games`).Scan(&s.Total, &s.HumanWins, &s.AIWins, &s.Draws, &avg)
	if err != nil {
		return s, err
	}
	s.AverageMargin = avg.Float64
	return s, nil
}
