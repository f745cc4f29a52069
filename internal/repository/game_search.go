package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/mancala/internal/model"
)

// GameSearchQuery defines filters & pagination for browsing finished games.
type GameSearchQuery struct {
	Winner   string // HUMAN, AI or DRAW; empty for all
	Source   string // web or api; empty for all
	Page     int
	PageSize int
}

// Search lists recorded games newest first together with the total number
// of matches.
func (r *GameRepo) Search(ctx context.Context, q GameSearchQuery) ([]model.Game, int64, error) {
	where := []string{}
	args := []any{}

	if q.Winner != "" {
		where = append(where, "winner = ?")
		args = append(args, strings.ToUpper(q.Winner))
	}
	if q.Source != "" {
		where = append(where, "source = ?")
		args = append(args, strings.ToLower(q.Source))
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM games WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize

	dataSQL := `SELECT id, public_id, user_id, source, final_board, p1_score, p2_score, margin, winner, created_at
		FROM games
		WHERE ` + cond + `
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Game, 0, limit)
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func scanGame(rows *sql.Rows) (model.Game, error) {
	var (
		g   model.Game
		uid sql.NullInt64
	)
	if err := rows.Scan(&g.ID, &g.PublicID, &uid, &g.Source, &g.FinalBoard,
		&g.P1Score, &g.P2Score, &g.Margin, &g.Winner, &g.CreatedAt); err != nil {
		return g, err
	}
	if uid.Valid {
		v := uint64(uid.Int64)
		g.UserID = &v
	}
	return g, nil
}
