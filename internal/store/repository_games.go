package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

func (s *Store) CreateGameRecord(ctx context.Context, rec GameRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = NewID()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO games (id, player_x, player_o, phase, winner, turn)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.PlayerX, rec.PlayerO, rec.Phase, rec.Winner, rec.Turn)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (s *Store) UpdateGameRecord(ctx context.Context, rec GameRecord) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE games SET player_o = $2, phase = $3, winner = $4, turn = $5, updated_at = $6
		 WHERE id = $1`,
		rec.ID, rec.PlayerO, rec.Phase, rec.Winner, rec.Turn, time.Now())
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) FindGameRecord(ctx context.Context, id string) (*GameRecord, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, player_x, player_o, phase, winner, turn, created_at, updated_at
		 FROM games WHERE id = $1`, id)
	return scanGameRecord(row)
}

// FindActiveGameRecordFor returns the newest non-terminal game containing the
// identity as either seat, or ErrNotFound.
func (s *Store) FindActiveGameRecordFor(ctx context.Context, identity string) (*GameRecord, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, player_x, player_o, phase, winner, turn, created_at, updated_at
		 FROM games
		 WHERE (player_x = $1 OR player_o = $1) AND phase IN ($2, $3)
		 ORDER BY created_at DESC
		 LIMIT 1`, identity, PhaseWaiting, PhaseActive)
	return scanGameRecord(row)
}

func scanGameRecord(row *sql.Row) (*GameRecord, error) {
	var r GameRecord
	if err := row.Scan(&r.ID, &r.PlayerX, &r.PlayerO, &r.Phase, &r.Winner, &r.Turn, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}
