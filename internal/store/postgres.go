package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/playcallout/callout/internal/models"
)

// Postgres is the database-backed Mirror. Hands are stored as JSONB
// since the engine never queries inside them.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a pool and ensures the mirror tables exist.
// The caller is responsible for calling Close().
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	p := &Postgres{pool: pool}
	if err := p.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	q := `
	CREATE TABLE IF NOT EXISTS game_sessions (
		id         UUID PRIMARY KEY,
		host_id    UUID NOT NULL,
		host_name  TEXT NOT NULL,
		referee_id UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS session_players (
		session_id   UUID NOT NULL REFERENCES game_sessions(id) ON DELETE CASCADE,
		player_id    UUID NOT NULL,
		display_name TEXT NOT NULL,
		status       TEXT NOT NULL,
		is_host      BOOLEAN NOT NULL DEFAULT FALSE,
		hand         JSONB NOT NULL DEFAULT '[]'::jsonb,
		joined_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (session_id, player_id)
	);
	`
	if _, err := p.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("ensure mirror schema: %w", err)
	}
	return nil
}

func (p *Postgres) CreateSession(ctx context.Context, sessionID, hostID uuid.UUID, hostName string) error {
	q := `
	INSERT INTO game_sessions (id, host_id, host_name) VALUES ($1, $2, $3)
	ON CONFLICT (id) DO NOTHING;
	`
	if _, err := p.pool.Exec(ctx, q, sessionID, hostID, hostName); err != nil {
		return fmt.Errorf("mirror create session: %w", err)
	}
	return nil
}

func (p *Postgres) InitializePlayer(ctx context.Context, sessionID, playerID uuid.UUID, displayName string, isHost bool) error {
	q := `
	INSERT INTO session_players (session_id, player_id, display_name, status, is_host)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (session_id, player_id)
	DO UPDATE SET display_name = $3, status = $4, is_host = $5;
	`
	_, err := p.pool.Exec(ctx, q, sessionID, playerID, displayName, string(models.PlayerStatusActive), isHost)
	if err != nil {
		return fmt.Errorf("mirror initialize player: %w", err)
	}
	return nil
}

func (p *Postgres) UpdatePlayerStatus(ctx context.Context, sessionID, playerID uuid.UUID, status string) error {
	q := `UPDATE session_players SET status = $3 WHERE session_id = $1 AND player_id = $2;`
	tag, err := p.pool.Exec(ctx, q, sessionID, playerID, status)
	if err != nil {
		return fmt.Errorf("mirror update player status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mirror: player %s not found in session %s", playerID, sessionID)
	}
	return nil
}

func (p *Postgres) UpdatePlayerHand(ctx context.Context, sessionID, playerID uuid.UUID, hand []*models.Card) error {
	blob, err := json.Marshal(hand)
	if err != nil {
		return fmt.Errorf("mirror marshal hand: %w", err)
	}
	q := `UPDATE session_players SET hand = $3 WHERE session_id = $1 AND player_id = $2;`
	if _, err := p.pool.Exec(ctx, q, sessionID, playerID, blob); err != nil {
		return fmt.Errorf("mirror update player hand: %w", err)
	}
	return nil
}

func (p *Postgres) UpdateRefereeCard(ctx context.Context, sessionID, playerID uuid.UUID) error {
	q := `UPDATE game_sessions SET referee_id = $2 WHERE id = $1;`
	if _, err := p.pool.Exec(ctx, q, sessionID, playerID); err != nil {
		return fmt.Errorf("mirror update referee: %w", err)
	}
	return nil
}

func (p *Postgres) GetPlayersInSession(ctx context.Context, sessionID uuid.UUID) ([]PlayerRecord, error) {
	q := `
	SELECT player_id, display_name, status, is_host
	FROM session_players WHERE session_id = $1 ORDER BY joined_at;
	`
	rows, err := p.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("mirror query players: %w", err)
	}
	defer rows.Close()

	var out []PlayerRecord
	for rows.Next() {
		var rec PlayerRecord
		if err := rows.Scan(&rec.UID, &rec.DisplayName, &rec.Status, &rec.IsHost); err != nil {
			return nil, fmt.Errorf("mirror scan player: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
