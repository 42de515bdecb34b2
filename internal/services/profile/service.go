package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/glyphlab/emoji-maker/internal/models"
	"github.com/glyphlab/emoji-maker/pkg/database"
)

var ErrProfileNotFound = errors.New("profile not found")

type Service struct {
	db database.PgxPool
}

func NewService(db database.PgxPool) *Service {
	return &Service{db: db}
}

// EnsureProfile creates the default profile for a user on first contact and
// returns it. The insert is an upsert against the primary key, so repeated
// calls never duplicate or mutate an existing row.
func (s *Service) EnsureProfile(ctx context.Context, userID string) (*models.Profile, error) {
	_, err := s.db.Exec(ctx,
		`INSERT INTO profiles (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return s.GetProfile(ctx, userID)
}

// GetProfile fetches a profile by its identity key.
func (s *Service) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	p := &models.Profile{}
	err := s.db.QueryRow(ctx,
		`SELECT user_id, credits, tier, created_at FROM profiles WHERE user_id = $1`,
		userID,
	).Scan(&p.UserID, &p.Credits, &p.Tier, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	return p, nil
}
