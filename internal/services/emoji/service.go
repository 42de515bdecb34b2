package emoji

import (
	"context"
	"errors"
	"fmt"

	"github.com/glyphlab/emoji-maker/internal/models"
	"github.com/glyphlab/emoji-maker/pkg/database"
)

var ErrEmojiNotFound = errors.New("emoji not found")

type Service struct {
	db database.PgxPool
}

func NewService(db database.PgxPool) *Service {
	return &Service{db: db}
}

// List returns the whole catalog, newest first. When viewerID is non-empty
// the viewer's own like edges are folded in as a per-emoji Liked flag;
// anonymous callers get the catalog with Liked left false.
func (s *Service) List(ctx context.Context, viewerID string) ([]models.Emoji, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, image_url, prompt, creator_user_id, likes_count, created_at
		FROM emojis
		ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch emojis: %w", err)
	}
	defer rows.Close()

	var emojis []models.Emoji
	for rows.Next() {
		var e models.Emoji
		if err := rows.Scan(&e.ID, &e.ImageURL, &e.Prompt, &e.CreatorUserID, &e.LikesCount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan emoji: %w", err)
		}
		emojis = append(emojis, e)
	}
	// A mid-stream failure must not masquerade as a shorter catalog.
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read emojis: %w", err)
	}

	if viewerID != "" && len(emojis) > 0 {
		liked, err := s.likedByViewer(ctx, viewerID)
		if err != nil {
			return nil, err
		}
		for i := range emojis {
			emojis[i].Liked = liked[emojis[i].ID]
		}
	}

	if emojis == nil {
		emojis = []models.Emoji{}
	}
	return emojis, nil
}

// likedByViewer returns the set of emoji ids the viewer has liked.
func (s *Service) likedByViewer(ctx context.Context, viewerID string) (map[int64]bool, error) {
	rows, err := s.db.Query(ctx,
		`SELECT emoji_id FROM emoji_likes WHERE user_id = $1`, viewerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch likes: %w", err)
	}
	defer rows.Close()

	liked := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan like: %w", err)
		}
		liked[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read likes: %w", err)
	}
	return liked, nil
}

// ToggleLike sets or clears the caller's like edge for an emoji and returns
// the recomputed like count. Liking twice is a no-op thanks to the unique
// (user_id, emoji_id) constraint; unliking something never liked deletes
// zero rows. The count is always a fresh aggregate over the edges, never an
// increment, so concurrent toggles converge on the true cardinality.
func (s *Service) ToggleLike(ctx context.Context, userID string, emojiID int64, like bool) (int64, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM emojis WHERE id = $1)`, emojiID,
	).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("failed to check emoji: %w", err)
	}
	if !exists {
		return 0, ErrEmojiNotFound
	}

	if like {
		_, err = s.db.Exec(ctx,
			`INSERT INTO emoji_likes (user_id, emoji_id) VALUES ($1, $2)
			ON CONFLICT (user_id, emoji_id) DO NOTHING`,
			userID, emojiID,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to add like: %w", err)
		}
	} else {
		_, err = s.db.Exec(ctx,
			`DELETE FROM emoji_likes WHERE user_id = $1 AND emoji_id = $2`,
			userID, emojiID,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to remove like: %w", err)
		}
	}

	var count int64
	err = s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM emoji_likes WHERE emoji_id = $1`, emojiID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`UPDATE emojis SET likes_count = $1 WHERE id = $2`,
		count, emojiID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update like count: %w", err)
	}

	return count, nil
}
