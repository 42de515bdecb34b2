package models

import "time"

// Profile tracks the credit balance and tier for an identity-provider user.
// The user id is opaque: it is whatever the provider put in the token subject.
type Profile struct {
	UserID    string    `json:"user_id" db:"user_id"`
	Credits   int       `json:"credits" db:"credits"`
	Tier      string    `json:"tier" db:"tier"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Emoji is the catalog row for one generated image. The blob itself lives in
// object storage; ImageURL is its public address and never changes once set.
type Emoji struct {
	ID            int64     `json:"id" db:"id"`
	ImageURL      string    `json:"image_url" db:"image_url"`
	Prompt        string    `json:"prompt" db:"prompt"`
	CreatorUserID string    `json:"creator_user_id" db:"creator_user_id"`
	LikesCount    int64     `json:"likes_count" db:"likes_count"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`

	// Liked is computed per viewer at read time, not stored.
	Liked bool `json:"liked" db:"-"`
}

// EmojiLike is a (user, emoji) edge; presence means "this user likes this
// emoji". The pair is unique at the store.
type EmojiLike struct {
	UserID    string    `json:"user_id" db:"user_id"`
	EmojiID   int64     `json:"emoji_id" db:"emoji_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
