package generation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"sync"
	"time"

	"github.com/nfnt/resize"
	"github.com/rs/zerolog"

	"github.com/glyphlab/emoji-maker/pkg/database"
)

var (
	ErrEmptyPrompt = errors.New("prompt must not be empty")
	// ErrNothingPersisted means the provider produced images but every
	// single one failed to upload or insert.
	ErrNothingPersisted = errors.New("no generated image could be persisted")
)

// Fixed stylistic prefix the sdxl-emoji model was fine-tuned on.
const promptPrefix = "A TOK emoji of "

// Generated images come back at 1024px; they get downscaled to emoji-ish
// size before hitting storage.
const maxImageDimension = 512

// Generator produces images for a prompt. Implemented by replicate.Client.
type Generator interface {
	GenerateEmoji(ctx context.Context, prompt string) ([][]byte, error)
}

// ObjectStore persists a blob and returns its public URL. Implemented by
// storage.Store.
type ObjectStore interface {
	Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
	Remove(ctx context.Context, objectName string) error
}

type Service struct {
	db        database.PgxPool
	store     ObjectStore
	generator Generator
	timeout   time.Duration
}

func NewService(db database.PgxPool, store ObjectStore, generator Generator, timeout time.Duration) *Service {
	return &Service{
		db:        db,
		store:     store,
		generator: generator,
		timeout:   timeout,
	}
}

// Result of one generation request. URLs keep the provider's generation
// order; Failed counts images that came back but could not be persisted.
type Result struct {
	URLs   []string
	Failed int
}

// Generate runs the full workflow: call the inference provider, then upload
// each returned image and insert its catalog row. Per-image failures are
// isolated -- one broken upload never aborts its siblings.
func (s *Service) Generate(ctx context.Context, userID, prompt string) (*Result, error) {
	if userID == "" {
		return nil, errors.New("user id must not be empty")
	}
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	images, err := s.generator.GenerateEmoji(genCtx, promptPrefix+prompt)
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}
	if len(images) == 0 {
		return &Result{URLs: []string{}}, nil
	}

	logger := zerolog.Ctx(ctx)

	// Object names embed the creator and a nanosecond stamp so bursts from
	// the same user never collide.
	stamp := time.Now().UnixNano()

	// Each image's upload+insert is independent; run them concurrently,
	// bounded by the handful of images one prediction yields.
	urls := make([]string, len(images))
	var wg sync.WaitGroup
	for i, img := range images {
		wg.Add(1)
		go func(i int, data []byte) {
			defer wg.Done()

			objectName := fmt.Sprintf("%s_%d_%d.png", userID, stamp, i)
			url, err := s.persistImage(ctx, objectName, data, prompt, userID)
			if err != nil {
				logger.Error().Err(err).
					Str("userId", userID).
					Str("object", objectName).
					Msg("Failed to persist generated image")
				return
			}
			urls[i] = url
		}(i, img)
	}
	wg.Wait()

	// Compact, preserving generation order
	result := &Result{URLs: []string{}}
	for _, url := range urls {
		if url == "" {
			result.Failed++
			continue
		}
		result.URLs = append(result.URLs, url)
	}

	if len(result.URLs) == 0 {
		return nil, ErrNothingPersisted
	}
	return result, nil
}

// persistImage uploads one image and inserts its catalog row. The uploaded
// object is removed again if the insert fails, so storage and catalog stay
// in step.
func (s *Service) persistImage(ctx context.Context, objectName string, data []byte, prompt, userID string) (string, error) {
	processed := s.processImage(data)

	url, err := s.store.Upload(ctx, objectName, processed, "image/png")
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}

	var id int64
	err = s.db.QueryRow(ctx,
		`INSERT INTO emojis (image_url, prompt, creator_user_id) VALUES ($1, $2, $3) RETURNING id`,
		url, prompt, userID,
	).Scan(&id)
	if err != nil {
		if rmErr := s.store.Remove(ctx, objectName); rmErr != nil {
			zerolog.Ctx(ctx).Warn().Err(rmErr).Str("object", objectName).Msg("Failed to clean up orphaned object")
		}
		return "", fmt.Errorf("catalog insert: %w", err)
	}

	return url, nil
}

// processImage downscales oversized model output and re-encodes it as PNG.
// Bytes that don't decode are stored as-is rather than dropped.
func (s *Service) processImage(data []byte) []byte {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}

	bounds := img.Bounds()
	if bounds.Dx() <= maxImageDimension && bounds.Dy() <= maxImageDimension {
		return data
	}

	img = resize.Thumbnail(maxImageDimension, maxImageDimension, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return data
	}
	return buf.Bytes()
}
