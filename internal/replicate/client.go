// Package replicate is a minimal client for the Replicate predictions API,
// pinned to the sdxl-emoji model family the generator uses.
package replicate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://api.replicate.com/v1"

var (
	// ErrUnexpectedOutput means the API answered but not with the ordered
	// list of image URLs the model contract promises.
	ErrUnexpectedOutput = errors.New("unexpected output shape from replicate")
	ErrPredictionFailed = errors.New("prediction failed")
)

type Client struct {
	http         *resty.Client
	version      string
	pollInterval time.Duration
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  *string         `json:"error"`
}

func NewClient(token, version string) *Client {
	httpClient := resty.New().
		SetBaseURL(defaultBaseURL).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:         httpClient,
		version:      version,
		pollInterval: 2 * time.Second,
	}
}

// SetBaseURL points the client at a different API endpoint. Used by tests
// and self-hosted gateways.
func (c *Client) SetBaseURL(baseURL string) *Client {
	c.http.SetBaseURL(baseURL)
	return c
}

// GenerateEmoji runs one prediction for the given prompt and returns the
// produced images as byte slices, in generation order.
func (c *Client) GenerateEmoji(ctx context.Context, prompt string) ([][]byte, error) {
	var pred prediction
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Prefer", "wait=60").
		SetBody(map[string]any{
			"version": c.version,
			"input": map[string]any{
				"prompt":          prompt,
				"apply_watermark": false,
			},
		}).
		SetResult(&pred).
		Post("/predictions")
	if err != nil {
		return nil, fmt.Errorf("create prediction: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("create prediction: %s: %s", resp.Status(), resp.String())
	}

	final, err := c.waitForPrediction(ctx, &pred)
	if err != nil {
		return nil, err
	}

	// The sdxl-emoji model outputs an ordered array of image URLs;
	// anything else breaks the provider contract.
	var urls []string
	if err := json.Unmarshal(final.Output, &urls); err != nil {
		return nil, ErrUnexpectedOutput
	}

	images := make([][]byte, 0, len(urls))
	for _, url := range urls {
		data, err := c.download(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("download image: %w", err)
		}
		images = append(images, data)
	}
	return images, nil
}

// waitForPrediction polls until the prediction reaches a terminal state.
// The "Prefer: wait" header usually makes this a no-op.
func (c *Client) waitForPrediction(ctx context.Context, pred *prediction) (*prediction, error) {
	for {
		switch pred.Status {
		case "succeeded":
			return pred, nil
		case "failed", "canceled":
			msg := pred.Status
			if pred.Error != nil {
				msg = *pred.Error
			}
			return nil, fmt.Errorf("%w: %s", ErrPredictionFailed, msg)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		var next prediction
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&next).
			Get("/predictions/" + pred.ID)
		if err != nil {
			return nil, fmt.Errorf("poll prediction: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("poll prediction: %s", resp.Status())
		}
		pred = &next
	}
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status %s", resp.Status())
	}
	return resp.Body(), nil
}
