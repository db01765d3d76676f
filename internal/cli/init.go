package cli

import (
	"context"
	"fmt"

	"github.com/fpang/asset-classifier/internal/chat"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// InitGeminiClient creates a Gemini client for apiKey.
func InitGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := chat.NewGeminiClient(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	log.Debug().Msg("Gemini client initialized")
	return client, nil
}
