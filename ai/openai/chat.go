package openai

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/lorebase/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ChatStreamer implements ai.ChatStreamer using OpenAI-compatible chat APIs.
type ChatStreamer struct {
	client llms.Model
	logger *slog.Logger
}

// newChatStreamer is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newChatStreamer(config *ai.Config) (*ChatStreamer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(config.Token),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &ChatStreamer{
		client: client,
		logger: slog.Default().With("component", "openai-chat"),
	}, nil
}

// NewChatStreamer creates a new streaming chat client using the provided
// configuration.
//
// Returns ai.ChatStreamer interface to enforce abstraction.
func NewChatStreamer(config *ai.Config) (ai.ChatStreamer, error) {
	return newChatStreamer(config)
}

// errStreamStopped marks a consumer-initiated stop so it can be separated
// from model failures after GenerateContent returns.
var errStreamStopped = errors.New("stream consumer stopped")

// StreamChat generates a completion for the assembled prompt, delivering
// fragments through fn as they arrive from the model.
func (c *ChatStreamer) StreamChat(ctx context.Context, turns []ai.ChatTurn, fn ai.StreamFunc) (string, error) {
	content := make([]llms.MessageContent, 0, len(turns))
	for _, turn := range turns {
		content = append(content, llms.MessageContent{
			Role:  messageType(turn.Role),
			Parts: []llms.ContentPart{llms.TextPart(turn.Content)},
		})
	}

	var (
		full    strings.Builder
		stopped bool
	)
	_, err := c.client.GenerateContent(ctx, content,
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			if len(chunk) == 0 || stopped {
				return nil
			}
			fragment := string(chunk)
			full.WriteString(fragment)
			if fn != nil {
				if err := fn(ctx, fragment); err != nil {
					stopped = true
					return errStreamStopped
				}
			}
			return nil
		}))

	if err != nil {
		if stopped || errors.Is(err, errStreamStopped) {
			c.logger.Debug("generation stopped by consumer", "buffered", full.Len())
			return full.String(), nil
		}
		c.logger.Error("chat generation failed", "err", err)
		return full.String(), err
	}

	return full.String(), nil
}

func messageType(role string) llms.ChatMessageType {
	switch role {
	case ai.RoleSystem:
		return llms.ChatMessageTypeSystem
	case ai.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
