package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/wisy/internal/logger"
	"go.uber.org/zap"
)

// Chain tries generators in order. It moves to the next generator only when
// the previous one failed with a retryable error.
type Chain struct {
	generators []Generator
	logger     *zap.Logger
}

func NewChain(logger *zap.Logger, generators ...Generator) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{generators: generators, logger: logger}
}

func (c *Chain) Generate(ctx context.Context, conversation []Message) (string, error) {
	if len(c.generators) == 0 {
		return "", errors.New("no generators configured")
	}

	var lastErr error
	for i, g := range c.generators {
		log := logger.WithFields(c.logger, zap.String("model", g.Model()), zap.Int("position", i))

		text, err := g.Generate(ctx, conversation)
		if err == nil {
			if i > 0 {
				log.Info("fallback model answered")
			}
			return text, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			log.Warn("generator failed with permanent error", zap.Error(err))
			return "", err
		}

		log.Warn("generator failed, trying next model", zap.Error(err))
	}

	return "", fmt.Errorf("all models failed: %w", lastErr)
}

// Model returns the chain's models joined by ">".
func (c *Chain) Model() string {
	models := make([]string, 0, len(c.generators))
	for _, g := range c.generators {
		models = append(models, g.Model())
	}
	return strings.Join(models, ">")
}
