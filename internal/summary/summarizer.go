// Package summary turns scan findings into a short plain-English report,
// through a completion API when one is configured and from severity counts
// otherwise.
package summary

import (
	"context"

	"github.com/rs/zerolog"

	"shipscan/scanner-api/internal/model"
)

type completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type Summarizer struct {
	client completer
	log    zerolog.Logger
}

// New returns a summarizer. A nil client means every summary is produced by
// Fallback.
func New(client *Client, logger zerolog.Logger) *Summarizer {
	s := &Summarizer{log: logger.With().Str("component", "summary").Logger()}
	if client != nil {
		s.client = client
	}
	return s
}

// FromConfig builds the client only when an API key is present.
func FromConfig(cfg ClientConfig, logger zerolog.Logger) *Summarizer {
	if cfg.APIKey == "" {
		logger.Info().Str("component", "summary").Msg("no completion API key configured, using fallback summaries")
		return New(nil, logger)
	}
	return New(NewClient(cfg), logger)
}

// Enabled reports whether summaries go through the completion API.
func (s *Summarizer) Enabled() bool {
	return s.client != nil
}

// Summarise never fails because of the API. The error is non-nil only when
// ctx has ended.
func (s *Summarizer) Summarise(ctx context.Context, target string, findings []model.Finding) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.client == nil {
		return Fallback(target, findings), nil
	}

	prompt, err := BuildPrompt(target, findings)
	if err != nil {
		s.log.Warn().Err(err).Msg("could not build prompt, using fallback summary")
		return Fallback(target, findings), nil
	}

	text, err := s.client.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		s.log.Warn().Err(err).Str("target", target).Msg("completion API failed, using fallback summary")
		return Fallback(target, findings), nil
	}
	return text, nil
}
