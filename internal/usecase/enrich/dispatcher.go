package enrich

import (
	"context"
	"errors"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	apperrors "github.com/lftm-team/meeting-enrichment/errors"
	"github.com/lftm-team/meeting-enrichment/internal/domain/entities"
	"github.com/lftm-team/meeting-enrichment/pkg/ai"
)

// Retry policy for generation calls. Three attempts total with exponential
// waits growing from 0.5s, capped at 5s.
const (
	maxAttempts      = 3
	retryInitialWait = 500 * time.Millisecond
	retryMaxWait     = 5 * time.Second
)

// dispatch runs the primary generation call under the retry policy. Only
// classified provider failures are retried; anything else aborts
// immediately. When the budget is exhausted the last classified failure is
// wrapped in an UpstreamError together with the attempt count and total
// elapsed time.
func (s *service) dispatch(ctx context.Context, kind entities.SchemaKind, in ai.PromptInputs, requestID string) (*entities.GenerationResult, error) {
	var (
		result  *entities.GenerationResult
		lastErr *apperrors.ProviderError
	)
	attempts := 0
	start := time.Now()

	callFn := func() error {
		attempts++
		res, err := s.client.Generate(ctx, kind, in)
		if err == nil {
			result = res
			return nil
		}
		if !apperrors.IsRetryable(err) {
			return backoff.Permanent(err)
		}

		var pe *apperrors.ProviderError
		errors.As(err, &pe)
		lastErr = pe
		if s.logger != nil {
			s.logger.Warn("generation attempt failed",
				zap.String("request_id", requestID),
				zap.String("schema", string(kind)),
				zap.Int("attempt", attempts),
				zap.String("classification", string(pe.Class)),
				zap.Error(err),
			)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialWait
	bo.MaxInterval = retryMaxWait
	bo.MaxElapsedTime = 0
	bo.Multiplier = 2
	bo.RandomizationFactor = 0

	err := backoff.Retry(callFn, backoff.WithContext(backoff.WithMaxRetries(bo, maxAttempts-1), ctx))
	elapsed := time.Since(start)

	if err == nil {
		s.metrics.RecordOpenAIRequest(result.Model, "success")
		s.metrics.RecordOpenAITokens(result.Model, result.Usage.PromptTokens, result.Usage.CompletionTokens, result.Usage.TotalTokens)
		return result, nil
	}

	if lastErr == nil {
		// Non-retryable failure, surfaced unchanged.
		return nil, err
	}

	if s.logger != nil {
		s.logger.Error("generation failed after all attempts",
			zap.String("request_id", requestID),
			zap.String("schema", string(kind)),
			zap.Int("attempts", attempts),
			zap.Duration("elapsed", elapsed),
			zap.String("classification", string(lastErr.Class)),
			zap.Error(lastErr),
		)
	}
	s.metrics.RecordOpenAIRequest(s.model, "error")
	s.metrics.RecordOpenAIError(string(lastErr.Class))

	return nil, &apperrors.UpstreamError{Last: lastErr, Attempts: attempts, Elapsed: elapsed}
}
