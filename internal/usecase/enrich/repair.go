package enrich

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	apperrors "github.com/lftm-team/meeting-enrichment/errors"
	"github.com/lftm-team/meeting-enrichment/internal/domain/entities"
	"github.com/lftm-team/meeting-enrichment/pkg/ai"
)

// repair sends the payload that failed validation back to the model exactly
// once, with the violation verbatim and a truncated transcript for context.
// The call runs under the repair timeout, which is shorter than the primary
// one; overrunning it is terminal and reported as RepairTimeout.
func (s *service) repair(ctx context.Context, kind entities.SchemaKind, result *entities.GenerationResult, violation *apperrors.SchemaViolation, normalized entities.NormalizedInput, requestID string) (*entities.GenerationResult, error) {
	if s.logger != nil {
		s.logger.Warn("attempting to repair invalid payload",
			zap.String("request_id", requestID),
			zap.String("schema", string(kind)),
			zap.String("violation", violation.Error()),
		)
	}

	malformed := result.RawContent
	if result.Payload != nil {
		if b, err := json.MarshalIndent(result.Payload, "", "  "); err == nil {
			malformed = string(b)
		}
	}

	repaired, err := s.client.Repair(ctx, ai.RepairInputs{
		MalformedJSON:     malformed,
		ErrorMessage:      violation.Error(),
		TranscriptPreview: sanitizeTranscript(normalized.Transcript, transcriptPreviewChars),
		SchemaDescription: schemaDescription(kind),
	}, ai.WithTimeout(s.repairTimeout))
	if err != nil {
		var pe *apperrors.ProviderError
		if errors.As(err, &pe) && pe.Class == apperrors.ClassTimeout {
			if s.logger != nil {
				s.logger.Error("repair call timed out",
					zap.String("request_id", requestID),
					zap.Duration("timeout", s.repairTimeout),
				)
			}
			return nil, &apperrors.RepairTimeout{Timeout: s.repairTimeout}
		}
		return nil, err
	}

	s.metrics.RecordOpenAITokens(repaired.Model, repaired.Usage.PromptTokens, repaired.Usage.CompletionTokens, repaired.Usage.TotalTokens)
	return repaired, nil
}
