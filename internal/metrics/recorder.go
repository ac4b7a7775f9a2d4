package metrics

// Recorder adapts the package collectors to the value the enrichment
// pipeline takes as its recorder.
type Recorder struct{}

func (Recorder) RecordOpenAIRequest(model, status string) { RecordOpenAIRequest(model, status) }

func (Recorder) RecordOpenAIError(errorType string) { RecordOpenAIError(errorType) }

func (Recorder) RecordOpenAITokens(model string, promptTokens, completionTokens, totalTokens int) {
	RecordOpenAITokens(model, promptTokens, completionTokens, totalTokens)
}

func (Recorder) RecordRepairAttempt(status string) { RecordRepairAttempt(status) }

func (Recorder) RecordExtractionDuration(seconds float64) { RecordExtractionDuration(seconds) }
