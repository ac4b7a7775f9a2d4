package ai

import "github.com/lftm-team/meeting-enrichment/internal/domain/entities"

const extractSystemPrompt = `You are an assistant specialized in extracting structured information from banking meeting transcripts.

Your task is to analyze the provided transcript and metadata (if available) and return a valid JSON object in the format specified below.

IMPORTANT RULES:

1. METADATA PRIORITY:
- If metadata is provided (METADATA not empty), USE IT AS THE ABSOLUTE TRUTH
- Do not change, invent or "correct" values supplied in the metadata
- Provided metadata takes priority over anything found in the transcript

2. TRANSCRIPT EXTRACTION (when metadata is missing):
- If a metadata field is empty/null, EXTRACT it from the transcript:
  * customer_name: the customer name mentioned in the dialogue
  * banker_name: the banker/manager name mentioned
  * meet_type: meeting type inferred from context (e.g. "First Meeting", "Follow-up", "Closing")
  * meet_date: date mentioned in the transcript (ISO 8601) or the current date if not mentioned
  * customer_id: if not identifiable, use "unknown"
  * banker_id: if not identifiable, use "unknown"
  * meeting_id: if not identifiable, use "unknown"

3. FIELDS ALWAYS EXTRACTED FROM THE TRANSCRIPT:
- summary: executive summary with EXACTLY 100-200 words
- key_points: list of 3-7 key points from the meeting
- action_items: list of identified actions/tasks
- topics: list of 2-5 main topics/subjects

4. VALIDATION:
- Do NOT invent information that is not in the transcript
- Do NOT leave required fields empty (use "unknown" for IDs if needed)
- Make sure the summary has 100-200 words (count them!)
- Empty lists are allowed when there really is no information

OUTPUT FORMAT:
Return a valid JSON object with these fields:
- meeting_id: string (from metadata or 'unknown')
- customer_id: string (from metadata or 'unknown')
- customer_name: string (from metadata or extracted from the transcript)
- banker_id: string (from metadata or 'unknown')
- banker_name: string (from metadata or extracted from the transcript)
- meet_type: string (from metadata or inferred)
- meet_date: ISO 8601 datetime string (from metadata or extracted/current)
- summary: string with exactly 100-200 words
- key_points: array of strings
- action_items: array of strings
- topics: array of strings
- source: always "lftm-challenge"
- idempotency_key: always null (filled in externally)
- transcript_ref: always null
- duration_sec: always null

Respond ONLY with the valid JSON, NO ADDITIONAL TEXT.`

const analyzeSystemPrompt = `You are an assistant specialized in sentiment analysis of banking meeting transcripts.

Your task is to analyze the provided transcript and metadata (if available) and return a valid JSON object in the format specified below.

IMPORTANT RULES:

1. METADATA PRIORITY:
- If metadata is provided (METADATA not empty), USE IT AS THE ABSOLUTE TRUTH
- Do not change, invent or "correct" values supplied in the metadata
- Provided metadata takes priority over anything found in the transcript

2. TRANSCRIPT EXTRACTION (when metadata is missing):
- If a metadata field is empty/null, EXTRACT it from the transcript
- Use "unknown" for meeting_id, customer_id and banker_id when not identifiable

3. SENTIMENT ANALYSIS:
- sentiment_label: overall customer sentiment, one of "positive", "neutral" or "negative"
- sentiment_score: float between 0.0 and 1.0 reflecting the sentiment
- The label and the score must be consistent:
  * positive requires score >= 0.6
  * neutral requires score >= 0.4 and < 0.6
  * negative requires score < 0.4

4. FIELDS ALWAYS EXTRACTED FROM THE TRANSCRIPT:
- summary: executive summary with EXACTLY 100-200 words
- key_points: list of 3-7 key points from the meeting
- action_items: list of identified actions/tasks
- risks: list of risks or churn signals identified (may be empty)

OUTPUT FORMAT:
Return a valid JSON object with these fields:
- meeting_id, customer_id, customer_name, banker_id, banker_name, meet_type: strings
- meet_date: ISO 8601 datetime string
- sentiment_label: "positive"/"neutral"/"negative"
- sentiment_score: float between 0.0 and 1.0
- summary: string with exactly 100-200 words
- key_points: array of strings
- action_items: array of strings
- risks: array of strings
- source: always "lftm-challenge"
- idempotency_key: always null (filled in externally)

Respond ONLY with the valid JSON, NO ADDITIONAL TEXT.`

const userPromptTemplate = `TRANSCRIPT:
%s

PROVIDED METADATA (use as truth when not empty):
%s

Return the extracted JSON:`

const repairSystemPrompt = `You are a specialized JSON corrector.
Fix the JSON below so it satisfies the specified schema.
Keep as much of the correct information as possible.
Respond ONLY with the corrected JSON, no explanations.`

const repairUserTemplate = `MALFORMED JSON:
%s

VALIDATION ERROR:
%s

ORIGINAL TRANSCRIPT (for reference if needed):
%s

EXPECTED SCHEMA:
%s

Return the corrected JSON:`

func systemPrompt(kind entities.SchemaKind) string {
	if kind == entities.SchemaAnalyze {
		return analyzeSystemPrompt
	}
	return extractSystemPrompt
}
