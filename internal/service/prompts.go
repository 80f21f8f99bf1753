package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"compliance-rag/internal/models"
)

const defaultMaxPromptWorkers = 200

// complianceSystemInstruction is used for the retrieval-grounded analysis.
func complianceSystemInstruction() string {
	return `You are an employment-law compliance auditor. You review worker rosters for wage and hour violations and report them in a strict JSON format.

# YOUR ROLE

## Core duties:
1. **Minimum wage**: Compare each worker's hourly-equivalent pay with the applicable minimum
2. **Overtime exposure**: Flag pay structures that hide unpaid overtime
3. **Classification**: Flag contractors whose profile suggests employee status
4. **Recommendations**: Give concrete, prioritised remediation steps

## Working principles:
- **Accuracy first**: Use the JURISDICTION RULES table for rates; do not invent figures
- **Grounding**: When a conclusion relies on a CONTEXT passage, cite it inline as [n], where n is the passage number
- **Cite only what you used**: Never cite a passage that does not support the sentence
- **Structure**: Always answer with a single valid JSON object and nothing else

# HOURLY NORMALISATION
- hourly: rate as is
- monthly: rate / 173.33
- annual: rate / 2080

# FORBIDDEN
- Inventing workers that are not in the roster
- Returning prose outside the JSON object
- Claiming a source supports a finding when it does not`
}

// baselineSystemInstruction is used when no retrieved context is supplied.
func baselineSystemInstruction() string {
	return `You are an employment-law compliance auditor. No supporting documents are available for this review.

# WORKING PRINCIPLES
- Reason from the JURISDICTION RULES table and your own general knowledge of wage and hour law
- Be decisive: when the rule table allows a clear determination, make it; do not answer "insufficient information"
- Use hourly-equivalent pay: monthly / 173.33, annual / 2080
- Do not include citations; there is no context to cite
- Always answer with a single valid JSON object and nothing else`
}

func chatSystemInstruction() string {
	return `You are an HR compliance assistant. Answer the user's question using the numbered CONTEXT passages.

# RULES
- Cite supporting passages inline as [n]
- Synthesise in your own words; keep quotations short and rare
- If the context does not cover the question, say so plainly and answer from general knowledge, marking it as such
- Do not give legal advice beyond what the sources support`
}

// paraphraseInstruction is appended when an answer is regenerated after
// over-citation was detected.
const paraphraseInstruction = `

IMPORTANT: Your previous answer quoted the sources too heavily. Rewrite it in your own words. Paraphrase rather than quote, use at most one short quotation, and cite each passage at most once per paragraph.`

// promptWorker is the reduced worker shape sent to the model.
type promptWorker struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Country        string  `json:"country"`
	State          string  `json:"state,omitempty"`
	Rate           float64 `json:"rate"`
	Currency       string  `json:"currency,omitempty"`
	Scale          string  `json:"scale"`
	Classification string  `json:"classification"`
}

// compactWorkers reduces the roster to the fields the model needs, capped at limit.
func compactWorkers(workers []models.WorkerRecord, limit int) []promptWorker {
	if limit <= 0 {
		limit = defaultMaxPromptWorkers
	}
	if len(workers) > limit {
		workers = workers[:limit]
	}
	out := make([]promptWorker, 0, len(workers))
	for _, w := range workers {
		out = append(out, promptWorker{
			ID:             w.ID,
			Name:           w.Name,
			Country:        w.Location.Country,
			State:          w.Location.State,
			Rate:           w.Compensation.Rate,
			Currency:       w.Compensation.Currency,
			Scale:          string(w.Compensation.Scale),
			Classification: string(w.Classification),
		})
	}
	return out
}

const analysisOutputFormat = `Return exactly one JSON object in this format:
{
  "summary": {
    "overallRiskScore": number 0-100,
    "criticalIssues": number,
    "totalWorkers": number,
    "complianceRate": number 0-100
  },
  "violations": [
    {
      "workerId": "id from the roster",
      "workerName": "name from the roster",
      "violationType": "minimum_wage|overtime|misclassification|other",
      "severity": "critical|high|medium|low",
      "title": "short title",
      "description": "what is wrong, with [n] citations where a source supports it",
      "jurisdiction": "country code, or US-<state>",
      "currentRate": number (hourly, optional),
      "requiredRate": number (hourly, optional),
      "recommendedActions": ["action"]
    }
  ],
  "recommendations": [
    {
      "priority": "high|medium|low",
      "title": "short title",
      "affectedWorkers": number,
      "implementation": "concrete steps"
    }
  ]
}`

// BuildCompliancePrompt renders the user prompt for one analysis run. The
// context block is appended separately by the completion client.
func BuildCompliancePrompt(workers []models.WorkerRecord, totalWorkers int, rules *RuleTable, maxWorkers int) string {
	compact := compactWorkers(workers, maxWorkers)
	workersJSON, err := json.Marshal(compact)
	if err != nil {
		workersJSON = []byte("[]")
	}

	var b strings.Builder
	b.WriteString("Audit the following workforce for wage and hour compliance.\n\n")
	fmt.Fprintf(&b, "TOTAL WORKERS: %d (showing %d)\n\n", totalWorkers, len(compact))
	b.WriteString("JURISDICTION RULES:\n")
	b.WriteString(rules.JSON())
	b.WriteString("\n\nWORKERS:\n")
	b.Write(workersJSON)
	b.WriteString("\n\n")
	b.WriteString(analysisOutputFormat)
	return b.String()
}

// BuildRetrievalQuery turns the roster's jurisdictions into a search query.
func BuildRetrievalQuery(workers []models.WorkerRecord) string {
	countries := make(map[string]struct{})
	states := make(map[string]struct{})
	for _, w := range workers {
		if c := strings.TrimSpace(w.Location.Country); c != "" {
			countries[c] = struct{}{}
		}
		if s := strings.TrimSpace(w.Location.State); s != "" {
			states[s] = struct{}{}
		}
	}

	query := "FLSA minimum wage and overtime rules, worker classification, employment law compliance."
	if len(countries) > 0 {
		query += " Countries: " + strings.Join(sortedKeys(countries), ", ") + "."
	}
	if len(states) > 0 {
		query += " States: " + strings.Join(sortedKeys(states), ", ") + "."
	}
	return query
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
