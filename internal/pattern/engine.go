// Package pattern infers the email naming convention used at a company.
package pattern

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/octobees/leads-discovery/internal/entity"
	"github.com/octobees/leads-discovery/internal/llm"
	"github.com/octobees/leads-discovery/internal/logging"
	"github.com/octobees/leads-discovery/internal/search"
)

const (
	// FallbackConfidence is assigned to the deterministic fallback pattern.
	FallbackConfidence = 0.25
	// DefaultModelConfidence is used when the model omits a confidence.
	DefaultModelConfidence = 0.6
	// MinModelConfidence keeps every inferred pattern above the fallback.
	MinModelConfidence = 0.3

	defaultBatchSize    = 10
	maxEvidenceSnippets = 3
	noEvidenceMarker    = "none"
)

// Subject is a company together with its gathered evidence.
type Subject struct {
	Company  entity.Company
	Evidence string
}

// Engine infers email patterns.
type Engine struct {
	model     llm.Model
	search    search.Aggregator
	batchSize int
	logger    *zap.Logger
}

// Option customises an Engine.
type Option func(*Engine)

// WithBatchSize sets how many companies share one inference call.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// NewEngine builds an engine. search may be nil, in which case no evidence is gathered.
func NewEngine(model llm.Model, agg search.Aggregator, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		model:     model,
		search:    agg,
		batchSize: defaultBatchSize,
		logger:    logging.OrNop(logger).Named("pattern"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evidence searches for mentions of the company's address format. It is
// best-effort and returns an empty string when nothing useful is found.
func (e *Engine) Evidence(ctx context.Context, company entity.Company) string {
	domain := company.NormalizedDomain
	if e.search == nil || domain == "" {
		return ""
	}
	results, err := e.search.Query(ctx, fmt.Sprintf(`"@%s" email format`, domain))
	if err != nil {
		e.logger.Debug("evidence search failed", zap.String("domain", domain), zap.Error(err))
		return ""
	}

	var snippets []string
	for _, r := range results {
		text := strings.TrimSpace(r.Snippet)
		if text == "" || !strings.Contains(strings.ToLower(text), domain) {
			continue
		}
		snippets = append(snippets, text)
		if len(snippets) == maxEvidenceSnippets {
			break
		}
	}
	return strings.Join(snippets, " | ")
}

// Infer returns exactly one pattern for the company. A failed inference
// yields the fallback pattern.
func (e *Engine) Infer(ctx context.Context, company entity.Company, evidence string) entity.EmailPattern {
	return e.InferBatch(ctx, []Subject{{Company: company, Evidence: evidence}})[0]
}

// InferBatch infers patterns for many companies, sharing inference calls.
// The output is aligned with subjects.
func (e *Engine) InferBatch(ctx context.Context, subjects []Subject) []entity.EmailPattern {
	out := make([]entity.EmailPattern, len(subjects))
	for start := 0; start < len(subjects); start += e.batchSize {
		end := min(start+e.batchSize, len(subjects))
		answers, err := e.ask(ctx, subjects[start:end])
		if err != nil {
			e.logger.Warn("pattern inference failed, using fallback",
				zap.Int("companies", end-start), zap.Error(err))
		}
		for i := start; i < end; i++ {
			out[i] = e.build(subjects[i], answers[i-start])
		}
	}
	return out
}

type patternAnswer struct {
	Index      int     `json:"index"`
	Template   string  `json:"template"`
	Confidence float64 `json:"confidence"`
}

type batchAnswer struct {
	Patterns []patternAnswer `json:"patterns"`
}

var batchSchema = llm.Schema{
	Name:        "email_patterns",
	Description: "One email address template per company",
	JSON: json.RawMessage(`{
  "type": "object",
  "properties": {
    "patterns": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "index": {"type": "integer"},
          "template": {"type": "string", "description": "Local part using firstname, lastname, f, l and . _ - separators"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1}
        },
        "required": ["index", "template", "confidence"],
        "additionalProperties": false
      }
    }
  },
  "required": ["patterns"],
  "additionalProperties": false
}`),
}

const patternSystem = `You infer the email address convention used by companies.
Templates use only the placeholders firstname, lastname, f (first initial) and l (last initial),
optionally joined by ".", "_" or "-". Examples: firstname.lastname, flastname, firstname, f.lastname.
Return exactly one template per company index. Use lower confidence when there is no evidence.`

// ask returns one answer slot per subject; slots are nil where the model gave nothing usable.
func (e *Engine) ask(ctx context.Context, subjects []Subject) ([]*patternAnswer, error) {
	slots := make([]*patternAnswer, len(subjects))
	if e.model == nil {
		return slots, fmt.Errorf("no inference model configured")
	}

	var b strings.Builder
	for i, s := range subjects {
		evidence := strings.TrimSpace(s.Evidence)
		if evidence == "" {
			evidence = noEvidenceMarker
		}
		fmt.Fprintf(&b, "%d. name: %s\n   domain: %s\n   evidence: %s\n", i, s.Company.Name, s.Company.NormalizedDomain, evidence)
	}

	answer, err := llm.Decode[batchAnswer](ctx, e.model, llm.Request{
		System: patternSystem,
		Prompt: b.String(),
		Schema: batchSchema,
	})
	if err != nil {
		return slots, err
	}
	for _, p := range answer.Patterns {
		if p.Index < 0 || p.Index >= len(slots) || slots[p.Index] != nil {
			continue
		}
		slots[p.Index] = &p
	}
	return slots, nil
}

var localPartOnly = regexp.MustCompile(`@.*$`)

func (e *Engine) build(s Subject, answer *patternAnswer) entity.EmailPattern {
	domain := s.Company.NormalizedDomain
	pattern := entity.EmailPattern{
		CompanyID:     s.Company.ID,
		SourceSnippet: s.Evidence,
	}

	if answer != nil {
		tmpl, err := Bind(localPartOnly.ReplaceAllString(answer.Template, ""), domain)
		if err == nil {
			pattern.Template = tmpl.String()
			pattern.Confidence = clampConfidence(answer.Confidence)
			pattern.Source = entity.PatternSourceNoEvidence
			if strings.TrimSpace(s.Evidence) != "" {
				pattern.Source = entity.PatternSourceEvidence
			}
			return pattern
		}
		e.logger.Debug("discarding invalid template",
			zap.String("domain", domain), zap.String("template", answer.Template), zap.Error(err))
	}

	pattern.Template = Fallback(domain).String()
	pattern.Confidence = FallbackConfidence
	pattern.Source = entity.PatternSourceFallback
	return pattern
}

func clampConfidence(c float64) float64 {
	switch {
	case c <= 0:
		return DefaultModelConfidence
	case c < MinModelConfidence:
		return MinModelConfidence
	case c > 1:
		return 1
	}
	return c
}
