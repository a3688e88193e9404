// Package contact finds people at a company and proposes email addresses for them.
package contact

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/octobees/leads-discovery/internal/entity"
	"github.com/octobees/leads-discovery/internal/llm"
	"github.com/octobees/leads-discovery/internal/logging"
	"github.com/octobees/leads-discovery/internal/pattern"
	"github.com/octobees/leads-discovery/internal/result"
	"github.com/octobees/leads-discovery/internal/scoring"
	"github.com/octobees/leads-discovery/internal/search"
)

const (
	DefaultMaxResults       = 15
	DefaultEmailsPerContact = 4
	maxQueryExclusions      = 10

	ModeTitle = "title"
	ModeModel = "model"
)

// alternateConventions are tried after the company's own pattern.
var alternateConventions = []string{
	"firstname.lastname",
	"flastname",
	"firstname",
	"firstnamelastname",
	"firstname_lastname",
	"f.lastname",
	"firstnamel",
}

// Config tunes the resolver.
type Config struct {
	MaxResults       int
	MinConfidence    float64
	EmailsPerContact int
	Mode             string
}

// Resolved is a contact with its ranked candidate emails.
type Resolved struct {
	Contact    entity.Contact
	Emails     []entity.CandidateEmail
	Confidence float64
}

// Resolver turns search results into contacts.
type Resolver struct {
	search search.Aggregator
	model  llm.Model
	cfg    Config
	logger *zap.Logger
}

// NewResolver builds a resolver. model is only used in ModeModel.
func NewResolver(agg search.Aggregator, model llm.Model, cfg Config, logger *zap.Logger) *Resolver {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = scoring.DefaultFloor
	}
	if cfg.EmailsPerContact <= 0 {
		cfg.EmailsPerContact = DefaultEmailsPerContact
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeTitle
	}
	return &Resolver{search: agg, model: model, cfg: cfg, logger: logging.OrNop(logger).Named("contact")}
}

type candidate struct {
	name    ParsedName
	profile string
	snippet string
	text    string
}

// Resolve finds contacts at company not already present in known. A search
// or extraction failure is returned as Skip with an empty result; model mode
// without a model is Fatal.
func (r *Resolver) Resolve(ctx context.Context, company entity.Company, p entity.EmailPattern, known []entity.Contact) result.Result[[]Resolved] {
	if r.cfg.Mode == ModeModel && r.model == nil {
		return result.Fatal[[]Resolved](llm.ErrNoModel)
	}
	room := r.cfg.MaxResults - len(known)
	if room <= 0 {
		return result.Ok[[]Resolved](nil)
	}

	tmpl, err := pattern.Parse(p.Template)
	if err != nil {
		tmpl = pattern.Fallback(company.NormalizedDomain)
	}

	results, err := r.search.Query(ctx, BuildQuery(company.Name, known))
	if err != nil {
		return result.Skip[[]Resolved]("contact search for %s failed: %v", company.Name, err)
	}

	var candidates []candidate
	if r.cfg.Mode == ModeModel {
		candidates, err = r.extractWithModel(ctx, company, results)
		if err != nil {
			return result.Skip[[]Resolved]("contact extraction for %s failed: %v", company.Name, err)
		}
	} else {
		candidates = extractFromTitles(results)
	}

	seen := newIdentities(known)

	var out []Resolved
	for _, c := range candidates {
		contact := entity.Contact{
			CompanyID:  company.ID,
			FirstName:  c.name.First,
			BioSnippet: c.snippet,
		}
		if c.name.Last != "" {
			last := c.name.Last
			contact.LastName = &last
		}
		if c.profile != "" {
			profile := c.profile
			contact.ProfileURL = &profile
		}
		if c.name.Role != "" {
			role := c.name.Role
			contact.Title = &role
		}
		if seen.contains(contact) {
			continue
		}

		score := scoring.ScoreContact(scoring.ContactFeatures{
			HasFirstName:     contact.FirstName != "",
			HasLastName:      contact.LastName != nil,
			CompanyMentioned: companyMentioned(company.Name, c.text),
			HasProfile:       contact.ProfileURL != nil,
		}, p.Confidence)
		if !scoring.Passes(score.Total, r.cfg.MinConfidence) {
			continue
		}
		seen.add(contact)

		out = append(out, Resolved{
			Contact:    contact,
			Emails:     r.candidateEmails(tmpl, contact, score.Total),
			Confidence: score.Total,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > room {
		out = out[:room]
	}
	r.logger.Debug("contacts resolved",
		zap.String("company", company.Name),
		zap.Int("search_results", len(results)),
		zap.Int("contacts", len(out)))
	return result.Ok(out)
}

// BuildQuery restricts the search to profile pages that mention the company
// and asks the aggregator to leave out profiles already known. The exclusion
// is a hint; Resolve filters known identities itself.
func BuildQuery(companyName string, known []entity.Contact) string {
	var b strings.Builder
	fmt.Fprintf(&b, `site:linkedin.com/in "%s"`, strings.ReplaceAll(strings.TrimSpace(companyName), `"`, ""))
	excluded := 0
	for _, k := range known {
		if excluded == maxQueryExclusions || k.ProfileURL == nil {
			continue
		}
		if slug := profileSlug(ProfileURL(*k.ProfileURL)); slug != "" {
			fmt.Fprintf(&b, " -inurl:%s", slug)
			excluded++
		}
	}
	return b.String()
}

func extractFromTitles(results []search.Result) []candidate {
	var out []candidate
	for _, res := range results {
		profile := ProfileURL(res.Link)
		if profile == "" {
			continue
		}
		name, ok := ParseTitle(res.Title)
		if !ok {
			continue
		}
		out = append(out, candidate{
			name:    name,
			profile: profile,
			snippet: strings.TrimSpace(res.Snippet),
			text:    res.Title + " " + res.Snippet,
		})
	}
	return out
}

var extractionSchema = llm.Schema{
	Name:        "profile_contacts",
	Description: "People named in professional profile search results",
	JSON: json.RawMessage(`{
  "type": "object",
  "properties": {
    "contacts": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "index": {"type": "integer"},
          "first_name": {"type": "string"},
          "last_name": {"type": "string"},
          "title": {"type": "string"},
          "works_at_company": {"type": "boolean"}
        },
        "required": ["index", "first_name", "last_name", "title", "works_at_company"],
        "additionalProperties": false
      }
    }
  },
  "required": ["contacts"],
  "additionalProperties": false
}`),
}

type extractedContact struct {
	Index          int    `json:"index"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Title          string `json:"title"`
	WorksAtCompany bool   `json:"works_at_company"`
}

func (r *Resolver) extractWithModel(ctx context.Context, company entity.Company, results []search.Result) ([]candidate, error) {
	type indexed struct {
		res     search.Result
		profile string
	}
	var usable []indexed
	var b strings.Builder
	for _, res := range results {
		profile := ProfileURL(res.Link)
		if profile == "" {
			continue
		}
		fmt.Fprintf(&b, "%d. title: %s\n   snippet: %s\n", len(usable), res.Title, res.Snippet)
		usable = append(usable, indexed{res: res, profile: profile})
	}
	if len(usable) == 0 {
		return nil, nil
	}

	answer, err := llm.Decode[struct {
		Contacts []extractedContact `json:"contacts"`
	}](ctx, r.model, llm.Request{
		System: "Extract the person each search result is about. Skip results that are not about a single person.",
		Prompt: fmt.Sprintf("Company: %s (%s)\n\n%s", company.Name, company.NormalizedDomain, b.String()),
		Schema: extractionSchema,
	})
	if err != nil {
		return nil, err
	}

	var out []candidate
	for _, c := range answer.Contacts {
		if c.Index < 0 || c.Index >= len(usable) {
			continue
		}
		first, last, ok := parseName(strings.TrimSpace(c.FirstName + " " + c.LastName))
		if !ok {
			continue
		}
		src := usable[c.Index]
		text := src.res.Title + " " + src.res.Snippet
		if c.WorksAtCompany {
			text += " " + company.Name
		}
		out = append(out, candidate{
			name:    ParsedName{First: first, Last: last, Role: strings.TrimSpace(c.Title)},
			profile: src.profile,
			snippet: strings.TrimSpace(src.res.Snippet),
			text:    text,
		})
	}
	return out, nil
}

// candidateEmails applies the company pattern first and common conventions
// after it, keeping only addresses whose confidence reaches the floor.
func (r *Resolver) candidateEmails(primary pattern.Template, c entity.Contact, contactScore float64) []entity.CandidateEmail {
	last := ""
	if c.LastName != nil {
		last = *c.LastName
	}

	templates := []pattern.Template{primary}
	bases := []string{"pattern:" + primary.Local()}
	for _, conv := range alternateConventions {
		if conv == primary.Local() {
			continue
		}
		t, err := pattern.Bind(conv, primary.Domain())
		if err != nil {
			continue
		}
		templates = append(templates, t)
		bases = append(bases, "alternate:"+conv)
	}

	var out []entity.CandidateEmail
	seen := make(map[string]struct{})
	rank := 0
	for i, t := range templates {
		if len(out) == r.cfg.EmailsPerContact {
			break
		}
		address, err := t.Apply(c.FirstName, last)
		if err != nil {
			continue
		}
		if _, dup := seen[address]; dup {
			continue
		}
		seen[address] = struct{}{}
		confidence := scoring.EmailConfidence(contactScore, rank)
		rank++
		if !scoring.Passes(confidence, r.cfg.MinConfidence) {
			break
		}
		out = append(out, entity.CandidateEmail{
			Address:    address,
			Confidence: confidence,
			Basis:      bases[i],
			Status:     entity.EmailStatusUnverified,
		})
	}
	return out
}

// identities tracks contacts already known or already emitted. A profile URL
// outranks the name tuple: two profiles that differ are different people even
// when their names match.
type identities struct {
	profiles map[string]struct{}
	names    map[string]struct{}
	bareName map[string]struct{}
}

func newIdentities(known []entity.Contact) *identities {
	ids := &identities{
		profiles: make(map[string]struct{}),
		names:    make(map[string]struct{}),
		bareName: make(map[string]struct{}),
	}
	for _, k := range known {
		ids.add(k)
	}
	return ids
}

func (ids *identities) add(c entity.Contact) {
	if c.ProfileURL != nil {
		if canon := ProfileURL(*c.ProfileURL); canon != "" {
			c.ProfileURL = &canon
		}
	}
	name := c.NameKey()
	ids.names[name] = struct{}{}
	if key := c.ProfileKey(); key != "" {
		ids.profiles[key] = struct{}{}
		return
	}
	ids.bareName[name] = struct{}{}
}

func (ids *identities) contains(c entity.Contact) bool {
	name := c.NameKey()
	if key := c.ProfileKey(); key != "" {
		if _, ok := ids.profiles[key]; ok {
			return true
		}
		_, ok := ids.bareName[name]
		return ok
	}
	_, ok := ids.names[name]
	return ok
}
