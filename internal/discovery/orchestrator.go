// Package discovery sequences the collector, pattern engine and contact
// resolver for one request and streams what they find.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/octobees/leads-discovery/internal/collector"
	"github.com/octobees/leads-discovery/internal/contact"
	"github.com/octobees/leads-discovery/internal/entity"
	"github.com/octobees/leads-discovery/internal/intent"
	"github.com/octobees/leads-discovery/internal/llm"
	"github.com/octobees/leads-discovery/internal/logging"
	"github.com/octobees/leads-discovery/internal/metrics"
	"github.com/octobees/leads-discovery/internal/pattern"
	"github.com/octobees/leads-discovery/internal/result"
	"github.com/octobees/leads-discovery/internal/session"
)

const (
	DefaultTargetCount = 10
	MaxTargetCount     = 100

	eventBuffer      = 32
	finalizeTimeout  = 5 * time.Second
	defaultFetchWait = 10 * time.Second
)

// ErrNoModel is the terminal failure when no inference provider credential is configured.
var ErrNoModel = llm.ErrNoModel

// Request starts one discovery.
type Request struct {
	Query       string
	TargetCount int
	// Origin is the caller's network address, used to default the location.
	Origin string
}

// Dependencies are the collaborators of the orchestrator. Model may be nil,
// in which case every request fails. Validator and Metrics are optional.
type Dependencies struct {
	Stores    Stores
	Model     llm.Model
	Intent    *intent.Resolver
	Sessions  session.Manager
	Collector *collector.Collector
	Patterns  *pattern.Engine
	Contacts  *contact.Resolver
	Validator EmailChecker
	Metrics   *metrics.Recorder
}

// Config tunes the orchestrator.
type Config struct {
	InterCompanyDelay time.Duration
	FetchTimeout      time.Duration
}

// Orchestrator runs discovery requests. It holds no per-request state and is
// safe for concurrent use.
type Orchestrator struct {
	deps   Dependencies
	cfg    Config
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithSleep replaces the inter-company sleeper.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.sleep = fn
		}
	}
}

// WithClock replaces the time source used for request timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New builds an orchestrator.
func New(deps Dependencies, cfg Config, logger *zap.Logger, opts ...Option) *Orchestrator {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchWait
	}
	o := &Orchestrator{
		deps:   deps,
		cfg:    cfg,
		logger: logging.OrNop(logger).Named("discovery"),
		sleep:  sleepContext,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// StartDiscovery runs the pipeline in the background. The returned channel
// carries the request's events in causal order and is closed when the run
// ends. Unless ctx is cancelled, the last event is exactly one of complete or
// error. A cancelled run stops without a terminal event.
func (o *Orchestrator) StartDiscovery(ctx context.Context, req Request) <-chan Event {
	out := make(chan Event, eventBuffer)
	target := req.TargetCount
	if target <= 0 {
		target = DefaultTargetCount
	}
	target = min(target, MaxTargetCount)

	r := &run{
		o:   o,
		ctx: ctx,
		out: out,
		record: entity.DiscoveryRequest{
			ID:          uuid.New(),
			Query:       strings.TrimSpace(req.Query),
			TargetCount: target,
			Status:      entity.RequestStatusRunning,
			StartedAt:   o.now().UTC(),
		},
		origin: req.Origin,
	}
	r.logger = o.logger.With(zap.String("request_id", r.record.ID.String()))

	go func() {
		defer close(out)
		r.execute()
	}()
	return out
}

type run struct {
	o        *Orchestrator
	ctx      context.Context
	out      chan<- Event
	origin   string
	record   entity.DiscoveryRequest
	logger   *zap.Logger
	finished sync.Once
	aborted  bool
}

func (r *run) execute() {
	o := r.o
	o.deps.Metrics.RequestStarted()
	if err := o.deps.Stores.Requests.Create(r.ctx, &r.record); err != nil {
		r.logger.Warn("record discovery request", zap.Error(err))
	}

	if _, ok := settle(r, StageCompanies, requireModel(o.deps.Model)); !ok {
		return
	}

	resolution := o.deps.Intent.Resolve(r.ctx, r.record.Query, r.origin)
	r.record.SearchTerm = resolution.SearchTerm
	r.record.ResolvedLocation = resolution.Location

	if !r.status(StageCompanies, "Searching for %s in %s", resolution.SearchTerm, resolution.Location) {
		r.cancelled()
		return
	}
	companies := r.collect(resolution)
	if r.ctx.Err() != nil {
		r.cancelled()
		return
	}

	if len(companies) > 0 {
		if !r.status(StagePatterns, "Inferring email patterns for %d companies", len(companies)) {
			r.cancelled()
			return
		}
		patterns := r.inferPatterns(companies)
		if r.ctx.Err() != nil {
			r.cancelled()
			return
		}

		if !r.status(StageContacts, "Finding contacts at %d companies", len(companies)) {
			r.cancelled()
			return
		}
		r.resolveContacts(companies, patterns)
		if r.aborted {
			return
		}
		if r.ctx.Err() != nil {
			r.cancelled()
			return
		}
	} else {
		r.warn(StageCompanies, "no companies with a usable website were found for %q", r.record.Query)
	}

	r.finish(entity.RequestStatusCompleted, nil)
	r.status(StageComplete, "Discovery complete")
	r.emit(Event{Type: EventComplete, Counts: &Counts{
		CompaniesFound:  r.record.CompaniesFound,
		ContactsFound:   r.record.ContactsFound,
		EmailsGenerated: r.record.EmailsGenerated,
	}})
}

func (r *run) collect(resolution intent.Resolution) []entity.Company {
	o := r.o
	scope := session.Acquire(r.ctx, o.deps.Sessions, r.logger, session.WithFetchTimeout(o.cfg.FetchTimeout))
	defer scope.Close(r.ctx)

	var companies []entity.Company
	summary, err := o.deps.Collector.Collect(r.ctx, scope, collector.Request{
		Term:     resolution.SearchTerm,
		Location: resolution.Location,
		Target:   r.record.TargetCount,
		OnSkip: func(page int, reason string) {
			r.warn(StageCompanies, "page %d: %s", page, reason)
		},
	}, func(c entity.Company) bool {
		persisted, err := o.deps.Stores.Companies.UpsertByDomain(r.ctx, []entity.Company{c})
		if err != nil || len(persisted) == 0 {
			r.warn(StageCompanies, "could not save %s: %v", c.Name, storeError(err))
			return false
		}
		company := persisted[0]
		companies = append(companies, company)
		r.record.CompaniesFound++
		o.deps.Metrics.CompanyFound()
		r.emit(Event{Type: EventCompanyFound, Company: &company})
		return true
	})
	if err != nil && r.ctx.Err() == nil {
		r.warn(StageCompanies, "company collection stopped early: %v", err)
	}

	r.logger.Info("company collection finished",
		zap.String("stop_reason", string(summary.StopReason)),
		zap.Int("pages", summary.Pages),
		zap.Int("listings", summary.Observed),
		zap.Int("rejected", summary.Rejected),
		zap.Int("companies", len(companies)))
	return companies
}

// inferPatterns returns a pattern for every company, reusing stored ones and
// inferring the rest in one batch.
func (r *run) inferPatterns(companies []entity.Company) map[uuid.UUID]entity.EmailPattern {
	o := r.o
	ids := make([]uuid.UUID, len(companies))
	for i, c := range companies {
		ids[i] = c.ID
	}

	byCompany := make(map[uuid.UUID]entity.EmailPattern, len(companies))
	existing, err := o.deps.Stores.Patterns.GetByCompanyIDs(r.ctx, ids)
	if err != nil {
		r.warn(StagePatterns, "could not load stored patterns: %v", err)
	}
	for _, p := range existing {
		byCompany[p.CompanyID] = p
	}

	var subjects []pattern.Subject
	for _, c := range companies {
		if _, ok := byCompany[c.ID]; ok {
			continue
		}
		if r.ctx.Err() != nil {
			return byCompany
		}
		subjects = append(subjects, pattern.Subject{Company: c, Evidence: o.deps.Patterns.Evidence(r.ctx, c)})
	}
	if len(subjects) == 0 {
		return byCompany
	}

	inferred := o.deps.Patterns.InferBatch(r.ctx, subjects)
	if r.ctx.Err() != nil {
		return byCompany
	}
	saved, err := o.deps.Stores.Patterns.Upsert(r.ctx, inferred)
	if err != nil {
		r.warn(StagePatterns, "could not save inferred patterns: %v", err)
		saved = inferred
	}
	for _, p := range saved {
		byCompany[p.CompanyID] = p
		o.deps.Metrics.PatternInferred(string(p.Source))
		companyID := p.CompanyID
		confidence := p.Confidence
		r.emit(Event{
			Type:       EventPatternGenerated,
			CompanyID:  &companyID,
			Pattern:    p.Template,
			Confidence: &confidence,
		})
	}
	return byCompany
}

// resolveContacts visits companies one at a time. A failure at one company is
// reported and the next company is attempted.
func (r *run) resolveContacts(companies []entity.Company, patterns map[uuid.UUID]entity.EmailPattern) {
	o := r.o
	for i, company := range companies {
		if i > 0 {
			if err := o.sleep(r.ctx, o.cfg.InterCompanyDelay); err != nil {
				return
			}
		}
		if r.ctx.Err() != nil {
			return
		}

		known, err := o.deps.Stores.Contacts.ListByCompany(r.ctx, company.ID, nil)
		if err != nil {
			r.warn(StageContacts, "could not load known contacts for %s: %v", company.Name, err)
			continue
		}

		p, ok := patterns[company.ID]
		if !ok {
			p = entity.EmailPattern{
				CompanyID:  company.ID,
				Template:   pattern.Fallback(company.NormalizedDomain).String(),
				Confidence: pattern.FallbackConfidence,
				Source:     entity.PatternSourceFallback,
			}
		}

		res := o.deps.Contacts.Resolve(r.ctx, company, p, known)
		if r.ctx.Err() != nil {
			return
		}
		found, ok := settle(r, StageContacts, res)
		if r.aborted {
			return
		}
		if !ok {
			continue
		}
		for _, resolved := range found {
			r.saveContact(company, resolved)
		}
	}
}

func (r *run) saveContact(company entity.Company, resolved contact.Resolved) {
	o := r.o
	saved, err := o.deps.Stores.Contacts.UpsertByIdentity(r.ctx, []entity.Contact{resolved.Contact})
	if err != nil || len(saved) == 0 {
		r.warn(StageContacts, "could not save contact %s at %s: %v", resolved.Contact.FirstName, company.Name, storeError(err))
		return
	}
	c := saved[0]

	emails := make([]entity.CandidateEmail, 0, len(resolved.Emails))
	for _, e := range resolved.Emails {
		e.ContactID = c.ID
		if o.deps.Validator != nil {
			e.Status = o.deps.Validator.Check(r.ctx, e.Address)
		}
		if _, err := o.deps.Stores.Emails.Upsert(r.ctx, e); err != nil {
			r.logger.Warn("save candidate email",
				zap.String("address", e.Address),
				zap.String("contact_id", c.ID.String()),
				zap.Error(err))
			continue
		}
		emails = append(emails, e)
	}

	r.record.ContactsFound++
	r.record.EmailsGenerated += len(emails)
	o.deps.Metrics.ContactFound(len(emails))
	r.emit(Event{Type: EventContactFound, Contact: &c, Emails: emails})
}

// emit delivers ev unless the consumer has gone away.
func (r *run) emit(ev Event) bool {
	if r.ctx.Err() != nil {
		return false
	}
	select {
	case r.out <- ev:
		return true
	case <-r.ctx.Done():
		return false
	}
}

func (r *run) status(stage Stage, format string, args ...any) bool {
	return r.emit(Event{Type: EventStatus, Stage: stage, Message: fmt.Sprintf(format, args...)})
}

func (r *run) warn(stage Stage, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.o.deps.Metrics.Warning(string(stage))
	r.logger.Warn("discovery warning", zap.String("stage", string(stage)), zap.String("message", msg))
	r.emit(Event{Type: EventWarning, Stage: stage, Message: msg})
}

func requireModel(m llm.Model) result.Result[llm.Model] {
	if m == nil {
		return result.Fatal[llm.Model](ErrNoModel)
	}
	return result.Ok(m)
}

// settle routes a stage outcome. Skip becomes a warning and Fatal ends the run.
func settle[T any](r *run, stage Stage, res result.Result[T]) (T, bool) {
	switch res.Kind() {
	case result.KindOk:
		return res.Value(), true
	case result.KindFatal:
		r.aborted = true
		r.fail(res.Err())
	default:
		r.warn(stage, "%s", res.Reason())
	}
	var zero T
	return zero, false
}

func (r *run) fail(err error) {
	if r.ctx.Err() != nil {
		r.cancelled()
		return
	}
	r.logger.Error("discovery failed", zap.Error(err))
	r.finish(entity.RequestStatusFailed, err)
	r.status(StageError, "Discovery failed")
	r.emit(Event{Type: EventError, Message: err.Error()})
}

func (r *run) cancelled() {
	r.logger.Info("discovery cancelled by caller")
	r.finish(entity.RequestStatusCancelled, nil)
}

// finish records the final state of the request. Only the first call has any effect.
func (r *run) finish(status entity.RequestStatus, cause error) {
	r.finished.Do(func() {
		now := r.o.now().UTC()
		r.record.Status = status
		r.record.FinishedAt = &now
		if cause != nil {
			msg := cause.Error()
			r.record.Error = &msg
		}

		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.ctx), finalizeTimeout)
		defer cancel()
		if err := r.o.deps.Stores.Requests.Finalize(ctx, &r.record); err != nil {
			r.logger.Warn("finalize discovery request", zap.Error(err))
		}
		r.o.deps.Metrics.RequestFinished(string(status), r.record.StartedAt)
		r.logger.Info("discovery finished",
			zap.String("status", string(status)),
			zap.Int("companies", r.record.CompaniesFound),
			zap.Int("contacts", r.record.ContactsFound),
			zap.Int("emails", r.record.EmailsGenerated))
	})
}

func storeError(err error) error {
	if err == nil {
		return errors.New("store returned no rows")
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
