// Package verify gives candidate emails an advisory deliverability status.
package verify

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/idna"

	"github.com/octobees/leads-discovery/internal/entity"
	"github.com/octobees/leads-discovery/internal/logging"
)

var (
	emailPattern = regexp.MustCompile(`^[a-z0-9._%+\-']+@[a-z0-9.-]+\.[a-z]{2,}$`)
	idnaProfile  = idna.Lookup
)

const defaultLookupTimeout = 3 * time.Second

// DNSResolver abstracts MX lookups to simplify testing.
type DNSResolver interface {
	LookupMX(ctx context.Context, domain string) ([]*net.MX, error)
}

// Validator checks syntax, IDNA form and MX presence. Definitive MX answers
// are cached per domain; timeouts and server failures are retried next time.
type Validator struct {
	resolver DNSResolver
	timeout  time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	domain map[string]bool
}

// Option configures a Validator.
type Option func(*Validator)

// WithDNSResolver overrides the default system resolver.
func WithDNSResolver(resolver DNSResolver) Option {
	return func(v *Validator) {
		if resolver != nil {
			v.resolver = resolver
		}
	}
}

// WithLookupTimeout bounds every MX lookup.
func WithLookupTimeout(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// New builds a validator using the system resolver unless overridden.
func New(logger *zap.Logger, opts ...Option) *Validator {
	v := &Validator{
		resolver: systemDNSResolver{},
		timeout:  defaultLookupTimeout,
		logger:   logging.OrNop(logger).Named("verify"),
		domain:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Check returns the status of address. It never fails; lookup errors read as no_mx.
func (v *Validator) Check(ctx context.Context, address string) entity.EmailStatus {
	email := strings.ToLower(strings.TrimSpace(address))
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return entity.EmailStatusInvalid
	}
	asciiDomain, err := idnaProfile.ToASCII(email[at+1:])
	if err != nil || asciiDomain == "" || !isDomainValid(asciiDomain) {
		return entity.EmailStatusInvalid
	}
	if !emailPattern.MatchString(email[:at] + "@" + asciiDomain) {
		return entity.EmailStatusInvalid
	}
	if v.HasMX(ctx, asciiDomain) {
		return entity.EmailStatusMXOK
	}
	return entity.EmailStatusNoMX
}

// HasMX reports whether domain publishes MX records. A domain that does not
// exist or has no MX answer is remembered as lacking them.
func (v *Validator) HasMX(ctx context.Context, domain string) bool {
	v.mu.Lock()
	ok, cached := v.domain[domain]
	v.mu.Unlock()
	if cached {
		return ok
	}

	lookupCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	records, err := v.resolver.LookupMX(lookupCtx, domain)
	if err != nil && ctx.Err() != nil {
		// The caller went away; do not remember a verdict we never reached.
		return false
	}
	ok = err == nil && len(records) > 0
	if err != nil && !notFound(err) {
		v.logger.Debug("mx lookup failed", zap.String("domain", domain), zap.Error(err))
		return false
	}

	v.mu.Lock()
	v.domain[domain] = ok
	v.mu.Unlock()
	return ok
}

func notFound(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsNotFound
}

func isDomainValid(domain string) bool {
	if strings.Count(domain, ".") == 0 {
		return false
	}
	for _, part := range strings.Split(domain, ".") {
		if part == "" || strings.HasPrefix(part, "-") || strings.HasSuffix(part, "-") {
			return false
		}
	}
	return true
}

type systemDNSResolver struct{}

func (systemDNSResolver) LookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	return net.DefaultResolver.LookupMX(ctx, domain)
}
