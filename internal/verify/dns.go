package verify

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/miekg/dns"
)

// ServerResolver queries explicit DNS servers for MX records, trying each in turn.
type ServerResolver struct {
	client  *dns.Client
	servers []string
}

// NewServerResolver builds a resolver for servers given as host:port.
func NewServerResolver(servers []string) (*ServerResolver, error) {
	if len(servers) == 0 {
		return nil, errors.New("at least one dns server is required")
	}
	normalized := make([]string, 0, len(servers))
	for _, s := range servers {
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(s, "53")
		}
		normalized = append(normalized, s)
	}
	return &ServerResolver{client: new(dns.Client), servers: normalized}, nil
}

// LookupMX implements DNSResolver.
func (r *ServerResolver) LookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), dns.TypeMX)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		resp, _, err := r.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.Rcode == dns.RcodeNameError {
			return nil, &net.DNSError{Err: "no such host", Name: domain, Server: server, IsNotFound: true}
		}
		if resp.Rcode != dns.RcodeSuccess {
			lastErr = &net.DNSError{
				Err:         dns.RcodeToString[resp.Rcode],
				Name:        domain,
				Server:      server,
				IsTemporary: resp.Rcode == dns.RcodeServerFailure,
			}
			continue
		}
		var out []*net.MX
		for _, rr := range resp.Answer {
			if mx, ok := rr.(*dns.MX); ok {
				out = append(out, &net.MX{Host: mx.Mx, Pref: mx.Preference})
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("mx %s: %w", domain, lastErr)
}

var _ DNSResolver = (*ServerResolver)(nil)
