package collector

import (
	"context"
	"net"
)

// DNSResult is delivered once a DNS lookup (chained on a WHOIS to learn the
// peer's hostname) completes.
type DNSResult struct {
	Nick string
	Hostname string
	Addrs []string
	Err error
}

// DNSRequester receives the completed DNS chain result.
type DNSRequester interface {
	DNSComplete(r DNSResult)
}

// Resolver abstracts host resolution so tests can substitute a fake one
// without touching the real network; *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// DNS chains a WHOIS lookup (to learn the target's hostname) into a
// subsequent address resolution, : "DNS is a sub-requester
// that chains: given a nickname, it first performs WHOIS to obtain host
// name, then resolves the host and returns the address line."
type DNS struct {
	whois *Whois
	resolver Resolver
}

// NewDNS constructs a DNS collector layered on top of an existing Whois
// collector (so DNS lookups share in-flight WHOIS runs with plain WHOIS
// requesters) and a Resolver used for the second, resolution stage.
func NewDNS(whois *Whois, resolver Resolver) *DNS {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &DNS{whois: whois, resolver: resolver}
}

type dnsChain struct {
	nick string
	req DNSRequester
	dns *DNS
}

// Request starts (or joins) a DNS lookup for nick, returning whether the
// caller must send the WHOIS command.
func (d *DNS) Request(nick string, req DNSRequester) (send bool) {
	chain := &dnsChain{nick: nick, req: req, dns: d}
	return d.whois.Request(nick, chain)
}

// WhoisComplete implements WhoisRequester: it's invoked by the Whois
// collector once the chained WHOIS run finishes, and kicks off the second
// (resolution) stage.
func (c *dnsChain) WhoisComplete(r WhoisResult) {
	if !r.Found || r.Info.Hostname == "" {
		c.req.DNSComplete(DNSResult{Nick: c.nick, Err: errNoSuchNick(c.nick)})
		return
	}
	go c.resolve(r.Info.Hostname)
}

func (c *dnsChain) resolve(hostname string) {
	addrs, err := c.dns.resolver.LookupHost(context.Background(), hostname)
	c.req.DNSComplete(DNSResult{Nick: c.nick, Hostname: hostname, Addrs: addrs, Err: err})
}

type noSuchNickError string

func (e noSuchNickError) Error() string { return "no such nick: " + string(e) }

func errNoSuchNick(nick string) error { return noSuchNickError(nick) }
