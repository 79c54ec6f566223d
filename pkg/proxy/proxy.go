// Package proxy loads the proxy list and picks a working entry.
//
// The list is a ';' separated file with a header row. ip and port are
// required; every other column names a scheme and holds 1/yes/true when
// the proxy supports it:
//
//	ip;port;http;https;socks4;socks5
//	10.0.0.1;8080;1;1;0;0
package proxy

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	xproxy "golang.org/x/net/proxy"

	"xscraper/pkg/config"
	"xscraper/pkg/logger"
)

// ErrNoProxy is returned when no entry supports the requested scheme.
var ErrNoProxy = errors.New("no usable proxy")

// Entry is one row of the proxy list.
type Entry struct {
	IP      string
	Port    int
	Schemes map[string]bool
}

// Address returns host:port.
func (e Entry) Address() string {
	return net.JoinHostPort(e.IP, strconv.Itoa(e.Port))
}

// Supports reports whether the entry is flagged for scheme.
func (e Entry) Supports(scheme string) bool {
	return e.Schemes[strings.ToLower(scheme)]
}

// URL returns the proxy address in the form the browser launcher expects.
// HTTP proxies are passed as a bare host:port.
func (e Entry) URL(scheme string) string {
	switch strings.ToLower(scheme) {
	case "http", "https", "":
		return e.Address()
	}
	return strings.ToLower(scheme) + "://" + e.Address()
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "yes", "y", "true", "x":
		return true
	}
	return false
}

// Parse reads a proxy list. Rows with an empty ip or a bad port are skipped.
func Parse(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read proxy header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")))
	}
	ipCol, portCol := -1, -1
	for i, h := range header {
		switch h {
		case "ip":
			ipCol = i
		case "port":
			portCol = i
		}
	}
	if ipCol < 0 || portCol < 0 {
		return nil, fmt.Errorf("proxy list needs ip and port columns, got %v", header)
	}

	var entries []Entry
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read proxy list: %w", err)
		}
		if ipCol >= len(row) || portCol >= len(row) {
			continue
		}
		ip := strings.TrimSpace(row[ipCol])
		port, err := strconv.Atoi(strings.TrimSpace(row[portCol]))
		if ip == "" || err != nil || port <= 0 || port > 65535 {
			continue
		}
		e := Entry{IP: ip, Port: port, Schemes: make(map[string]bool)}
		for i, h := range header {
			if i == ipCol || i == portCol || i >= len(row) {
				continue
			}
			e.Schemes[h] = truthy(row[i])
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Load reads the proxy list at path.
func Load(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Filter returns the entries supporting scheme.
func Filter(entries []Entry, scheme string) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Supports(scheme) {
			out = append(out, e)
		}
	}
	return out
}

// Prober checks that a proxy accepts connections.
type Prober interface {
	Probe(ctx context.Context, e Entry, scheme string) error
}

// DialProber opens a TCP connection to the proxy. For socks5 it also
// completes a handshake to Target through the proxy.
type DialProber struct {
	Timeout time.Duration
	Target  string
}

func (p DialProber) Probe(ctx context.Context, e Entry, scheme string) error {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	if strings.EqualFold(scheme, "socks5") {
		dialer, err := xproxy.SOCKS5("tcp", e.Address(), nil, xproxy.Direct)
		if err != nil {
			return fmt.Errorf("socks5 proxy: %w", err)
		}
		dc, ok := dialer.(xproxy.ContextDialer)
		if !ok {
			return errors.New("socks5 dialer does not support context")
		}
		conn, err := dc.DialContext(ctx, "tcp", p.Target)
		if err != nil {
			return err
		}
		return conn.Close()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", e.Address())
	if err != nil {
		return err
	}
	return conn.Close()
}

// Selector picks a random proxy for a scheme, optionally probing it first.
type Selector struct {
	Scheme string
	Prober Prober
	Rand   *rand.Rand
	Log    logger.Logger
}

// NewSelector builds a Selector from config.
func NewSelector(cfg config.ProxyConfig) *Selector {
	s := &Selector{
		Scheme: cfg.Scheme,
		Rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
		Log:    logger.GetLogger().WithField("component", "proxy"),
	}
	if cfg.Probe {
		s.Prober = DialProber{Timeout: cfg.ProbeTimeout, Target: "twitter.com:443"}
	}
	return s
}

// Pick shuffles the entries supporting the scheme and returns the first
// that passes the probe.
func (s *Selector) Pick(ctx context.Context, entries []Entry) (Entry, error) {
	candidates := Filter(entries, s.Scheme)
	if len(candidates) == 0 {
		return Entry{}, fmt.Errorf("%w: none flagged for %s", ErrNoProxy, s.Scheme)
	}
	s.Rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if s.Prober == nil {
		return candidates[0], nil
	}

	for _, e := range candidates {
		if err := s.Prober.Probe(ctx, e, s.Scheme); err != nil {
			if ctx.Err() != nil {
				return Entry{}, ctx.Err()
			}
			s.Log.WithError(err).DebugWithFields("Proxy probe failed", logger.Fields{"proxy": e.Address()})
			continue
		}
		return e, nil
	}
	return Entry{}, fmt.Errorf("%w: all %d candidates failed the probe", ErrNoProxy, len(candidates))
}

// Choose loads path and picks a proxy URL. Any failure is logged and
// yields "", meaning run without a proxy.
func (s *Selector) Choose(ctx context.Context, path string) string {
	entries, err := Load(path)
	if err != nil {
		s.Log.WithError(err).WarnWithFields("Proxy list unavailable, proceeding without proxy", logger.Fields{"file": path})
		return ""
	}
	e, err := s.Pick(ctx, entries)
	if err != nil {
		s.Log.WithError(err).Warn("Proceeding without proxy")
		return ""
	}
	u := e.URL(s.Scheme)
	s.Log.InfoWithFields("Using proxy", logger.Fields{"proxy": u})
	return u
}
