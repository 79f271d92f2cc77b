package conn

import (
	"math/rand"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// HostProvider is component A from spec.md section 4.A: it parses the
// connect string, randomizes server order so clients don't all stampede
// the same host, and hands out the next endpoint to try with backoff once
// a full pass has gone by without reaching CONNECTED.
type HostProvider struct {
	servers []string
	idx     int
	bo      backoff.BackOff

	// passStart marks the beginning of the current cycle through the
	// shuffled list; connected resets it. Used to decide whether we've
	// made a full pass without any CONNECTED transition.
	passStart int
}

// NewHostProvider takes the endpoints ParseConnectString produced, shuffles
// them, and returns a provider that starts from a random offset (so two clients
// constructed back to back don't dial the same first host either).
func NewHostProvider(servers []string) (*HostProvider, error) {
	if len(servers) == 0 {
		return nil, ErrConfigError
	}
	shuffled := make([]string, len(servers))
	copy(shuffled, servers)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 50 * time.Millisecond
	eb.MaxInterval = 1 * time.Second
	eb.MaxElapsedTime = 0 // never give up; the caller controls when to stop looping

	start := rand.Intn(len(shuffled))
	return &HostProvider{
		servers:   shuffled,
		idx:       start,
		bo:        eb,
		passStart: start,
	}, nil
}

// ParseConnectString splits "host1:port1,host2:port2" into its endpoints.
// The chroot suffix, if any, is parsed separately by pkg/zk; this function
// only fails on a connect string with no endpoints at all.
func ParseConnectString(hosts string) ([]string, error) {
	if hosts == "" {
		return nil, ErrConfigError
	}
	parts := strings.Split(hosts, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, ErrConfigError
	}
	return out, nil
}

// Next returns the next endpoint to dial, cycling through the shuffled
// list. Call BackoffCycle between full passes that never reached
// CONNECTED, per spec.md section 4.A.
func (h *HostProvider) Next() string {
	s := h.servers[h.idx]
	h.idx = (h.idx + 1) % len(h.servers)
	return s
}

// CycleComplete reports whether Next has wrapped back to the start of the
// shuffled list since the last time Connected was called.
func (h *HostProvider) CycleComplete() bool {
	return h.idx == h.passStart
}

// Connected resets the full-pass counter; call it once ASSOCIATING
// succeeds, and reset the backoff so the next loss starts from the
// shortest interval again.
func (h *HostProvider) Connected() {
	h.passStart = h.idx
	h.bo.Reset()
}

// BackoffCycle returns the bounded random interval spec.md section 4.A
// calls for after a full pass without a CONNECTED transition; the caller
// does the sleeping.
func (h *HostProvider) BackoffCycle() time.Duration {
	return h.bo.NextBackOff()
}
