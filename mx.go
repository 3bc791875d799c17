package main

import (
	"container/list"
	"context"
	"net"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	mxMemoLimit      = 128
	mxLookupDeadline = 5 * time.Second
)

// mxLookuper abstracts DNS MX resolution so tests can substitute a
// scripted resolver without touching the network.
type mxLookuper interface {
	LookupMX(ctx context.Context, domain string) ([]*net.MX, error)
}

type netResolver struct {
	resolver *net.Resolver
}

func (r netResolver) LookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	return r.resolver.LookupMX(ctx, domain)
}

// MXMemo is a process-local, bounded-size, least-recently-used cache
// from domain to its resolved MX Record Set. It is authoritative for
// the lifetime of the process; entries never expire on their own.
type MXMemo struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
}

type mxMemoEntry struct {
	domain  string
	records []MXRecord
	present bool // false means "resolved to empty/absent" (a cached miss)
}

func NewMXMemo(capacity int) *MXMemo {
	if capacity <= 0 {
		capacity = mxMemoLimit
	}
	return &MXMemo{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (m *MXMemo) get(domain string) ([]MXRecord, bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[domain]
	if !ok {
		return nil, false, false
	}
	m.order.MoveToFront(el)
	entry := el.Value.(*mxMemoEntry)
	return entry.records, entry.present, true
}

func (m *MXMemo) put(domain string, records []MXRecord, present bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[domain]; ok {
		el.Value = &mxMemoEntry{domain: domain, records: records, present: present}
		m.order.MoveToFront(el)
		return
	}

	el := m.order.PushFront(&mxMemoEntry{domain: domain, records: records, present: present})
	m.entries[domain] = el

	for m.order.Len() > m.capacity {
		oldest := m.order.Back()
		if oldest == nil {
			break
		}
		m.order.Remove(oldest)
		delete(m.entries, oldest.Value.(*mxMemoEntry).domain)
	}
}

// MXResolver resolves and memoizes MX record sets for a domain.
type MXResolver struct {
	lookuper mxLookuper
	memo     *MXMemo
}

func NewMXResolver(memo *MXMemo) *MXResolver {
	return &MXResolver{
		lookuper: netResolver{resolver: net.DefaultResolver},
		memo:     memo,
	}
}

// Resolve returns the priority-sorted MX Record Set for domain, or
// (nil, false) if the domain has no MX records, does not exist, or the
// lookup otherwise failed. Results (including misses) are memoized; a
// later caller for the same domain is served from the memo for as long
// as the entry has not been evicted. Concurrent first callers for one
// domain are not coalesced: each performs its own lookup.
func (r *MXResolver) Resolve(ctx context.Context, domain string) ([]MXRecord, bool) {
	domain = strings.ToLower(domain)

	if records, present, ok := r.memo.get(domain); ok {
		return records, present
	}

	ctx, cancel := context.WithTimeout(ctx, mxLookupDeadline)
	defer cancel()

	raw, err := r.lookuper.LookupMX(ctx, domain)
	if err != nil || len(raw) == 0 {
		r.memo.put(domain, nil, false)
		return nil, false
	}

	records := make([]MXRecord, 0, len(raw))
	for _, mx := range raw {
		host := strings.TrimSuffix(mx.Host, ".")
		if host == "" {
			continue
		}
		records = append(records, MXRecord{Preference: mx.Pref, Exchange: host})
	}
	if len(records) == 0 {
		r.memo.put(domain, nil, false)
		return nil, false
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Preference < records[j].Preference })

	r.memo.put(domain, records, true)
	return records, true
}
