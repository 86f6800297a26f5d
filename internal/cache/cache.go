// Package cache holds rendered page fragments for a fixed interval.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"html/template"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultTTL is how long a rendered fragment is reused.
const DefaultTTL = 20 * time.Second

// FragmentKey derives the cache key of a named fragment and its vary-on values.
func FragmentKey(name string, varyOn ...any) string {
	parts := make([]string, len(varyOn))
	for i, v := range varyOn {
		parts[i] = fmt.Sprint(v)
	}
	sum := md5.Sum([]byte(strings.Join(parts, ":")))
	return "template.cache." + name + "." + hex.EncodeToString(sum[:])
}

// Fragments is a process-wide store of rendered fragments with expiry.
type Fragments struct {
	ttl   time.Duration
	store *gocache.Cache
}

func New(ttl time.Duration) *Fragments {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Fragments{ttl: ttl, store: gocache.New(ttl, 2*ttl)}
}

// Get returns the fragment stored under key, if present and not expired.
func (f *Fragments) Get(key string) (template.HTML, bool) {
	v, ok := f.store.Get(key)
	if !ok {
		return "", false
	}
	html, ok := v.(template.HTML)
	return html, ok
}

func (f *Fragments) Set(key string, html template.HTML) {
	f.store.Set(key, html, f.ttl)
}

func (f *Fragments) Clear() {
	f.store.Flush()
}

func (f *Fragments) TTL() time.Duration { return f.ttl }
