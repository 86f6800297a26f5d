package cache

import (
	"strings"
	"testing"
	"time"
)

func TestFragmentKey(t *testing.T) {
	k1 := FragmentKey("index_page", 1)
	if k1 != FragmentKey("index_page", "1") {
		t.Error("vary-on values should be compared by their string form")
	}
	if !strings.HasPrefix(k1, "template.cache.index_page.") {
		t.Errorf("unexpected key %q", k1)
	}
	if k1 == FragmentKey("index_page", 2) || k1 == FragmentKey("other", 1) {
		t.Error("keys should differ by name and vary-on values")
	}
	// md5 of the empty string
	if got := FragmentKey("sidebar"); got != "template.cache.sidebar.d41d8cd98f00b204e9800998ecf8427e" {
		t.Errorf("FragmentKey without vary-on = %q", got)
	}
}

func TestFragmentsLifecycle(t *testing.T) {
	c := New(50 * time.Millisecond)
	key := FragmentKey("index_page", 1)

	if _, ok := c.Get(key); ok {
		t.Fatal("fresh cache should be empty")
	}
	c.Set(key, "<p>feed</p>")
	if got, ok := c.Get(key); !ok || got != "<p>feed</p>" {
		t.Fatalf("Get after Set = %q, %v", got, ok)
	}

	c.Clear()
	if _, ok := c.Get(key); ok {
		t.Fatal("Clear should drop every fragment")
	}

	c.Set(key, "<p>again</p>")
	time.Sleep(80 * time.Millisecond)
	if _, ok := c.Get(key); ok {
		t.Fatal("fragment should expire after the TTL")
	}
}

func TestDefaultTTL(t *testing.T) {
	if got := New(0).TTL(); got != DefaultTTL {
		t.Errorf("TTL = %v, want %v", got, DefaultTTL)
	}
}
