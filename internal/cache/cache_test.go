package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/law-makers/leadharvest/pkg/models"
)

func TestMemoryCache_GetSet(t *testing.T) {
	mc := NewMemoryCache(1024 * 1024)
	defer mc.Close()

	page := &models.PageData{URL: "https://bakery.test/", StatusCode: 200, HTML: "<p>hi</p>"}
	if err := mc.Set("k", page, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok := mc.Get("k")
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if got.HTML != page.HTML {
		t.Errorf("Expected %q, got %q", page.HTML, got.HTML)
	}

	if _, ok := mc.Get("missing"); ok {
		t.Error("Expected cache miss for unknown key")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	mc := NewMemoryCache(1024 * 1024)
	defer mc.Close()

	mc.Set("k", &models.PageData{HTML: "x"}, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if _, ok := mc.Get("k"); ok {
		t.Error("Expected expired entry to miss")
	}
	if mc.Len() != 0 {
		t.Errorf("Expected expired entry to be removed, got %d entries", mc.Len())
	}
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	// room for two ~2KB pages
	mc := NewMemoryCache(5000)
	defer mc.Close()

	body := strings.Repeat("a", 1000)
	mc.Set("a", &models.PageData{HTML: body}, time.Minute)
	mc.Set("b", &models.PageData{HTML: body}, time.Minute)
	mc.Get("a")
	mc.Set("c", &models.PageData{HTML: body}, time.Minute)

	if _, ok := mc.Get("b"); ok {
		t.Error("Expected b to be evicted")
	}
	if _, ok := mc.Get("a"); !ok {
		t.Error("Expected a to survive eviction")
	}
	if _, ok := mc.Get("c"); !ok {
		t.Error("Expected c to be present")
	}
}

func TestMemoryCache_ReplaceKeepsSizeConsistent(t *testing.T) {
	mc := NewMemoryCache(1024 * 1024)
	defer mc.Close()

	mc.Set("k", &models.PageData{HTML: strings.Repeat("a", 500)}, time.Minute)
	mc.Set("k", &models.PageData{HTML: "b"}, time.Minute)
	mc.Delete("k")

	if size := mc.Stats()["size_bytes"].(int64); size != 0 {
		t.Errorf("Expected size 0 after delete, got %d", size)
	}
}

func TestPageKey(t *testing.T) {
	tests := map[string]string{
		"https://Bakery.TEST":           "https://bakery.test/",
		"https://bakery.test/contact#x": "https://bakery.test/contact",
		"HTTPS://bakery.test/About":     "https://bakery.test/About",
	}
	for in, want := range tests {
		if got := PageKey(in); got != want {
			t.Errorf("PageKey(%q) = %q, want %q", in, got, want)
		}
	}
}
