package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/zalando/go-keyring"
)

func TestFileStore_SaveLoadListDelete(t *testing.T) {
	s := NewFileStore(t.TempDir())

	session := &SessionData{
		Name:    "maps",
		URL:     DefaultLoginURL,
		Cookies: ParseCookieHeader("SOCS=abc; NID=123", ".google.com"),
	}
	if err := s.Save(session); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Load("maps")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got.Cookies) != 2 || got.Cookies[0].Name != "SOCS" || got.Cookies[0].Domain != ".google.com" {
		t.Errorf("Unexpected cookies %+v", got.Cookies)
	}

	names, _ := s.List()
	if len(names) != 1 || names[0] != "maps" {
		t.Errorf("Expected [maps], got %v", names)
	}

	if err := s.Delete("maps"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Load("maps"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestKeyringStore_UsesManifest(t *testing.T) {
	keyring.MockInit()
	s := NewStore(t.TempDir())
	t.Setenv("CI", "")
	t.Setenv("CODESPACES", "")

	for _, name := range []string{"b", "a"} {
		if err := s.Save(&SessionData{Name: name}); err != nil {
			t.Fatalf("Save %s failed: %v", name, err)
		}
	}
	names, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Expected [a b], got %v", names)
	}

	s.Delete("a")
	names, _ = s.List()
	if len(names) != 1 || names[0] != "b" {
		t.Errorf("Expected [b], got %v", names)
	}
}

func TestStore_ExpiredSession(t *testing.T) {
	s := NewFileStore(t.TempDir())
	s.Save(&SessionData{Name: "old", ExpiresAt: time.Now().Add(-time.Hour)})

	if _, err := s.Load("old"); err == nil {
		t.Error("Expected expired session to fail to load")
	}
}

func TestStore_InvalidNames(t *testing.T) {
	s := NewFileStore(t.TempDir())
	for _, name := range []string{"", "../x", "_manifest"} {
		if err := s.Save(&SessionData{Name: name}); err == nil {
			t.Errorf("Expected %q to be rejected", name)
		}
	}
}

func TestParseCookieHeader(t *testing.T) {
	cookies := ParseCookieHeader(" a=1 ; broken; b = two==; =x", ".google.com")
	if len(cookies) != 2 {
		t.Fatalf("Expected 2 cookies, got %d: %+v", len(cookies), cookies)
	}
	if cookies[1].Name != "b" || cookies[1].Value != "two==" {
		t.Errorf("Unexpected cookie %+v", cookies[1])
	}
}

func TestEarliestExpiry(t *testing.T) {
	soon := float64(time.Now().Add(time.Hour).Unix())
	later := float64(time.Now().Add(48 * time.Hour).Unix())
	got := EarliestExpiry([]Cookie{{Expires: later}, {Expires: 0}, {Expires: soon}})
	if got.Unix() != int64(soon) {
		t.Errorf("Expected %v, got %v", int64(soon), got.Unix())
	}
}
