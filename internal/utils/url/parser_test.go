package urlutil

import "testing"

func TestValidate(t *testing.T) {
	valid := []string{
		"http://example.com",
		"https://example.com/path",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Fatalf("expected valid, got error: %v", err)
		}
	}

	invalid := []string{"ftp://example.com", "//example.com", "http:///", "example.com"}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Fatalf("expected invalid for %s", u)
		}
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		base, href, want string
	}{
		{"https://bakery.test/shop", "", "https://bakery.test/shop"},
		{"https://bakery.test/shop", "/contact", "https://bakery.test/contact"},
		{"https://bakery.test", "/about-us", "https://bakery.test/about-us"},
		{"https://bakery.test", "https://other.test/x", "https://other.test/x"},
	}
	for _, tt := range tests {
		if got := ResolveURL(tt.base, tt.href); got != tt.want {
			t.Errorf("ResolveURL(%q, %q) = %q, want %q", tt.base, tt.href, got, tt.want)
		}
	}
}

func TestNormalizeWebsite(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://www.google.com/url?q=https://renobakery.test/&sa=U", "https://renobakery.test/"},
		{"/maps/url?url=http://bakery.test", "http://bakery.test"},
		{"https://www.google.com/maps/url?url=http%3A%2F%2Fbakery.test%2F", "http://bakery.test/"},
		{"https://acme.test/url?q=x", "https://acme.test/url?q=x"},
		{"http://bakery.test/shop/url?url=https://other.test", "http://bakery.test/shop/url?url=https://other.test"},
		{"bakery.test", "https://bakery.test"},
		{"//bakery.test/home", "https://bakery.test/home"},
		{"https://www.google.com/maps/place/Foo", ""},
		{"https://www.google.co.uk/search?q=x", ""},
		{"https://maps.app.goo.gl/abc", ""},
		{"tel:+17755551234", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeWebsite(tt.in); got != tt.want {
			t.Errorf("NormalizeWebsite(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsMapServiceHost(t *testing.T) {
	if !IsMapServiceHost("www.google.de") {
		t.Error("expected google.de to be a map service host")
	}
	if IsMapServiceHost("googlebakery.com") {
		t.Error("expected googlebakery.com not to be a map service host")
	}
}

func TestUnwrapRedirect_OnlyMapServiceHosts(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://www.google.com/url?q=https://renobakery.test/", "https://renobakery.test/"},
		{"/url?q=https://renobakery.test/", "https://renobakery.test/"},
		{"https://acme.test/url?q=x", "https://acme.test/url?q=x"},
		{"https://www.google.com/maps/place/Foo", "https://www.google.com/maps/place/Foo"},
	}
	for _, tt := range tests {
		if got := UnwrapRedirect(tt.in); got != tt.want {
			t.Errorf("UnwrapRedirect(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
