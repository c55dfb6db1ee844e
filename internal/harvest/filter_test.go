package harvest

import "testing"

func TestAccept(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"owner@renobakery.test", true},
		{"maria.lopez@bakery.co", true},
		{"someone@gmail.com", false},
		{"SOMEONE@GMAIL.COM", false},
		{"Bob@Yahoo.com", false},
		{"x@hotmail.com", false},
		{"x@outlook.com", false},
		{"x@live.com", false},
		{"x@msn.com", false},
		{"x@aol.com", false},
		{"x@icloud.com", false},
		{"x@mail.gmail.com.au", true},
		{"noreply@bakery.test", false},
		{"no-reply@bakery.test", false},
		{"DoNotReply@bakery.test", false},
		{"support@bakery.test", false},
		{"info@bakery.test", false},
		{"Contact@bakery.test", false},
		{"hello@bakery.test", false},
		{"admin@bakery.test", false},
		{"orders.noreply.eu@bakery.test", false},
		{"information@bakery.test", true},
		{"", false},
		{"@bakery.test", false},
		{"owner@", false},
	}

	for _, tt := range tests {
		if got := Accept(tt.email); got != tt.want {
			t.Errorf("Accept(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}
