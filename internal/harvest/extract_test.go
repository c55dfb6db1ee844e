package harvest

import (
	"reflect"
	"testing"
)

func TestExtractEmails(t *testing.T) {
	markup := `<html><head>
<script>var tracker = "cdn@tracker.test";</script>
</head><body>
<p>Write to Owner@RenoBakery.test or owner@renobakery.test</p>
<a href="mailto:orders@renobakery.test?subject=Cake">Order</a>
<a href="mailto:a%40b.test">encoded</a>
<img src="/img/logo@2x.png">
<span>catering [at] renobakery [dot] test</span>
<p>not an email: @handle and foo@bar</p>
</body></html>`

	got := ExtractEmails(markup)
	want := []string{
		"a@b.test",
		"catering@renobakery.test",
		"cdn@tracker.test",
		"orders@renobakery.test",
		"owner@renobakery.test",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractEmails() = %v, want %v", got, want)
	}
}

func TestExtractEmails_Empty(t *testing.T) {
	if got := ExtractEmails(`<html><body>No contact here</body></html>`); len(got) != 0 {
		t.Errorf("Expected no emails, got %v", got)
	}
}
