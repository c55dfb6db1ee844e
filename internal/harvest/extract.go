package harvest

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mcnijman/go-emailaddress"
)

var emailPattern = regexp.MustCompile(`(?i)[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}`)

// obfuscations rewrite "name [at] domain [dot] com" style text
var obfuscations = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)\s*[\[(]\s*at\s*[\])]\s*`), "@"},
	{regexp.MustCompile(`(?i)\s*[\[(]\s*dot\s*[\])]\s*`), "."},
}

// assetSuffixes catch retina image names like logo@2x.png that look like emails
var assetSuffixes = []string{
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".avif", ".ico", ".css", ".js",
}

// candidates is a lowercased set of email addresses
type candidates map[string]struct{}

func (c candidates) add(raw string) {
	s := strings.ToLower(strings.Trim(raw, " \t\r\n.,;:<>()[]\"'"))
	if s == "" {
		return
	}
	for _, suffix := range assetSuffixes {
		if strings.HasSuffix(s, suffix) {
			return
		}
	}
	if _, err := emailaddress.Parse(s); err != nil {
		return
	}
	c[s] = struct{}{}
}

func (c candidates) sorted() []string {
	out := make([]string, 0, len(c))
	for s := range c {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ExtractEmails returns every syntactically valid address in markup,
// lowercased, deduplicated and sorted. It combines a regex scan of the raw
// markup with a DOM scan of mailto links and visible text.
func ExtractEmails(markup string) []string {
	set := candidates{}
	collect(markup, set)
	return set.sorted()
}

func collect(markup string, set candidates) {
	for _, m := range emailPattern.FindAllString(markup, -1) {
		set.add(m)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(href)), "mailto:") {
			return
		}
		addr := strings.TrimSpace(href)[len("mailto:"):]
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		if unescaped, err := url.PathUnescape(addr); err == nil {
			addr = unescaped
		}
		for _, part := range strings.Split(addr, ",") {
			set.add(part)
		}
	})

	visible := doc.Selection.Clone()
	visible.Find("script, style, noscript, template").Remove()
	visible.Find("*").Contents().Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) != "#text" {
			return
		}
		text := s.Text()
		if !strings.Contains(text, "@") && !strings.Contains(strings.ToLower(text), "at") {
			return
		}
		for _, o := range obfuscations {
			text = o.re.ReplaceAllString(text, o.repl)
		}
		for _, m := range emailPattern.FindAllString(text, -1) {
			set.add(m)
		}
	})
}
