package maps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// fakeView serves fixed markup. Each ScrollFeed call moves to the next
// entry in pages, clamping at the last one. Activating entry i swaps in
// details[i] as the detail panel.
type fakeView struct {
	location string
	title    string
	pages    []string
	details  map[int]string

	page      int
	panel     string
	scrolls   int
	activated []int
	failClick bool
}

func (f *fakeView) doc() *goquery.Document {
	html := f.pages[f.page]
	if f.panel != "" {
		html = strings.Replace(html, "</body>", f.panel+"</body>", 1)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		panic(err)
	}
	return doc
}

func (f *fakeView) Location(context.Context) (string, error) { return f.location, nil }
func (f *fakeView) Title(context.Context) (string, error)    { return f.title, nil }

func (f *fakeView) WaitFor(ctx context.Context, sel string, _ time.Duration) bool {
	n, _ := f.Count(ctx, sel)
	return n > 0
}

func (f *fakeView) Count(_ context.Context, sel string) (int, error) {
	return f.doc().Find(sel).Length(), nil
}

func (f *fakeView) ScrollFeed(context.Context, string) error {
	f.scrolls++
	if f.page < len(f.pages)-1 {
		f.page++
	}
	return nil
}

func (f *fakeView) Activate(_ context.Context, sel string, i int) error {
	if f.failClick {
		return fmt.Errorf("not clickable")
	}
	f.activated = append(f.activated, i)
	if d, ok := f.details[i]; ok {
		f.panel = d
	}
	return nil
}

func (f *fakeView) ItemHTML(_ context.Context, sel string, i int) (string, error) {
	return goquery.OuterHtml(f.doc().Find(sel).Eq(i))
}

func (f *fakeView) DocumentHTML(context.Context) (string, error) {
	return f.doc().Html()
}

type fakeBrowser struct {
	view     *fakeView
	err      error
	opened   []string
	released int
}

func (b *fakeBrowser) Open(_ context.Context, url string) (View, func(), error) {
	b.opened = append(b.opened, url)
	if b.err != nil {
		return nil, nil, b.err
	}
	return b.view, func() { b.released++ }, nil
}

func listPage(items ...string) string {
	return `<html><body><div role="main"><div role="feed">` + strings.Join(items, "") + `</div></div></body></html>`
}

func article(name, summary, website string) string {
	var b strings.Builder
	b.WriteString(`<div role="article" class="Nv2PK">`)
	fmt.Fprintf(&b, `<a class="hfpxzc" aria-label="%s" href="https://www.google.com/maps/place/%s"></a>`, name, strings.ReplaceAll(name, " ", "+"))
	fmt.Fprintf(&b, `<div class="qBF1Pd fontHeadlineSmall">%s</div>`, name)
	if summary != "" {
		fmt.Fprintf(&b, `<div class="W4Efsd">%s</div>`, summary)
	}
	if website != "" {
		fmt.Fprintf(&b, `<a data-value="Website" href="%s">Website</a>`, website)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func detail(name, category, address, phone, website string) string {
	return fmt.Sprintf(`<div role="main" aria-label="%s">
		<h1 class="DUwDvf">%s</h1>
		<button jsaction="pane.rating.category">%s</button>
		<button data-item-id="address"><div class="Io6YTe">%s</div></button>
		<a data-item-id="authority" href="%s">site</a>
		<button data-item-id="phone:tel:%s"><div class="Io6YTe">%s</div></button>
	</div>`, name, name, category, address, website, phone, phone)
}

func instantOptions() Options {
	opts := DefaultOptions()
	opts.InitialWait = 0
	opts.SignalTimeout = 0
	opts.RetryWait = 0
	opts.Scroll.Settle = 0
	opts.Extract = ExtractOptions{}
	opts.Retry.InitialBackoff = time.Millisecond
	opts.Retry.MaxBackoff = time.Millisecond
	return opts
}
