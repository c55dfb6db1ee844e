package maps

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	urlutil "github.com/law-makers/leadharvest/internal/utils/url"
	"github.com/law-makers/leadharvest/pkg/models"
	"github.com/rs/zerolog/log"
)

// Probe reads one candidate value from a subtree. An empty result means the
// probe did not find anything.
type Probe func(*goquery.Selection) string

// Chain is an ordered list of probes for one field. The first probe whose
// cleaned result passes Valid wins.
type Chain struct {
	Field  string
	Probes []Probe
	Clean  func(string) string
	Valid  func(string) bool
}

// Eval runs the chain against s
func (c Chain) Eval(s *goquery.Selection) string {
	for i, probe := range c.Probes {
		v := c.run(i, probe, s)
		if c.Clean != nil {
			v = c.Clean(v)
		}
		if v == "" {
			continue
		}
		if c.Valid != nil && !c.Valid(v) {
			continue
		}
		return v
	}
	return ""
}

// a panicking probe counts as a miss
func (c Chain) run(i int, probe Probe, s *goquery.Selection) (v string) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug().Str("field", c.Field).Int("probe", i).Interface("panic", r).Msg("Locator probe failed")
			v = ""
		}
	}()
	return probe(s)
}

// Fields groups the chains used to build one business record
type Fields struct {
	Name     Chain
	Website  Chain
	Category Chain
	Address  Chain
	Phone    Chain
}

// Extract runs every chain against s. The record is only usable when Name
// is set.
func (f Fields) Extract(s *goquery.Selection) models.Business {
	return models.Business{
		Name:     f.Name.Eval(s),
		Website:  f.Website.Eval(s),
		Category: f.Category.Eval(s),
		Address:  f.Address.Eval(s),
		Phone:    f.Phone.Eval(s),
	}
}

const placeLink = `a[href*="/maps/place/"]`

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Text reads the text of the first element matching sel
func Text(sel string) Probe {
	return func(s *goquery.Selection) string {
		return squash(s.Find(sel).First().Text())
	}
}

// Attr reads attribute name of the first element matching sel
func Attr(sel, name string) Probe {
	return func(s *goquery.Selection) string {
		v, _ := s.Find(sel).First().Attr(name)
		return squash(v)
	}
}

// SelfLabel reads the label of the root when it is itself a place link
func SelfLabel(s *goquery.Selection) string {
	root := s.First()
	if goquery.NodeName(root) != "a" {
		return ""
	}
	href, _ := root.Attr("href")
	if !strings.Contains(href, "/maps/place/") {
		return ""
	}
	if label, ok := root.Attr("aria-label"); ok && strings.TrimSpace(label) != "" {
		return squash(label)
	}
	return squash(root.Text())
}

// RootAttr reads attribute name of the root itself
func RootAttr(name string) Probe {
	return func(s *goquery.Selection) string {
		v, _ := s.First().Attr(name)
		return squash(v)
	}
}

// TelHref reads a tel: link target
func TelHref(sel string) Probe {
	return func(s *goquery.Selection) string {
		href, _ := s.Find(sel).First().Attr("href")
		return strings.TrimSpace(strings.TrimPrefix(href, "tel:"))
	}
}

// LabelAfter reads an aria-label such as "Address: 1 Main St" and keeps
// what follows the colon
func LabelAfter(sel string) Probe {
	return func(s *goquery.Selection) string {
		label, _ := s.Find(sel).First().Attr("aria-label")
		if _, rest, ok := strings.Cut(label, ":"); ok {
			return squash(rest)
		}
		return ""
	}
}

var (
	ratingPattern = regexp.MustCompile(`^\d([.,]\d)?\s*(\([\d.,\s]+\))?$`)
	pricePattern  = regexp.MustCompile(`^[$€£¥]{1,4}$|^[$€£¥][\d\s–-]+$`)
	phonePattern  = regexp.MustCompile(`^\+?[\d\s().-]{7,}$`)
)

// summarySegments splits the list item's summary lines ("Bakery · $$ · 1 Main
// St") into their parts, dropping ratings and price levels.
func summarySegments(s *goquery.Selection) []string {
	var segs []string
	s.Find(".W4Efsd").Each(func(_ int, line *goquery.Selection) {
		// nested summary blocks repeat their children's text
		if line.Find(".W4Efsd").Length() > 0 {
			return
		}
		for _, part := range strings.Split(line.Text(), "·") {
			part = squash(part)
			if part == "" || ratingPattern.MatchString(part) || pricePattern.MatchString(part) {
				continue
			}
			segs = append(segs, part)
		}
	})
	return segs
}

// SummaryCategory is the first summary segment that is not an address or
// phone number
func SummaryCategory(s *goquery.Selection) string {
	for _, seg := range summarySegments(s) {
		if strings.ContainsAny(seg, "0123456789") {
			continue
		}
		return seg
	}
	return ""
}

// SummaryAddress is the first summary segment that looks like a street address
func SummaryAddress(s *goquery.Selection) string {
	for _, seg := range summarySegments(s) {
		if phonePattern.MatchString(seg) {
			continue
		}
		if plausibleAddress(seg) && strings.ContainsAny(seg, "0123456789") {
			return seg
		}
	}
	return ""
}

// SummaryPhone is the first summary segment shaped like a phone number
func SummaryPhone(s *goquery.Selection) string {
	for _, seg := range summarySegments(s) {
		if phonePattern.MatchString(seg) {
			return seg
		}
	}
	return ""
}

func plausibleName(v string) bool {
	return utf8.RuneCountInString(v) >= 2
}

func plausibleCategory(v string) bool {
	return !strings.Contains(v, "Category") && utf8.RuneCountInString(v) <= 80
}

func plausibleAddress(v string) bool {
	return utf8.RuneCountInString(v) > 10
}

func plausiblePhone(v string) bool {
	return strings.ContainsAny(v, "0123456789")
}

func websiteChain(probes ...Probe) Chain {
	return Chain{Field: "website", Probes: probes, Clean: urlutil.NormalizeWebsite}
}

// DetailFields read an opened detail panel
var DetailFields = Fields{
	Name: Chain{
		Field: "name",
		Probes: []Probe{
			Text(`h1[data-attrid="title"]`),
			Text(`h1.DUwDvf`),
			Text(`h1.qrShPb`),
			Text(`.x3AX1-LfntMc-header-title-title`),
			Text(`h1`),
			RootAttr("aria-label"),
		},
		Valid: plausibleName,
	},
	Website: websiteChain(
		Attr(`a[data-item-id="authority"]`, "href"),
		Attr(`a[data-value="Website"]`, "href"),
		Attr(`a[aria-label*="Website"]`, "href"),
		Attr(`a[href*="maps/url"]`, "href"),
		Attr(`a[href^="http"]:not([href*="google."])`, "href"),
	),
	Category: Chain{
		Field: "category",
		Probes: []Probe{
			Text(`button[jsaction*="category"]`),
			Text(`button[data-value="Category"]`),
			Text(`[data-value="Category"]`),
			Text(`span[jsaction*="Category"]`),
			Text(`.DkE0L`),
		},
		Valid: plausibleCategory,
	},
	Address: Chain{
		Field: "address",
		Probes: []Probe{
			Text(`button[data-item-id="address"] .Io6YTe`),
			Text(`button[data-item-id="address"]`),
			LabelAfter(`[data-item-id="address"]`),
			Text(`[data-item-id="address"]`),
			Text(`.Io6YTe`),
		},
		Valid: plausibleAddress,
	},
	Phone: Chain{
		Field: "phone",
		Probes: []Probe{
			Text(`button[data-item-id^="phone"] .Io6YTe`),
			Text(`button[data-item-id^="phone"]`),
			LabelAfter(`[data-item-id^="phone"]`),
			TelHref(`a[href^="tel:"]`),
			Text(`[data-value="Phone"]`),
		},
		Valid: plausiblePhone,
	},
}

// ListFields read a result entry without opening it
var ListFields = Fields{
	Name: Chain{
		Field: "name",
		Probes: []Probe{
			SelfLabel,
			Attr(placeLink, "aria-label"),
			Text(placeLink),
			Text(`.qBF1Pd`),
			Text(`.fontHeadlineSmall`),
			Text(`h3`),
			Attr(`span[aria-label]`, "aria-label"),
		},
		Valid: plausibleName,
	},
	Website: websiteChain(
		Attr(`a[data-value="Website"]`, "href"),
		Attr(`a[aria-label*="Website"]`, "href"),
		Attr(`a[href^="http"]:not([href*="google."])`, "href"),
	),
	Category: Chain{
		Field:  "category",
		Probes: []Probe{SummaryCategory, Text(`.DkE0L`)},
		Valid:  plausibleCategory,
	},
	Address: Chain{
		Field:  "address",
		Probes: []Probe{SummaryAddress},
		Valid:  plausibleAddress,
	},
	Phone: Chain{
		Field:  "phone",
		Probes: []Probe{SummaryPhone, TelHref(`a[href^="tel:"]`)},
		Valid:  plausiblePhone,
	},
}

// WideListFields is ListFields with a longer name chain, used when the
// normal pass found nothing.
var WideListFields = func() Fields {
	f := ListFields
	f.Name.Probes = append(append([]Probe{}, ListFields.Name.Probes...),
		Attr(`div[aria-label]`, "aria-label"),
		Text(`.qBF1Pd.fontHeadlineSmall`),
		Text(`div.DUwDvf`),
		RootAttr("aria-label"),
	)
	return f
}()
