package adapter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"outreach/internal/types"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// containerStrategy locates result cards in a page snapshot.
type containerStrategy struct {
	name string
	find func(doc *goquery.Document) []*goquery.Selection
}

// containerStrategies run in order; the first one with a match wins.
var containerStrategies = func() []containerStrategy {
	out := make([]containerStrategy, 0, len(legacyContainerSelectors)+1)
	for _, sel := range legacyContainerSelectors {
		out = append(out, selectorStrategy(sel))
	}
	return append(out, containerStrategy{name: "modern-lockup", find: modernContainers})
}()

func selectorStrategy(sel string) containerStrategy {
	return containerStrategy{
		name: sel,
		find: func(doc *goquery.Document) []*goquery.Selection {
			var out []*goquery.Selection
			doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
				out = append(out, s)
			})
			return out
		},
	}
}

// modernContainers walks from each lockup title anchor to its card:
// anchor -> enclosing <p> -> text column -> card. Cards are deduplicated.
func modernContainers(doc *goquery.Document) []*goquery.Selection {
	seen := make(map[*html.Node]bool)
	var out []*goquery.Selection
	doc.Find(lockupTitleSelector).Each(func(_ int, a *goquery.Selection) {
		p := a.Closest("p")
		if p.Length() == 0 {
			return
		}
		card := p.Parent().Parent()
		if card.Length() == 0 {
			return
		}
		node := card.Get(0)
		if seen[node] {
			return
		}
		seen[node] = true
		out = append(out, card)
	})
	return out
}

func findContainers(doc *goquery.Document) (string, []*goquery.Selection) {
	for _, strategy := range containerStrategies {
		if cards := strategy.find(doc); len(cards) > 0 {
			return strategy.name, cards
		}
	}
	return "", nil
}

// extracted is a profile plus what is needed to stamp its id on the page.
type extracted struct {
	profile     types.Profile
	path        string
	fingerprint string // collapsed card text, checked by the page before stamping
	marked      bool   // card already carried an id
}

func extractProfiles(doc *goquery.Document, now time.Time) (string, []extracted) {
	strategy, cards := findContainers(doc)
	out := make([]extracted, 0, len(cards))
	for i, card := range cards {
		out = append(out, extractProfile(card, i, now))
	}
	return strategy, out
}

func extractProfile(card *goquery.Selection, index int, now time.Time) extracted {
	node := card.Get(0)
	id := attr(node, MarkerAttr)
	marked := id != ""
	if !marked {
		id = fmt.Sprintf("outreach-%d-%d", now.UnixMilli(), index)
	}

	modern := modernInfo(card)
	insight := insightNode(card)

	p := types.Profile{
		ProfileID:        id,
		Name:             firstNonEmpty(firstText(card, nameSelectors...), modern.name, firstText(card, lockupTitleSelector)),
		Title:            firstNonEmpty(firstText(card, titleSelectors...), modern.title),
		Location:         firstNonEmpty(firstText(card, locationSelectors...), modern.location),
		HasConnectButton: hasConnectAffordance(card),
	}
	if insight != nil {
		p.MutualConnections = parseMutualConnections(cleanText(nodeText(insight.Get(0))), insight.Find("strong").Length())
	}
	return extracted{profile: p, path: cssPath(node), fingerprint: cleanText(nodeText(node)), marked: marked}
}

// firstText returns the first non-empty text of the first match of each
// selector, tried in order.
func firstText(scope *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		s := scope.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		if t := cleanText(nodeText(s.Get(0))); t != "" {
			return t
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type modernCard struct {
	name, title, location string
}

var degreeBadge = regexp.MustCompile(`•\s*\d`)

// modernInfo reads the lockup layout: the <p> rows of the text column are
// name, then detail rows; rows carrying a degree badge are skipped.
func modernInfo(card *goquery.Selection) modernCard {
	anchor := card.Find(lockupTitleSelector).First()
	if anchor.Length() == 0 {
		return modernCard{}
	}
	info := modernCard{name: cleanText(nodeText(anchor.Get(0)))}

	column := anchor.Closest("p").Parent()
	var rows []string
	column.ChildrenFiltered("p").Each(func(_ int, s *goquery.Selection) {
		if t := cleanText(nodeText(s.Get(0))); t != "" {
			rows = append(rows, t)
		}
	})
	var details []string
	for i, row := range rows {
		if i == 0 || degreeBadge.MatchString(row) {
			continue
		}
		details = append(details, row)
	}
	if len(details) > 0 {
		info.title = details[0]
	}
	if len(details) > 1 {
		info.location = details[1]
	}
	return info
}

// insightNode returns the element describing shared connections: the
// simple-insight span, else the innermost element mentioning "mutual".
func insightNode(card *goquery.Selection) *goquery.Selection {
	if s := card.Find(insightSelector).First(); s.Length() > 0 {
		return s
	}
	mentions := func(_ int, s *goquery.Selection) bool {
		return strings.Contains(strings.ToLower(nodeText(s.Get(0))), "mutual")
	}
	var found *goquery.Selection
	card.Find("*").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if !mentions(i, s) || s.Children().FilterFunction(mentions).Length() > 0 {
			return true
		}
		found = s
		return false
	})
	return found
}

var (
	otherMutualPattern  = regexp.MustCompile(`(?i)(\d[\d,]*)\s+other\s+mutual\s+connections?`)
	firstIntegerPattern = regexp.MustCompile(`\d+`)
	singleMutualPattern = regexp.MustCompile(`(?i)\bis\s+a\s+mutual\s+connection\b`)
	nameSeparator       = regexp.MustCompile(`(?i),|\band\b`)
)

// parseMutualConnections applies, in order: "N other mutual connections" plus
// the named connections before it (counted from <strong> markers when
// present), the first integer in the text, a single named connection, zero.
func parseMutualConnections(text string, namedMarkers int) int {
	if text == "" {
		return 0
	}
	if loc := otherMutualPattern.FindStringSubmatchIndex(text); loc != nil {
		n, _ := strconv.Atoi(strings.ReplaceAll(text[loc[2]:loc[3]], ",", ""))
		named := namedMarkers
		if named == 0 {
			named = countNames(text[:loc[0]])
		}
		return n + named
	}
	if m := firstIntegerPattern.FindString(strings.ReplaceAll(text, ",", "")); m != "" {
		n, err := strconv.Atoi(m)
		if err == nil {
			return n
		}
	}
	if singleMutualPattern.MatchString(text) {
		return 1
	}
	return 0
}

// countNames counts the people listed in "Ana Ruiz, Bo Li and".
func countNames(prefix string) int {
	count := 0
	for _, part := range nameSeparator.Split(prefix, -1) {
		if strings.TrimSpace(part) != "" {
			count++
		}
	}
	return count
}

func hasConnectAffordance(card *goquery.Selection) bool {
	found := false
	card.Find("button, a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(nodeText(s.Get(0))), "connect") {
			found = true
			return false
		}
		return true
	})
	return found
}
