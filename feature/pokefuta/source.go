package pokefuta

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"manhole-tracker/core/record"
	"manhole-tracker/core/scan"

	"github.com/PuerkitoBio/goquery"
)

// Name identifies this source.
const Name = "pokefuta"

// Config holds configuration for the Pokéfuta source.
type Config struct {
	// BaseURL is the top page of the manhole site.
	BaseURL string `mapstructure:"base_url" default:"https://local.pokemon.jp/manhole/"`
}

var (
	mapQueryRe   = regexp.MustCompile(`q=([+-]?\d+(?:\.\d+)?)(?:,|%2C|%2c)([+-]?\d+(?:\.\d+)?)`)
	titleClassRe = regexp.MustCompile(`(?i)title|heading`)
	manholeTail  = regexp.MustCompile(`/manhole/.*$`)
)

var pokemonMarkers = []string{"ポケモン", "図鑑", "Pokédex", "Pokémon", "Pokemon"}

const maxPokemonNameLen = 20

var coreFields = []string{
	record.FieldTitle,
	record.FieldPrefecture,
	record.FieldCity,
	record.FieldLat,
	record.FieldLng,
	record.FieldPokemons,
}

// Source implements scan.Source.
type Source struct {
	root string
}

var _ scan.Source = (*Source)(nil)

// NewSource creates the adapter. The base URL is normalized to end in /manhole.
func NewSource(cfg Config) *Source {
	return &Source{root: manholeRoot(cfg.BaseURL)}
}

func manholeRoot(base string) string {
	root := strings.TrimRight(base, "/")
	if !strings.HasSuffix(root, "/manhole") {
		root = manholeTail.ReplaceAllString(root, "/manhole")
		if !strings.HasSuffix(root, "/manhole") {
			root += "/manhole"
		}
	}
	return root
}

func (s *Source) Name() string {
	return Name
}

func (s *Source) URL(id int) string {
	return s.root + "/desc/" + strconv.Itoa(id) + "/?is_modal=1"
}

func (s *Source) CoreFields() []string {
	return append([]string(nil), coreFields...)
}

// Parse extracts a candidate from a detail page.
func (s *Source) Parse(id string, content []byte) (record.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return record.Candidate{}, fmt.Errorf("%w: %v", scan.ErrNoRecord, err)
	}

	lat, lng, ok := findCoordinates(doc)
	if !ok {
		return record.Candidate{}, fmt.Errorf("%w: no map link with coordinates", scan.ErrNoRecord)
	}

	title := findTitle(doc)
	prefecture, city := splitPlace(title)

	c := record.NewCandidate(id)
	c.Set(record.FieldTitle, title)
	c.Set(record.FieldPrefecture, prefecture)
	c.Set(record.FieldCity, city)
	c.Set(record.FieldLat, lat)
	c.Set(record.FieldLng, lng)
	c.Set(record.FieldPokemons, findPokemons(doc))
	if n, err := strconv.Atoi(id); err == nil {
		c.Set(record.FieldDetailURL, s.URL(n))
	}
	return c, nil
}

func findCoordinates(doc *goquery.Document) (lat, lng float64, ok bool) {
	doc.Find(`a[href*="maps.google"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		m := mapQueryRe.FindStringSubmatch(href)
		if m == nil {
			return true
		}
		la, err1 := strconv.ParseFloat(m[1], 64)
		ln, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil {
			return true
		}
		lat, lng, ok = la, ln, true
		return false
	})
	return lat, lng, ok
}

func findTitle(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("h1, h2").First().Text()); t != "" {
		return t
	}
	var t string
	doc.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		if !titleClassRe.MatchString(class) {
			return true
		}
		t = strings.TrimSpace(s.Text())
		return false
	})
	return t
}

// splitPlace reads "鹿児島県/指宿市 ..." style titles.
func splitPlace(title string) (prefecture, city string) {
	fields := strings.Fields(title)
	if len(fields) == 0 {
		return "", ""
	}
	pf, ct, found := strings.Cut(fields[0], "/")
	if !found {
		return "", ""
	}
	for _, suffix := range []string{"都", "道", "府", "県"} {
		if strings.HasSuffix(pf, suffix) {
			return pf, strings.TrimRight(ct, "市町村区")
		}
	}
	return "", ""
}

func findPokemons(doc *goquery.Document) []string {
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		text := strings.TrimSpace(a.Text())
		if text == "" || !hasMarker(text) {
			return
		}
		name := text
		for _, m := range pokemonMarkers {
			name = strings.ReplaceAll(name, m, "")
		}
		name = strings.TrimSpace(name)
		if name == "" || utf8.RuneCountInString(name) > maxPokemonNameLen {
			return
		}
		seen[name] = struct{}{}
	})

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func hasMarker(text string) bool {
	for _, m := range pokemonMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
