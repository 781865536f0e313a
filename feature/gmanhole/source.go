package gmanhole

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"manhole-tracker/core/record"
	"manhole-tracker/core/scan"

	"github.com/PuerkitoBio/goquery"
)

// Name identifies this source.
const Name = "gmanhole"

// Franchise is stored on every record of this source.
const Franchise = "gundam"

const fallbackTitle = "ガンダムマンホール"

// Config holds configuration for the Gundam manhole source.
type Config struct {
	// BaseURL is the directory that holds detail.php.
	BaseURL string `mapstructure:"base_url" default:"https://www.g-manhole.net/about/"`
}

var (
	placeRe    = regexp.MustCompile(`([\w一-龠ぁ-んァ-ヶー]+(?:都|道|府|県))/([\w一-龠ぁ-んァ-ヶー]+(?:市|区|町|村))`)
	addressRe  = regexp.MustCompile(`[一-龠ぁ-んァ-ヶA-Za-z0-9\-ー・\s]+\d`)
	slugSepRe  = regexp.MustCompile(`[\s　/]+`)
	slugDropRe = regexp.MustCompile(`[^a-z0-9\-]+`)
	slugDashRe = regexp.MustCompile(`-+`)
)

var coreFields = []string{
	record.FieldTitle,
	record.FieldPrefecture,
	record.FieldCity,
	record.FieldAddress,
	record.FieldImageURLs,
	record.FieldImagesCount,
	record.FieldFranchise,
	record.FieldCharacters,
	record.FieldSeries,
	record.FieldSlug,
	record.FieldLat,
	record.FieldLng,
	record.FieldDetailURL,
}

// Source implements scan.Source.
type Source struct {
	root   string
	origin string
}

var _ scan.Source = (*Source)(nil)

// NewSource creates the adapter.
func NewSource(cfg Config) *Source {
	s := &Source{root: strings.TrimRight(cfg.BaseURL, "/")}
	if u, err := url.Parse(cfg.BaseURL); err == nil && u.Host != "" {
		s.origin = u.Scheme + "://" + u.Host
	}
	return s
}

func (s *Source) Name() string {
	return Name
}

func (s *Source) URL(id int) string {
	return s.root + "/detail.php?id=" + strconv.Itoa(id)
}

func (s *Source) CoreFields() []string {
	return append([]string(nil), coreFields...)
}

// Parse extracts a candidate from a detail page. A page without a place line
// and without images holds no record.
func (s *Source) Parse(id string, content []byte) (record.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return record.Candidate{}, fmt.Errorf("%w: %v", scan.ErrNoRecord, err)
	}

	texts := strippedStrings(doc.Selection)
	prefecture, city := findPlace(texts)
	address := findAddress(texts, prefecture, city)
	images := s.imageURLs(doc, id)
	if prefecture == "" && len(images) == 0 {
		return record.Candidate{}, fmt.Errorf("%w: no place line and no images", scan.ErrNoRecord)
	}

	title := strings.TrimSpace(doc.Find("h3").First().Text())
	if title == "" {
		title = address
	}
	if title == "" {
		title = fallbackTitle
	}

	joined := strings.Join(texts, "\n")

	c := record.NewCandidate(id)
	c.Set(record.FieldTitle, title)
	c.Set(record.FieldPrefecture, prefecture)
	c.Set(record.FieldCity, city)
	c.Set(record.FieldAddress, address)
	c.Set(record.FieldImageURLs, images)
	c.Set(record.FieldImagesCount, len(images))
	c.Set(record.FieldFranchise, Franchise)
	c.Set(record.FieldCharacters, findCharacters(joined))
	c.Set(record.FieldSeries, findSeries(joined))
	c.Set(record.FieldSlug, slugify(title))
	if n, err := strconv.Atoi(id); err == nil {
		c.Set(record.FieldDetailURL, s.URL(n))
	}
	// Coordinates come from the geocoder, not the page.
	c.MarkUnobserved(record.FieldLat, record.FieldLng)
	return c, nil
}

// strippedStrings returns the trimmed, non-empty text nodes in document order,
// skipping scripts, styles and comments.
func strippedStrings(sel *goquery.Selection) []string {
	var out []string
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			switch goquery.NodeName(c) {
			case "#text":
				if t := strings.TrimSpace(c.Text()); t != "" {
					out = append(out, t)
				}
			case "script", "style", "noscript", "#comment":
			default:
				walk(c)
			}
		})
	}
	walk(sel)
	return out
}

func findPlace(texts []string) (prefecture, city string) {
	for _, t := range texts {
		if m := placeRe.FindStringSubmatch(t); m != nil {
			return m[1], m[2]
		}
	}
	return "", ""
}

func findAddress(texts []string, prefecture, city string) string {
	if prefecture == "" || city == "" {
		return ""
	}
	for _, t := range texts {
		if strings.Contains(t, prefecture) && strings.Contains(t, city) &&
			!strings.Contains(t, "マンホール") && addressRe.MatchString(t) {
			return t
		}
	}
	return ""
}

func (s *Source) imageURLs(doc *goquery.Document, id string) []string {
	marker := "img" + id
	seen := make(map[string]struct{})
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := strings.TrimSpace(img.AttrOr("src", ""))
		if src == "" {
			return
		}
		switch {
		case strings.HasPrefix(src, "//"):
			src = "https:" + src
		case strings.HasPrefix(src, "/"):
			src = s.origin + src
		}
		if !strings.Contains(src, marker) || !strings.Contains(src, "img_manhole") {
			return
		}
		src, _, _ = strings.Cut(src, "?")
		seen[src] = struct{}{}
	})
	return sortedSet(seen)
}

func findCharacters(text string) []string {
	seen := make(map[string]struct{})
	for _, p := range characterPatterns {
		if p.re.MatchString(text) {
			seen[p.label] = struct{}{}
		}
	}
	return sortedSet(seen)
}

func findSeries(text string) string {
	for _, p := range seriesPatterns {
		if p.re.MatchString(text) {
			return p.label
		}
	}
	return ""
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugSepRe.ReplaceAllString(s, "-")
	s = slugDropRe.ReplaceAllString(s, "")
	s = strings.Trim(slugDashRe.ReplaceAllString(s, "-"), "-")
	if s == "" {
		return "unknown"
	}
	return s
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
