package comments

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultRegistry returns a registry with the built-in community sites
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Matcher{Site: "dcinside", Match: hostContains("dcinside"), Parse: parseDCInside})
	r.Register(Matcher{Site: "ruliweb", Match: hostContains("ruliweb"), Parse: parseRuliweb})
	r.Register(Matcher{Site: "ppomppu", Match: hostContains("ppomppu"), Parse: parsePpomppu})
	return r
}

func hostContains(name string) func(*url.URL) bool {
	return func(u *url.URL) bool {
		return strings.Contains(strings.ToLower(u.Hostname()), name)
	}
}

// parseDCInside reads li.ub-content items; likes come from the up_num span
// or the first em in the item
func parseDCInside(doc *goquery.Document) []Comment {
	var out []Comment
	doc.Find("li.ub-content").Each(func(i int, s *goquery.Selection) {
		content := s.Find("p.usertxt").First().Text()
		if strings.TrimSpace(content) == "" {
			return
		}

		likes := parseLikes(s.Find("span.up_num").First().Text())
		if likes == 0 {
			likes = parseLikes(s.Find("em").First().Text())
		}
		out = append(out, Comment{Content: content, Likes: likes})
	})
	return out
}

func parseRuliweb(doc *goquery.Document) []Comment {
	var out []Comment
	doc.Find(".text_wrapper").Each(func(i int, s *goquery.Selection) {
		content := s.Find("span.text").First().Text()
		if strings.TrimSpace(content) == "" {
			return
		}

		// The like counter sits in the enclosing comment row
		row := s.Closest("tr")
		if row.Length() == 0 {
			row = s.Parent()
		}
		out = append(out, Comment{
			Content: content,
			Likes:   parseLikes(row.Find(".like").First().Text()),
			Best:    s.Find(".icon_best").Length() > 0,
		})
	})
	return out
}

// ppomppu does not expose like counts in its comment markup
func parsePpomppu(doc *goquery.Document) []Comment {
	var out []Comment
	doc.Find("td.cmt_contents").Each(func(i int, s *goquery.Selection) {
		out = append(out, Comment{Content: s.Text()})
	})
	return out
}

// parseLikes pulls the digits out of a counter label such as "추천 12"
func parseLikes(text string) int {
	var digits strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return n
}
