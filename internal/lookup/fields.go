package lookup

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/jmylchreest/vincheck-api/internal/models"
)

var (
	odometerRegex = regexp.MustCompile(`(?i)(?:odometer|mileage)[:\s]+([\d,]+)[^\d]{0,20}?(mi|km)`)
	damageRegex   = regexp.MustCompile(`(?i)primary damage[:\s]+([A-Za-z][A-Za-z ]*)`)
	engineRegex   = regexp.MustCompile(`(?i)engine[:\s]+(\d+(?:\.\d+)?)\s?L\b`)
)

// ExtractFields runs the three best-effort field patterns over flattened page
// text. Each field is independent; the first match wins and missing fields are
// left out of the map.
func ExtractFields(pageText string) map[string]string {
	fields := make(map[string]string)

	if m := odometerRegex.FindStringSubmatch(pageText); m != nil {
		fields[models.InfoOdometer] = fmt.Sprintf("%s %s", m[1], strings.ToLower(m[2]))
	}
	if m := damageRegex.FindStringSubmatch(pageText); m != nil {
		if v := strings.TrimSpace(m[1]); v != "" {
			fields[models.InfoDamage] = v
		}
	}
	if m := engineRegex.FindStringSubmatch(pageText); m != nil {
		fields[models.InfoEngine] = m[1] + "L"
	}

	return fields
}

// FlattenText returns the visible text of a document with one text node per
// line. Line breaks keep label/value pairs from running into each other.
func FlattenText(doc *goquery.Document) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				b.WriteString(t)
				b.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return b.String()
}
