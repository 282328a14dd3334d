package processors

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

var (
	commentRegex    = regexp.MustCompile(`<!--[\s\S]*?-->`)
	blankLinesRegex = regexp.MustCompile(`\n{3,}`)
)

// HTMLCleaner strips page chrome from HTML before it is rendered to markdown
type HTMLCleaner struct {
	// Tags to remove completely
	removeTags []string
	// Attributes to keep (others will be removed)
	keepAttributes []string
}

// NewHTMLCleaner creates a new HTML cleaner instance
func NewHTMLCleaner() *HTMLCleaner {
	return &HTMLCleaner{
		removeTags: []string{
			"script", "style", "noscript", "iframe", "object", "embed",
			"applet", "form", "input", "button", "select", "textarea",
			"svg", "path", "g", "defs", "use", "symbol",
			"meta", "link", "base",
		},
		// href survives so that posting links are still visible in the markdown
		keepAttributes: []string{
			"href", "data-href", "data-url", "id", "title", "aria-label",
		},
	}
}

// CleanHTML removes scripts, styles, forms and most attributes
func (hc *HTMLCleaner) CleanHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find(strings.Join(hc.removeTags, ", ")).Remove()
	hc.cleanAttributes(doc)

	cleaned, err := doc.Html()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(commentRegex.ReplaceAllString(cleaned, "")), nil
}

// ToMarkdown cleans html and converts it to markdown
func (hc *HTMLCleaner) ToMarkdown(html string) (string, error) {
	cleaned, err := hc.CleanHTML(html)
	if err != nil {
		return "", err
	}

	md, err := htmltomarkdown.ConvertString(cleaned)
	if err != nil {
		// plain text is still usable by the heuristics and the extractor
		doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(cleaned))
		if docErr != nil {
			return "", err
		}
		md = doc.Text()
	}

	return strings.TrimSpace(blankLinesRegex.ReplaceAllString(md, "\n\n")), nil
}

// cleanAttributes removes unwanted attributes from elements
func (hc *HTMLCleaner) cleanAttributes(doc *goquery.Document) {
	doc.Find("*").Each(func(i int, s *goquery.Selection) {
		var drop []string
		for _, attr := range s.Nodes[0].Attr {
			if !hc.keep(attr.Key) {
				drop = append(drop, attr.Key)
			}
		}
		for _, key := range drop {
			s.RemoveAttr(key)
		}
	})
}

func (hc *HTMLCleaner) keep(attr string) bool {
	for _, k := range hc.keepAttributes {
		if attr == k {
			return true
		}
	}
	return false
}
