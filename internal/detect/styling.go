package detect

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/slopwatch/internal/model"
)

// StylingDetector verifies claims about CSS, themes, layout and responsive design
type StylingDetector struct {
	signatureDetector
}

// NewStylingDetector creates a styling detector
func NewStylingDetector(params model.ThresholdsConfig) *StylingDetector {
	d := &StylingDetector{signatureDetector{
		domain:     model.DomainStyling,
		label:      "style or script",
		extensions: styleExtensions,
		markers:    mustCompile(`(?i)<style|\bstyle\s*=|className|classList|styled\.|css\x60|\.style\.|\bclass\s*=`),
		params:     params,
		categories: []Category{
			{Name: "responsive", Keywords: []string{"responsive", "mobile", "media quer", "breakpoint", "tablet"}},
			{Name: "color", Keywords: []string{"dark mode", "light mode", "color", "colour", "theme", "palette", "contrast"}},
			{Name: "animation", Keywords: []string{"animation", "transition", "hover", "fade", "animate"}},
			{Name: "layout", Keywords: []string{"layout", "flexbox", "grid", "align", "center"}},
			{Name: "dimension", Keywords: []string{"width", "height", "size", "padding", "margin", "spacing"}},
		},
		signatures: []Signature{
			{Pattern: mustCompile(`@media\b`), Category: "responsive", Weight: 0.4, Description: "media query"},
			{Pattern: mustCompile(`\b(?:max|min)-(?:width|height)\s*:`), Category: "responsive", Weight: 0.2, Description: "width/height breakpoint"},
			{Pattern: mustCompile(`\b\d+(?:\.\d+)?(?:vw|vh|dvh)\b|\bclamp\(`), Category: "responsive", Weight: 0.1, Description: "viewport-relative sizing"},
			{Pattern: mustCompile(`prefers-color-scheme`), Category: "color", Weight: 0.4, Description: "color scheme media feature"},
			{Pattern: mustCompile(`(?i)\.dark\b|data-theme|dark-mode|darkmode|\btheme\s*[:=]`), Category: "color", Weight: 0.3, Description: "theme selector"},
			{Pattern: mustCompile(`#[0-9a-fA-F]{3,8}\b|\b(?:rgb|rgba|hsl|hsla)\(`), Category: "color", Weight: 0.2, Description: "color value"},
			{Pattern: mustCompile(`--[\w-]+\s*:`), Category: "color", Weight: 0.2, Description: "CSS custom property"},
			{Pattern: mustCompile(`@keyframes\b`), Category: "animation", Weight: 0.4, Description: "keyframes animation"},
			{Pattern: mustCompile(`\b(?:transition|animation)\s*:`), Category: "animation", Weight: 0.3, Description: "transition/animation declaration"},
			{Pattern: mustCompile(`:hover\b`), Category: "animation", Weight: 0.1, Description: "hover state"},
			{Pattern: mustCompile(`display\s*:\s*(?:flex|grid|inline-flex|inline-grid)`), Category: "layout", Weight: 0.3, Description: "flex/grid display"},
			{Pattern: mustCompile(`\b(?:justify-content|align-items|flex-direction|grid-template[\w-]*)\s*:`), Category: "layout", Weight: 0.2, Description: "alignment rules"},
			{Pattern: mustCompile(`(?:^|[\s;{])(?:width|height|padding|margin|gap)\s*:`), Category: "dimension", Weight: 0.2, Description: "box dimension declaration"},
		},
	}}
	d.extra = inlineStyleMatches
	d.bind()
	return d
}

// Relevant accepts style sheets plus markup and scripts whose diff touches styles
func (d *StylingDetector) Relevant(change model.FileChangeEvent) bool {
	if d.extensions[change.Ext()] {
		return true
	}
	if markupExtensions[change.Ext()] || codeExtensions[change.Ext()] {
		return d.markers.MatchString(change.DiffSummary)
	}
	return false
}

func (d *StylingDetector) Analyze(claim model.Claim, changes []model.FileChangeEvent) model.Verdict {
	return d.analyzeWith(claim, changes, d.Relevant)
}

// inlineStyleMatches tokenizes added markup lines and reports <style>
// blocks and inline style attributes as structural evidence
func inlineStyleMatches(changes []model.FileChangeEvent) []match {
	var matches []match
	for _, change := range changes {
		if !markupExtensions[change.Ext()] {
			continue
		}
		added := strings.Join(change.AddedLines(), "\n")
		if added == "" {
			continue
		}

		styleBlocks, inlineStyles := 0, 0
		tagged := ""
		z := html.NewTokenizer(strings.NewReader(added))
		for {
			tt := z.Next()
			if tt == html.ErrorToken {
				break
			}
			if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
				continue
			}
			tok := z.Token()
			if tok.Data == "style" {
				styleBlocks++
			}
			for _, attr := range tok.Attr {
				if attr.Key == "style" && strings.TrimSpace(attr.Val) != "" {
					inlineStyles++
					if tagged == "" {
						tagged = tok.Data
					}
				}
			}
		}

		if styleBlocks > 0 {
			matches = append(matches, match{
				description: fmt.Sprintf("%d <style> block(s)", styleBlocks),
				weight:      0.2,
				path:        change.Path,
			})
		}
		if inlineStyles > 0 {
			matches = append(matches, match{
				description: fmt.Sprintf("%d inline style attribute(s), first on <%s>", inlineStyles, tagged),
				weight:      0.1,
				path:        change.Path,
			})
		}
	}
	return matches
}
