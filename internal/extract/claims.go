package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/slopwatch/internal/model"
)

const (
	strategyTemplate  = "template"
	strategyProximity = "proximity"

	maxClaimConfidence = 0.95
	maxTargetLength    = 80
)

// template is a sentence shape that announces a change
type template struct {
	name        string
	re          *regexp.Regexp
	base        float64
	verbGroup   int
	objectGroup int
}

// phrase is a tokenized domain phrase
type phrase struct {
	tokens []string
	domain model.Domain
}

// candidate is an unmerged claim produced by one strategy
type candidate struct {
	action     model.Action
	domain     model.Domain
	target     string
	sentence   string
	confidence float64
	strategy   string
	heuristic  string
}

// ClaimExtractor turns free text into structured claims.
// It holds no mutable state; Extract is safe for concurrent use.
type ClaimExtractor struct {
	templates       []template
	phrases         map[string][]phrase // first token -> phrases, longest first
	minConfidence   float64
	agreementBoost  float64
	proximityWindow int
}

// NewClaimExtractor creates a claim extractor using the given thresholds
func NewClaimExtractor(t model.ThresholdsConfig) *ClaimExtractor {
	e := &ClaimExtractor{
		phrases:         buildPhraseIndex(),
		minConfidence:   t.MinClaimConfidence,
		agreementBoost:  t.AgreementBoost,
		proximityWindow: t.ProximityWindow,
	}
	if e.proximityWindow <= 0 {
		e.proximityWindow = model.DefaultThresholds().ProximityWindow
	}

	verbs := verbAlternation()
	e.templates = []template{
		{
			name:        "have-verb",
			re:          regexp.MustCompile(`(?i)\b(?:i|we)(?:'ve|’ve|\s+have)\s+(?:(?:just|now|also|successfully|already|finally)\s+)*(` + verbs + `)\b\s*(.*)`),
			base:        0.70,
			verbGroup:   1,
			objectGroup: 2,
		},
		{
			name:        "has-been-verb",
			re:          regexp.MustCompile(`(?i)^(.+?)\s+(?:has|have)\s+(?:(?:now|also|just)\s+)?been\s+(?:(?:successfully|fully|properly|completely)\s+)?(` + verbs + `)\b`),
			base:        0.65,
			verbGroup:   2,
			objectGroup: 1,
		},
		{
			name:        "checkmark",
			re:          regexp.MustCompile(`(?i)^\s*(?:[-*]\s*)?(?:✅|✓|✔\x{FE0F}?|\[x\])\s*(?:\*\*)?(` + verbs + `)\b\s*(.*)`),
			base:        0.75,
			verbGroup:   1,
			objectGroup: 2,
		},
	}

	return e
}

// Extract extracts claims from text. It never fails: text without an
// action+domain signal yields an empty slice.
func (e *ClaimExtractor) Extract(text string) []model.Claim {
	var candidates []candidate
	for _, sentence := range splitSentences(text) {
		candidates = append(candidates, e.matchTemplates(sentence)...)
		candidates = append(candidates, e.matchProximity(sentence)...)
	}
	return e.merge(candidates)
}

// matchTemplates runs the fixed sentence templates against one sentence
func (e *ClaimExtractor) matchTemplates(sentence string) []candidate {
	var out []candidate
	for _, tpl := range e.templates {
		m := tpl.re.FindStringSubmatch(sentence)
		if m == nil {
			continue
		}
		action, ok := actionVerbs[strings.ToLower(m[tpl.verbGroup])]
		if !ok {
			continue
		}
		object := cleanTarget(m[tpl.objectGroup])
		tokens := tokenize(object)
		if vagueObject(tokens) {
			continue
		}
		domain := model.DomainGeneric
		if p, ok := e.firstPhrase(tokens); ok {
			domain = p.domain
		}
		out = append(out, candidate{
			action:     action,
			domain:     domain,
			target:     truncateTarget(object),
			sentence:   sentence,
			confidence: tpl.base,
			strategy:   strategyTemplate,
			heuristic:  "template:" + tpl.name,
		})
	}
	return out
}

// matchProximity pairs action verbs with domain phrases that occur within
// the proximity window; closer pairs score higher.
func (e *ClaimExtractor) matchProximity(sentence string) []candidate {
	tokens := tokenize(sentence)

	type hit struct {
		start, end int // inclusive token span
		p          phrase
	}
	var hits []hit
	for i := 0; i < len(tokens); {
		if p, ok := e.phraseAt(tokens, i); ok {
			hits = append(hits, hit{start: i, end: i + len(p.tokens) - 1, p: p})
			i += len(p.tokens)
			continue
		}
		i++
	}
	if len(hits) == 0 {
		return nil
	}

	var out []candidate
	for i, tok := range tokens {
		action, ok := actionVerbs[tok]
		if !ok {
			continue
		}
		if i > 0 && negators[tokens[i-1]] {
			continue
		}
		for _, h := range hits {
			var d int
			switch {
			case h.start > i:
				d = h.start - i
			case h.end < i:
				d = i - h.end
			default:
				continue
			}
			if d > e.proximityWindow {
				continue
			}
			out = append(out, candidate{
				action:     action,
				domain:     h.p.domain,
				target:     strings.Join(h.p.tokens, " "),
				sentence:   sentence,
				confidence: proximityConfidence(d),
				strategy:   strategyProximity,
				heuristic:  fmt.Sprintf("proximity:%s~%s(d=%d)", tok, strings.Join(h.p.tokens, " "), d),
			})
		}
	}
	return out
}

// proximityConfidence decays with token distance: 0.75 at d=1, 0.25 at d=33
func proximityConfidence(d int) float64 {
	if d < 1 {
		d = 1
	}
	return 0.75 / (1 + float64(d-1)/8)
}

// merge keeps the best candidate per (action, domain), boosts keys that
// several strategies agree on and drops low-confidence results
func (e *ClaimExtractor) merge(candidates []candidate) []model.Claim {
	type key struct {
		action model.Action
		domain model.Domain
	}
	best := make(map[key]candidate)
	strategies := make(map[key]map[string]bool)
	var order []key

	for _, c := range candidates {
		k := key{c.action, c.domain}
		if _, seen := best[k]; !seen {
			order = append(order, k)
			strategies[k] = make(map[string]bool)
			best[k] = c
		} else if c.confidence > best[k].confidence {
			best[k] = c
		}
		strategies[k][c.strategy] = true
	}

	claims := make([]model.Claim, 0, len(order))
	for _, k := range order {
		c := best[k]
		conf := c.confidence
		heuristic := c.heuristic
		if len(strategies[k]) > 1 {
			conf += e.agreementBoost
			heuristic += "+agreement"
		}
		if conf > maxClaimConfidence {
			conf = maxClaimConfidence
		}
		if conf < e.minConfidence {
			continue
		}
		claims = append(claims, model.Claim{
			Text:       c.sentence,
			Domain:     c.domain,
			Action:     c.action,
			Target:     c.target,
			Confidence: model.ClampConfidence(conf),
			Strategy:   heuristic,
		})
	}

	sort.SliceStable(claims, func(i, j int) bool {
		return claims[i].Confidence > claims[j].Confidence
	})
	return claims
}

// phraseAt returns the longest domain phrase starting at tokens[i]
func (e *ClaimExtractor) phraseAt(tokens []string, i int) (phrase, bool) {
	for _, p := range e.phrases[tokens[i]] {
		if i+len(p.tokens) > len(tokens) {
			continue
		}
		match := true
		for k, t := range p.tokens {
			if tokens[i+k] != t {
				match = false
				break
			}
		}
		if match {
			return p, true
		}
	}
	return phrase{}, false
}

// firstPhrase returns the first domain phrase found in tokens
func (e *ClaimExtractor) firstPhrase(tokens []string) (phrase, bool) {
	for i := range tokens {
		if p, ok := e.phraseAt(tokens, i); ok {
			return p, true
		}
	}
	return phrase{}, false
}

func buildPhraseIndex() map[string][]phrase {
	index := make(map[string][]phrase)
	for _, domain := range model.Domains {
		for _, text := range domainPhrases[domain] {
			tokens := tokenize(text)
			if len(tokens) == 0 {
				continue
			}
			index[tokens[0]] = append(index[tokens[0]], phrase{tokens: tokens, domain: domain})
		}
	}
	for first := range index {
		sort.SliceStable(index[first], func(i, j int) bool {
			return len(index[first][i].tokens) > len(index[first][j].tokens)
		})
	}
	return index
}

// verbAlternation builds a regexp alternation of every verb form, longest first
func verbAlternation() string {
	verbs := make([]string, 0, len(actionVerbs))
	for v := range actionVerbs {
		verbs = append(verbs, regexp.QuoteMeta(v))
	}
	sort.Slice(verbs, func(i, j int) bool {
		if len(verbs[i]) != len(verbs[j]) {
			return len(verbs[i]) > len(verbs[j])
		}
		return verbs[i] < verbs[j]
	})
	return strings.Join(verbs, "|")
}

// tokenize lower-cases text and splits it into word tokens, keeping inner apostrophes
func tokenize(text string) []string {
	text = strings.ReplaceAll(strings.ToLower(text), "’", "'")
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'')
	})
	tokens := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// cleanTarget trims punctuation and markdown from a captured object
func cleanTarget(s string) string {
	s = strings.TrimSpace(strings.NewReplacer("**", "", "__", "", "`", "").Replace(s))
	return strings.TrimRight(s, ".!?:;, ")
}

// truncateTarget caps a target at maxTargetLength bytes without splitting a rune
func truncateTarget(s string) string {
	if len(s) <= maxTargetLength {
		return s
	}
	cut := maxTargetLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut])
}

// vagueObject reports whether an object names nothing ("it", "this", "everything")
func vagueObject(tokens []string) bool {
	for _, t := range tokens {
		if !fillerWords[t] {
			return false
		}
	}
	return true
}

// splitSentences splits text into sentences and list items
func splitSentences(text string) []string {
	var sentences []string
	for _, line := range strings.Split(text, "\n") {
		var current strings.Builder
		runes := []rune(line)
		for i, r := range runes {
			current.WriteRune(r)
			if r == '.' || r == '!' || r == '?' {
				// Only split when followed by whitespace to keep "file.css" intact
				if i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
					appendSentence(&sentences, current.String())
					current.Reset()
				}
			}
		}
		appendSentence(&sentences, current.String())
	}
	return sentences
}

func appendSentence(sentences *[]string, s string) {
	s = strings.TrimSpace(s)
	if len(s) >= 3 && len(s) <= 500 {
		*sentences = append(*sentences, s)
	}
}
