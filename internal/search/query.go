// Package search answers free-text queries over the knowledge base with
// fused lexical and vector scores, selects a diverse document subset, and
// packages results for handoff.
package search

import (
	"context"
	"regexp"
	"slices"
	"sort"
	"strings"

	"alaidocs/internal/classify"
	"alaidocs/internal/logger"
)

// Translator renders non-English query text into English. A nil Translator
// leaves queries untranslated.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Query is an analyzed user query.
type Query struct {
	Original string
	// Text is what retrieval actually runs on: the translation when one
	// happened, the original otherwise.
	Text     string
	Language string
	Keywords []string
}

// stopwords are dropped from queries before keyword matching.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true,
	"for": true, "in": true, "on": true, "at": true, "to": true, "with": true,
	"about": true, "how": true, "what": true, "which": true, "is": true,
	"are": true, "do": true, "does": true, "can": true, "me": true, "my": true,
	"find": true, "show": true, "need": true, "want": true, "looking": true,
	"pdf": true, "pdfs": true, "doc": true, "docs": true, "document": true,
	"documents": true, "file": true, "files": true, "info": true,
}

// abbreviations expand domain shorthand; the short form is kept alongside
// the expansion so exact FTS matches still work.
var abbreviations = map[string]string{
	"bi":   "bidirectional",
	"bb":   "buck boost",
	"emi":  "electromagnetic interference",
	"emc":  "electromagnetic compatibility",
	"esd":  "electrostatic discharge",
	"tvs":  "transient voltage suppressor",
	"ovp":  "overvoltage protection",
	"ocp":  "overcurrent protection",
	"smps": "switching power supply",
	"psu":  "power supply",
	"ldo":  "low dropout regulator",
	"pfc":  "power factor correction",
	"bms":  "battery management system",
	"evm":  "evaluation module",
}

// knownTokens is the vocabulary used to split compound words like
// "buckboost" or "bibuckboost" that appear in file names and queries.
var knownTokens = []string{
	"bidirectional", "synchronous", "transformer", "protection", "converter",
	"controller", "regulator", "efficiency", "inductor", "charger", "battery",
	"inverter", "flyback", "snubber", "thermal", "voltage", "current",
	"filter", "driver", "surge", "boost", "buck", "gate", "llc", "dab",
	"sepic", "emi", "emc", "esd", "tvs", "bms", "power", "supply", "diode",
	"mosfet", "gan", "sic", "bi", "bb", "mode", "common", "choke", "noise",
	"loop", "comp",
}

func init() {
	// Greedy compound splitting needs longest-first matching.
	sort.Slice(knownTokens, func(i, j int) bool { return len(knownTokens[i]) > len(knownTokens[j]) })
}

// Analyze detects the query language, translates when needed, and extracts
// search keywords. Translation failure degrades to the original text.
func Analyze(ctx context.Context, raw string, tr Translator) Query {
	q := Query{
		Original: raw,
		Text:     raw,
		Language: classify.GuessLanguage(raw),
	}
	if q.Language != "en" && tr != nil {
		translated, err := tr.Translate(ctx, raw)
		if err != nil {
			logger.Warn("query translation failed: %v", err)
		} else if strings.TrimSpace(translated) != "" {
			q.Text = translated
			logger.Debug("translated query: %s", translated)
		}
	}
	q.Keywords = ExtractKeywords(q.Text)
	return q
}

var wordPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9\-]*`)
var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// ExtractKeywords tokenizes text into search keywords: camelCase and
// hyphenated words are split, stopwords dropped, abbreviations expanded
// (keeping the short form), and oversized unknown words are decomposed
// against the domain vocabulary. Order is preserved, duplicates removed.
func ExtractKeywords(text string) []string {
	text = camelBoundary.ReplaceAllString(text, "$1 $2")

	var out []string
	seen := map[string]bool{}
	add := func(w string) {
		w = strings.ToLower(w)
		if w == "" || stopwords[w] || seen[w] {
			return
		}
		seen[w] = true
		out = append(out, w)
	}

	for _, raw := range wordPattern.FindAllString(text, -1) {
		for _, w := range strings.Split(strings.ToLower(raw), "-") {
			if w == "" || stopwords[w] {
				continue
			}
			add(w)
			if exp, ok := abbreviations[w]; ok {
				for _, e := range strings.Fields(exp) {
					add(e)
				}
				continue
			}
			// Long unfamiliar words are often glued-together compounds.
			if len(w) > 8 && !slices.Contains(knownTokens, w) {
				for _, part := range splitCompound(w) {
					add(part)
					if exp, ok := abbreviations[part]; ok {
						for _, e := range strings.Fields(exp) {
							add(e)
						}
					}
				}
			}
		}
	}
	return out
}

// splitCompound greedily decomposes w into known tokens, longest match
// first. Returns nil when any residue cannot be matched.
func splitCompound(w string) []string {
	var parts []string
	rest := w
	for rest != "" {
		matched := ""
		for _, t := range knownTokens {
			if strings.HasPrefix(rest, t) {
				matched = t
				break
			}
		}
		if matched == "" {
			return nil
		}
		parts = append(parts, matched)
		rest = rest[len(matched):]
	}
	return parts
}

// FTSMatch renders keywords as a quoted OR query for FTS5. Quoting keeps
// tokens with reserved characters from breaking the MATCH grammar.
func FTSMatch(keywords []string) string {
	if len(keywords) == 0 {
		return ""
	}
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = `"` + strings.ReplaceAll(k, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " OR ")
}
