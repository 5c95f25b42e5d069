// Package classify scores documents against keyword rule tables along the
// four taxonomy dimensions. Scoring is pure: it reads a filename and the
// extracted head text and never touches the filesystem.
package classify

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"alaidocs/internal/rules"
)

// Result is the outcome of classifying one dimension.
type Result struct {
	Label      string
	Confidence float64
	// Matched lists the keywords that contributed to the winning label.
	Matched []string
}

// Classification covers all four dimensions for one document.
type Classification struct {
	Vendor   Result
	DocType  Result
	Topic    Result
	Topology Result
}

// Classifier holds rule tables with their keyword patterns precompiled.
type Classifier struct {
	tables   rules.Tables
	patterns map[string]*regexp.Regexp
}

// New compiles the keyword patterns of all four tables.
func New(t rules.Tables) *Classifier {
	c := &Classifier{tables: t, patterns: make(map[string]*regexp.Regexp)}
	for _, tbl := range []rules.Table{t.Vendor, t.DocType, t.Topic, t.Topology} {
		for _, r := range tbl.Rules {
			for _, kw := range r.Keywords {
				if _, ok := c.patterns[kw]; ok {
					continue
				}
				c.patterns[kw] = regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(kw)) + `\b`)
			}
		}
	}
	return c
}

var separators = regexp.MustCompile(`[_\-.]+`)

// Classify runs all four dimensions over the filename and head text.
// Filename separators are treated as spaces so that names like
// "vendor_part-datasheet" match word-boundary keywords.
func (c *Classifier) Classify(filename, text string) Classification {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	name := Normalize(separators.ReplaceAllString(stem, " "))
	body := Normalize(text)
	return Classification{
		Vendor:   c.Dimension(c.tables.Vendor, name, body),
		DocType:  c.Dimension(c.tables.DocType, name, body),
		Topic:    c.Dimension(c.tables.Topic, name, body),
		Topology: c.Dimension(c.tables.Topology, name, body),
	}
}

// Dimension scores one rule table. Filename matches weigh 3x because names
// are short and deliberately descriptive. The winner's confidence is its
// share of the total score across all labels; a zero total yields the
// table's unknown label with confidence 0.
//
// Inputs must already be normalized.
func (c *Classifier) Dimension(tbl rules.Table, name, body string) Result {
	type scored struct {
		label   string
		score   float64
		matched []string
	}
	var all []scored
	var total float64
	for _, r := range tbl.Rules {
		var score float64
		var matched []string
		for _, kw := range r.Keywords {
			pat := c.patterns[kw]
			if pat == nil {
				continue
			}
			n := len(pat.FindAllStringIndex(name, -1))*3 + len(pat.FindAllStringIndex(body, -1))
			if n > 0 {
				score += r.Weight * float64(n)
				matched = append(matched, kw)
			}
		}
		if score > 0 {
			all = append(all, scored{r.Label, score, matched})
			total += score
		}
	}
	if total == 0 {
		return Result{Label: tbl.Unknown}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })
	best := all[0]
	return Result{Label: best.label, Confidence: best.score / total, Matched: best.matched}
}

var whitespace = regexp.MustCompile(`\s+`)

// Normalize lowercases and collapses runs of whitespace to single spaces
// so that keyword matching is layout independent.
func Normalize(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(strings.ToLower(s), " "))
}
