// Package tui is the interactive search screen: type a query, browse the
// ranked documents, preview the best matching chunk.
package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"alaidocs/internal/search"
)

// Searcher is the TUI-facing retrieval surface.
type Searcher interface {
	Search(ctx context.Context, query string) ([]search.DocResult, search.Query, error)
}

// Model is the Bubble Tea model for the search screen.
type Model struct {
	searcher  Searcher
	input     textinput.Model
	viewport  viewport.Model
	results   []search.DocResult
	status    string
	cursor    int
	ready     bool
	lastQuery string
}

// New creates the search screen model.
func New(searcher Searcher) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a query and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		searcher: searcher,
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   "Knowledge base loaded. Type to search.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + qh + 1 // title, status, query box, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderResults())
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				break
			}
			results, _, err := m.searcher.Search(context.Background(), q)
			if err != nil {
				m.status = errorStyle.Render("Error: " + err.Error())
				m.results = nil
			} else if len(results) == 0 {
				m.status = dimStyle.Render(fmt.Sprintf("No results for %q", q))
				m.results = nil
			} else {
				m.status = fmt.Sprintf("%d documents for %q", len(results), q)
				m.results = results
				m.cursor = 0
				m.lastQuery = q
			}
			m.viewport.SetContent(m.renderResults())
			return m, nil
		case "down", "ctrl+n":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderResults())
				return m, nil
			}
		case "up", "ctrl+p":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderResults())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	title := titleStyle.Render("alaidocs search")
	results := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	help := helpStyle.Render("up/down browse · enter search · esc quit")
	return title + "\n" + results + "\n" + input + "\n" + m.status + "  " + help
}

// renderResults shows the ranked list with the selected document's best
// chunk expanded underneath.
func (m Model) renderResults() string {
	if len(m.results) == 0 {
		return dimStyle.Render("No results yet.")
	}
	var b strings.Builder
	for i, r := range m.results {
		title := r.Title
		if title == "" {
			title = r.Path
		}
		line := fmt.Sprintf("%2d. [%.2f %s] %s", i+1, r.Score, r.Method, title)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString(listItemStyle.Render("  " + line))
		}
		b.WriteString("\n")
		b.WriteString(subtitleStyle.Render(fmt.Sprintf("      %s/%s", r.Vendor, r.DocType)))
		b.WriteString("\n")
	}

	sel := m.results[m.cursor]
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("--- p.%d of %s ---", sel.PageStart, sel.Path)))
	b.WriteString("\n")
	b.WriteString(highlightBestSentence(sel.BestChunk, m.lastQuery))
	return b.String()
}

var (
	wordRe     = regexp.MustCompile(`\p{L}+`)
	sentenceRe = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// highlightBestSentence emphasizes the sentence sharing the most tokens
// with the query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := tokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx, bestScore := 0, -1
	for i, s := range sentences {
		score := overlap(qTokens, s)
		if score > bestScore {
			bestScore, bestIdx = score, i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func tokenSet(s string) map[string]struct{} {
	tokens := wordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func overlap(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	seen := map[string]struct{}{}
	for _, t := range wordRe.FindAllString(strings.ToLower(sentence), -1) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
