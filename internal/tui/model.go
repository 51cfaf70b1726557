package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragflow/internal/chunker"
	"ragflow/internal/domain"
	"ragflow/internal/service"
)

// RAGPort is the TUI-facing subset of the RAG service.
type RAGPort interface {
	Search(ctx context.Context, query string, topK int) ([]domain.Match, error)
	Ask(ctx context.Context, question string, topK int) (service.Answer, error)
}

type searchDoneMsg struct {
	query   string
	matches []domain.Match
	err     error
}

type askDoneMsg struct {
	query  string
	answer service.Answer
	err    error
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	ctx       context.Context
	service   RAGPort
	topK      int
	canAsk    bool
	input     textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	results   []domain.Match
	answer    string
	header    string
	status    string
	busy      bool
	cursor    int
	ready     bool
	lastQuery string
}

// New creates a new chat model. canAsk enables answer generation with ctrl+a.
func New(ctx context.Context, svc RAGPort, topK int, canAsk bool, header string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a question; enter searches"
	if canAsk {
		ti.Placeholder += ", ctrl+a answers"
	}
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		ctx:      ctx,
		service:  svc,
		topK:     topK,
		canAsk:   canAsk,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		header:   header,
		status:   "Ready.",
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and completion events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header, status, query box, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderCurrent())
		return m, nil

	case searchDoneMsg:
		m.busy = false
		m.answer = ""
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.results = nil
		} else {
			m.status = fmt.Sprintf("%d results for %q", len(msg.matches), msg.query)
			m.results = msg.matches
			m.cursor = 0
			m.lastQuery = msg.query
		}
		m.viewport.SetContent(m.renderCurrent())
		return m, nil

	case askDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("Answer for %q", msg.query)
			m.answer = msg.answer.Text
			m.results = msg.answer.Sources
			m.cursor = 0
			m.lastQuery = msg.query
		}
		m.viewport.SetContent(m.renderCurrent())
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter", "ctrl+a":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.busy = true
			if msg.String() == "ctrl+a" {
				if !m.canAsk {
					m.busy = false
					m.status = "No generator configured; enter searches only."
					return m, nil
				}
				m.status = "Generating answer..."
				return m, tea.Batch(m.spinner.Tick, m.ask(q))
			}
			m.status = "Searching..."
			return m, tea.Batch(m.spinner.Tick, m.search(q))
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		case "pgdown", "pgup":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) search(q string) tea.Cmd {
	return func() tea.Msg {
		matches, err := m.service.Search(m.ctx, q, m.topK)
		return searchDoneMsg{query: q, matches: matches, err: err}
	}
}

func (m Model) ask(q string) tea.Cmd {
	return func() tea.Msg {
		ans, err := m.service.Ask(m.ctx, q, m.topK)
		return askDoneMsg{query: q, answer: ans, err: err}
	}
}

// View renders the layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render("ragflow") + "  " + subtleStyle.Render(m.header)
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" +
		resultBoxStyle.Render(m.viewport.View()) + "\n" +
		queryBoxStyle.Render(m.input.View()) + "\n" +
		statusStyle.Render(status)
}

func (m Model) renderCurrent() string {
	var b strings.Builder
	if m.answer != "" {
		b.WriteString(answerStyle.Render(m.answer))
		b.WriteString("\n\n")
	}
	if len(m.results) == 0 {
		if m.answer == "" {
			b.WriteString("No results yet.")
		}
		return b.String()
	}
	r := m.results[m.cursor]
	title := fmt.Sprintf("Passage %d/%d  score=%.3f  %s", m.cursor+1, len(m.results), r.Score, r.ID)
	if src := r.Metadata["source"]; src != "" {
		title += "  " + subtleStyle.Render(src)
	}
	b.WriteString(title + "\n\n" + highlightBestSentence(r.Text, m.lastQuery))
	return b.String()
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	subtleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	answerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	wordPattern    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// highlightBestSentence emphasizes the sentence sharing the most words with query.
func highlightBestSentence(text, query string) string {
	sentences := chunker.Sentences(text)
	if len(sentences) == 0 {
		return text
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx, bestScore := 0, -1
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := wordPattern.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	seen := make(map[string]struct{})
	for _, t := range wordPattern.FindAllString(strings.ToLower(sentence), -1) {
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
