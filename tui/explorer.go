package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
	"github.com/mattn/go-runewidth"

	"vote-ledger/blockchain"
	"vote-ledger/models"
	"vote-ledger/service"
)

const (
	hashDisplayLen = 24
	barWidth       = 30
	dash           = "—"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Source is the ledger the explorer reads from.
type Source interface {
	Blocks() []models.Block
	Tally() service.Tally
	Verify() blockchain.Result
}

// RefreshMsg carries a fresh copy of the chain and the results.
type RefreshMsg struct {
	Blocks []models.Block
	Tally  service.Tally
}

// VerifyMsg carries the result of a verification run.
type VerifyMsg struct {
	Result blockchain.Result
}

// Model holds the TUI state
type Model struct {
	src    Source
	blocks []models.Block
	tally  service.Tally
	verify *blockchain.Result
	width  int
	height int
}

func NewModel(src Source) Model {
	return Model{src: src}
}

func (m Model) Init() tea.Cmd {
	return refresh(m.src)
}

func refresh(src Source) tea.Cmd {
	return func() tea.Msg {
		return RefreshMsg{Blocks: src.Blocks(), Tally: src.Tally()}
	}
}

func verify(src Source) tea.Cmd {
	return func() tea.Msg {
		return VerifyMsg{Result: src.Verify()}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case RefreshMsg:
		m.blocks = msg.Blocks
		m.tally = msg.Tally
		// a verification result is stale once the chain changed
		m.verify = nil
		return m, nil

	case VerifyMsg:
		res := msg.Result
		m.verify = &res
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, refresh(m.src)
		case "v":
			return m, verify(m.src)
		}
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	sections := []string{
		titleStyle.Render(fmt.Sprintf("Vote ledger • %d blocks", len(m.blocks))),
		m.renderStatus(),
		"",
		m.renderDashboard(),
		"",
		m.renderBlocks(),
		mutedStyle.Render("r refresh • v verify • q quit"),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderStatus() string {
	switch {
	case m.verify == nil:
		return mutedStyle.Render("chain not verified")
	case m.verify.OK:
		return okStyle.Render("✔ chain valid")
	default:
		return badStyle.Render("✘ " + m.verify.Err().Error())
	}
}

func (m Model) renderDashboard() string {
	nameWidth := 0
	for _, row := range m.tally.Candidates {
		if w := runewidth.StringWidth(row.Name); w > nameWidth {
			nameWidth = w
		}
	}

	lines := make([]string, 0, len(m.tally.Candidates)+2)
	for _, row := range m.tally.Candidates {
		filled := row.Percent * barWidth / 100
		bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
		lines = append(lines, fmt.Sprintf("%s %s %3d (%d%%)", padToWidth(row.Name, nameWidth), bar, row.Votes, row.Percent))
	}
	for id, n := range m.tally.Unlisted {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("%s: %d (not on roster)", id, n)))
	}
	lines = append(lines, fmt.Sprintf("Total votes: %d", m.tally.TotalVotes))
	return strings.Join(lines, "\n")
}

// renderBlocks lists blocks newest first, as many as fit the window.
func (m Model) renderBlocks() string {
	limit := len(m.blocks)
	if m.height > 0 {
		// header, status, dashboard and help take the rest
		avail := m.height - len(m.tally.Candidates) - len(m.tally.Unlisted) - 7
		if avail < 1 {
			avail = 1
		}
		if avail < limit {
			limit = avail
		}
	}

	lines := make([]string, 0, limit)
	for i := len(m.blocks) - 1; i >= 0 && len(lines) < limit; i-- {
		line := FormatBlock(m.blocks[i])
		if m.width > 0 {
			line = truncateToWidth(line, m.width)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// FormatBlock renders one explorer row.
func FormatBlock(b models.Block) string {
	ts := b.Timestamp
	if t, err := b.Time(); err == nil {
		ts = t.Local().Format("2006-01-02 15:04:05")
	}
	candidate := b.CandidateID()
	if candidate == "" {
		candidate = dash
	}
	return fmt.Sprintf("#%-4d %s  voter %s  candidate %s  nonce %d  hash %s…",
		b.Index, ts, ShortAddress(b.Voter), candidate, b.Nonce, ShortHash(b.Hash))
}

// ShortAddress renders 0xAbCd…1234, checksummed when addr is a hex address.
func ShortAddress(addr string) string {
	if addr == "" {
		return dash
	}
	if common.IsHexAddress(addr) {
		addr = common.HexToAddress(addr).Hex()
	}
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

func ShortHash(hash string) string {
	if len(hash) <= hashDisplayLen {
		return hash
	}
	return hash[:hashDisplayLen]
}

func padToWidth(s string, width int) string {
	current := runewidth.StringWidth(s)
	if current >= width {
		return s
	}
	return s + strings.Repeat(" ", width-current)
}

func truncateToWidth(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}

// Run starts the explorer and blocks until the user quits.
func Run(src Source) error {
	p := tea.NewProgram(NewModel(src), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
