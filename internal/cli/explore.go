package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pangraph/pkg/condition"
	"github.com/matzehuels/pangraph/pkg/observability"
	"github.com/matzehuels/pangraph/pkg/pipeline"
	"github.com/matzehuels/pangraph/pkg/session"
	"github.com/matzehuels/pangraph/pkg/window"
)

// Explorer styles
var (
	exploreCursorStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	exploreCenterStyle = lipgloss.NewStyle().Foreground(colorCyan)
	exploreHelpStyle   = lipgloss.NewStyle().Foreground(colorDim)
	exploreErrorStyle  = lipgloss.NewStyle().Foreground(colorRed)
)

// exploreTTL is how long a saved explorer window is kept.
const exploreTTL = 30 * 24 * time.Hour

const exploreHelp = "h/l move  +/- zoom  [ ] grow  { } shrink  ⏎ click  e edge  m mode  c cond  x drop  g goto  r reset  q quit"

// exploreCommand creates the explore command, an interactive terminal
// browser over one graph.
func (c *CLI) exploreCommand() *cobra.Command {
	var (
		flags loadFlags
		view  viewFlags
		fresh bool
	)

	cmd := &cobra.Command{
		Use:   "explore [file.gfa]",
		Short: "Browse a graph interactively",
		Long: `Browse a graph interactively in the terminal.

The explorer remembers the last window of every graph and resumes there
unless --fresh or an explicit --center is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resume := !fresh && !cmd.Flags().Changed("center")
			return c.runExplore(cmd.Context(), args[0], flags, view, resume)
		},
	}
	flags.register(cmd)
	c.registerViewFlags(cmd, &view)
	cmd.Flags().BoolVar(&fresh, "fresh", false, "ignore the saved window")

	return cmd
}

func (c *CLI) runExplore(ctx context.Context, source string, flags loadFlags, view viewFlags, resume bool) error {
	logger := loggerFromContext(ctx)

	result, err := c.loadGraph(ctx, source, flags)
	if err != nil {
		return fmt.Errorf("load %s: %w", source, err)
	}
	defer result.Close()

	store, err := openViewStore()
	if err != nil {
		logger.Warn("Saved windows unavailable", "error", err)
	}

	state := c.exploreState(ctx, store, result.Source, view, resume)
	palette, err := c.Config.Palette()
	if err != nil {
		return err
	}
	m, err := newExploreModel(ctx, result, state, palette...)
	if err != nil {
		return err
	}

	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	if fm, ok := final.(exploreModel); ok && store != nil {
		fm.commit()
		if err := store.Set(ctx, fm.state); err != nil {
			logger.Warn("Could not save window", "error", err)
		}
	}
	return nil
}

// openViewStore opens the per-user store of explorer windows.
func openViewStore() (*session.FileStore, error) {
	dir, err := session.DefaultDir()
	if err != nil {
		return nil, err
	}
	return session.NewFileStore(dir)
}

// exploreState returns the saved window of source, or a new one built from
// the view flags.
func (c *CLI) exploreState(ctx context.Context, store session.Store, source string, f viewFlags, resume bool) *session.View {
	id := session.SourceID(source)
	if resume && store != nil {
		if v, err := store.Get(ctx, id); err == nil && v.Source == source {
			return v
		}
	}
	v := session.New(source, f.center, f.radius, exploreTTL)
	v.ID = id
	v.Conditions = f.conditions
	return v
}

// inputKind is what the explorer's input line is collecting.
type inputKind int

const (
	inputNone inputKind = iota
	inputCondition
	inputGoto
)

// exploreModel is the bubbletea model of the explorer.
type exploreModel struct {
	ctx    context.Context
	result *pipeline.Result
	win    *window.Window
	set    *condition.Set
	state  *session.View

	cursor int // Index into the visible nodes
	width  int

	input   inputKind
	buffer  string
	message string
	err     error
}

func newExploreModel(ctx context.Context, result *pipeline.Result, state *session.View, palette ...colorful.Color) (exploreModel, error) {
	m := exploreModel{
		ctx:    ctx,
		result: result,
		state:  state,
		width:  80,
		set:    condition.NewSet(result.Genomes, palette...),
	}
	win, err := result.NewWindow(state.Center, state.Radius)
	if err != nil {
		return m, err
	}
	if state.Hi >= state.Lo {
		// A range saved for an older version of the graph is dropped.
		_ = win.SetRange(state.Lo, state.Hi)
	}
	m.win = win
	for _, expr := range state.Conditions {
		if _, err := m.set.AddExpr(expr); err != nil {
			return m, err
		}
	}
	if state.Mode == "" {
		m.state.Mode = session.ModeCenter
	}
	m.cursor = m.indexOf(state.Center)
	return m, nil
}

func (m exploreModel) Init() tea.Cmd {
	return nil
}

func (m exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.input != inputNone {
			return m.updateInput(msg), nil
		}
		return m.updateKey(msg)
	case tea.WindowSizeMsg:
		m.width = max(msg.Width, 20)
	}
	return m, nil
}

func (m exploreModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.message, m.err = "", nil
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "left", "h":
		if m.cursor > 0 {
			m.cursor--
		}
	case "right", "l":
		if m.cursor < m.win.Len()-1 {
			m.cursor++
		}
	case "+":
		m.apply("zoom_out", m.win.ZoomOut)
	case "-":
		m.apply("zoom_in", m.win.ZoomIn)
	case "[":
		m.apply("grow_root", m.win.GrowRoot)
	case "]":
		m.apply("grow_leaf", m.win.GrowLeaf)
	case "{":
		m.apply("shrink_root", m.win.ShrinkRoot)
	case "}":
		m.apply("shrink_leaf", m.win.ShrinkLeaf)
	case "enter":
		if id, ok := m.current(); ok {
			m.click(window.NodeTarget(id))
		}
	case "e":
		if id, ok := m.current(); ok {
			m.clickEdge(id)
		}
	case "m":
		if m.state.Mode == session.ModeCenter {
			m.state.Mode = session.ModeInfo
		} else {
			m.state.Mode = session.ModeCenter
		}
		m.message = "mode: " + m.state.Mode
	case "c":
		m.input, m.buffer = inputCondition, ""
	case "g":
		m.input, m.buffer = inputGoto, ""
	case "x":
		if n := m.set.Len(); n > 0 {
			m.err = m.set.Remove(n - 1)
			observability.Window().OnWindowChange(m.ctx, "condition_remove", 0, 0)
		}
	case "r":
		m.recenter(pipeline.DefaultCenter, m.state.Radius)
	}
	return m, nil
}

func (m exploreModel) updateInput(msg tea.KeyMsg) exploreModel {
	switch msg.Type {
	case tea.KeyEsc:
		m.input = inputNone
	case tea.KeyEnter:
		kind, text := m.input, strings.TrimSpace(m.buffer)
		m.input, m.buffer = inputNone, ""
		m.submit(kind, text)
	case tea.KeyBackspace:
		if len(m.buffer) > 0 {
			m.buffer = m.buffer[:len(m.buffer)-1]
		}
	case tea.KeyRunes, tea.KeySpace:
		m.buffer += string(msg.Runes)
	}
	return m
}

func (m *exploreModel) submit(kind inputKind, text string) {
	m.message, m.err = "", nil
	if text == "" {
		return
	}
	switch kind {
	case inputCondition:
		cond, err := m.set.AddExpr(text)
		if err != nil {
			m.err = err
			return
		}
		observability.Window().OnWindowChange(m.ctx, "condition_add", 0, 0)
		m.message = "added " + cond.String()
	case inputGoto:
		id, err := strconv.Atoi(text)
		if err != nil {
			m.err = fmt.Errorf("not a node id: %q", text)
			return
		}
		m.recenter(id, m.state.Radius)
	}
}

// apply runs one window step and records it.
func (m *exploreModel) apply(op string, step func() window.Delta) {
	d := step()
	observability.Window().OnWindowChange(m.ctx, op, len(d.Added), len(d.Removed))
	m.cursor = min(m.cursor, m.win.Len()-1)
	if d.Empty() {
		m.message = op + ": nothing changed"
	}
}

func (m *exploreModel) recenter(id, radius int) {
	before := m.win.Len()
	if err := m.win.SetCenter(id, radius); err != nil {
		m.err = err
		return
	}
	m.state.Center, m.state.Radius = id, radius
	observability.Window().OnWindowChange(m.ctx, "center", m.win.Len(), before)
	m.cursor = m.indexOf(id)
	m.message = fmt.Sprintf("centered on node %d", id)
}

func (m *exploreModel) click(t window.Target) {
	if m.state.Mode == session.ModeCenter && t.Kind == window.TargetNode {
		m.recenter(t.Node, m.state.Radius)
		return
	}
	msg, err := m.win.Click(t, window.InfoHandler{
		Segments: m.result.Segments,
		Genomes:  m.result.Genomes,
	})
	m.message, m.err = msg, err
}

// clickEdge clicks the first visible edge leaving id.
func (m *exploreModel) clickEdge(id int) {
	for _, child := range m.result.Graph.Outgoing(id) {
		if m.win.Contains(child) {
			m.click(window.EdgeTarget(id, child))
			return
		}
	}
	m.message = fmt.Sprintf("node %d has no visible children", id)
}

// commit copies the window into the saved state.
func (m *exploreModel) commit() {
	m.state.Lo, m.state.Hi = m.win.Range()
	m.state.Conditions = m.set.Exprs()
	m.state.Touch(exploreTTL)
}

func (m exploreModel) current() (int, bool) {
	nodes := m.win.Visible()
	if m.cursor < 0 || m.cursor >= len(nodes) {
		return 0, false
	}
	return nodes[m.cursor].ID, true
}

func (m exploreModel) indexOf(id int) int {
	for i, n := range m.win.Visible() {
		if n.ID == id {
			return i
		}
	}
	return 0
}

func (m exploreModel) View() string {
	var b strings.Builder

	lo, hi := m.win.Range()
	b.WriteString(StyleTitle.Render("pangraph"))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  %s · center %d · radius %d · ranks %d..%d · %s mode",
		m.result.Source, m.state.Center, m.state.Radius, lo, hi, m.state.Mode)))
	b.WriteString("\n\n")
	b.WriteString(m.strip())
	b.WriteString("\n\n")

	if id, ok := m.current(); ok {
		n, _ := m.win.Node(id)
		b.WriteString(fmt.Sprintf("node %d · %d bp · %d genomes · x %g\n",
			id, n.Length, m.result.Genomes.Count(id), n.X))
	}
	for i, expr := range m.set.Exprs() {
		b.WriteString(fmt.Sprintf("%d %s %s\n", i+1, swatch(m.set.Conditions()[i].Color().Hex()), expr))
	}

	switch m.input {
	case inputCondition:
		b.WriteString("condition> " + m.buffer + "█\n")
	case inputGoto:
		b.WriteString("goto node> " + m.buffer + "█\n")
	}
	if m.err != nil {
		b.WriteString(exploreErrorStyle.Render(m.err.Error()) + "\n")
	} else if m.message != "" {
		b.WriteString(m.message + "\n")
	}
	b.WriteString("\n")
	b.WriteString(exploreHelpStyle.Render(exploreHelp))
	return b.String()
}

// strip renders the visible nodes as a row of colored cells, scrolled so
// the cursor stays on screen.
func (m exploreModel) strip() string {
	nodes := m.win.Visible()
	if len(nodes) == 0 {
		return StyleDim.Render("(empty window)")
	}

	cells := make([]string, len(nodes))
	widths := make([]int, len(nodes))
	for i, n := range nodes {
		label := strconv.Itoa(n.ID)
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(m.set.ColorFor(n).Hex()))
		if n.ID == m.state.Center {
			style = style.Inherit(exploreCenterStyle)
		}
		if i == m.cursor {
			style = style.Inherit(exploreCursorStyle)
		}
		cells[i] = style.Render("■" + label)
		widths[i] = len(label) + 2
	}

	start, used := m.cursor, widths[m.cursor]
	for start > 0 && used+widths[start-1] <= m.width/2 {
		start--
		used += widths[start]
	}
	end := m.cursor + 1
	for end < len(cells) && used+widths[end] <= m.width {
		used += widths[end]
		end++
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString(StyleDim.Render("‹ "))
	}
	b.WriteString(strings.Join(cells[start:end], " "))
	if end < len(cells) {
		b.WriteString(StyleDim.Render(" ›"))
	}
	return b.String()
}
