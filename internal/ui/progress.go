package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"gamscheck/internal/runner"
)

// checkView shows one row per file and an overall bar. Events with a Stage
// move a row forward; an event without a Stage closes the row.
type checkView struct {
	title  string
	events <-chan runner.Event
	spin   spinner.Model
	bar    progress.Model
	rows   []fileRow
	byPath map[string]int
	width  int
	done   bool
}

type fileRow struct {
	path     string
	status   string
	detail   string
	fraction float64
	finished bool
}

type (
	eventMsg runner.Event
	doneMsg  struct{}
)

const statusWidth = 10

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	busyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	statusStyles = map[string]lipgloss.Style{
		string(runner.StatusDone):   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		string(runner.StatusError):  lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		string(runner.StatusQueued): lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
	}

	stageLabels = map[runner.Stage]string{
		runner.StagePersist: "writing",
		runner.StageCompile: "compiling",
		runner.StageParse:   "parsing",
		runner.StageMap:     "mapping",
		runner.StageCleanup: "cleanup",
	}
)

// NewProgressModel returns a Bubble Tea model fed by events. It quits once
// events is closed.
func NewProgressModel(title string, files []string, events <-chan runner.Event) tea.Model {
	v := &checkView{
		title:  title,
		events: events,
		spin:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(busyStyle)),
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(76)),
		rows:   make([]fileRow, len(files)),
		byPath: make(map[string]int, len(files)),
		width:  80,
	}
	for i, f := range files {
		v.rows[i] = fileRow{path: f, status: string(runner.StatusQueued)}
		v.byPath[f] = i
	}
	return v
}

func (v *checkView) Init() tea.Cmd {
	return tea.Batch(v.spin.Tick, v.next())
}

func (v *checkView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case eventMsg:
		cmd = tea.Batch(v.applyEvent(runner.Event(msg)), v.next())
	case doneMsg:
		v.done = true
		cmd = tea.Quit
	case spinner.TickMsg:
		if !v.done {
			v.spin, cmd = v.spin.Update(msg)
		}
	case progress.FrameMsg:
		var bar tea.Model
		bar, cmd = v.bar.Update(msg)
		v.bar = bar.(progress.Model)
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			v.width = msg.Width
			v.bar.Width = msg.Width - 4
		}
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			cmd = tea.Quit
		}
	}
	return v, cmd
}

func (v *checkView) View() string {
	if len(v.rows) == 0 {
		return ""
	}
	finished := 0
	for _, r := range v.rows {
		if r.finished {
			finished++
		}
	}
	header := fmt.Sprintf("%s [%d/%d]", v.title, finished, len(v.rows))
	if v.done {
		header = "done: " + header
	} else {
		header = v.spin.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(header) + "\n\n")
	nameWidth := max(v.width-statusWidth-4, 20)
	for _, r := range v.rows {
		b.WriteString(v.renderRow(r, nameWidth) + "\n")
	}
	b.WriteString("\n")
	if v.done {
		b.WriteString(v.bar.ViewAs(1))
	} else {
		b.WriteString(v.bar.View())
	}
	return b.String() + "\n"
}

func (v *checkView) renderRow(r fileRow, nameWidth int) string {
	style, ok := statusStyles[r.status]
	if !ok {
		style = busyStyle
	}
	line := "  " + style.Render(fmt.Sprintf("%*s", statusWidth, r.status)) + " " + truncate(r.path, nameWidth)
	if r.detail == "" {
		return line
	}
	if room := v.width - runewidth.StringWidth(line) - 3; room > 8 {
		line += "  " + detailStyle.Render(truncate(r.detail, room))
	}
	return line
}

// next waits for one event; a closed channel turns into doneMsg.
func (v *checkView) next() tea.Cmd {
	return func() tea.Msg {
		if ev, ok := <-v.events; ok {
			return eventMsg(ev)
		}
		return doneMsg{}
	}
}

func (v *checkView) applyEvent(ev runner.Event) tea.Cmd {
	i, ok := v.byPath[ev.File]
	if !ok || v.rows[i].finished {
		return nil
	}
	r := &v.rows[i]
	if ev.Err != nil && (ev.Stage == "" || ev.Status == runner.StatusError) {
		r.detail = ev.Err.Error()
	}
	switch {
	case ev.Stage == "":
		r.finished = true
		r.fraction = 1
		r.status = string(ev.Status)
	case ev.Status == runner.StatusWorking:
		r.status = stageLabel(ev.Stage)
		r.fraction = max(r.fraction, stageFraction(ev.Stage, false))
	case ev.Status == runner.StatusDone:
		r.fraction = max(r.fraction, stageFraction(ev.Stage, true))
	case ev.Status == runner.StatusError:
		r.status = string(runner.StatusError)
	}
	return v.bar.SetPercent(v.percent())
}

func (v *checkView) percent() float64 {
	if len(v.rows) == 0 {
		return 0
	}
	var sum float64
	for _, r := range v.rows {
		sum += r.fraction
	}
	return sum / float64(len(v.rows))
}

// stageFraction is the share of the file done when stage starts, or when
// it ends if finished is set.
func stageFraction(stage runner.Stage, finished bool) float64 {
	i := -1
	for j, st := range runner.Stages {
		if st == stage {
			i = j
			break
		}
	}
	if i < 0 {
		return 0
	}
	if finished {
		i++
	}
	return float64(i) / float64(len(runner.Stages))
}

func stageLabel(stage runner.Stage) string {
	if label, ok := stageLabels[stage]; ok {
		return label
	}
	return string(stage)
}

// truncate cuts value to width cells, marking the cut with "..." when there
// is room for it.
func truncate(value string, width int) string {
	switch {
	case width <= 0, runewidth.StringWidth(value) <= width:
		return value
	case width <= 3:
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}

// Finished is true when m ran until its event channel closed rather than
// being quit by the user.
func Finished(m tea.Model) bool {
	v, ok := m.(*checkView)
	return ok && v.done
}
