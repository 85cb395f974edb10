// Package progressview is a bubbletea program for one download: a
// single progress bar polling a Controller's progress snapshot. It
// exists for a foreground `get` invocation; headless mode bypasses it
// entirely.
package progressview

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rangepull/rangepull/internal/engine/controller"
	"github.com/rangepull/rangepull/internal/engine/types"
	"github.com/rangepull/rangepull/internal/utils"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const pollInterval = 150 * time.Millisecond

var (
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	doneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type tickMsg time.Time

// Model drives the progress bar for a single *controller.Controller.
type Model struct {
	c        *controller.Controller
	progress progress.Model
	spinner  spinner.Model
	start    time.Time
}

// New returns a Model for c. The filename is shown once the probe
// resolves it.
func New(c *controller.Controller) Model {
	p := progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{c: c, progress: p, spinner: s, start: time.Now()}
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.c.Stop(true)
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		updated, cmd := m.progress.Update(msg)
		m.progress = updated.(progress.Model)
		return m, cmd

	case tickMsg:
		switch m.c.State() {
		case types.StateCompleted, types.StateFailed, types.StateStopped:
			return m, tea.Quit
		}

		var cmds []tea.Cmd
		cmds = append(cmds, tickCmd())

		snap := m.c.ProgressSnapshot()
		if snap.TotalBytes > 0 {
			cmds = append(cmds, m.progress.SetPercent(float64(snap.DownloadedBytes)/float64(snap.TotalBytes)))
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m Model) View() string {
	state := m.c.State()
	snap := m.c.ProgressSnapshot()

	switch state {
	case types.StateFailed:
		return fmt.Sprintf("\n  %s download failed: %v\n\n", errStyle.Render("x"), m.c.LastError())
	case types.StateStopped:
		return fmt.Sprintf("\n  %s stopped at %s / %s\n\n", infoStyle.Render("-"),
			utils.ConvertBytesToHumanReadable(snap.DownloadedBytes),
			utils.ConvertBytesToHumanReadable(snap.TotalBytes))
	case types.StateCompleted:
		elapsed := time.Since(m.start)
		var speed float64
		if elapsed.Seconds() > 0 {
			speed = float64(snap.TotalBytes) / elapsed.Seconds()
		}
		return fmt.Sprintf("\n  %s done  %s in %s (%s/s)\n\n",
			doneStyle.Render("done"),
			utils.ConvertBytesToHumanReadable(snap.TotalBytes),
			elapsed.Round(time.Millisecond),
			utils.ConvertBytesToHumanReadable(int64(speed)))
	}

	if snap.TotalBytes <= 0 {
		return fmt.Sprintf("\n  %s %s\n\n", m.spinner.View(), infoStyle.Render("probing..."))
	}

	eta := "unknown"
	if snap.ETASeconds >= 0 {
		eta = (time.Duration(snap.ETASeconds) * time.Second).String()
	}

	name := filepath.Base(m.c.DestPath())
	if name == "." || name == "/" {
		name = ""
	}

	return fmt.Sprintf("\n  %s %s\n  %s / %s  ETA %s\n\n",
		infoStyle.Render(name),
		m.progress.View(),
		utils.ConvertBytesToHumanReadable(snap.DownloadedBytes),
		utils.ConvertBytesToHumanReadable(snap.TotalBytes),
		eta)
}
