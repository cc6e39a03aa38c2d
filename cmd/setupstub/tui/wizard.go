package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/fyind/setupkit/pkg/setup/installer"
	"github.com/fyind/setupkit/pkg/setup/payload"
)

// Step identifies the wizard page being shown.
type Step int

const (
	StepWelcome Step = iota
	StepLicense
	StepDirectory
	StepTasks
	StepInstalling
	StepDone
	StepFailed
)

// Options configures the wizard.
type Options struct {
	// Archive is the opened installer payload.
	Archive *payload.Archive

	// License is the license text, empty when the app ships none.
	License string

	// DefaultTarget pre-fills the install directory prompt.
	DefaultTarget string

	// UninstallerSource is the stub executable copied as the uninstaller.
	UninstallerSource string
}

// taskItem is one optional task checkbox.
type taskItem struct {
	entry   payload.TaskEntry
	checked bool
}

// statusMsg carries one installer progress update.
type statusMsg installer.Status

// installDoneMsg reports the final install outcome.
type installDoneMsg struct {
	err error
}

// Model is the Bubble Tea model for the install wizard.
type Model struct {
	step Step
	opts Options
	plan *payload.Plan

	dirInput textinput.Model
	license  viewport.Model
	tasks    []taskItem
	cursor   int

	bar       progress.Model
	current   string
	installed int64

	ctx    context.Context
	cancel context.CancelFunc
	status chan installer.Status
	result chan error

	err    error
	width  int
	height int
}

// NewModel creates the wizard model.
func NewModel(opts Options) Model {
	ti := textinput.New()
	ti.SetValue(opts.DefaultTarget)
	ti.CharLimit = 512
	ti.Focus()

	vp := viewport.New(72, 14)
	vp.SetContent(opts.License)

	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		step:     StepWelcome,
		opts:     opts,
		plan:     opts.Archive.Plan,
		dirInput: ti,
		license:  vp,
		bar:      progress.New(progress.WithDefaultGradient()),
		ctx:      ctx,
		cancel:   cancel,
		status:   make(chan installer.Status, 64),
		result:   make(chan error, 1),
		width:    80,
		height:   24,
	}
	for _, task := range opts.Archive.Plan.Tasks {
		m.tasks = append(m.tasks, taskItem{entry: task})
	}
	return m
}

// Err returns the terminal error of the wizard, nil on success or when the
// user quit before installing.
func (m Model) Err() error {
	return m.err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.license.Width = min(msg.Width-8, 100)
		m.bar.Width = min(msg.Width-12, 60)
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)

	case statusMsg:
		if msg.File != "" {
			m.current = msg.File
		}
		m.installed = msg.Installed
		return m, m.waitForStatus()

	case installDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			m.step = StepFailed
		} else {
			m.step = StepDone
		}
		return m, nil
	}

	return m, nil
}

// updateKeys routes key presses per step.
func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Ctrl-C always aborts; during install the engine rolls back first.
	if key == "ctrl+c" {
		if m.step == StepInstalling {
			m.cancel()
			return m, nil
		}
		return m, tea.Quit
	}

	switch m.step {
	case StepWelcome:
		switch key {
		case "enter":
			if m.opts.License != "" {
				m.step = StepLicense
			} else {
				m.step = StepDirectory
			}
		case "q", "esc":
			return m, tea.Quit
		}

	case StepLicense:
		switch key {
		case "enter", "a":
			m.step = StepDirectory
		case "q", "esc":
			return m, tea.Quit
		default:
			var cmd tea.Cmd
			m.license, cmd = m.license.Update(msg)
			return m, cmd
		}

	case StepDirectory:
		switch key {
		case "enter":
			if strings.TrimSpace(m.dirInput.Value()) == "" {
				return m, nil
			}
			if len(m.tasks) > 0 {
				m.step = StepTasks
			} else {
				return m.startInstall()
			}
		case "esc":
			return m, tea.Quit
		default:
			var cmd tea.Cmd
			m.dirInput, cmd = m.dirInput.Update(msg)
			return m, cmd
		}

	case StepTasks:
		switch key {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.tasks)-1 {
				m.cursor++
			}
		case " ":
			m.tasks[m.cursor].checked = !m.tasks[m.cursor].checked
		case "enter":
			return m.startInstall()
		case "esc":
			return m, tea.Quit
		}

	case StepInstalling:
		if key == "esc" {
			m.cancel()
		}

	case StepDone, StepFailed:
		return m, tea.Quit
	}

	return m, nil
}

// startInstall launches the installer engine in the background and begins
// listening for its status stream.
func (m Model) startInstall() (tea.Model, tea.Cmd) {
	m.step = StepInstalling

	inst, err := installer.New(installer.Options{
		Archive:           m.opts.Archive,
		TargetDir:         strings.TrimSpace(m.dirInput.Value()),
		SelectedTasks:     m.selectedTasks(),
		UninstallerSource: m.opts.UninstallerSource,
	})
	if err != nil {
		m.err = err
		m.step = StepFailed
		return m, nil
	}
	inst.SetProgressFunc(func(s installer.Status) {
		select {
		case m.status <- s:
		default: // UI lag must never block the engine.
		}
	})

	go func() {
		_, err := inst.Run(m.ctx)
		m.result <- err
	}()

	return m, tea.Batch(m.waitForStatus(), m.waitForResult())
}

// waitForStatus delivers the next engine status update as a message.
func (m Model) waitForStatus() tea.Cmd {
	return func() tea.Msg {
		return statusMsg(<-m.status)
	}
}

// waitForResult delivers the final install outcome.
func (m Model) waitForResult() tea.Cmd {
	return func() tea.Msg {
		return installDoneMsg{err: <-m.result}
	}
}

// selectedTasks returns the names of the checked tasks.
func (m Model) selectedTasks() []string {
	var names []string
	for _, task := range m.tasks {
		if task.checked {
			names = append(names, task.entry.Name)
		}
	}
	return names
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	title := fmt.Sprintf("%s %s Setup", m.plan.AppName, m.plan.AppVersion)
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	switch m.step {
	case StepWelcome:
		fmt.Fprintf(&b, "This will install %s on your computer.\n", m.plan.AppName)
		fmt.Fprintf(&b, "%d files, %s\n\n", len(m.plan.Files), humanize.Bytes(uint64(m.plan.TotalSize)))
		b.WriteString(mutedTextStyle.Render("enter continue  •  q quit"))

	case StepLicense:
		b.WriteString("License Agreement\n\n")
		b.WriteString(licenseStyle.Render(m.license.View()))
		b.WriteString("\n\n")
		b.WriteString(mutedTextStyle.Render("↑/↓ scroll  •  enter accept  •  q quit"))

	case StepDirectory:
		b.WriteString("Install location\n\n")
		b.WriteString(m.dirInput.View())
		b.WriteString("\n\n")
		b.WriteString(mutedTextStyle.Render("enter continue  •  esc quit"))

	case StepTasks:
		b.WriteString("Additional tasks\n\n")
		b.WriteString(m.viewTasks())
		b.WriteString("\n")
		b.WriteString(mutedTextStyle.Render("space toggle  •  enter install  •  esc quit"))

	case StepInstalling:
		fmt.Fprintf(&b, "Installing to %s\n\n", m.dirInput.Value())
		b.WriteString(m.bar.ViewAs(m.ratio()))
		b.WriteString("\n\n")
		b.WriteString(fileStyle.Render(m.current))
		b.WriteString("\n\n")
		b.WriteString(mutedTextStyle.Render("esc abort"))

	case StepDone:
		b.WriteString(successTextStyle.Render(fmt.Sprintf("%s has been installed.", m.plan.AppName)))
		b.WriteString("\n\n")
		b.WriteString(mutedTextStyle.Render("press any key to exit"))

	case StepFailed:
		b.WriteString(errorTextStyle.Render("Installation failed:"))
		fmt.Fprintf(&b, "\n%v\n", m.err)
		b.WriteString("\nAll changes have been rolled back.\n\n")
		b.WriteString(mutedTextStyle.Render("press any key to exit"))
	}

	return outerBoxStyle.Render(b.String())
}

// viewTasks renders the task checkboxes, grouped by their group
// descriptions.
func (m Model) viewTasks() string {
	var b strings.Builder
	lastGroup := ""
	for n, task := range m.tasks {
		if group := task.entry.GroupDescription; group != "" && group != lastGroup {
			b.WriteString(mutedTextStyle.Render(group))
			b.WriteString("\n")
			lastGroup = group
		}

		cursor := "  "
		if n == m.cursor {
			cursor = cursorStyle.Render("> ")
		}
		box := uncheckedStyle.Render("[ ]")
		if task.checked {
			box = checkedStyle.Render("[x]")
		}
		fmt.Fprintf(&b, "%s%s %s\n", cursor, box, task.entry.Description)
	}
	return b.String()
}

// ratio is the install progress between 0 and 1.
func (m Model) ratio() float64 {
	if m.plan.TotalSize == 0 {
		return 1
	}
	r := float64(m.installed) / float64(m.plan.TotalSize)
	if r > 1 {
		r = 1
	}
	return r
}
