package tui

import (
	"errors"
	"fmt"

	"ccdash/config"
	"ccdash/config/models"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ViewState represents the current view state
type ViewState int

const (
	ViewMain   ViewState = iota // Main list view
	ViewAdd                     // Add config form
	ViewDelete                  // Delete confirmation dialog
	ViewHelp                    // Help panel
)

// Model is the core state model for TUI
type Model struct {
	manager   *config.Manager
	changes   <-chan int64 // Watcher notifications, may be nil
	summaries []models.Summary
	cursor    int
	viewState ViewState

	// Form related
	formInputs []textinput.Model
	formFocus  int

	message  string
	errorMsg string
	busy     bool // A switch or backup is running

	width        int
	height       int
	scrollOffset int

	keys    KeyMap
	help    help.Model
	spinner spinner.Model
	clip    func(string) error
}

// NewModel creates a new TUI model. changes may be nil.
func NewModel(manager *config.Manager, changes <-chan int64) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = titleStyle

	return Model{
		manager:   manager,
		changes:   changes,
		summaries: []models.Summary{},
		viewState: ViewMain,
		width:     80,
		height:    24,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		spinner:   sp,
		clip:      clipboard.WriteAll,
	}
}

// Init initializes the model and returns initial commands
func (m Model) Init() tea.Cmd {
	return tea.Batch(loadConfigs(m.manager), waitForChange(m.changes), m.spinner.Tick)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.adjustScrollOffset()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ConfigsLoadedMsg:
		if msg.Err != nil {
			m.errorMsg = msg.Err.Error()
			return m, nil
		}
		m.summaries = msg.Summaries
		if m.cursor >= len(m.summaries) {
			m.cursor = len(m.summaries) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		m.adjustScrollOffset()
		return m, nil

	case DirChangedMsg:
		return m, tea.Batch(loadConfigs(m.manager), waitForChange(m.changes))

	case SwitchedMsg:
		m.busy = false
		if msg.Err != nil {
			m.errorMsg = msg.Err.Error()
			return m, nil
		}
		r := msg.Receipt
		m.message = fmt.Sprintf("Switched %s → %s (saved as %s)", r.Previous, r.Current, r.BackupCreated)
		m.cursor = 0
		return m, loadConfigs(m.manager)

	case BackupMsg:
		m.busy = false
		switch {
		case msg.Err != nil:
			m.errorMsg = msg.Err.Error()
		case msg.Name == models.NoBackup:
			m.message = "No active configuration to back up"
		default:
			m.message = "Backup created: " + msg.Name
		}
		return m, nil

	case CreatedMsg:
		if msg.Err != nil {
			m.errorMsg = msg.Err.Error()
			return m, nil
		}
		m.message = "Configuration added: " + msg.Summary.ID
		m.viewState = ViewMain
		m.formInputs = nil
		m.formFocus = 0
		return m, loadConfigs(m.manager)

	case DeletedMsg:
		m.viewState = ViewMain
		if msg.Err != nil {
			m.errorMsg = msg.Err.Error()
			return m, nil
		}
		m.message = "Configuration deleted: " + msg.ID
		return m, loadConfigs(m.manager)

	case CopiedMsg:
		if msg.Err != nil {
			m.errorMsg = "Clipboard unavailable: " + msg.Err.Error()
			return m, nil
		}
		m.message = "Copied " + msg.Text
		return m, nil
	}

	return m, nil
}

// handleKeyMsg routes keyboard input by view state
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.viewState {
	case ViewAdd:
		return m.handleFormViewKeys(msg)
	case ViewDelete:
		return m.handleDeleteViewKeys(msg)
	case ViewHelp:
		return m.handleHelpViewKeys(msg)
	default:
		return m.handleMainViewKeys(msg)
	}
}

// selected returns the summary under the cursor, or nil
func (m Model) selected() *models.Summary {
	if m.cursor < 0 || m.cursor >= len(m.summaries) {
		return nil
	}
	return &m.summaries[m.cursor]
}

func (m Model) handleMainViewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.busy {
		return m, nil
	}

	// Clear messages on any action
	m.message = ""
	m.errorMsg = ""

	switch {
	case key.Matches(msg, m.keys.Down):
		m.moveDown()
	case key.Matches(msg, m.keys.Up):
		m.moveUp()
	case key.Matches(msg, m.keys.Top):
		m.cursor = 0
		m.scrollOffset = 0
	case key.Matches(msg, m.keys.Bottom):
		if len(m.summaries) > 0 {
			m.cursor = len(m.summaries) - 1
			m.adjustScrollOffset()
		}

	case key.Matches(msg, m.keys.Switch):
		sel := m.selected()
		if sel == nil {
			return m, nil
		}
		if sel.IsActive {
			m.message = sel.Name + " is already active"
			return m, nil
		}
		m.busy = true
		return m, switchConfig(m.manager, sel.ID)

	case key.Matches(msg, m.keys.Backup):
		m.busy = true
		return m, createBackup(m.manager)

	case key.Matches(msg, m.keys.Add):
		m.formInputs = FormInputs()
		m.formFocus = 0
		m.viewState = ViewAdd

	case key.Matches(msg, m.keys.Delete):
		if m.selected() != nil {
			m.viewState = ViewDelete
		}

	case key.Matches(msg, m.keys.Copy):
		sel := m.selected()
		if sel == nil {
			return m, nil
		}
		if sel.Preview.BaseURL == "" || sel.Preview.BaseURL == "not set" {
			m.errorMsg = sel.Name + " has no base URL"
			return m, nil
		}
		return m, copyText(m.clip, sel.Preview.BaseURL)

	case key.Matches(msg, m.keys.Refresh):
		return m, loadConfigs(m.manager)

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = true
		m.viewState = ViewHelp
	}
	return m, nil
}

func (m Model) handleFormViewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.viewState = ViewMain
		m.formInputs = nil
		m.errorMsg = ""
		return m, nil
	case "tab", "down":
		m.formFocus = NextFormField(m.formInputs, m.formFocus)
		return m, nil
	case "shift+tab", "up":
		m.formFocus = PrevFormField(m.formInputs, m.formFocus)
		return m, nil
	case "enter":
		data := GetFormData(m.formInputs)
		if err := data.Validate(); err != nil {
			m.errorMsg = err.Error()
			return m, nil
		}
		m.errorMsg = ""
		return m, createConfig(m.manager, data.Request())
	}

	var cmd tea.Cmd
	m.formInputs[m.formFocus], cmd = m.formInputs[m.formFocus].Update(msg)
	return m, cmd
}

func (m Model) handleDeleteViewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.Confirm):
		sel := m.selected()
		if sel == nil {
			m.viewState = ViewMain
			return m, nil
		}
		return m, deleteConfig(m.manager, sel.ID)
	case key.Matches(msg, m.keys.Cancel), msg.String() == "n", msg.String() == "N":
		m.viewState = ViewMain
	}
	return m, nil
}

func (m Model) handleHelpViewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Help), msg.String() == "q":
		m.help.ShowAll = false
		m.viewState = ViewMain
	}
	return m, nil
}

func (m *Model) moveUp() {
	if m.cursor > 0 {
		m.cursor--
		m.adjustScrollOffset()
	}
}

func (m *Model) moveDown() {
	if len(m.summaries) > 0 && m.cursor < len(m.summaries)-1 {
		m.cursor++
		m.adjustScrollOffset()
	}
}

// getVisibleListHeight returns the number of lines available for the list.
// Each configuration takes two lines: name and preview.
func (m *Model) getVisibleListHeight() int {
	headerLines := 3
	footerLines := 4
	available := (m.height - headerLines - footerLines) / 2
	if available < 1 {
		available = 1
	}
	return available
}

// adjustScrollOffset keeps the cursor visible
func (m *Model) adjustScrollOffset() {
	visible := m.getVisibleListHeight()
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	}
	if m.cursor >= m.scrollOffset+visible {
		m.scrollOffset = m.cursor - visible + 1
	}
	maxOffset := len(m.summaries) - visible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if m.scrollOffset > maxOffset {
		m.scrollOffset = maxOffset
	}
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

// View renders the UI
func (m Model) View() string {
	switch m.viewState {
	case ViewHelp:
		return m.RenderHelpView()
	case ViewAdd:
		return RenderForm(m.formInputs, m.formFocus, "Add configuration", m.errorMsg)
	case ViewDelete:
		return m.RenderDeleteConfirm()
	default:
		return m.RenderMainView()
	}
}

func loadConfigs(manager *config.Manager) tea.Cmd {
	return func() tea.Msg {
		summaries, err := manager.List()
		return ConfigsLoadedMsg{Summaries: summaries, Err: err}
	}
}

// waitForChange blocks on the watcher channel. It returns nil when there is
// no watcher, which bubbletea treats as no command.
func waitForChange(changes <-chan int64) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		v, ok := <-changes
		if !ok {
			return nil
		}
		return DirChangedMsg{Version: v}
	}
}

func switchConfig(manager *config.Manager, id string) tea.Cmd {
	return func() tea.Msg {
		receipt, err := manager.Switch(id)
		return SwitchedMsg{Receipt: receipt, Err: err}
	}
}

func createBackup(manager *config.Manager) tea.Cmd {
	return func() tea.Msg {
		name, err := manager.CreateBackup()
		return BackupMsg{Name: name, Err: err}
	}
}

func createConfig(manager *config.Manager, req models.CreateRequest) tea.Cmd {
	return func() tea.Msg {
		summary, err := manager.Create(req)
		return CreatedMsg{Summary: summary, Err: err}
	}
}

func deleteConfig(manager *config.Manager, id string) tea.Cmd {
	return func() tea.Msg {
		return DeletedMsg{ID: id, Err: manager.Delete(id)}
	}
}

func copyText(write func(string) error, text string) tea.Cmd {
	return func() tea.Msg {
		if write == nil {
			return CopiedMsg{Text: text, Err: errors.New("no clipboard")}
		}
		return CopiedMsg{Text: text, Err: write(text)}
	}
}
