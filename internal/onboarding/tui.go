package onboarding

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ember/internal/llm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230")).
			Padding(0, 1).
			Bold(true)
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	docStyle  = lipgloss.NewStyle().Padding(1, 2)
)

type setupState int

const (
	stateBaseURL setupState = iota
	stateAPIKey
	stateChecking
	stateModel
	stateDone
)

type modelItem struct {
	info llm.ModelInfo
}

func (i modelItem) Title() string { return i.info.Name }
func (i modelItem) Description() string {
	return fmt.Sprintf("in %d / out %d tokens", i.info.MaxInputTokens, i.info.MaxOutputTokens)
}
func (i modelItem) FilterValue() string { return i.info.ID }

type modelsMsg struct {
	models []llm.ModelInfo
	err    error
}

type setupModel struct {
	ctx   context.Context
	state setupState

	input   textinput.Model
	spin    spinner.Model
	list    list.Model
	baseURL string
	apiKey  string
	chosen  string
	err     error
	width   int
	height  int
	aborted bool
}

func newSetupModel(ctx context.Context) setupModel {
	ti := textinput.New()
	ti.Placeholder = "http://localhost:8080"
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return setupModel{ctx: ctx, input: ti, spin: sp}
}

func (m setupModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m setupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.state == stateModel {
			h, v := docStyle.GetFrameSize()
			m.list.SetSize(msg.Width-h, msg.Height-v)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.aborted = true
			return m, tea.Quit
		case "enter":
			return m.advance()
		}

	case modelsMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateBaseURL
			m.input.SetValue(m.baseURL)
			m.input.Focus()
			return m, textinput.Blink
		}
		items := make([]list.Item, len(msg.models))
		for i, info := range msg.models {
			items[i] = modelItem{info: info}
		}
		l := list.New(items, list.NewDefaultDelegate(), 0, 0)
		l.Title = "Select default model"
		l.SetShowHelp(false)
		if m.width > 0 {
			h, v := docStyle.GetFrameSize()
			l.SetSize(m.width-h, m.height-v)
		}
		m.list = l
		m.state = stateModel
		return m, nil

	case spinner.TickMsg:
		if m.state == stateChecking {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.state {
	case stateBaseURL, stateAPIKey:
		m.input, cmd = m.input.Update(msg)
	case stateModel:
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

func (m setupModel) advance() (tea.Model, tea.Cmd) {
	switch m.state {
	case stateBaseURL:
		m.baseURL = m.input.Value()
		if m.baseURL == "" {
			return m, nil
		}
		m.err = nil
		m.input.SetValue("")
		m.input.Placeholder = "API key (empty if none)"
		m.input.EchoMode = textinput.EchoPassword
		m.state = stateAPIKey
		return m, textinput.Blink

	case stateAPIKey:
		m.apiKey = m.input.Value()
		m.state = stateChecking
		cfg := llm.BackendConfig{BaseURL: m.baseURL, APIKey: m.apiKey}
		fetch := func() tea.Msg {
			models, err := llm.ListModels(m.ctx, nil, cfg)
			if err == nil && len(models) == 0 {
				err = fmt.Errorf("backend reports no models")
			}
			return modelsMsg{models: models, err: err}
		}
		return m, tea.Batch(m.spin.Tick, fetch)

	case stateModel:
		if item, ok := m.list.SelectedItem().(modelItem); ok {
			m.chosen = item.info.ID
			m.state = stateDone
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m setupModel) View() string {
	switch m.state {
	case stateBaseURL:
		view := titleStyle.Render("ember setup") + "\n\n"
		if m.err != nil {
			view += errStyle.Render("connection failed: "+m.err.Error()) + "\n\n"
		}
		view += "OpenAI-compatible base URL:\n" + m.input.View() + "\n\n" +
			helpStyle.Render("enter to continue, esc to quit")
		return docStyle.Render(view)
	case stateAPIKey:
		return docStyle.Render(
			titleStyle.Render("ember setup") + "\n\nAPI key:\n" + m.input.View() + "\n\n" +
				helpStyle.Render("leave empty for servers without auth"))
	case stateChecking:
		return docStyle.Render(m.spin.View() + " contacting " + m.baseURL + " ...")
	case stateModel:
		return docStyle.Render(m.list.View())
	default:
		return ""
	}
}

// runTUI runs the bubbletea setup flow and persists the result.
func (w *Wizard) runTUI(ctx context.Context, configPath string) (*Config, error) {
	prog := tea.NewProgram(newSetupModel(ctx), tea.WithAltScreen())
	final, err := prog.Run()
	if err != nil {
		return nil, err
	}
	m, ok := final.(setupModel)
	if !ok || m.aborted || m.state != stateDone {
		return nil, fmt.Errorf("setup aborted")
	}

	if err := w.store.Set(llm.SecretKeyBaseURL, m.baseURL); err != nil {
		return nil, err
	}
	if m.apiKey != "" {
		if err := w.store.Set(llm.SecretKeyAPIKey, m.apiKey); err != nil {
			return nil, err
		}
	}

	cfg := &Config{Model: m.chosen, Provider: llm.ProviderOpenAI}
	if err := SaveConfig(configPath, cfg); err != nil {
		return nil, err
	}
	fmt.Fprintf(w.out, "Saved. Default model: %s\n", m.chosen)
	return cfg, nil
}
