// ABOUTME: Interactive TUI wizard for configuring amenity storage.
// ABOUTME: Picks a backend, then asks for a data directory or Supabase project credentials.

package tui

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harper/amenity/internal/config"
)

// Step represents the current wizard step. Steps double as input indexes.
type Step int

const (
	StepBackend Step = iota
	StepDataDir
	StepSupabaseURL
	StepSupabaseKey
	StepDone
)

// SetupResult holds the values collected by the wizard.
type SetupResult struct {
	Backend     string
	DataDir     string
	SupabaseURL string
	SupabaseKey string
}

// SetupModel is the bubbletea model for the setup wizard.
type SetupModel struct {
	step     Step
	inputs   [StepDone]textinput.Model
	errMsg   string
	quitting bool
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	brandStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var validBackends = []string{config.BackendSQLite, config.BackendKV, config.BackendSupabase}

// defaultDataDir returns the default XDG data directory for amenity.
func defaultDataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "amenity")
}

func newInput(placeholder, value string) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.Width = 50
	in.SetValue(value)
	return in
}

// NewSetupModel creates a wizard pre-filled with the current configuration.
func NewSetupModel(current SetupResult) SetupModel {
	m := SetupModel{step: StepBackend}
	m.inputs[StepBackend] = newInput(config.BackendSQLite, current.Backend)
	m.inputs[StepDataDir] = newInput(defaultDataDir(), current.DataDir)
	m.inputs[StepSupabaseURL] = newInput("https://<project>.supabase.co", current.SupabaseURL)

	key := newInput("anon or service key", current.SupabaseKey)
	key.EchoMode = textinput.EchoPassword
	key.EchoCharacter = '•'
	m.inputs[StepSupabaseKey] = key

	m.inputs[StepBackend].Focus()
	return m
}

// Init implements tea.Model.
func (m SetupModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEscape:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			if m.step < StepDone {
				return m.submit()
			}
			return m, nil
		}
	}

	// Keys and cursor blinks go to the active input.
	if m.step < StepDone {
		var cmd tea.Cmd
		m.inputs[m.step], cmd = m.inputs[m.step].Update(msg)
		return m, cmd
	}
	return m, nil
}

func isValidBackend(name string) bool {
	for _, b := range validBackends {
		if b == name {
			return true
		}
	}
	return false
}

func (m SetupModel) backend() string {
	return m.inputs[StepBackend].Value()
}

// submit validates the active input and moves to the next step.
func (m SetupModel) submit() (tea.Model, tea.Cmd) {
	in := &m.inputs[m.step]
	val := strings.TrimSpace(in.Value())

	var next Step
	switch m.step {
	case StepBackend:
		val = strings.ToLower(val)
		if val == "" {
			val = config.BackendSQLite
		}
		if !isValidBackend(val) {
			m.errMsg = fmt.Sprintf("unknown backend %q", val)
			return m, nil
		}
		next = StepDataDir
		if val == config.BackendSupabase {
			next = StepSupabaseURL
		}

	case StepDataDir:
		if val == "" {
			val = defaultDataDir()
		}
		next = StepDone

	case StepSupabaseURL:
		if err := checkSupabaseURL(val); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		next = StepSupabaseKey

	case StepSupabaseKey:
		if val == "" && os.Getenv(config.EnvSupabaseKey) == "" {
			m.errMsg = fmt.Sprintf("an API key is required (or set %s)", config.EnvSupabaseKey)
			return m, nil
		}
		next = StepDone
	}

	m.errMsg = ""
	in.SetValue(val)
	in.Blur()
	m.step = next
	if next == StepDone {
		return m, tea.Quit
	}
	m.inputs[next].Focus()
	return m, textinput.Blink
}

// checkSupabaseURL accepts an empty value only when the environment supplies one.
func checkSupabaseURL(val string) error {
	if val == "" {
		if os.Getenv(config.EnvSupabaseURL) != "" {
			return nil
		}
		return fmt.Errorf("a project URL is required (or set %s)", config.EnvSupabaseURL)
	}
	u, err := url.Parse(val)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid Supabase URL %q", val)
	}
	return nil
}

func (m SetupModel) stepLabel() string {
	total := 2
	if m.backend() == config.BackendSupabase {
		total = 3
	}
	switch m.step {
	case StepBackend:
		return fmt.Sprintf("Step 1 of %d: Storage Backend", total)
	case StepDataDir:
		return fmt.Sprintf("Step 2 of %d: Data Directory", total)
	case StepSupabaseURL:
		return fmt.Sprintf("Step 2 of %d: Supabase Project URL", total)
	case StepSupabaseKey:
		return fmt.Sprintf("Step 3 of %d: Supabase API Key", total)
	}
	return ""
}

func (m SetupModel) hint() string {
	switch m.step {
	case StepBackend:
		return fmt.Sprintf("(%s, press Enter for default)", strings.Join(validBackends, ", "))
	case StepDataDir:
		return fmt.Sprintf("(press Enter for default: %s)", defaultDataDir())
	case StepSupabaseURL:
		return fmt.Sprintf("(leave empty to read %s)", config.EnvSupabaseURL)
	case StepSupabaseKey:
		return fmt.Sprintf("(leave empty to read %s)", config.EnvSupabaseKey)
	}
	return ""
}

// View implements tea.Model.
func (m SetupModel) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(brandStyle.Render("   AMENITY"))
	b.WriteString(titleStyle.Render(" - Setup"))
	b.WriteString("\n\n")
	b.WriteString("Configure where prayer requests are stored.\n\n")

	if m.step == StepDone {
		b.WriteString(successStyle.Render("Setup complete! Configuration will be saved."))
		b.WriteString("\n\n")
		fmt.Fprintf(&b, "  Backend:         %s\n", m.backend())
		if m.backend() == config.BackendSupabase {
			fmt.Fprintf(&b, "  Project URL:     %s\n", orEnv(m.inputs[StepSupabaseURL].Value(), config.EnvSupabaseURL))
			fmt.Fprintf(&b, "  API key:         %s\n", orEnv(mask(m.inputs[StepSupabaseKey].Value()), config.EnvSupabaseKey))
		} else {
			fmt.Fprintf(&b, "  Data directory:  %s\n", m.inputs[StepDataDir].Value())
		}
		b.WriteString("\n")
		return b.String()
	}

	if m.step != StepBackend {
		fmt.Fprintf(&b, "  Backend: %s\n\n", m.backend())
	}
	b.WriteString(stepStyle.Render(m.stepLabel()))
	b.WriteString("\n")
	b.WriteString(promptStyle.Render(m.hint()))
	b.WriteString("\n")
	b.WriteString(m.inputs[m.step].View())
	b.WriteString("\n")
	if m.errMsg != "" {
		b.WriteString(errorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}
	return b.String()
}

func orEnv(val, env string) string {
	if val == "" {
		return "from $" + env
	}
	return val
}

// mask keeps the last four characters of a secret.
func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

// Result returns the entered values.
func (m SetupModel) Result() SetupResult {
	return SetupResult{
		Backend:     m.backend(),
		DataDir:     m.inputs[StepDataDir].Value(),
		SupabaseURL: m.inputs[StepSupabaseURL].Value(),
		SupabaseKey: m.inputs[StepSupabaseKey].Value(),
	}
}

// ShouldSave returns true if the wizard completed and the user did not cancel.
func (m SetupModel) ShouldSave() bool {
	return m.step == StepDone && !m.quitting
}
