// Package app is the terminal shell over the navigation core. The shell owns
// no navigation state: it renders whatever pane the current path selects and
// turns key input into navigator calls, with state changes arriving back
// through the navigation listener.
package app

import (
	"context"
	"strconv"
	"strings"
	"time"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/cramdeck/cramdeck/internal/authstate"
	"github.com/cramdeck/cramdeck/internal/catalog"
	"github.com/cramdeck/cramdeck/internal/history"
	"github.com/cramdeck/cramdeck/internal/nav"
)

// requestTimeout bounds catalog loads and navigations issued by the shell.
const requestTimeout = 10 * time.Second

// Deps bundles the collaborators the shell drives.
type Deps struct {
	Nav     *nav.Manager
	Journal *history.Journal
	Auth    *authstate.Broadcaster
	Catalog catalog.Service
	Version string

	// QuestionLimit caps questions fetched per quiz. Non-positive means
	// the catalog service's default.
	QuestionLimit int
}

// Messages bridged into the Bubble Tea loop.
type (
	navStateMsg   struct{ state nav.State }
	authStatusMsg struct{ status authstate.Status }

	subjectsLoadedMsg struct {
		subjects []catalog.Subject
		err      error
	}
	questionsLoadedMsg struct {
		subject   string
		questions []catalog.Question
		err       error
	}
	// navDoneMsg signals a navigator call finished; state itself arrives
	// through the listener bridge.
	navDoneMsg struct{ ok bool }
)

// Model is the root Bubble Tea model.
type Model struct {
	deps   Deps
	width  int
	height int

	state nav.State
	auth  authstate.Status

	input       textinput.Model
	inputActive bool

	subjects     []catalog.Subject
	subjectIdx   int
	questions    []catalog.Question
	questionsFor string
	revealed     bool
	contentErr   string
}

// NewModel creates the root model seeded from the navigator's current state.
func NewModel(deps Deps) Model {
	ti := textinput.New()
	ti.Placeholder = "/quiz/algebra"
	ti.CharLimit = 120

	return Model{
		deps:  deps,
		state: deps.Nav.GetState(),
		auth:  deps.Auth.Status(),
		input: ti,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadSubjects()}
	if pane, subject := paneFor(m.state.CurrentPath); pane == paneQuiz && subject != "" {
		cmds = append(cmds, m.loadQuestions(subject))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case navStateMsg:
		return m.handleNavState(msg.state)

	case authStatusMsg:
		m.auth = msg.status
		return m, nil

	case subjectsLoadedMsg:
		if msg.err != nil {
			m.contentErr = msg.err.Error()
			return m, nil
		}
		m.contentErr = ""
		m.subjects = msg.subjects
		if m.subjectIdx >= len(m.subjects) {
			m.subjectIdx = 0
		}
		return m, nil

	case questionsLoadedMsg:
		// A stale load for a subject we already navigated away from.
		if msg.subject != m.questionsFor {
			return m, nil
		}
		if msg.err != nil {
			m.contentErr = msg.err.Error()
			return m, nil
		}
		m.contentErr = ""
		m.questions = msg.questions
		return m, nil

	case navDoneMsg:
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}

	if m.inputActive {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleNavState adopts a state snapshot from the listener bridge and kicks
// off a question load when landing on a quiz pane for a new subject.
func (m Model) handleNavState(state nav.State) (tea.Model, tea.Cmd) {
	m.state = state

	pane, subject := paneFor(state.CurrentPath)
	if pane == paneQuiz && subject != "" && subject != m.questionsFor {
		m.questionsFor = subject
		m.questions = nil
		m.revealed = false
		return m, m.loadQuestions(subject)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.inputActive {
		return m.handlePromptKey(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "/":
		m.inputActive = true
		return m, m.input.Focus()

	case "left":
		return m, m.goBack()

	case "right":
		return m, m.goForward()

	case "r":
		// Reset only touches the detector; no listener fan-out.
		m.deps.Nav.ResetCircuitBreaker()
		return m, nil

	case "e":
		return m, m.clearError()

	case "o":
		if m.auth == authstate.StatusSignedIn {
			return m, m.signOut()
		}
	}

	pane, _ := paneFor(m.state.CurrentPath)
	switch pane {
	case paneHome:
		return m.handleHomeKey(msg)
	case paneSubjects:
		return m.handleSubjectsKey(msg)
	case paneQuiz:
		return m.handleQuizKey(msg)
	case paneLogin:
		return m.handleLoginKey(msg)
	}
	return m, nil
}

func (m Model) handlePromptKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		m.inputActive = false
		m.input.Blur()
		m.input.SetValue("")
		return m, nil

	case "enter":
		path := strings.TrimSpace(m.input.Value())
		m.inputActive = false
		m.input.Blur()
		m.input.SetValue("")
		if path == "" {
			return m, nil
		}
		return m, m.navigate(path)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleHomeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "s", "enter":
		return m, m.navigate("/subjects")
	}
	return m, nil
}

func (m Model) handleSubjectsKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.subjectIdx > 0 {
			m.subjectIdx--
		}
		return m, nil

	case "down", "j":
		if m.subjectIdx < len(m.subjects)-1 {
			m.subjectIdx++
		}
		return m, nil

	case "enter":
		if len(m.subjects) == 0 {
			return m, nil
		}
		slug := m.subjects[m.subjectIdx].Slug
		return m, m.openQuiz(slug)
	}
	return m, nil
}

func (m Model) handleQuizKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		return m.moveQuestion(-1)

	case "down", "j":
		return m.moveQuestion(1)

	case "a":
		m.revealed = !m.revealed
		return m, nil
	}
	return m, nil
}

func (m Model) handleLoginKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.auth == authstate.StatusSignedIn {
			return m, nil
		}
		return m, m.signIn()
	}
	return m, nil
}

// moveQuestion shifts the current question index, kept as the "q" route
// param so progress survives restarts. Route params flow through the update
// batcher, so rapid key repeats coalesce into one state commit.
func (m Model) moveQuestion(delta int) (tea.Model, tea.Cmd) {
	if len(m.questions) == 0 {
		return m, nil
	}

	idx := m.questionIndex() + delta
	if idx < 0 {
		idx = 0
	}
	if idx > len(m.questions)-1 {
		idx = len(m.questions) - 1
	}

	m.revealed = false
	m.deps.Nav.UpdateRouteParams(map[string]string{"q": strconv.Itoa(idx)})
	return m, nil
}

// questionIndex reads the current question index from route params,
// clamped to the loaded question list.
func (m Model) questionIndex() int {
	idx, err := strconv.Atoi(m.state.RouteParams["q"])
	if err != nil || idx < 0 {
		return 0
	}
	if len(m.questions) > 0 && idx > len(m.questions)-1 {
		return len(m.questions) - 1
	}
	return idx
}

// Commands. Navigator calls that can fan out to listeners run as commands,
// off the update loop's goroutine; the listener bridge re-enters the loop
// through Program.Send.

func (m Model) navigate(path string) tea.Cmd {
	manager := m.deps.Nav
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return navDoneMsg{ok: manager.Navigate(ctx, path)}
	}
}

func (m Model) goBack() tea.Cmd {
	manager := m.deps.Nav
	return func() tea.Msg {
		return navDoneMsg{ok: manager.GoBack()}
	}
}

func (m Model) goForward() tea.Cmd {
	manager := m.deps.Nav
	return func() tea.Msg {
		return navDoneMsg{ok: manager.GoForward()}
	}
}

func (m Model) clearError() tea.Cmd {
	manager := m.deps.Nav
	return func() tea.Msg {
		manager.ClearNavigationError()
		return navDoneMsg{ok: true}
	}
}

func (m Model) openQuiz(slug string) tea.Cmd {
	auth := m.deps.Auth
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return navDoneMsg{ok: auth.RequireAuth(ctx, "/quiz/"+slug)}
	}
}

func (m Model) signIn() tea.Cmd {
	auth := m.deps.Auth
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		auth.BeginSignIn()
		return navDoneMsg{ok: auth.SignIn(ctx, "student")}
	}
}

func (m Model) signOut() tea.Cmd {
	auth := m.deps.Auth
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return navDoneMsg{ok: auth.SignOut(ctx)}
	}
}

func (m Model) loadSubjects() tea.Cmd {
	svc := m.deps.Catalog
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		subjects, err := svc.Subjects(ctx)
		return subjectsLoadedMsg{subjects: subjects, err: err}
	}
}

func (m Model) loadQuestions(subject string) tea.Cmd {
	svc := m.deps.Catalog
	limit := m.deps.QuestionLimit
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		questions, err := svc.Questions(ctx, subject, limit)
		return questionsLoadedMsg{subject: subject, questions: questions, err: err}
	}
}

// Run starts the shell and blocks until it exits. The navigation and auth
// listeners are subscribed for the program's lifetime and bridge state
// changes into the update loop.
func Run(deps Deps) error {
	p := tea.NewProgram(NewModel(deps))

	unsubNav := deps.Nav.AddListener(func(s nav.State) {
		p.Send(navStateMsg{state: s})
	})
	defer unsubNav()

	unsubAuth := deps.Auth.AddListener(func(s authstate.Status) {
		p.Send(authStatusMsg{status: s})
	})
	defer unsubAuth()

	_, err := p.Run()
	return err
}
