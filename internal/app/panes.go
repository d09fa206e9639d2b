package app

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/cramdeck/cramdeck/internal/authstate"
	"github.com/cramdeck/cramdeck/internal/ui/theme"
)

const (
	minWidth  = 40
	minHeight = 10
)

// pane identifies which view the current path selects.
type pane int

const (
	paneHome pane = iota
	paneSubjects
	paneQuiz
	paneLogin
	paneNotFound
)

// paneFor maps a path to its pane by first segment, returning the second
// segment as the pane argument (the quiz subject).
func paneFor(path string) (pane, string) {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")

	switch segments[0] {
	case "":
		return paneHome, ""
	case "subjects":
		return paneSubjects, ""
	case "quiz":
		if len(segments) > 1 {
			return paneQuiz, segments[1]
		}
		return paneQuiz, ""
	case "login":
		return paneLogin, ""
	default:
		return paneNotFound, segments[0]
	}
}

func (m Model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}
	if m.width < minWidth || m.height < minHeight {
		v.SetContent(theme.Hint.Render("Terminal too small — enlarge to at least 40x10."))
		return v
	}

	header := m.renderHeader()
	footer := m.renderFooter()

	contentHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if contentHeight < 0 {
		contentHeight = 0
	}
	content := lipgloss.NewStyle().
		Width(m.width).
		Height(contentHeight).
		Padding(1, 2).
		Render(m.renderPane())

	v.SetContent(lipgloss.JoinVertical(lipgloss.Left, header, content, footer))
	return v
}

func (m Model) renderHeader() string {
	title := theme.Title.Render("cramdeck")
	if m.deps.Version != "" {
		title += theme.Hint.Render(" " + m.deps.Version)
	}

	path := theme.Body.Render(m.state.CurrentPath)
	if m.state.IsNavigating {
		path += theme.Hint.Render(" …")
	}

	badge := theme.Hint.Render(m.auth.String())
	if m.auth == authstate.StatusSignedIn {
		badge = theme.Correct.Render(m.deps.Auth.Account())
	}

	line := title + "  " + path + "  " + badge
	return theme.Header.Width(m.width).Render(line)
}

func (m Model) renderPane() string {
	p, subject := paneFor(m.state.CurrentPath)
	switch p {
	case paneHome:
		return m.renderHome()
	case paneSubjects:
		return m.renderSubjects()
	case paneQuiz:
		return m.renderQuiz(subject)
	case paneLogin:
		return m.renderLogin()
	default:
		return m.renderNotFound()
	}
}

func (m Model) renderHome() string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("Welcome back") + "\n\n")
	b.WriteString(theme.Body.Render(fmt.Sprintf("%d subjects ready for review.", len(m.subjects))) + "\n")
	if m.state.PreviousPath != "" {
		b.WriteString(theme.Hint.Render("Last visited: "+m.state.PreviousPath) + "\n")
	}
	b.WriteString("\n" + theme.Hint.Render("s: subjects · /: jump to path"))
	return b.String()
}

func (m Model) renderSubjects() string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("Subjects") + "\n\n")

	if m.contentErr != "" {
		b.WriteString(theme.ErrorBanner.Render(m.contentErr) + "\n")
		return b.String()
	}
	if len(m.subjects) == 0 {
		b.WriteString(theme.Hint.Render("Loading subjects…"))
		return b.String()
	}

	for i, s := range m.subjects {
		line := fmt.Sprintf("%s — %d questions", s.Name, s.QuestionCount)
		if i == m.subjectIdx {
			b.WriteString(theme.Selected.Render("▸ "+line) + "\n")
		} else {
			b.WriteString(theme.Unselected.Render("  "+line) + "\n")
		}
	}
	b.WriteString("\n" + theme.Hint.Render("↑/↓: choose · enter: start quiz"))
	return b.String()
}

func (m Model) renderQuiz(subject string) string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("Quiz: "+subject) + "\n\n")

	if subject == "" {
		b.WriteString(theme.Hint.Render("Pick a subject first (left arrow goes back)."))
		return b.String()
	}
	if m.contentErr != "" {
		b.WriteString(theme.ErrorBanner.Render(m.contentErr) + "\n")
		return b.String()
	}
	if len(m.questions) == 0 {
		b.WriteString(theme.Hint.Render("Loading questions…"))
		return b.String()
	}

	idx := m.questionIndex()
	q := m.questions[idx]

	b.WriteString(theme.Subtitle.Render(fmt.Sprintf("Question %d of %d", idx+1, len(m.questions))) + "\n\n")
	b.WriteString(theme.Body.Render(q.Prompt) + "\n\n")

	for _, choice := range q.Choices {
		line := fmt.Sprintf("%s) %s", choice.Key, choice.Text)
		if m.revealed && choice.Key == q.Answer {
			b.WriteString(theme.Correct.Render("  "+line+"  ✓") + "\n")
		} else {
			b.WriteString(theme.Unselected.Render("  "+line) + "\n")
		}
	}

	if m.revealed && q.Explanation != "" {
		b.WriteString("\n" + theme.Hint.Render(q.Explanation) + "\n")
	}

	b.WriteString("\n" + theme.Hint.Render("↑/↓: question · a: reveal answer"))
	return b.String()
}

func (m Model) renderLogin() string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("Sign in") + "\n\n")

	switch m.auth {
	case authstate.StatusSignedIn:
		b.WriteString(theme.Correct.Render("Signed in as "+m.deps.Auth.Account()) + "\n")
		b.WriteString(theme.Hint.Render("o: sign out"))
	case authstate.StatusSigningIn:
		b.WriteString(theme.Hint.Render("Signing in…"))
	default:
		b.WriteString(theme.Body.Render("Press enter to sign in.") + "\n")
		if m.state.PendingRedirect != "" {
			b.WriteString(theme.Hint.Render("You'll continue to " + m.state.PendingRedirect))
		}
	}
	return b.String()
}

func (m Model) renderNotFound() string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("Nothing here") + "\n\n")
	b.WriteString(theme.Body.Render("No pane is mapped to "+m.state.CurrentPath) + "\n")
	b.WriteString(theme.Hint.Render("left: go back · /: jump to path"))
	return b.String()
}

func (m Model) renderFooter() string {
	var lines []string

	status := m.deps.Nav.LoopDetectionStatus()
	if status.BreakerActive {
		lines = append(lines, theme.WarnBanner.Render(
			"⚠ navigation paused ("+string(status.LastTripReason)+") · auto-resets · r: reset now"))
	}
	if m.state.NavigationError != "" && !status.BreakerActive {
		lines = append(lines, theme.ErrorBanner.Render("✗ "+m.state.NavigationError+" · e: clear"))
	}

	if m.inputActive {
		lines = append(lines, theme.Body.Render("go: ")+m.input.View())
	} else {
		back := "←"
		if !m.deps.Journal.CanBack() {
			back = " "
		}
		forward := "→"
		if !m.deps.Journal.CanForward() {
			forward = " "
		}
		position := fmt.Sprintf("%s history %d/%d %s",
			back, m.deps.Journal.Cursor()+1, m.deps.Journal.Len(), forward)
		lines = append(lines, theme.Hint.Render(position+" · q: quit"))
	}

	return theme.Footer.Width(m.width).Render(strings.Join(lines, "\n"))
}
