package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dmitrijs2005/aiaccountant/internal/client/models"
)

const timeLayout = "2006-01-02 15:04"

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true)

	messageContentStyle = lipgloss.NewStyle().
				PaddingLeft(2)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)

	// ErrorStyle renders the final error line of a failed command.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

func printSessions(w io.Writer, sessions []models.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions yet. Start one with 'new'.")
		return
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%d session(s)", len(sessions))))
	for _, s := range sessions {
		fmt.Fprintf(w, "%s  %s  %s\n",
			idStyle.Render(s.ID),
			dateStyle.Render(s.CreatedAt.Local().Format(timeLayout)),
			titleStyle.Render(s.Title))
	}
}

func printSession(w io.Writer, s *models.Session) {
	fmt.Fprintf(w, "%s  %s\n", titleStyle.Render(s.Title), idStyle.Render(s.ID))
}

func printMessages(w io.Writer, msgs []models.Message) {
	if len(msgs) == 0 {
		fmt.Fprintln(w, dateStyle.Render("(no messages)"))
		return
	}
	for _, m := range msgs {
		fmt.Fprintf(w, "%s %s\n", roleLabel(m.Role), dateStyle.Render(m.CreatedAt.Local().Format(timeLayout)))
		printText(w, m.Text)
	}
}

func printAnswer(w io.Writer, answer string) {
	fmt.Fprintln(w, roleLabel("assistant"))
	printText(w, answer)
}

func printText(w io.Writer, text string) {
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintln(w, messageContentStyle.Render(line))
	}
}

func roleLabel(role string) string {
	switch role {
	case "user":
		return userMessageStyle.Render("You")
	case "assistant":
		return assistantMessageStyle.Render("Accountant")
	default:
		return role
	}
}
