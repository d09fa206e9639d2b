package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var drillCmd = &cobra.Command{
	Use:   "drill",
	Short: "Answer questions at the prompt (no TUI, no saved state)",
	Long: `Fetch questions for a subject and answer them one at a time.

This is a stateless practice mode — no navigation state, no history,
no sign-in. Useful for a quick run through a subject.`,
	RunE: runDrill,
}

func init() {
	drillCmd.Flags().String("subject", "", "Subject slug (defaults to default_subject from preferences)")
	drillCmd.Flags().Int("count", 5, "Number of questions to ask")
	drillCmd.Flags().String("url", "", "Catalog service URL (overrides preferences)")
}

func runDrill(cmd *cobra.Command, args []string) error {
	subject, _ := cmd.Flags().GetString("subject")
	count, _ := cmd.Flags().GetInt("count")

	if subject == "" {
		subject = loadPrefs(cmd).DefaultSubject
	}
	if subject == "" {
		return fmt.Errorf("no subject: pass --subject or set default_subject in preferences")
	}

	svc := catalogService(cmd)
	questions, err := svc.Questions(cmd.Context(), subject, count)
	if err != nil {
		return fmt.Errorf("fetch questions: %w", err)
	}
	if len(questions) == 0 {
		return fmt.Errorf("no questions for subject %q", subject)
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Printf("Subject: %s — %d questions\n\n", subject, len(questions))

	var correct int
	for i, q := range questions {
		fmt.Printf("── Question %d/%d ──\n", i+1, len(questions))
		fmt.Println(q.Prompt)
		for _, c := range q.Choices {
			fmt.Printf("  %s) %s\n", c.Key, c.Text)
		}

		fmt.Print("\nYour answer: ")
		if !scanner.Scan() {
			fmt.Println("\n(input closed)")
			break
		}
		answer := strings.TrimSpace(scanner.Text())
		if answer == "" {
			fmt.Println("(skipped)")
			fmt.Println()
			continue
		}

		if strings.EqualFold(answer, q.Answer) {
			correct++
			fmt.Println("\033[32m✓ Correct!\033[0m")
		} else {
			fmt.Printf("\033[31m✗ Wrong.\033[0m Answer: %s\n", q.Answer)
		}
		if q.Explanation != "" {
			fmt.Printf("Explanation: %s\n", q.Explanation)
		}
		fmt.Println()
	}

	fmt.Printf("── Summary: %d/%d correct ──\n", correct, len(questions))
	return nil
}
