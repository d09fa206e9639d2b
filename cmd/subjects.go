package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cramdeck/cramdeck/internal/catalog"
)

var subjectsCmd = &cobra.Command{
	Use:   "subjects",
	Short: "List the subjects available for study",
	RunE: func(cmd *cobra.Command, args []string) error {
		exam, _ := cmd.Flags().GetString("exam")

		svc := catalogService(cmd)
		ctx := cmd.Context()

		subjects, err := svc.Subjects(ctx)
		if err != nil {
			return fmt.Errorf("fetch subjects: %w", err)
		}

		if exam != "" {
			examTypes, err := svc.ExamTypes(ctx)
			if err != nil {
				return fmt.Errorf("fetch exam types: %w", err)
			}
			idx := slices.IndexFunc(examTypes, func(e catalog.ExamType) bool {
				return e.Slug == exam
			})
			if idx < 0 {
				return fmt.Errorf("no exam type %q", exam)
			}
			covered := examTypes[idx].Subjects
			subjects = slices.DeleteFunc(subjects, func(s catalog.Subject) bool {
				return !slices.Contains(covered, s.Slug)
			})
		}

		fmt.Printf("%-14s  %-24s  %9s  %s\n", "Slug", "Name", "Questions", "Description")
		fmt.Println(strings.Repeat("─", 90))
		for _, s := range subjects {
			fmt.Printf("%-14s  %-24s  %9d  %s\n",
				s.Slug, truncate(s.Name, 24), s.QuestionCount, truncate(s.Description, 38))
		}
		fmt.Printf("\n%d subjects\n", len(subjects))
		return nil
	},
}

func init() {
	subjectsCmd.Flags().String("exam", "", "Only subjects covered by this exam type (e.g. placement)")
	subjectsCmd.Flags().String("url", "", "Catalog service URL (overrides preferences)")
}

// catalogService picks the catalog backend: --url flag, then the
// preferences file, then the built-in deck.
func catalogService(cmd *cobra.Command) catalog.Service {
	u, _ := cmd.Flags().GetString("url")
	if u == "" {
		u = loadPrefs(cmd).CatalogURL
	}
	if u == "" {
		return catalog.NewStaticService()
	}
	return catalog.NewClient(catalog.WithBaseURL(u), catalog.WithLogger(stderrLogger()))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
