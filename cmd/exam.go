package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/studyloop/internal/app"
	"github.com/abhisek/studyloop/internal/grading"
)

var examCmd = &cobra.Command{
	Use:   "exam",
	Short: "Create practice exams and grade attempts",
}

var examImportCmd = &cobra.Command{
	Use:   "import <course> <file>",
	Short: "Create an exam from a JSON or YAML file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in grading.ExamInput
		if err := readInput(args[1], &in); err != nil {
			return err
		}
		in.CourseID = args[0]

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			e, err := a.Exams.CreateExam(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created exam %s (%q, %d questions, %d points).\n",
				e.ID, e.Title, len(e.Questions), e.MaxScore())
			return nil
		})
	},
}

var examListCmd = &cobra.Command{
	Use:   "list <course>",
	Short: "List the course's exams, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			exams, err := a.Exams.ListExams(ctx, args[0], limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(exams) == 0 {
				fmt.Fprintln(out, "No exams found.")
				return nil
			}

			fmt.Fprintf(out, "%-36s  %-28s  %3s  %8s  %7s  %s\n", "ID", "Title", "Qs", "Attempts", "Avg", "Created")
			fmt.Fprintln(out, strings.Repeat("─", 104))
			for _, e := range exams {
				fmt.Fprintf(out, "%-36s  %-28s  %3d  %8d  %6.1f%%  %s\n",
					e.ID, truncate(e.Title, 28), len(e.Questions), e.Stats.TotalAttempts, e.Stats.AverageScore,
					e.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		})
	},
}

var examGenerateCmd = &cobra.Command{
	Use:   "generate <course>",
	Short: "Generate a new exam, avoiding questions from recent exams on the same topics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topics, _ := cmd.Flags().GetString("topics")
		count, _ := cmd.Flags().GetInt("count")
		title, _ := cmd.Flags().GetString("title")

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			b, err := a.Exams.RequestNewQuestions(ctx, args[0], splitList(topics), count)
			if err != nil {
				return err
			}
			reportShort(cmd.ErrOrStderr(), b)

			e, err := a.Exams.CreateExam(ctx, grading.ExamInputFromBatch(args[0], title, b))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created exam %s (%q, %d questions, %d points).\n",
				e.ID, e.Title, len(e.Questions), e.MaxScore())
			return nil
		})
	},
}

var examStartCmd = &cobra.Command{
	Use:   "start <examID>",
	Short: "Start an attempt and print the questions as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			start, err := a.Exams.StartAttempt(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), start)
		})
	},
}

// answerSheet is the file format accepted by exam submit.
type answerSheet struct {
	Answers []grading.Answer `json:"answers" yaml:"answers"`
}

var examSubmitCmd = &cobra.Command{
	Use:   "submit <attemptID> <answers-file>",
	Short: "Grade an attempt from a JSON or YAML answer sheet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var sheet answerSheet
		if err := readInput(args[1], &sheet); err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			att, err := a.Exams.SubmitAttempt(ctx, args[0], sheet.Answers)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(out, att)
			}

			status := "not passed"
			if att.Passed {
				status = "passed"
			}
			fmt.Fprintf(out, "Score:  %d / %d (%.1f%%), grade %s, %s\n", att.Score, att.MaxScore, att.Percentage, att.Grade, status)
			fmt.Fprintf(out, "Time:   %ds\n", att.TimeSpent)
			if len(att.Topics) > 0 {
				fmt.Fprintln(out)
				for _, ts := range att.Topics {
					fmt.Fprintf(out, "  %-28s  %d/%d correct  %d/%d pts\n", truncate(ts.Topic, 28), ts.Correct, ts.Total, ts.Points, ts.MaxPoints)
				}
			}
			if len(att.Strengths) > 0 {
				fmt.Fprintf(out, "\nStrengths:   %s\n", strings.Join(att.Strengths, ", "))
			}
			if len(att.Weaknesses) > 0 {
				fmt.Fprintf(out, "Weaknesses:  %s\n", strings.Join(att.Weaknesses, ", "))
			}
			for _, r := range att.Recommendations {
				fmt.Fprintf(out, "  - %s\n", r)
			}

			// Prerequisite hints are advisory; a missing graph is not an error.
			hints, err := a.Graph.PrerequisitesForTopics(ctx, att.CourseID, att.Weaknesses)
			if err != nil {
				a.Log.Warn("prerequisite lookup failed", zap.Error(err))
				return nil
			}
			for _, h := range hints {
				if len(h.Prerequisites) == 0 {
					continue
				}
				fmt.Fprintf(out, "Before retrying %s, review: %s\n", h.Topic, nodeNames(h.Prerequisites))
			}
			return nil
		})
	},
}

func init() {
	examListCmd.Flags().IntP("limit", "n", 20, "Number of exams to show (0 = all)")
	examGenerateCmd.Flags().String("topics", "", "Comma separated topics")
	examGenerateCmd.Flags().Int("count", 10, "Number of questions to generate")
	examGenerateCmd.Flags().String("title", "", "Exam title")
	_ = examGenerateCmd.MarkFlagRequired("topics")
	examSubmitCmd.Flags().Bool("json", false, "Print the graded attempt as JSON")

	examCmd.AddCommand(examImportCmd)
	examCmd.AddCommand(examListCmd)
	examCmd.AddCommand(examGenerateCmd)
	examCmd.AddCommand(examStartCmd)
	examCmd.AddCommand(examSubmitCmd)
}
