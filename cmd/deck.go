package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/studyloop/internal/app"
	"github.com/abhisek/studyloop/internal/mastery"
	"github.com/abhisek/studyloop/internal/problemgen"
)

var deckCmd = &cobra.Command{
	Use:   "deck",
	Short: "Create and list flashcard decks",
}

var deckImportCmd = &cobra.Command{
	Use:   "import <course> <file>",
	Short: "Create a deck from a JSON or YAML file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in mastery.DeckInput
		if err := readInput(args[1], &in); err != nil {
			return err
		}
		in.CourseID = args[0]

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			d, err := a.Tracker.CreateDeck(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created deck %s (%q, %d cards).\n", d.ID, d.Title, d.CardCount)
			return nil
		})
	},
}

var deckListCmd = &cobra.Command{
	Use:   "list <course>",
	Short: "List the course's decks, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			decks, err := a.Tracker.ListDecks(ctx, args[0], limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(decks) == 0 {
				fmt.Fprintln(out, "No decks found.")
				return nil
			}

			fmt.Fprintf(out, "%-36s  %-28s  %5s  %7s  %s\n", "ID", "Title", "Cards", "Mastery", "Created")
			fmt.Fprintln(out, strings.Repeat("─", 100))
			for _, d := range decks {
				fmt.Fprintf(out, "%-36s  %-28s  %5d  %6.1f%%  %s\n",
					d.ID, truncate(d.Title, 28), d.CardCount, d.Stats.AverageMastery,
					d.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		})
	},
}

var deckGenerateCmd = &cobra.Command{
	Use:   "generate <course>",
	Short: "Generate a new deck, avoiding cards from recent decks on the same topics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topics, _ := cmd.Flags().GetString("topics")
		count, _ := cmd.Flags().GetInt("count")
		title, _ := cmd.Flags().GetString("title")

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			list := splitList(topics)
			b, err := a.Tracker.RequestNewCards(ctx, args[0], list, count)
			if err != nil {
				return err
			}
			reportShort(cmd.ErrOrStderr(), b)

			d, err := a.Tracker.CreateDeck(ctx, mastery.DeckInputFromBatch(args[0], title, list, b))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created deck %s (%q, %d cards).\n", d.ID, d.Title, d.CardCount)
			return nil
		})
	},
}

var cardsCmd = &cobra.Command{
	Use:   "cards",
	Short: "Record study results and review progress",
}

var cardsStudyCmd = &cobra.Command{
	Use:   "study <cardID>",
	Short: "Record one study result for a card",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		correct, _ := cmd.Flags().GetBool("correct")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Tracker.RecordStudyEvent(ctx, args[0], correct)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Mastery %.0f%% (%s). Next review %s.\n",
				res.MasteryLevel, mastery.Bucket(res.MasteryLevel),
				res.NextReview.Local().Format("2006-01-02 15:04"))
			return nil
		})
	},
}

var cardsSessionCmd = &cobra.Command{
	Use:   "session <deckID>",
	Short: "Record a study session over a deck",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		correct, _ := cmd.Flags().GetString("correct")
		incorrect, _ := cmd.Flags().GetString("incorrect")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Tracker.RecordSession(ctx, args[0], splitList(correct), splitList(incorrect))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Studied %d cards: %d correct, %d incorrect (%.0f%%).\n",
				res.CardsStudied, res.Correct, res.Incorrect, res.Accuracy)
			fmt.Fprintf(out, "Deck mastery %.1f%%.\n", res.Stats.AverageMastery)
			fmt.Fprintln(out, res.Recommendation)
			return nil
		})
	},
}

var cardsProgressCmd = &cobra.Command{
	Use:   "progress <course>",
	Short: "Summarize study progress for a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			p, err := a.Tracker.GetProgress(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(out, p)
			}
			fmt.Fprintf(out, "Cards:     %d\n", p.TotalCards)
			fmt.Fprintf(out, "Studied:   %d (%d correct, %.0f%% accuracy)\n", p.TotalStudied, p.TotalCorrect, p.Accuracy)
			fmt.Fprintf(out, "Mastery:   %.1f%% average\n", p.AverageMastery)
			fmt.Fprintf(out, "Buckets:   %d mastered, %d learning, %d new\n", p.Mastered, p.Learning, p.New)
			return nil
		})
	},
}

var cardsDueCmd = &cobra.Command{
	Use:   "due <course>",
	Short: "List cards due for review, most overdue first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			cards, err := a.Tracker.DueCards(ctx, args[0], limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(cards) == 0 {
				fmt.Fprintln(out, "Nothing due.")
				return nil
			}
			for _, c := range cards {
				due := "new"
				if c.Progress.NextReview != nil {
					due = c.Progress.NextReview.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(out, "%-36s  %-16s  %-40s\n", c.ID, due, truncate(c.Front, 40))
			}
			return nil
		})
	},
}

// reportShort warns when the generator could not fill the whole request.
func reportShort(w io.Writer, b *problemgen.Batch) {
	if !b.Short() {
		return
	}
	fmt.Fprintf(w, "warning: only %d of %d requested items were new (%d duplicates, %d rejected)\n",
		len(b.Candidates), b.Requested, b.Duplicates, b.Rejected)
}

func init() {
	deckListCmd.Flags().IntP("limit", "n", 20, "Number of decks to show (0 = all)")
	deckGenerateCmd.Flags().String("topics", "", "Comma separated topics")
	deckGenerateCmd.Flags().Int("count", 10, "Number of cards to generate")
	deckGenerateCmd.Flags().String("title", "", "Deck title")
	_ = deckGenerateCmd.MarkFlagRequired("topics")

	cardsStudyCmd.Flags().Bool("correct", false, "Whether the card was answered correctly")
	_ = cardsStudyCmd.MarkFlagRequired("correct")
	cardsSessionCmd.Flags().String("correct", "", "Comma separated IDs of cards answered correctly")
	cardsSessionCmd.Flags().String("incorrect", "", "Comma separated IDs of cards answered incorrectly")
	cardsProgressCmd.Flags().Bool("json", false, "Print the summary as JSON")
	cardsDueCmd.Flags().IntP("limit", "n", 20, "Number of cards to show (0 = all)")

	deckCmd.AddCommand(deckImportCmd)
	deckCmd.AddCommand(deckListCmd)
	deckCmd.AddCommand(deckGenerateCmd)

	cardsCmd.AddCommand(cardsStudyCmd)
	cardsCmd.AddCommand(cardsSessionCmd)
	cardsCmd.AddCommand(cardsProgressCmd)
	cardsCmd.AddCommand(cardsDueCmd)
}
