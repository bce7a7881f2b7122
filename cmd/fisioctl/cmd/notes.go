package cmd

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fisioonhand/goSession/clinic"
	"github.com/fisioonhand/goSession/internal/output"
)

const noteExcerptLen = 60

var notesCmd = &cobra.Command{
	Use:     "notes",
	Aliases: []string{"note", "anotacoes"},
	Short:   "List and add notes on a record",
}

var notesListCmd = &cobra.Command{
	Use:   "list <record-id>",
	Short: "List the notes of a record",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotesList,
}

var notesAddCmd = &cobra.Command{
	Use:   "add <record-id>",
	Short: "Add a text note to a record",
	Long: `Add a text note to a record.

Examples:
  fisioctl notes add 12 --text "Paciente relata melhora da dor" --summary "sessão 4"`,
	Args: cobra.ExactArgs(1),
	RunE: runNotesAdd,
}

func init() {
	rootCmd.AddCommand(notesCmd)
	notesCmd.AddCommand(notesListCmd, notesAddCmd)

	notesListCmd.Flags().Bool("json", false, "output as JSON")

	notesAddCmd.Flags().String("text", "", "note content (required)")
	notesAddCmd.Flags().String("summary", "", "short description")
}

func runNotesList(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	recordID, err := parseID("record", args[0])
	if err != nil {
		return err
	}

	env, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	notes, err := env.api.ListNotes(cmd.Context(), recordID)
	if err != nil {
		return describe("list notes", err)
	}
	if jsonOutput {
		return writeJSON(cmd, notes)
	}

	if len(notes) == 0 {
		newPrinter(cmd).Info("No notes on record %d", recordID)
		return nil
	}
	table := output.NewTable(cmd.OutOrStdout(), []string{"ID", "Kind", "Created", "Summary", "Content"})
	for _, n := range notes {
		created := ""
		if !n.CreatedAt.IsZero() {
			created = n.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		table.AddRow(strconv.FormatInt(n.ID, 10), n.Kind.String(), created, n.Summary, excerpt(n.Content))
	}
	return table.Render()
}

func runNotesAdd(cmd *cobra.Command, args []string) error {
	recordID, err := parseID("record", args[0])
	if err != nil {
		return err
	}
	text, _ := cmd.Flags().GetString("text")
	summary, _ := cmd.Flags().GetString("summary")
	if strings.TrimSpace(text) == "" {
		return usageError("--text is required")
	}

	env, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	note, err := env.api.AddNote(cmd.Context(), clinic.Note{
		RecordID: recordID,
		Kind:     clinic.NoteText,
		Content:  text,
		Summary:  summary,
	})
	if err != nil {
		return describe("add note", err)
	}
	newPrinter(cmd).Success("Added note %d to record %d", note.ID, recordID)
	return nil
}

func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= noteExcerptLen {
		return s
	}
	return string(r[:noteExcerptLen-1]) + "…"
}
