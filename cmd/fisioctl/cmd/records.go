package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
)

var recordsCmd = &cobra.Command{
	Use:     "records",
	Aliases: []string{"record", "fichas"},
	Short:   "Inspect assessment records",
}

var recordsShowCmd = &cobra.Command{
	Use:   "show <patient-id>",
	Short: "Show the assessment record of a patient",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordsShow,
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.AddCommand(recordsShowCmd)

	recordsShowCmd.Flags().Bool("json", false, "output as JSON")
}

func runRecordsShow(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	patientID, err := parseID("patient", args[0])
	if err != nil {
		return err
	}

	env, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	rec, err := env.api.FindRecord(cmd.Context(), patientID)
	if err != nil {
		return describe("show record", err)
	}
	if jsonOutput {
		return writeJSON(cmd, rec)
	}

	p := newPrinter(cmd)
	p.Header("Record " + strconv.FormatInt(rec.ID, 10))
	p.Field("Patient", strconv.FormatInt(rec.PatientID, 10))
	if !rec.AssessedAt.IsZero() {
		p.Field("Assessed", rec.AssessedAt.Format("2006-01-02"))
	}
	p.Field("Complaint", rec.ChiefComplaint)
	p.Field("Diagnosis", rec.Diagnosis)
	p.Field("Plan", rec.TreatmentPlan)
	p.Field("Observations", rec.Observations)
	return nil
}
