package cmd

import (
	"encoding/json"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fisioonhand/goSession/clinic"
	"github.com/fisioonhand/goSession/internal/output"
)

var patientsCmd = &cobra.Command{
	Use:     "patients",
	Aliases: []string{"patient", "pacientes"},
	Short:   "Manage your patients",
}

var patientsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your patients",
	Args:  cobra.NoArgs,
	RunE:  runPatientsList,
}

var patientsShowCmd = &cobra.Command{
	Use:   "show <patient-id>",
	Short: "Show one patient",
	Args:  cobra.ExactArgs(1),
	RunE:  runPatientsShow,
}

var patientsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new patient",
	Long: `Register a new patient.

Examples:
  fisioctl patients create --name "Maria Souza" --cpf 123.456.789-00 --phone "(11) 98888-7777"`,
	Args: cobra.NoArgs,
	RunE: runPatientsCreate,
}

func init() {
	rootCmd.AddCommand(patientsCmd)
	patientsCmd.AddCommand(patientsListCmd, patientsShowCmd, patientsCreateCmd)

	patientsListCmd.Flags().Bool("json", false, "output as JSON")
	patientsShowCmd.Flags().Bool("json", false, "output as JSON")

	patientsCreateCmd.Flags().String("name", "", "full name (required)")
	patientsCreateCmd.Flags().String("cpf", "", "CPF")
	patientsCreateCmd.Flags().String("email", "", "email")
	patientsCreateCmd.Flags().String("phone", "", "main phone")
	patientsCreateCmd.Flags().String("birth-date", "", "birth date (YYYY-MM-DD)")
}

func runPatientsList(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	env, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	patients, err := env.api.ListPatients(cmd.Context())
	if err != nil {
		return describe("list patients", err)
	}
	if jsonOutput {
		return writeJSON(cmd, patients)
	}

	p := newPrinter(cmd)
	if len(patients) == 0 {
		p.Info("No patients yet. Add one with `fisioctl patients create`.")
		return nil
	}
	table := output.NewTable(cmd.OutOrStdout(), []string{"ID", "Name", "CPF", "Phone", "Email"})
	for _, pt := range patients {
		table.AddRow(strconv.FormatInt(pt.ID, 10), pt.FullName, pt.CPF, pt.Phone, pt.Email)
	}
	return table.Render()
}

func runPatientsShow(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	id, err := parseID("patient", args[0])
	if err != nil {
		return err
	}

	env, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	pt, err := env.api.GetPatient(cmd.Context(), id)
	if err != nil {
		return describe("show patient", err)
	}
	if jsonOutput {
		return writeJSON(cmd, pt)
	}
	printPatient(newPrinter(cmd), pt)
	return nil
}

func runPatientsCreate(cmd *cobra.Command, args []string) error {
	var pt clinic.Patient
	pt.FullName, _ = cmd.Flags().GetString("name")
	pt.CPF, _ = cmd.Flags().GetString("cpf")
	pt.Email, _ = cmd.Flags().GetString("email")
	pt.Phone, _ = cmd.Flags().GetString("phone")
	pt.BirthDate, _ = cmd.Flags().GetString("birth-date")
	if err := pt.Validate(); err != nil {
		return usageError("--name is required")
	}

	env, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	created, err := env.api.CreatePatient(cmd.Context(), pt)
	if err != nil {
		return describe("create patient", err)
	}
	newPrinter(cmd).Success("Created patient %d (%s)", created.ID, created.FullName)
	return nil
}

func printPatient(p *output.Printer, pt clinic.Patient) {
	p.Header(pt.FullName)
	p.Field("ID", strconv.FormatInt(pt.ID, 10))
	p.Field("Birth date", pt.BirthDate)
	p.Field("CPF", pt.CPF)
	p.Field("Phone", pt.Phone)
	p.Field("Email", pt.Email)
}

func parseID(kind, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, usageError("invalid %s id %q", kind, raw)
	}
	return id, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
