package cmd

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session on this machine",
	Long: `Sign in with your FisioOnHand email and password.

The token and your profile are written to the session store before the
command reports success, so the next invocation starts signed in.

Examples:
  fisioctl login --email ana@clinic.com.br --password-stdin < pass.txt
  FISIOCTL_API_BASE_URL=http://127.0.0.1:8787 fisioctl login --email ana@fisioonhand.dev --password fisio-dev-123`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().String("email", "", "account email (required)")
	loginCmd.Flags().String("password", "", "account password")
	loginCmd.Flags().Bool("password-stdin", false, "read the password from stdin")
}

func runLogin(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	fromStdin, _ := cmd.Flags().GetBool("password-stdin")

	if strings.TrimSpace(email) == "" {
		return usageError("--email is required")
	}
	if fromStdin {
		if password != "" {
			return usageError("--password and --password-stdin are mutually exclusive")
		}
		var err error
		if password, err = readPassword(cmd.InOrStdin()); err != nil {
			return usageError("reading password from stdin: %v", err)
		}
	}
	if password == "" {
		return usageError("a password is required (--password or --password-stdin)")
	}

	env, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	snap, err := env.manager.Login(cmd.Context(), email, password)
	if err != nil {
		return describe("login", err)
	}

	p := newPrinter(cmd)
	p.Success("Signed in as %s", snap.Identity.Username)
	if snap.Identity.CrefitoID != "" {
		p.Field("CREFITO", snap.Identity.CrefitoID)
	}
	return nil
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
