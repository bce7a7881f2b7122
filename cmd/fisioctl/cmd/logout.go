package cmd

import (
	"github.com/spf13/cobra"

	goSession "github.com/fisioonhand/goSession"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and remove the stored session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	env, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	p := newPrinter(cmd)
	if env.manager.Status() != goSession.StatusAuthenticated {
		p.Info("Not signed in")
		// Clears leftovers an earlier failed deletion may have left behind.
		_, _ = env.manager.SignOut(cmd.Context())
		return nil
	}

	if _, err := env.manager.SignOut(cmd.Context()); err != nil {
		return describe("logout", err)
	}
	p.Success("Signed out")
	return nil
}
