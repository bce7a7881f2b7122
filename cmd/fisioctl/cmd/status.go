package cmd

import (
	"time"

	"github.com/spf13/cobra"

	goSession "github.com/fisioonhand/goSession"
	"github.com/fisioonhand/goSession/jwt"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	Long: `Display who is signed in on this machine.

Examples:
  fisioctl status              # Show the stored session
  fisioctl status --check      # Confirm the token with the server first
  fisioctl status --json       # Output as JSON`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().Bool("json", false, "output as JSON")
	statusCmd.Flags().Bool("check", false, "revalidate the credential with the server")
}

type statusView struct {
	Status    string     `json:"status"`
	UserID    string     `json:"user_id,omitempty"`
	Username  string     `json:"username,omitempty"`
	Email     string     `json:"email,omitempty"`
	CrefitoID string     `json:"crefito_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	check, _ := cmd.Flags().GetBool("check")

	env, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	p := newPrinter(cmd)
	snap := env.manager.Snapshot()
	if check && snap.IsAuthenticated() {
		snap, err = env.manager.Revalidate(cmd.Context())
		switch goSession.KindOf(err) {
		case goSession.FailureNone:
		case goSession.FailureAuthentication:
			p.Warning("the server rejected the stored session; signed out")
		case goSession.FailureUnavailable:
			p.Warning("server unreachable; showing the stored session")
		default:
			return describe("status", err)
		}
	}

	view := statusView{Status: snap.Status.String()}
	if snap.Identity != nil {
		view.UserID = snap.Identity.ID
		view.Username = snap.Identity.Username
		view.Email = snap.Identity.Email
		view.CrefitoID = snap.Identity.CrefitoID
	}
	if exp, ok := jwt.ExpiresAt(snap.Credential); ok {
		view.ExpiresAt = &exp
	}

	if jsonOutput {
		return writeJSON(cmd, view)
	}

	p.Print("Session %s", p.StatusBadge(view.Status))
	if !snap.IsAuthenticated() {
		p.Print("Run `fisioctl login` to sign in.")
		return nil
	}
	p.Field("User", view.Username)
	p.Field("Email", view.Email)
	p.Field("CREFITO", view.CrefitoID)
	if view.ExpiresAt != nil {
		p.Field("Expires", view.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}
