package cmd

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/fisioonhand/goSession/devserver"
	"github.com/fisioonhand/goSession/password"
	"github.com/fisioonhand/goSession/session"
)

const (
	testEmail    = "ana@clinic.test"
	testPassword = "correct-horse"
)

type cliEnv struct {
	server      *devserver.Server
	url         string
	sessionPath string
}

func setupCLI(t *testing.T) *cliEnv {
	t.Helper()

	srv, err := devserver.New(devserver.Config{
		Password: password.Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
	})
	require.NoError(t, err)
	_, err = srv.AddPractitioner(testEmail, "ana", testPassword, "CREFITO-3/12345-F")
	require.NoError(t, err)

	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	t.Setenv("NO_COLOR", "1")
	t.Setenv("FISIOCTL_API_BASE_URL", hs.URL)
	t.Setenv("FISIOCTL_API_MAX_RETRIES", "0")
	sessionPath := filepath.Join(dir, "state", "session.db")
	t.Setenv("FISIOCTL_SESSION_PATH", sessionPath)

	return &cliEnv{server: srv, url: hs.URL, sessionPath: sessionPath}
}

// run executes fisioctl with args and returns stdout and stderr.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func login(t *testing.T) {
	t.Helper()
	_, _, err := run(t, "", "login", "--email", testEmail, "--password", testPassword)
	require.NoError(t, err)
}

// storedCredential reads the token the CLI persisted.
func storedCredential(t *testing.T, path string) string {
	t.Helper()
	b, err := session.OpenBolt(path)
	require.NoError(t, err)
	defer b.Close()

	snap, err := session.NewStore(b, "@Auth:").Load(context.Background())
	require.NoError(t, err)
	return snap.Credential
}
