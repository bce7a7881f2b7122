package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/fisioonhand/goSession/devserver"
)

var devServerCmd = &cobra.Command{
	Use:   "dev-server",
	Short: "Run a local stand-in for the clinic API",
	Long: `Run an in-memory auth endpoint and patient API for local use.

One practitioner is seeded at startup. Point the CLI at it with
FISIOCTL_API_BASE_URL=http://<addr>.

Examples:
  fisioctl dev-server                            # Listen on 127.0.0.1:8787
  fisioctl dev-server --addr :9000 --redis-embedded`,
	Args: cobra.NoArgs,
	RunE: runDevServer,
}

func init() {
	rootCmd.AddCommand(devServerCmd)

	devServerCmd.Flags().String("addr", "", "listen address (default from dev_server.addr)")
	devServerCmd.Flags().Bool("redis-embedded", false, "keep token revocations in an embedded Redis")
	devServerCmd.Flags().String("seed-email", "", "email of the seeded practitioner")
	devServerCmd.Flags().String("seed-password", "", "password of the seeded practitioner")
}

type devServerOptions struct {
	Addr          string
	RedisEmbedded bool
	SeedEmail     string
	SeedPassword  string
	SeedName      string
}

func runDevServer(cmd *cobra.Command, args []string) error {
	opts := devServerOptions{
		Addr:          cfg.DevServer.Addr,
		RedisEmbedded: cfg.DevServer.RedisEmbedded,
		SeedEmail:     cfg.DevServer.SeedEmail,
		SeedPassword:  cfg.DevServer.SeedPassword,
		SeedName:      cfg.DevServer.SeedName,
	}
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		opts.Addr = v
	}
	if cmd.Flags().Changed("redis-embedded") {
		opts.RedisEmbedded, _ = cmd.Flags().GetBool("redis-embedded")
	}
	if v, _ := cmd.Flags().GetString("seed-email"); v != "" {
		opts.SeedEmail = v
	}
	if v, _ := cmd.Flags().GetString("seed-password"); v != "" {
		opts.SeedPassword = v
	}

	p := newPrinter(cmd)
	return serveDev(cmd.Context(), opts, func(addr string) {
		p.Success("Dev server listening on http://%s", addr)
		p.Field("Practitioner", opts.SeedEmail)
		p.Field("Password", opts.SeedPassword)
		p.Print("Use it with: FISIOCTL_API_BASE_URL=http://%s fisioctl login --email %s --password %s", addr, opts.SeedEmail, opts.SeedPassword)
	})
}

// serveDev blocks until ctx is done. ready receives the bound address.
func serveDev(ctx context.Context, opts devServerOptions, ready func(addr string)) error {
	dcfg := devserver.Config{Logger: logger}

	if opts.RedisEmbedded {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start embedded redis: %w", err)
		}
		defer mr.Close()
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer rdb.Close()
		dcfg.Redis = rdb
		logger.Info("devserver.redis_embedded", "addr", mr.Addr())
	}

	srv, err := devserver.New(dcfg)
	if err != nil {
		return err
	}
	if _, err := srv.AddPractitioner(opts.SeedEmail, opts.SeedName, opts.SeedPassword, ""); err != nil {
		return fmt.Errorf("seed practitioner: %w", err)
	}

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", opts.Addr, err)
	}
	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.Serve(ln)
	}()
	if ready != nil {
		ready(ln.Addr().String())
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
