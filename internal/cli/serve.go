package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/wingo/internal/oracle"
	"github.com/rcliao/wingo/internal/store"
	"github.com/rcliao/wingo/internal/webhook"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat webhook server",
		Long: "Serve POST /webhook for a chat relay until interrupted. With the file backend, " +
			"documents edited on disk are reloaded while serving.",
		Args: cobra.NoArgs,
		Run:  runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (default from config, :8080)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	addr, _ := cmd.Flags().GetString("addr")

	cfg := loadConfig()
	if addr != "" {
		cfg.HTTP.Addr = addr
	}
	log := newLogger(cfg)
	defer log.Sync()

	s, err := openStore(cfg, log)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg.HTTP.Addr, s, oracle.New(s, cfg.Recognizer(), log), log); err != nil {
		exitErr("serve", err)
	}
	log.Info("server stopped")
}

func serve(ctx context.Context, addr string, s store.Store, svc *oracle.Service, log *zap.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return webhook.NewServer(svc, log).Run(gctx, addr)
	})
	if fs, ok := s.(*store.FileStore); ok {
		g.Go(func() error {
			return fs.Watch(gctx)
		})
	}
	return g.Wait()
}
