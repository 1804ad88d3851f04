package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/wingo/internal/store"
)

// statser is implemented by every backend that can count its contents.
type statser interface {
	Stats(ctx context.Context) (*store.Stats, error)
}

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show how many serials are corrected and how many chats are tracked",
		Args:  cobra.NoArgs,
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	s, err := openStore(cfg, nil)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sp, ok := s.(statser)
	if !ok {
		exitErr("stats", fmt.Errorf("backend %q does not report statistics", cfg.Store.Backend))
	}
	stats, err := sp.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}

	if formatFlag == "text" {
		writeStats(os.Stdout, stats)
		return
	}
	printJSON(stats)
}

func writeStats(w io.Writer, st *store.Stats) {
	fmt.Fprintf(w, "backend:   %s\n", st.Backend)
	if st.DBPath != "" {
		fmt.Fprintf(w, "path:      %s (%d bytes)\n", st.DBPath, st.DBSizeBytes)
	}
	fmt.Fprintf(w, "serials:   %d (%d versions)\n", st.Serials, st.OverrideVersions)
	fmt.Fprintf(w, "chats:     %d\n", st.Chats)
	for _, c := range st.ColorCounts {
		fmt.Fprintf(w, "  %-7s %d\n", c.Color, c.Count)
	}
}
