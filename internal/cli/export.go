package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/wingo/internal/model"
	"github.com/rcliao/wingo/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export corrections as JSON",
		Long:  "Export corrections as a JSON array. SQL backends include every version; the file backend has only the current ones.",
		Run:   runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	s, err := openStore(cfg, nil)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	var overrides []model.Override
	if sq, ok := s.(*store.SQLStore); ok {
		overrides, err = sq.ExportAll(cmd.Context())
	} else {
		overrides, err = s.ListOverrides(cmd.Context(), store.ListParams{Limit: 1 << 30})
	}
	if err != nil {
		exitErr("export", err)
	}
	if overrides == nil {
		overrides = []model.Override{}
	}
	printJSON(overrides)
}
