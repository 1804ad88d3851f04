package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/wingo/internal/model"
	"github.com/rcliao/wingo/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import corrections from JSON",
		Long:  "Import corrections from JSON (file or stdin). Expects the format produced by export.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var data []byte
	var err error
	if len(args) > 0 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		exitErr("read input", err)
	}

	var overrides []model.Override
	if err := json.Unmarshal(data, &overrides); err != nil {
		exitErr("parse json", err)
	}

	cfg := loadConfig()
	s, err := openStore(cfg, nil)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	imported, err := importOverrides(cmd, s, overrides)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", imported)
}

func importOverrides(cmd *cobra.Command, s store.Store, overrides []model.Override) (int, error) {
	if sq, ok := s.(*store.SQLStore); ok {
		return sq.Import(cmd.Context(), overrides)
	}
	n := 0
	for _, o := range overrides {
		if _, err := s.PutOverride(cmd.Context(), store.OverrideParams{Serial: o.Serial, Outcome: o.Outcome, ChatID: o.ChatID}); err != nil {
			return n, fmt.Errorf("serial %s: %w", o.Serial, err)
		}
		n++
	}
	return n, nil
}
