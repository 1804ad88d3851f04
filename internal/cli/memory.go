package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/wingo/internal/model"
	"github.com/rcliao/wingo/internal/store"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect stored corrections",
}

func init() {
	getCmd := &cobra.Command{
		Use:   "get <serial>",
		Short: "Show the correction stored for a serial",
		Args:  cobra.ExactArgs(1),
		Run:   runMemoryGet,
	}
	getCmd.Flags().Bool("history", false, "Return all versions (newest first)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List corrected serials",
		Run:   runMemoryList,
	}
	listCmd.Flags().StringP("prefix", "p", "", "Only serials starting with this prefix")
	listCmd.Flags().IntP("limit", "l", 20, "Max results")

	memoryCmd.AddCommand(getCmd, listCmd)
	RootCmd.AddCommand(memoryCmd)
}

func runMemoryGet(cmd *cobra.Command, args []string) {
	history, _ := cmd.Flags().GetBool("history")

	cfg := loadConfig()
	s, err := openStore(cfg, nil)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if history {
		versions, err := sqlStore(s, "history").OverrideHistory(cmd.Context(), args[0])
		if err != nil {
			exitErr("history", err)
		}
		printJSON(versions)
		return
	}

	o, err := s.GetOverride(cmd.Context(), args[0])
	if err != nil {
		exitErr("get", err)
	}
	printJSON(o)
}

func runMemoryList(cmd *cobra.Command, args []string) {
	prefix, _ := cmd.Flags().GetString("prefix")
	limit, _ := cmd.Flags().GetInt("limit")

	cfg := loadConfig()
	s, err := openStore(cfg, nil)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	overrides, err := s.ListOverrides(cmd.Context(), store.ListParams{Prefix: prefix, Limit: limit})
	if err != nil {
		exitErr("list", err)
	}
	if overrides == nil {
		overrides = []model.Override{}
	}
	printJSON(overrides)
}
