package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/wingo/internal/oracle"
)

func init() {
	cmd := &cobra.Command{
		Use:   "correct <color> <size>",
		Short: "Correct the last prediction made for a chat",
		Long:  "Store the actual outcome for the serial the chat submitted last. Later predictions of that serial return it.",
		Args:  cobra.MinimumNArgs(2),
		Run:   runCorrect,
	}

	cmd.Flags().StringP("chat", "c", "", "Chat ID (required)")
	cmd.MarkFlagRequired("chat")

	RootCmd.AddCommand(cmd)
}

func runCorrect(cmd *cobra.Command, args []string) {
	chatID, _ := cmd.Flags().GetString("chat")

	cfg := loadConfig()
	log := newLogger(cfg)
	defer log.Sync()

	s, err := openStore(cfg, log)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	o, err := oracle.New(s, nil, log).Correct(cmd.Context(), chatID, strings.Join(args, " "))
	if err != nil {
		exitErr("correct", err)
	}

	if formatFlag == "text" {
		fmt.Printf("%s → %s %s\n", o.Serial, o.Color, o.Size)
		return
	}
	printJSON(o)
}
