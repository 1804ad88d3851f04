package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/wingo/internal/oracle"
	"github.com/rcliao/wingo/internal/predict"
)

func init() {
	cmd := &cobra.Command{
		Use:   "predict <serial>",
		Short: "Predict the color and size of a serial",
		Long: "Predict the color and size of a serial. A stored correction wins over the rule. " +
			"With --chat the serial also becomes that chat's correction target.",
		Args: cobra.ExactArgs(1),
		Run:  runPredict,
	}

	cmd.Flags().StringP("chat", "c", "", "Record the serial for this chat ID")

	RootCmd.AddCommand(cmd)
}

func runPredict(cmd *cobra.Command, args []string) {
	chatID, _ := cmd.Flags().GetString("chat")

	cfg := loadConfig()
	log := newLogger(cfg)
	defer log.Sync()

	s, err := openStore(cfg, log)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	svc := oracle.New(s, nil, log)

	var p predict.Prediction
	if chatID != "" {
		p, err = svc.Submit(cmd.Context(), chatID, args[0])
	} else {
		p, err = svc.Predict(cmd.Context(), args[0])
	}
	if err != nil {
		exitErr("predict", err)
	}

	if formatFlag == "text" {
		fmt.Printf("%s %s %s (%s)\n", p.Serial, p.Color, p.Size, p.Source)
		return
	}
	printJSON(p)
}
