package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/wingo/internal/chart"
	"github.com/rcliao/wingo/internal/oracle"
)

func init() {
	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Find patterns in a results chart",
		Long: "Analyze recognized chart text (file or stdin). With --image the input is a " +
			"screenshot and is run through OCR first.",
		Args: cobra.MaximumNArgs(1),
		Run:  runAnalyze,
	}

	cmd.Flags().Bool("image", false, "Input is an image to OCR")

	RootCmd.AddCommand(cmd)
}

func runAnalyze(cmd *cobra.Command, args []string) {
	image, _ := cmd.Flags().GetBool("image")

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

	cfg := loadConfig()
	log := newLogger(cfg)
	defer log.Sync()

	s, err := openStore(cfg, log)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	svc := oracle.New(s, cfg.Recognizer(), log)

	var report *chart.Report
	if image {
		report, err = svc.AnalyzeImage(cmd.Context(), data)
	} else {
		report, err = svc.Analyze(cmd.Context(), string(data))
	}
	if err != nil {
		exitErr("analyze", err)
	}

	if formatFlag == "text" {
		fmt.Println(report.String())
		return
	}
	printJSON(report)
}
