package cmd

import (
	"log"

	"github.com/gezinff87-dev/papagaio/papagaio"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [flags]",
	Short: "Starts the Papagaio bot and (optionally) the status API",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		bot, err := papagaio.New(cfg)
		if err != nil {
			log.Fatalf("error creating papagaio: %s", err.Error())
		}

		if err = bot.Run(ctx); err != nil {
			log.Fatalf("error running papagaio: %s", err.Error())
		}
	},
}

//goland:noinspection GoLinter
func init() {
	rootCmd.AddCommand(runCmd)
}
