package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/wisy/internal/intent"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question and print the reply",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ask(cmd, strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().BoolP("explain", "e", false, "print detected intents and the best scored treatments")
}

func ask(cmd *cobra.Command, question string) {
	ctx := context.Background()

	logger := newLogger()
	defer logger.Sync()

	config := loadConfig(logger)

	if strings.TrimSpace(question) == "" {
		logger.Fatal("question is required")
	}

	c, err := setup(ctx, config, logger)
	if err != nil {
		logger.Fatal("setting up the responder", zap.Error(err))
	}

	out := cmd.OutOrStdout()

	if explain, _ := cmd.Flags().GetBool("explain"); explain {
		entries := c.loader.LoadOrEmpty(ctx)
		writeExplanation(out, question, intent.Classify(question), c.matcher, entries)
	}

	reply := c.responder.Respond(ctx, question)
	fmt.Fprintln(out, reply.Text)
}
