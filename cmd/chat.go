package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/wisy/internal/ai"
)

const (
	chatLabel = "Sie"
	// Turns kept as generator context.
	maxChatHistory = 10
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the responder in the terminal",
	Run: func(cmd *cobra.Command, _ []string) {
		chat(cmd)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func chat(cmd *cobra.Command) {
	ctx := context.Background()

	logger := newLogger()
	defer logger.Sync()

	config := loadConfig(logger)

	c, err := setup(ctx, config, logger)
	if err != nil {
		logger.Fatal("setting up the responder", zap.Error(err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Type 'exit' or press Ctrl+C to leave.")

	var history []ai.Message
	for {
		prompt := promptui.Prompt{
			Label: chatLabel,
			Validate: func(input string) error {
				if strings.TrimSpace(input) == "" {
					return errors.New("message is empty")
				}
				return nil
			},
		}

		message, err := prompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return
			}
			logger.Fatal("reading message", zap.Error(err))
		}

		if strings.EqualFold(strings.TrimSpace(message), "exit") {
			return
		}

		reply := c.responder.Respond(ctx, message, history...)
		fmt.Fprintf(out, "Wisy: %s\n", reply.Text)

		history = append(history,
			ai.Message{Role: ai.RoleUser, Content: message},
			ai.Message{Role: ai.RoleAssistant, Content: reply.Text},
		)
		if len(history) > maxChatHistory {
			history = history[len(history)-maxChatHistory:]
		}
	}
}
