package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spigell/asha/internal/chat"
	"github.com/spigell/asha/internal/logger"
	"go.uber.org/zap"
)

const exitCommand = "/exit"

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to asha from the terminal through the same router the API uses",
	Run: func(cmd *cobra.Command, _ []string) {
		user, _ := cmd.Flags().GetString("user")
		talk(user)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringP("user", "u", chat.AnonymousUser, "user id to chat as")
}

func talk(user string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	a, err := newApplication(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the application", zap.Error(err))
	}
	defer a.Close()

	prompt := promptui.Prompt{
		Label: fmt.Sprintf("%s (%s to quit)", user, exitCommand),
	}

	for {
		text, err := prompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return
			}
			logger.Fatal("reading the prompt", zap.Error(err))
		}

		text = strings.TrimSpace(text)
		if text == exitCommand {
			return
		}
		if text == "" {
			continue
		}

		reply, err := a.router.Handle(ctx, user, text)
		if err != nil {
			logger.Error("handling the message", zap.Error(err))
			continue
		}

		fmt.Printf("\nasha [%s]: %s\n", reply.Intent, reply.Response)
		if reply.Action != "" {
			fmt.Printf("       action: %s\n", reply.Action)
		}
		fmt.Println()
	}
}
