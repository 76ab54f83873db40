package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xaenox/mindmesh-bot/internal/assistant"
)

var chatUser string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant in the terminal",
	Long: `Opens the user's session and reads questions from standard input.

Commands:
  /reset   start over using the latest questionnaire answers
  /quit    leave the chat`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatUser, "user", "u", "", "Username to chat as")
	_ = chatCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := build()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.ChatReady(); err != nil {
		return err
	}
	return chatLoop(cmd.Context(), a.Service, chatUser, cmd.InOrStdin(), cmd.OutOrStdout())
}

func chatLoop(ctx context.Context, svc *assistant.Service, username string, in io.Reader, out io.Writer) error {
	if _, err := svc.User(ctx, username); err != nil {
		return err
	}
	if _, err := svc.Open(ctx, username); err != nil {
		return err
	}
	defer svc.EndSession(username)

	fmt.Fprintf(out, "Chatting as %s. Type /reset to start over or /quit to leave.\n", username)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			if err := svc.Reset(ctx, username); err != nil {
				fmt.Fprintln(out, "! "+assistant.UserMessage(err))
				continue
			}
			fmt.Fprintln(out, "Conversation cleared.")
			continue
		}

		reply, err := svc.SendMessage(ctx, username, line)
		if err != nil {
			fmt.Fprintln(out, "! "+assistant.UserMessage(err))
			continue
		}
		fmt.Fprintf(out, "assistant> %s\n", reply)
	}
}
