package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/mindmirror/internal/state"
	"github.com/user/mindmirror/internal/types"
)

func init() {
	rootCmd.AddCommand(chatCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat [session-id]",
	Short: "Continue a session (most recent by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup := newApp()
		defer cleanup()

		var id types.SessionID
		if len(args) == 1 {
			id = types.SessionID(args[0])
		} else {
			sessions := a.store.List()
			if len(sessions) == 0 {
				fmt.Println("No sessions yet. Start one with 'mindmirror draw'.")
				return nil
			}
			latest := sessions[0]
			for _, s := range sessions[1:] {
				if s.LastUpdated.After(latest.LastUpdated) {
					latest = s
				}
			}
			id = latest.ID
		}

		if err := a.ctrl.SelectExisting(cmd.Context(), id); err != nil {
			return fmt.Errorf("select session: %w", err)
		}

		sess, _ := a.store.Get(id)
		fmt.Printf("会话：%s\n\n", sess.Title)
		for _, msg := range sess.Messages {
			printMessage(msg)
		}

		return runChatLoop(cmd, a, id)
	},
}

// runChatLoop reads user turns from stdin until EOF or /exit. A backup
// scheduler runs for the duration of the loop.
func runChatLoop(cmd *cobra.Command, a *app, id types.SessionID) error {
	backups := state.NewBackupScheduler(a.store, a.cfg.BackupSchedule, a.cfg.BackupKeep)
	if err := backups.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "backup scheduler disabled: %v\n", err)
	} else {
		defer backups.Stop()
	}

	if a.settings.Current().APIKey == "" {
		fmt.Println("提示：尚未配置 API Key（mindmirror settings set api_key <key>）。")
	}
	fmt.Println("输入内容开始对话，/exit 结束。")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "/exit" || text == "/quit" {
			break
		}

		if err := a.ctrl.SendUserTurn(cmd.Context(), text); err != nil {
			fmt.Fprintf(os.Stderr, "send: %v\n", err)
			continue
		}

		sess, ok := a.store.Get(id)
		if !ok || len(sess.Messages) == 0 {
			continue
		}
		printMessage(sess.Messages[len(sess.Messages)-1])
	}
	return scanner.Err()
}

func printMessage(msg types.Message) {
	label := "引导师"
	if msg.Role == types.RoleUser {
		label = "我"
	}
	fmt.Printf("[%s] %s\n\n", label, msg.Text)
}
