package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/mindmirror/internal/guide"
	"github.com/user/mindmirror/internal/types"
)

func init() {
	rootCmd.AddCommand(drawCmd)
	drawCmd.Flags().Bool("no-chat", false, "create the session without entering the chat loop")
}

var drawCmd = &cobra.Command{
	Use:   "draw",
	Short: "Draw a card combination and start a new session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup := newApp()
		defer cleanup()

		a.ctrl.StartNew()
		combo := a.deck.DrawCombination()

		fmt.Printf("你抽到了：\n")
		fmt.Printf("  图画卡  %s  (%s)\n", combo.Image.ID, combo.Image.URL)
		fmt.Printf("  文字卡  %s\n\n", combo.Word.Text)
		fmt.Println("可以从这些角度开始：")
		for _, q := range guide.WordQuestions(combo.Word.Text) {
			fmt.Printf("  · %s\n", q)
		}
		fmt.Println()

		sess, err := a.ctrl.CommitPayload(cmd.Context(), types.Payload{
			Cards: &combo,
		})
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}

		fmt.Printf("已创建会话 %s（%s）\n\n", sess.ID, sess.Title)

		if noChat, _ := cmd.Flags().GetBool("no-chat"); noChat {
			return nil
		}
		return runChatLoop(cmd, a, sess.ID)
	},
}
