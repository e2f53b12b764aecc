package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/user/mindmirror/internal/types"
)

func init() {
	rootCmd.AddCommand(sandplayCmd)
	sandplayCmd.AddCommand(sandplayScenesCmd, sandplayToysCmd, sandplayBeginCmd)

	sandplayBeginCmd.Flags().String("scene", "desert", "scene id (see 'sandplay scenes')")
	sandplayBeginCmd.Flags().StringArray("place", nil, "placed toy as id@x,y or id@x,y=label (repeatable)")
	sandplayBeginCmd.Flags().String("note", "", "free-text description of the arrangement")
	sandplayBeginCmd.Flags().Bool("no-chat", false, "create the session without entering the chat loop")
}

var sandplayCmd = &cobra.Command{
	Use:   "sandplay",
	Short: "Arrange a sandbox scene and start a new session",
}

var sandplayScenesCmd = &cobra.Command{
	Use:   "scenes",
	Short: "List available scenes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup := newApp()
		defer cleanup()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
		for _, s := range a.deck.Scenes() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.Name, s.Description)
		}
		return w.Flush()
	},
}

var sandplayToysCmd = &cobra.Command{
	Use:   "toys",
	Short: "List placeable toys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup := newApp()
		defer cleanup()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCATEGORY")
		for _, t := range a.deck.Toys() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Name, t.Category)
		}
		return w.Flush()
	},
}

var sandplayBeginCmd = &cobra.Command{
	Use:   "begin",
	Short: "Commit an arrangement and start the conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup := newApp()
		defer cleanup()

		sceneID, _ := cmd.Flags().GetString("scene")
		if _, ok := a.deck.Scene(sceneID); !ok {
			return fmt.Errorf("unknown scene: %s", sceneID)
		}

		placements, _ := cmd.Flags().GetStringArray("place")
		if len(placements) == 0 {
			return fmt.Errorf("place at least one toy (--place id@x,y)")
		}

		var toys []types.PlacedToy
		for _, spec := range placements {
			toy, err := parsePlacement(a, spec)
			if err != nil {
				return err
			}
			toys = append(toys, toy)
		}

		note, _ := cmd.Flags().GetString("note")

		a.ctrl.StartNew()
		sess, err := a.ctrl.CommitPayload(cmd.Context(), types.Payload{
			Sandplay: &types.SandplaySnapshot{
				SceneID:     sceneID,
				Toys:        toys,
				Description: note,
			},
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

// parsePlacement parses "toyID@x,y" with an optional "=label" suffix.
func parsePlacement(a *app, spec string) (types.PlacedToy, error) {
	var label string
	if i := strings.Index(spec, "="); i >= 0 {
		label = spec[i+1:]
		spec = spec[:i]
	}

	id, pos, ok := strings.Cut(spec, "@")
	if !ok {
		return types.PlacedToy{}, fmt.Errorf("invalid placement %q (want id@x,y)", spec)
	}
	toy, found := a.deck.Toy(id)
	if !found {
		return types.PlacedToy{}, fmt.Errorf("unknown toy: %s", id)
	}

	xs, ys, ok := strings.Cut(pos, ",")
	if !ok {
		return types.PlacedToy{}, fmt.Errorf("invalid position in %q (want x,y)", spec)
	}
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return types.PlacedToy{}, fmt.Errorf("invalid x in %q: %w", spec, err)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return types.PlacedToy{}, fmt.Errorf("invalid y in %q: %w", spec, err)
	}

	return types.PlacedToy{
		ID:    uuid.New().String(),
		ToyID: toy.ID,
		Name:  toy.Name,
		X:     x,
		Y:     y,
		Label: label,
	}, nil
}
