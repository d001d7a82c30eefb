/*
Copyright © 2025 Ambor <saltbo@foxmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eslsoft/flashdeck/internal/entity"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the recommendation queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the next activity and the recommendation queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		container, closeSession, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer closeSession()

		session := container.Session
		out := struct {
			NextActivity *entity.RecommendationActivity  `json:"next_activity,omitempty"`
			Queue        []entity.RecommendationActivity `json:"recommendation_queue"`
		}{Queue: session.Queue()}
		if next, ok := session.NextActivity(); ok {
			out.NextActivity = &next
		}
		if out.Queue == nil {
			out.Queue = []entity.RecommendationActivity{}
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

var queueRemoveCmd = &cobra.Command{
	Use:   "remove <queue-id>",
	Short: "Dismiss a queued activity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		container, closeSession, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer closeSession()

		session := container.Session
		var target *entity.RecommendationActivity
		for _, activity := range session.Queue() {
			if activity.QueueID == args[0] {
				target = &activity
				break
			}
		}
		if target == nil {
			return fmt.Errorf("queue activity %q not found", args[0])
		}
		if err := session.RemoveQueueActivity(cmd.Context(), *target); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s, %d activities left\n", args[0], len(session.Queue()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.AddCommand(queueListCmd, queueRemoveCmd)
	addSelectionFlags(queueListCmd)
	addSelectionFlags(queueRemoveCmd)
}
