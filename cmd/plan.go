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
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eslsoft/flashdeck/internal/entity"
	"github.com/eslsoft/flashdeck/internal/usecase"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Resolve a launch plan and print it as JSON",
	Long: `Resolve a launch plan for the selected categories and print it as JSON.

Without --mode the recommended activity is launched. --chunks prints every
chunk of a chunked learning session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		container, closeSession, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer closeSession()

		ctx := cmd.Context()
		session := container.Session
		modeFlag, _ := cmd.Flags().GetString("mode")
		hardOnly, _ := cmd.Flags().GetBool("hard-only")
		criteria, _ := cmd.Flags().GetString("criteria")
		allChunks, _ := cmd.Flags().GetBool("chunks")

		var plan *entity.LaunchPlan
		if modeFlag == "" {
			plan, err = session.LaunchRecommended(ctx, entity.ModeUnspecified)
		} else {
			mode := entity.ParseMode(modeFlag)
			if mode == entity.ModeUnspecified {
				return fmt.Errorf("%w: %q", entity.ErrUnknownMode, modeFlag)
			}
			plan, err = session.Launch(ctx, usecase.LaunchRequest{
				Mode:     mode,
				HardOnly: hardOnly,
				Criteria: criteria,
				Source:   entity.SourceManual,
			})
		}
		if err != nil {
			return err
		}

		plans := []*entity.LaunchPlan{plan}
		for allChunks && plan.Chunked {
			next, err := session.ContinueChunk(ctx)
			if errors.Is(err, entity.ErrNothingToContinue) {
				break
			}
			if err != nil {
				return err
			}
			plans = append(plans, next)
			plan = next
		}
		if len(plans) == 1 {
			return printJSON(cmd.OutOrStdout(), plans[0])
		}
		return printJSON(cmd.OutOrStdout(), plans)
	},
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().String("mode", "", "study mode: practice, learning, listening, gender or self-check")
	planCmd.Flags().Bool("hard-only", false, "only hard words")
	planCmd.Flags().String("criteria", "", `word filter expression, e.g. status == "studied" && incorrect_count > 1`)
	planCmd.Flags().Bool("chunks", false, "print every chunk of a chunked session")
	addSelectionFlags(planCmd)
}
