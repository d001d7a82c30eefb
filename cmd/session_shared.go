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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eslsoft/flashdeck/internal/app"
	"github.com/eslsoft/flashdeck/internal/entity"
)

// openSession builds the client container and bootstraps its session from
// the persisted learner profile (local mode) and the selection flags.
func openSession(cmd *cobra.Command) (*app.ClientContainer, func(), error) {
	container, cleanup, err := app.InitializeClient()
	if err != nil {
		return nil, nil, err
	}
	ctx := cmd.Context()
	wordsetID := container.Config.Backend.WordsetID

	state := entity.UserState{StarMode: entity.StarModeNormal}
	goals := entity.DefaultGoals()
	if learner := container.Backends.Learner; learner != nil {
		if state, err = learner.GetUserState(ctx, wordsetID); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("load user state: %w", err)
		}
		if goals, err = learner.GetGoals(ctx, wordsetID); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("load goals: %w", err)
		}
	}
	if err := applySelectionFlags(cmd, &state); err != nil {
		cleanup()
		return nil, nil, err
	}

	if err := container.Session.Bootstrap(ctx, state, goals); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("bootstrap session: %w", err)
	}
	closeSession := func() {
		container.Session.Close(context.WithoutCancel(ctx))
		cleanup()
	}
	return container, closeSession, nil
}

func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().String("categories", "", "comma separated category ids to select")
	cmd.Flags().String("star-mode", "", "star mode: normal, weighted or only")
}

func applySelectionFlags(cmd *cobra.Command, state *entity.UserState) error {
	if raw, _ := cmd.Flags().GetString("categories"); raw != "" {
		ids, err := parseIDs(raw)
		if err != nil {
			return err
		}
		state.CategoryIDs = ids
	}
	if raw, _ := cmd.Flags().GetString("star-mode"); raw != "" {
		state.StarMode = entity.ParseStarMode(raw)
	}
	return nil
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return entity.NormalizeIDs(ids), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
