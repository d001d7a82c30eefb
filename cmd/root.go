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
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "flashdeck",
	Short: "Flashcard study session orchestrator",
	Long: `flashdeck resolves flashcard study sessions against a study backend.

It can serve the backend itself over HTTP (serve), drive a session from the
command line (plan, queue, analytics) and back up or restore a wordset
(export, import).`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Int64("wordset", 0, "wordset id (overrides backend.wordset_id)")
	rootCmd.PersistentFlags().String("backend", "", "backend mode: local or remote (overrides backend.mode)")
	rootCmd.PersistentFlags().String("endpoint", "", "remote backend endpoint (overrides backend.endpoint)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (overrides log.level)")

	bindFlagToViper("backend.wordset_id", rootCmd.PersistentFlags().Lookup("wordset"))
	bindFlagToViper("backend.mode", rootCmd.PersistentFlags().Lookup("backend"))
	bindFlagToViper("backend.endpoint", rootCmd.PersistentFlags().Lookup("endpoint"))
	bindFlagToViper("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}
