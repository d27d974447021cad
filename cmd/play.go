// Copyright © 2018 Jonathan Pentecost <pentecostjonathan@gmail.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/stream2cast/stream2cast/session"
)

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play <file>",
	Short: "Play a local media file on the chromecast",
	Long: `Play a local media file on the chromecast. A single-use http server is
started on the address the chromecast is reached from and serves the file
exactly once. With --transcode the file is piped through ffmpeg or avconv.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		transcode, _ := cmd.Flags().GetBool("transcode")
		return play(cmd, args[0], transcode)
	},
}

func play(cmd *cobra.Command, path string, transcode bool) error {
	req, err := session.NewPlaybackRequest(path, transcode)
	if err != nil {
		return err
	}
	m, err := newManager(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), terminationSignals()...)
	defer stop()
	if err := m.Play(ctx, req); err != nil {
		if errors.Is(err, context.Canceled) {
			outputInfo("stopped serving %s", req.Path())
			return nil
		}
		return err
	}
	return nil
}

func init() {
	playCmd.Flags().Bool("transcode", false, "transcode the file with ffmpeg or avconv while serving it")
	rootCmd.AddCommand(playCmd)
}
