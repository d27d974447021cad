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
	"github.com/spf13/cobra"
)

// transcodeCmd represents the transcode command
var transcodeCmd = &cobra.Command{
	Use:   "transcode <file>",
	Short: "Transcode and play media on the chromecast",
	Long: `Transcode and play media on the chromecast. The file is encoded to
fragmented mp4 by ffmpeg or avconv, using the preset and bitrate set with
set-transcode-quality, and the encoder output is streamed to the chromecast.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return play(cmd, args[0], true)
	},
}

func init() {
	rootCmd.AddCommand(transcodeCmd)
}
