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
	"strings"

	"github.com/spf13/cobra"

	"github.com/stream2cast/stream2cast/transcoder"
)

// setTranscodeQualityCmd represents the set-transcode-quality command
var setTranscodeQualityCmd = &cobra.Command{
	Use:   "set-transcode-quality <preset> <bitrate>",
	Short: "Set the encoder preset and video bitrate used when transcoding",
	Long: `Set the encoder preset and video bitrate used when transcoding.

Presets, fastest first: ` + strings.Join(transcoder.Presets, ", ") + `.
The bitrate is a number with an optional k or m suffix, ie: 2000k.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := configStore(cmd)
		if err != nil {
			return err
		}
		c, err := store.SetQuality(args[0], args[1])
		if err != nil {
			return invalidArgs(cmd, err)
		}
		outputInfo("transcode quality set to preset=%s bitrate=%s", c.Preset, c.Bitrate)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setTranscodeQualityCmd)
}
