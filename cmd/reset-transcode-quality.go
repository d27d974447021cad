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

// resetTranscodeQualityCmd represents the reset-transcode-quality command
var resetTranscodeQualityCmd = &cobra.Command{
	Use:   "reset-transcode-quality",
	Short: "Restore the default encoder preset and bitrate",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := configStore(cmd)
		if err != nil {
			return err
		}
		c := store.ResetQuality()
		outputInfo("transcode quality set to preset=%s bitrate=%s", c.Preset, c.Bitrate)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetTranscodeQualityCmd)
}
