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

// setTranscoderCmd represents the set-transcoder command
var setTranscoderCmd = &cobra.Command{
	Use:       "set-transcoder <ffmpeg|avconv>",
	Short:     "Choose the preferred transcoder",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"ffmpeg", "avconv"},
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := configStore(cmd)
		if err != nil {
			return err
		}
		c, err := store.SetTranscoder(args[0])
		if err != nil {
			return invalidArgs(cmd, err)
		}
		outputInfo("transcoder set to %s", c.Transcoder)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setTranscoderCmd)
}
