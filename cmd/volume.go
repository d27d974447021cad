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
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/stream2cast/stream2cast/config"
)

// volumeCmd represents the volume command
var volumeCmd = &cobra.Command{
	Use:   "volume <0.00 - 1.00>",
	Short: "Set volume",
	Long:  "Set volume (float in range from 0 to 1)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := parseVolume(args[0])
		if err != nil {
			return invalidArgs(cmd, err)
		}
		m, err := newManager(cmd)
		if err != nil {
			return err
		}
		return m.SetVolume(cmd.Context(), level)
	},
}

func parseVolume(s string) (float32, error) {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil || v < 0 || v > 1 {
		return 0, errors.Wrapf(config.ErrInvalidArgument, "volume must be a number between 0 and 1, got %q", s)
	}
	return float32(v), nil
}

func init() {
	rootCmd.AddCommand(volumeCmd)
}
