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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stream2cast/stream2cast/session"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Current chromecast status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager(cmd)
		if err != nil {
			return err
		}
		s, err := m.Status(cmd.Context())
		if err != nil {
			return err
		}
		outputInfo("%s", describe(s))
		return nil
	},
}

func describe(s session.Snapshot) string {
	volumeLevel := s.Volume.LevelOrZero()
	volumeMuted := s.Volume.IsMuted()
	switch {
	case s.Application == nil:
		return fmt.Sprintf("Idle, volume=%0.2f muted=%t", volumeLevel, volumeMuted)
	case s.Application.IsIdleScreen || s.Media == nil:
		return fmt.Sprintf("Idle (%s), volume=%0.2f muted=%t", s.Application.DisplayName, volumeLevel, volumeMuted)
	}
	contentID := s.Media.Media.ContentId
	if contentID == "" {
		contentID = "unknown"
	}
	return fmt.Sprintf("%s (%s), [%s], time=%.0fs/%.0fs, volume=%0.2f, muted=%t",
		s.Application.DisplayName, s.Media.PlayerState, contentID,
		s.Media.CurrentTime, s.Media.Media.Duration, volumeLevel, volumeMuted)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
