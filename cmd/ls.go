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
	"time"

	"github.com/spf13/cobra"

	"github.com/stream2cast/stream2cast/discovery"
	"github.com/stream2cast/stream2cast/discovery/zeroconf"
)

// lsCmd represents the ls command
var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dnsTimeoutSeconds, _ := cmd.Flags().GetInt("dns-timeout")
		return ls(cmd.Context(), discovery.Service{Scanner: zeroconf.Scanner{}}, time.Second*time.Duration(dnsTimeoutSeconds))
	},
}

// ls prints every device found within timeout.
func ls(ctx context.Context, service discovery.Service, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	devices, err := service.Sorted(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return discovery.ErrNoDevice
	}
	for i, d := range devices {
		outputInfo("%d) device=%q device_name=%q address=%q uuid=%q", i+1, d.Type(), d.Name(), d.Addr(), d.ID())
	}
	return nil
}

func init() {
	rootCmd.AddCommand(lsCmd)
}
