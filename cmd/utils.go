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
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/stream2cast/stream2cast/application"
	"github.com/stream2cast/stream2cast/config"
	"github.com/stream2cast/stream2cast/discovery"
	"github.com/stream2cast/stream2cast/discovery/zeroconf"
	"github.com/stream2cast/stream2cast/log"
	"github.com/stream2cast/stream2cast/pidfile"
	"github.com/stream2cast/stream2cast/session"
)

var stdout io.Writer = os.Stdout

func outputInfo(format string, args ...interface{}) {
	fmt.Fprintf(stdout, format+"\n", args...)
}

// invalidArgs marks err as a usage error so that the usage text is printed
// along with it.
func invalidArgs(cmd *cobra.Command, err error) error {
	cmd.SilenceUsage = false
	return err
}

func configStore(cmd *cobra.Command) (*config.Store, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.NewStore(path), nil
	}
	store, err := config.DefaultStore()
	return store, errors.Wrap(err, "unable to locate the settings file")
}

func pidLock(cmd *cobra.Command) *pidfile.Lock {
	path, _ := cmd.Flags().GetString("pid-file")
	if path != "" {
		return pidfile.New(path)
	}
	return pidfile.Default()
}

func newManager(cmd *cobra.Command) (*session.Manager, error) {
	store, err := configStore(cmd)
	if err != nil {
		return nil, err
	}
	opts := []session.Option{
		session.WithConfigStore(store),
		session.WithPidFile(pidLock(cmd)),
	}
	if log.IsDebug() {
		opts = append(opts, session.WithEncoderStderr(os.Stderr))
	}
	return session.NewManager(castDevice(cmd), opts...), nil
}

// castDevice connects to the device chosen by the flags: --addr directly,
// otherwise the first discovered device matching --device-name, --uuid and
// --device.
func castDevice(cmd *cobra.Command) session.Acquirer {
	return func(ctx context.Context) (session.Device, error) {
		debug, _ := cmd.Flags().GetBool("debug")
		host, port, err := deviceAddress(ctx, cmd)
		if err != nil {
			return nil, err
		}
		app := application.NewApplication(application.WithDebug(debug))
		if err := app.Start(host, port); err != nil {
			app.Close(false)
			return nil, err
		}
		return app, nil
	}
}

func deviceAddress(ctx context.Context, cmd *cobra.Command) (string, int, error) {
	addr, _ := cmd.Flags().GetString("addr")
	portFlag, _ := cmd.Flags().GetString("port")
	if addr != "" {
		port, err := strconv.Atoi(portFlag)
		if err != nil {
			return "", 0, errors.Wrap(err, "port needs to be a number")
		}
		return addr, port, nil
	}

	dnsTimeoutSeconds, _ := cmd.Flags().GetInt("dns-timeout")
	ctx, cancel := context.WithTimeout(ctx, time.Second*time.Duration(dnsTimeoutSeconds))
	defer cancel()

	service := discovery.Service{Scanner: zeroconf.Scanner{}}
	device, err := service.First(ctx, deviceMatchers(cmd)...)
	if err != nil {
		return "", 0, errors.Wrap(err, "unable to find a cast device")
	}
	log.WithField("package", "cmd").Debugf("using device name=%q type=%q addr=%s uuid=%s", device.Name(), device.Type(), device.Addr(), device.ID())
	return device.Host(), device.Port, nil
}

func deviceMatchers(cmd *cobra.Command) []discovery.DeviceMatcher {
	var matchers []discovery.DeviceMatcher
	if name, _ := cmd.Flags().GetString("device-name"); name != "" {
		matchers = append(matchers, discovery.WithName(name))
	}
	if id, _ := cmd.Flags().GetString("uuid"); id != "" {
		matchers = append(matchers, discovery.WithID(id))
	}
	if t, _ := cmd.Flags().GetString("device"); t != "" {
		matchers = append(matchers, discovery.WithType(t))
	}
	return matchers
}

// splitAndTrim splits s on sep and trims the spaces around every part.
func splitAndTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
