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
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/stream2cast/stream2cast/log"
)

var (
	Version = ""
	Commit  = ""
	Date    = ""
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stream2cast",
	Short: "Play local media files on a Chromecast",
	Long: `Serve a local audio or video file to a Chromecast and control its
playback from the command line. Files the device cannot play natively can
be transcoded on the fly with ffmpeg or avconv.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Arguments have been validated by now; later failures are not
		// usage errors unless a command says so.
		cmd.SilenceUsage = true
		return configureLogging(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		printVersion, _ := cmd.Flags().GetBool("version")
		if printVersion {
			if len(Version) > 0 && Version[0] != 'v' && Version != "dev" {
				Version = "v" + Version
			}
			outputInfo("stream2cast %s (%s) %s", Version, Commit, Date)
			return nil
		}
		return invalidArgs(cmd, errors.New("a command is required"))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(version, commit, date string) int {
	Version = version
	Commit = commit
	if date != "" {
		Date = date
	} else {
		Date = time.Now().UTC().Format(time.RFC3339)
	}
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func configureLogging(cmd *cobra.Command) error {
	debug, _ := cmd.Flags().GetBool("debug")
	verbose, _ := cmd.Flags().GetBool("verbose")
	logFormat, _ := cmd.Flags().GetString("log-format")

	format, err := log.ParseFormat(logFormat)
	if err != nil {
		return invalidArgs(cmd, err)
	}
	log.SetLogger(log.NewWithFormat(os.Stderr, format))
	if debug || verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().Bool("version", false, "display command version")
	rootCmd.PersistentFlags().BoolP("debug", "v", false, "debug logging, including every cast message and the encoder output")
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose logging")
	rootCmd.PersistentFlags().String("log-format", string(log.FormatText), "log format: text, json or console")
	rootCmd.PersistentFlags().String("config", "", "settings file (default ~/.stream2cast)")
	rootCmd.PersistentFlags().String("pid-file", "", "file recording the running instance (default in the temp directory)")
	rootCmd.PersistentFlags().StringP("device", "d", "", "chromecast device, ie: 'Chromecast' or 'Google Home Mini'")
	rootCmd.PersistentFlags().StringP("device-name", "n", "", "chromecast device name")
	rootCmd.PersistentFlags().StringP("uuid", "u", "", "chromecast device uuid")
	rootCmd.PersistentFlags().StringP("addr", "a", "", "Address of the chromecast device")
	rootCmd.PersistentFlags().StringP("port", "p", "8009", "Port of the chromecast device if 'addr' is specified")
	rootCmd.PersistentFlags().Int("dns-timeout", 3, "Multicast DNS timeout in seconds when searching for chromecast DNS entries")
}
