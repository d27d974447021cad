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
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/seancfoley/ipaddress-go/ipaddr"
	"github.com/spf13/cobra"

	"github.com/stream2cast/stream2cast/log"
)

const (
	defaultScanCIDR = "192.168.50.0/24"
	scanWorkers     = 64
	dialTimeout     = 400 * time.Millisecond
)

// scanCmd triggers a scan
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for chromecast devices",
	Long: `Scan subnets for hosts accepting connections on the cast port. This
finds devices when multicast dns does not reach them. Without --cidr or
--subnets the subnet of the first non-loopback interface is scanned.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		subnets, err := scanSubnets(cmd)
		if err != nil {
			return invalidArgs(cmd, err)
		}
		start := time.Now()
		found, scanned, err := scan(cmd.Context(), subnets, port, func(hostport string) {
			outputInfo("Found (potential) chromecast at %v", hostport)
		})
		if err != nil {
			return invalidArgs(cmd, err)
		}
		outputInfo("Scanned %d uris in %v, found %d", scanned, time.Since(start).Round(time.Millisecond), found)
		return nil
	},
}

// scanSubnets picks --subnets over --cidr, falling back to the local subnet.
func scanSubnets(cmd *cobra.Command) ([]string, error) {
	subnetsFlag, _ := cmd.Flags().GetString("subnets")
	if subnetsFlag != "" {
		var subnets []string
		for _, s := range splitAndTrim(subnetsFlag, ",") {
			if s != "" {
				subnets = append(subnets, s)
			}
		}
		return subnets, nil
	}
	if cmd.Flags().Changed("cidr") {
		cidr, _ := cmd.Flags().GetString("cidr")
		return []string{cidr}, nil
	}
	subnet, err := detectLocalSubnet("")
	if err != nil {
		log.WithField("package", "cmd").WithError(err).Debugf("using %s", defaultScanCIDR)
		return []string{defaultScanCIDR}, nil
	}
	return []string{subnet}, nil
}

// detectLocalSubnet returns the IPv4 network of the named interface, or of
// the first usable one when ifaceName is empty.
func detectLocalSubnet(ifaceName string) (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", errors.Wrap(err, "unable to list network interfaces")
	}
	for _, iface := range ifaces {
		if ifaceName != "" && iface.Name != ifaceName {
			continue
		}
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.To4() == nil {
				continue
			}
			network := &net.IPNet{IP: ipNet.IP.Mask(ipNet.Mask), Mask: ipNet.Mask}
			return network.String(), nil
		}
	}
	return "", errors.New("no local IPv4 subnet found")
}

// scan dials port on every address of subnets and calls found for each
// address that accepts. It reports the number found and scanned.
func scan(ctx context.Context, subnets []string, port int, found func(hostport string)) (int, int, error) {
	var ranges []*ipaddr.IPAddressSeqRange
	for _, s := range subnets {
		r, err := ipaddr.NewIPAddressString(s).ToSequentialRange()
		if err != nil {
			return 0, 0, errors.Wrapf(err, "could not parse cidr address expression %q", s)
		}
		if r == nil {
			return 0, 0, errors.Errorf("could not parse cidr address expression %q", s)
		}
		ranges = append(ranges, r)
	}

	var (
		wg      sync.WaitGroup
		uriCh   = make(chan string)
		nFound  atomic.Int64
		scanned int
		mu      sync.Mutex
	)
	// Use one goroutine to send URIs over a channel
	go func() {
		defer close(uriCh)
		for _, r := range ranges {
			it := r.Iterator()
			for it.HasNext() {
				uri := net.JoinHostPort(it.Next().String(), strconv.Itoa(port))
				select {
				case uriCh <- uri:
					scanned++
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	// Use a bunch of goroutines to do connect-attempts.
	for i := 0; i < scanWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dialer := &net.Dialer{Timeout: dialTimeout}
			for uri := range uriCh {
				conn, err := dialer.DialContext(ctx, "tcp", uri)
				if err != nil {
					continue
				}
				conn.Close()
				nFound.Add(1)
				mu.Lock()
				found(uri)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return int(nFound.Load()), scanned, nil
}

func init() {
	scanCmd.Flags().String("cidr", defaultScanCIDR, "cidr expression of subnet to scan")
	scanCmd.Flags().String("subnets", "", "comma separated cidr expressions to scan, overrides --cidr")
	scanCmd.Flags().Int("port", 8009, "port to scan for")
	rootCmd.AddCommand(scanCmd)
}
