package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"xscraper/internal/prober"
	"xscraper/pkg/logger"
	"xscraper/pkg/proxy"
	"xscraper/pkg/ratelimit"
	"xscraper/pkg/ui"
)

var (
	probeWorkers int
	probeTarget  string
	probeRate    int
)

var proxiesCmd = &cobra.Command{
	Use:   "proxies",
	Short: "Inspect the proxy list",
}

var proxiesCheckCmd = &cobra.Command{
	Use:   "check [proxylist.csv]",
	Short: "Probe every proxy in the list",
	Long: `Connect to every proxy flagged for the configured scheme and report which
respond. For socks5 the check also opens a connection through the proxy.`,
	Example: `  xscraper proxies check
  xscraper proxies check my_proxies.csv --workers 16`,
	Args: cobra.MaximumNArgs(1),
	Run:  runProxiesCheck,
}

func init() {
	rootCmd.AddCommand(proxiesCmd)
	proxiesCmd.AddCommand(proxiesCheckCmd)

	proxiesCheckCmd.Flags().IntVarP(&probeWorkers, "workers", "w", 8, "concurrent probes")
	proxiesCheckCmd.Flags().StringVar(&probeTarget, "target", "twitter.com:443", "host:port reached through socks5 proxies")
	proxiesCheckCmd.Flags().IntVar(&probeRate, "rate", 0, "max probes started per minute (0 for no limit)")
}

func runProxiesCheck(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}
	path := cfg.Proxy.File
	if len(args) > 0 {
		path = args[0]
	}

	entries, err := proxy.Load(path)
	if err != nil {
		ui.PrintError("Failed to read proxy list", err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	timeout := cfg.Proxy.ProbeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	p := proxy.DialProber{Timeout: timeout, Target: probeTarget}
	log := logger.GetLogger().WithField("component", "prober")

	ui.PrintInfo("Proxy list", path)
	ui.PrintInfo("Scheme", cfg.Proxy.Scheme)
	results := prober.CheckAll(ctx, entries, cfg.Proxy.Scheme, probeWorkers, p, ratelimit.PerMinute(probeRate), log)
	if len(results) == 0 {
		ui.PrintWarning(fmt.Sprintf("No proxies flagged for %s", cfg.Proxy.Scheme))
		return
	}

	healthy := 0
	fmt.Println()
	for _, r := range results {
		if r.Healthy {
			healthy++
			fmt.Printf("  %s %-22s %s\n", ui.Green("✓"), r.Job.Entry.Address(), ui.Dim(r.Latency.Round(time.Millisecond).String()))
			continue
		}
		fmt.Printf("  %s %-22s %s\n", ui.Red("✗"), r.Job.Entry.Address(), ui.Dim(fmt.Sprintf("%v", r.Error)))
	}
	fmt.Println()

	if healthy == 0 {
		ui.PrintWarning("No proxy responded; scrapes with --proxy will run direct")
		return
	}
	ui.PrintSuccess(fmt.Sprintf("%d of %d proxies responded", healthy, len(results)))
}
