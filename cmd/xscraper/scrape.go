package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"xscraper/pkg/auth"
	"xscraper/pkg/config"
	errs "xscraper/pkg/errors"
	"xscraper/pkg/logger"
	"xscraper/pkg/models"
	"xscraper/pkg/proxy"
	"xscraper/pkg/scraper"
	"xscraper/pkg/ui"
	"xscraper/pkg/ui/tui"
)

var (
	// Scrape command flags
	searchMode   string
	recency      string
	count        int
	since        string
	until        string
	useProxy     bool
	proxyFile    string
	accountsFile string
	outputDir    string
	headless     bool
	writeReport  bool
	resumeRun    bool
	forceRestart bool
	useTUI       bool
	noPrompt     bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape [query]",
	Short: "Search and collect posts into a CSV file",
	Long: `Log in with the first working account, run a search and scroll the results
until the requested number of posts is collected.

Inputs not given as flags are asked for interactively, in this order: whether
to use a proxy, the search mode, the query, latest or top (hashtag and keyword
searches only), the number of posts and an optional date range.

Accounts are read from the accounts CSV (email,username,password) unless
another source is configured. When --proxy is set a random HTTP-capable proxy
is picked from the proxy list; if none works the run continues without one.

The result is written to <prefix>_<mode>_<query>.csv in the output directory.`,
	Example: `  # Fully interactive
  xscraper scrape

  # Latest 500 posts for a hashtag within March 2024
  xscraper scrape golang --mode hashtag --count 500 --since 2024-03-01 --until 2024-03-31

  # A user's timeline through a proxy, with the full-screen UI
  xscraper scrape gopher --mode user --proxy --tui

  # Continue an interrupted run
  xscraper scrape golang --mode hashtag --count 500 --resume`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVarP(&searchMode, "mode", "m", "", "search mode: hashtag, user or keyword")
	scrapeCmd.Flags().StringVarP(&recency, "recency", "r", "", "latest or top (hashtag and keyword only)")
	scrapeCmd.Flags().IntVarP(&count, "count", "n", 0, "number of posts to collect")
	scrapeCmd.Flags().StringVar(&since, "since", "", "first day to keep (YYYY-MM-DD)")
	scrapeCmd.Flags().StringVar(&until, "until", "", "last day to keep (YYYY-MM-DD)")
	scrapeCmd.Flags().BoolVar(&useProxy, "proxy", false, "use a random proxy from the proxy list")
	scrapeCmd.Flags().StringVar(&proxyFile, "proxy-file", "", "proxy list file")
	scrapeCmd.Flags().StringVarP(&accountsFile, "accounts", "a", "", "accounts CSV file")
	scrapeCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory")
	scrapeCmd.Flags().BoolVar(&headless, "headless", false, "run the browser without a window")
	scrapeCmd.Flags().BoolVar(&writeReport, "report", false, "also write an HTML report")
	scrapeCmd.Flags().BoolVar(&resumeRun, "resume", false, "resume from last checkpoint")
	scrapeCmd.Flags().BoolVar(&forceRestart, "force-restart", false, "force restart, ignoring existing checkpoint")
	scrapeCmd.Flags().BoolVar(&useTUI, "tui", false, "use interactive terminal UI with real-time progress")
	scrapeCmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "never prompt; use configured defaults for missing inputs")
}

func runScrape(cmd *cobra.Command, args []string) error {
	flags := make(map[string]interface{})
	if cmd.Flags().Changed("headless") {
		flags["headless"] = headless
	}
	if cmd.Flags().Changed("proxy") {
		flags["proxy"] = useProxy
	}
	if cmd.Flags().Changed("report") {
		flags["report"] = writeReport
	}
	flags["accounts"] = accountsFile
	flags["proxy-file"] = proxyFile
	flags["output"] = outputDir
	if useTUI && logLevel == "" {
		// keep log lines from drawing over the full-screen UI
		flags["log-level"] = "error"
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}
	log := logger.GetLogger()
	log.WithField("version", version).Debug("xscraper starting")

	interactive := !noPrompt && term.IsTerminal(int(os.Stdin.Fd()))
	p := newPrompter(os.Stdin, os.Stdout)

	if !cmd.Flags().Changed("proxy") && interactive {
		if cfg.Proxy.Enabled, err = p.yesNo("Use a proxy?"); err != nil {
			return err
		}
	}

	req, err := resolveRequest(args, cfg, p, interactive)
	if err != nil {
		ui.PrintError("Invalid search", err.Error())
		return err
	}

	manager, err := auth.NewManager(cfg.Accounts.Source, cfg.Accounts.File)
	if err != nil {
		ui.PrintError("Failed to open account store", err.Error())
		return err
	}
	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to read accounts", err.Error())
		return err
	}
	if len(accounts) == 0 {
		auth.ShowAccountsGuide(os.Stderr)
		return errs.New(errs.ErrorTypeNoAccounts, "scrape", "no accounts available")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Proxy.Enabled {
		req.Proxy = proxy.NewSelector(cfg.Proxy).Choose(ctx, cfg.Proxy.File)
	}

	if !useTUI {
		ui.PrintInfo("Search", fmt.Sprintf("%s %q (%s)", req.Search.Mode, req.Search.Query, req.Search.Recency))
		ui.PrintInfo("Target", fmt.Sprintf("%d posts", req.Target))
		ui.PrintInfo("Accounts", fmt.Sprintf("%d", len(accounts)))
		if req.Proxy != "" {
			ui.PrintInfo("Proxy", req.Proxy)
		}
		ui.PrintHighlight("[INITIATING EXTRACTION SEQUENCE]")
	}

	var res *scraper.Result
	if useTUI {
		res, err = runWithTUI(ctx, cfg, accounts, req)
	} else {
		var s *scraper.Scraper
		s, err = scraper.New(cfg, accounts)
		if err != nil {
			ui.PrintError("Failed to initialize scraper", err.Error())
			return err
		}
		res, err = s.Run(ctx, req)
	}

	if res == nil {
		if err == scraper.ErrCheckpointExists {
			fmt.Printf("\n%s Previous run found for this search\n", ui.Yellow("►"))
			fmt.Printf("  Use: %s to continue where you left off\n", ui.Green("--resume"))
			fmt.Printf("  Use: %s to start fresh\n\n", ui.Yellow("--force-restart"))
		} else if err != nil {
			ui.PrintError("EXTRACTION FAILED", err.Error())
		}
		return err
	}
	printResult(res, err)
	return err
}

// resolveRequest fills the search from flags, then prompts, then config defaults.
func resolveRequest(args []string, cfg *config.Config, p *prompter, interactive bool) (scraper.Request, error) {
	var (
		req scraper.Request
		err error
	)

	switch {
	case searchMode != "":
		req.Search.Mode, err = models.ParseMode(searchMode)
	case interactive:
		req.Search.Mode, err = p.mode()
	default:
		req.Search.Mode, err = models.ParseMode(cfg.Search.DefaultMode)
	}
	if err != nil {
		return req, err
	}

	switch {
	case len(args) > 0:
		req.Search.Query = strings.TrimSpace(args[0])
	case interactive:
		req.Search.Query, err = p.query(req.Search.Mode)
	default:
		err = fmt.Errorf("a query is required when not running interactively")
	}
	if err != nil {
		return req, err
	}

	// A user timeline has no latest/top switch.
	switch {
	case req.Search.Mode == models.ModeUser:
		req.Search.Recency = models.RecencyLatest
	case recency != "":
		req.Search.Recency, err = models.ParseRecency(recency)
	case interactive:
		req.Search.Recency, err = p.recency()
	default:
		req.Search.Recency, err = models.ParseRecency(cfg.Search.DefaultRecency)
	}
	if err != nil {
		return req, err
	}

	switch {
	case count > 0:
		req.Target = count
	case interactive:
		req.Target, err = p.count(cfg.Search.DefaultCount)
	default:
		req.Target = cfg.Search.DefaultCount
	}
	if err != nil {
		return req, err
	}

	if since != "" || until != "" || !interactive {
		if req.Search.StartDate, err = models.ParseDate(since); err != nil {
			return req, err
		}
		if req.Search.EndDate, err = models.ParseDate(until); err != nil {
			return req, err
		}
	} else {
		if req.Search.StartDate, err = p.date("Start date"); err != nil {
			return req, err
		}
		if req.Search.EndDate, err = p.date("End date"); err != nil {
			return req, err
		}
	}

	req.Resume = resumeRun
	req.ForceRestart = forceRestart
	return req, req.Search.Validate()
}

// runWithTUI runs the scrape behind the full-screen UI. Quitting the UI
// cancels the scrape; the partial result is still written.
func runWithTUI(ctx context.Context, cfg *config.Config, accounts []*auth.Account, req scraper.Request) (*scraper.Result, error) {
	terminal := tui.NewTUI()
	s, err := scraper.New(cfg, accounts, scraper.WithTUI(terminal))
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type runResult struct {
		res *scraper.Result
		err error
	}
	scraperDone := make(chan runResult, 1)
	go func() {
		res, err := s.Run(runCtx, req)
		scraperDone <- runResult{res, err}
	}()

	tuiDone := make(chan error, 1)
	go func() {
		tuiDone <- terminal.Start()
	}()

	var out runResult
	select {
	case out = <-scraperDone:
		terminal.Stop()
		<-tuiDone
	case tuiErr := <-tuiDone:
		if tuiErr != nil {
			logger.WithError(tuiErr).Error("TUI failed")
		}
		cancel()
		out = <-scraperDone
	}
	return out.res, out.err
}

func printResult(res *scraper.Result, err error) {
	switch res.Outcome {
	case scraper.OutcomeCompleted:
		ui.PrintSuccess(fmt.Sprintf("[EXTRACTION COMPLETED] %d posts saved to %s", len(res.Records), res.OutputFile))
	case scraper.OutcomeNoResults:
		ui.PrintWarning("No posts found for the given criteria.")
	case scraper.OutcomeCancelled:
		ui.PrintWarning("Interrupted")
		if res.OutputFile != "" {
			ui.PrintInfo("Partial results", fmt.Sprintf("%d posts in %s", len(res.Records), res.OutputFile))
		}
	case scraper.OutcomeInitialLoadFailed:
		ui.PrintError("Search results never loaded", err)
	case scraper.OutcomeLoginFailed:
		ui.PrintError("Login failed with every account", err)
	default:
		ui.PrintError("EXTRACTION FAILED", err)
		if res.OutputFile != "" {
			ui.PrintInfo("Partial results", res.OutputFile)
		}
	}
	if res.ReportFile != "" {
		ui.PrintInfo("Report", res.ReportFile)
	}
	if res.Metadata != nil {
		ui.PrintInfo("Run", res.Metadata.Summary())
	}
}
