// Package scraper runs one search end to end.
//
// A run walks the configured accounts in order. For each account it opens a
// browser session (optionally through a proxy), waits a randomized delay and
// logs in. A failed login waits out a grace period, closes the session and
// moves to the next account. The first successful login drives the
// pagination engine over the search URL, after which the collected records
// are filtered by date and written as CSV, with an optional metadata sidecar
// and HTML report.
//
// Every session opened is closed before Run returns. Close failures are
// logged and never replace the run's own result.
//
// Usage:
//
//	s, err := scraper.New(cfg, accounts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := s.Run(ctx, scraper.Request{
//	    Search: models.SearchSpec{Query: "golang", Mode: models.ModeHashtag, Recency: models.RecencyLatest},
//	    Target: 200,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Outcome, res.OutputFile)
//
// Runs can be resumed. With checkpoints enabled the collected records are
// saved after every productive pass; Request.Resume seeds the next run with
// them and Request.ForceRestart discards them.
package scraper
