// Package ratelimit paces login attempts across accounts.
//
// Rotating quickly through a list of accounts looks like credential
// stuffing to the site, so the scraper waits on a limiter before each
// login. The default allows a handful of attempts per minute:
//
//	lim := ratelimit.PerMinute(cfg.Accounts.LoginsPerMinute)
//	if err := lim.Wait(ctx); err != nil {
//		return err
//	}
package ratelimit
