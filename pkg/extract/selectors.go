package extract

// DOM selectors for the search timeline. Kept together because the site
// changes its markup often; update here when extraction breaks.
const (
	ItemSelector     = `article[data-testid="tweet"]`
	TimeSelector     = `time`
	TimeAttr         = `datetime`
	TextSelector     = `div[data-testid="tweetText"]`
	TimelineSelector = `div[data-testid="primaryColumn"]`
)

// HandleSelectors are tried in order; every matching node is a candidate.
var HandleSelectors = []string{
	`a[href*="/status/"] div[dir="ltr"] > span`,
	`[data-testid="User-Name"] a[role="link"] span`,
}
