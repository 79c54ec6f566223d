package scraper

// Outcome classifies how a run ended.
type Outcome int

const (
	// OutcomeCompleted means records were collected and written.
	OutcomeCompleted Outcome = iota
	// OutcomeNoResults means the search loaded but nothing survived
	// collection and filtering. No file is written.
	OutcomeNoResults
	// OutcomeInitialLoadFailed means no result ever rendered.
	OutcomeInitialLoadFailed
	// OutcomeCancelled means the context ended the run. Partial records
	// are still written.
	OutcomeCancelled
	// OutcomeLoginFailed means every account failed to log in.
	OutcomeLoginFailed
	// OutcomeFailed means the page adapter became unusable mid-run.
	OutcomeFailed
)

var outcomeNames = map[Outcome]string{
	OutcomeCompleted:         "completed",
	OutcomeNoResults:         "no_results",
	OutcomeInitialLoadFailed: "initial_load_failed",
	OutcomeCancelled:         "cancelled",
	OutcomeLoginFailed:       "login_failed",
	OutcomeFailed:            "failed",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return "unknown"
}
