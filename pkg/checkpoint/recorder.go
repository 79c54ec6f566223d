package checkpoint

import (
	"xscraper/pkg/logger"
	"xscraper/pkg/models"
	"xscraper/pkg/pagination"
)

// Recorder saves a checkpoint after every pass that accepted new records.
// It is registered on the pagination engine as an observer.
type Recorder struct {
	pagination.BaseObserver

	mgr    *Manager
	cp     *Checkpoint
	source func() []models.Record
	log    logger.Logger
}

// NewRecorder persists cp through mgr, reading records from source.
func NewRecorder(mgr *Manager, cp *Checkpoint, source func() []models.Record) *Recorder {
	return &Recorder{
		mgr:    mgr,
		cp:     cp,
		source: source,
		log:    logger.GetLogger().WithField("component", "checkpoint"),
	}
}

func (r *Recorder) OnPass(stats pagination.PassStats) {
	r.cp.Passes++
	if stats.New == 0 {
		return
	}
	r.cp.Records = r.source()
	if err := r.mgr.Save(r.cp); err != nil {
		r.log.WithError(err).Warn("Failed to save checkpoint")
	}
}

// Flush writes the current records regardless of progress.
func (r *Recorder) Flush() error {
	r.cp.Records = r.source()
	return r.mgr.Save(r.cp)
}
