package pagination

import "time"

// PassStats summarises one scan pass.
type PassStats struct {
	Pass      int
	Found     int
	New       int
	Collected int
	Target    int
}

// Observer receives engine progress. Calls happen on the engine goroutine
// and must not block.
type Observer interface {
	OnStateChange(from, to State)
	OnPass(stats PassStats)
	OnStall(consecutive, threshold int, pause time.Duration)
	OnLongPause(pause time.Duration, collected int)
}

// BaseObserver implements Observer with no-ops for embedding.
type BaseObserver struct{}

func (BaseObserver) OnStateChange(State, State)      {}
func (BaseObserver) OnPass(PassStats)                {}
func (BaseObserver) OnStall(int, int, time.Duration) {}
func (BaseObserver) OnLongPause(time.Duration, int)  {}

// Observers fans every event out to each member in order.
type Observers []Observer

func (o Observers) OnStateChange(from, to State) {
	for _, ob := range o {
		ob.OnStateChange(from, to)
	}
}

func (o Observers) OnPass(stats PassStats) {
	for _, ob := range o {
		ob.OnPass(stats)
	}
}

func (o Observers) OnStall(consecutive, threshold int, pause time.Duration) {
	for _, ob := range o {
		ob.OnStall(consecutive, threshold, pause)
	}
}

func (o Observers) OnLongPause(pause time.Duration, collected int) {
	for _, ob := range o {
		ob.OnLongPause(pause, collected)
	}
}
