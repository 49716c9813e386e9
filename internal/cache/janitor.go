package cache

import "time"

// Sweeper is anything the janitor can purge expired entries from.
type Sweeper interface {
	Sweep() int
}

// Janitor periodically sweeps expired entries from registered stores.
type Janitor struct {
	sweepers []Sweeper
	stop     chan struct{}
	done     chan struct{}
}

func NewJanitor() *Janitor {
	return &Janitor{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Register adds a store to the sweep rotation. Not safe to call after
// Start.
func (j *Janitor) Register(s Sweeper) {
	j.sweepers = append(j.sweepers, s)
}

func (j *Janitor) Start(interval time.Duration) {
	go j.run(interval)
}

func (j *Janitor) run(interval time.Duration) {
	defer close(j.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, s := range j.sweepers {
				s.Sweep()
			}
		case <-j.stop:
			return
		}
	}
}

// Stop halts the sweep loop and waits for it to exit.
func (j *Janitor) Stop() {
	close(j.stop)
	<-j.done
}
