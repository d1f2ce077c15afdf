package store

import "github.com/robfig/cron/v3"

// newDailyCron runs fn every day at 03:30 local time, off-peak for most
// hosts. Returns a stop function that waits for a running job to finish.
func newDailyCron(fn func()) func() {
	c := cron.New()
	_, _ = c.AddFunc("30 3 * * *", fn)
	c.Start()
	return func() {
		ctx := c.Stop()
		<-ctx.Done()
	}
}
