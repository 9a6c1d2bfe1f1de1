package crawler

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

// ReportEvery is how many listings pass between two progress estimates.
const ReportEvery = 10

// Progress tracks how many listings a crawl has processed and estimates
// the time left from the average time per listing so far.
type Progress struct {
	total int // expected listings, 0 when the crawl is unbounded
	count int
	start time.Time
	now   func() time.Time
}

// NewProgress starts tracking at now(). A total of 0 means unknown.
func NewProgress(total int, now func() time.Time) *Progress {
	if now == nil {
		now = time.Now
	}
	return &Progress{total: total, start: now(), now: now}
}

// Estimate is a progress snapshot.
type Estimate struct {
	Collected int
	Total     int // 0 when unknown
	Elapsed   time.Duration
	Remaining time.Duration // zero when Total is unknown
	PerItem   time.Duration
}

// Tick records one processed listing. Every ReportEvery listings it returns
// an estimate and true.
func (p *Progress) Tick() (Estimate, bool) {
	p.count++
	if p.count%ReportEvery != 0 {
		return Estimate{}, false
	}
	return p.Estimate(), true
}

// Count returns how many listings have been processed.
func (p *Progress) Count() int { return p.count }

// Estimate computes the current snapshot.
func (p *Progress) Estimate() Estimate {
	e := Estimate{
		Collected: p.count,
		Total:     p.total,
		Elapsed:   p.now().Sub(p.start),
	}
	if p.count == 0 {
		return e
	}

	e.PerItem = e.Elapsed / time.Duration(p.count)
	if p.total > 0 {
		remaining := e.PerItem*time.Duration(p.total) - e.Elapsed
		if remaining < 0 {
			remaining = 0
		}
		e.Remaining = remaining
	}
	return e
}

// MinutesSeconds splits the remaining time into whole minutes and the
// leftover seconds, rounded.
func (e Estimate) MinutesSeconds() (int, int) {
	secs := e.Remaining.Seconds()
	minutes := int(math.Floor(secs / 60))
	seconds := int(math.Round(secs)) % 60
	return minutes, seconds
}

func (e Estimate) String() string {
	if e.Total == 0 {
		return fmt.Sprintf("collected %s listings, %s per listing",
			humanize.Comma(int64(e.Collected)), e.PerItem.Round(time.Millisecond))
	}
	minutes, seconds := e.MinutesSeconds()
	return fmt.Sprintf("collected %s/%s listings, about %d mins %ds left",
		humanize.Comma(int64(e.Collected)), humanize.Comma(int64(e.Total)), minutes, seconds)
}
