//
// Copyright (c) 2020-2026 Markku Rossi
//
// All rights reserved.
//

package aes

import (
	"fmt"
	"io"
	"time"

	"github.com/markkurossi/tabulate"

	"github.com/markkurossi/mpcaes/field"
	"github.com/markkurossi/mpcaes/p2p"
	"github.com/markkurossi/mpcaes/runtime"
)

// Timing records per-round timing samples and renders a profiling
// report. The preparation time of a round is the time spent issuing
// its operations and the communication time is the time from the
// end of preparation until the round's state is resolved.
type Timing struct {
	Start   time.Time
	Samples []*Sample
}

// Sample contains the timing of one round.
type Sample struct {
	Round    int
	Start    time.Time
	Prepared time.Time
	Resolved time.Time
}

// Preparation returns the round's preparation time.
func (s *Sample) Preparation() time.Duration {
	return s.Prepared.Sub(s.Start)
}

// Communication returns the round's communication time, or zero if
// the round is not resolved.
func (s *Sample) Communication() time.Duration {
	if s.Resolved.IsZero() {
		return 0
	}
	return s.Resolved.Sub(s.Prepared)
}

// NewTiming creates a new Timing instance.
func NewTiming() *Timing {
	return &Timing{
		Start: time.Now(),
	}
}

// Round adds the timing sample of the round. The sample is resolved
// when all state shares are resolved.
func (t *Timing) Round(round int, start, prepared time.Time,
	state []*runtime.Share) {

	sample := &Sample{
		Round:    round,
		Start:    start,
		Prepared: prepared,
	}
	t.Samples = append(t.Samples, sample)

	runtime.Gather(state).OnComplete(func(v []field.Element, err error) {
		if err == nil {
			sample.Resolved = time.Now()
		}
	})
}

// Totals returns the total preparation and communication times.
func (t *Timing) Totals() (preparation, communication time.Duration) {
	for _, s := range t.Samples {
		preparation += s.Preparation()
		communication += s.Communication()
	}
	return
}

// FileSize formats transfer sizes.
type FileSize uint64

func (s FileSize) String() string {
	if s > 1000*1000*1000 {
		return fmt.Sprintf("%dGB", s/(1000*1000*1000))
	} else if s > 1000*1000 {
		return fmt.Sprintf("%dMB", s/(1000*1000))
	} else if s > 1000 {
		return fmt.Sprintf("%dkB", s/1000)
	}
	return fmt.Sprintf("%dB", s)
}

// Print prints the profiling report to w.
func (t *Timing) Print(w io.Writer, stats runtime.Stats, xfer p2p.IOStats) {
	if len(t.Samples) == 0 {
		return
	}

	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Round").SetAlign(tabulate.ML)
	tab.Header("Prep").SetAlign(tabulate.MR)
	tab.Header("Comm").SetAlign(tabulate.MR)
	tab.Header("Resolved").SetAlign(tabulate.MR)

	for _, sample := range t.Samples {
		row := tab.Row()
		row.Column(fmt.Sprintf("%d", sample.Round))
		row.Column(sample.Preparation().String())
		row.Column(sample.Communication().String())
		if sample.Resolved.IsZero() {
			row.Column("-")
		} else {
			row.Column(sample.Resolved.Sub(t.Start).String())
		}
	}

	prep, comm := t.Totals()
	row := tab.Row()
	row.Column("Total").SetFormat(tabulate.FmtBold)
	row.Column(prep.String()).SetFormat(tabulate.FmtBold)
	row.Column(comm.String()).SetFormat(tabulate.FmtBold)
	row.Column("").SetFormat(tabulate.FmtBold)

	row = tab.Row()
	row.Column("├╴Mul").SetFormat(tabulate.FmtItalic)
	row.Column(fmt.Sprintf("%d", stats.Multiplications)).
		SetFormat(tabulate.FmtItalic)

	row = tab.Row()
	row.Column("├╴Open").SetFormat(tabulate.FmtItalic)
	row.Column(fmt.Sprintf("%d", stats.Opens)).SetFormat(tabulate.FmtItalic)

	row = tab.Row()
	row.Column("├╴Rand").SetFormat(tabulate.FmtItalic)
	row.Column(fmt.Sprintf("%d", stats.Randoms)).SetFormat(tabulate.FmtItalic)

	if xfer.Sent != nil {
		row = tab.Row()
		row.Column("├╴Sent").SetFormat(tabulate.FmtItalic)
		row.Column(FileSize(xfer.Sent.Load()).String()).
			SetFormat(tabulate.FmtItalic)

		row = tab.Row()
		row.Column("├╴Rcvd").SetFormat(tabulate.FmtItalic)
		row.Column(FileSize(xfer.Recvd.Load()).String()).
			SetFormat(tabulate.FmtItalic)
	}

	row = tab.Row()
	row.Column("╰╴Flcd").SetFormat(tabulate.FmtItalic)
	row.Column(fmt.Sprintf("%d", stats.Flushes)).SetFormat(tabulate.FmtItalic)

	tab.Print(w)
}
