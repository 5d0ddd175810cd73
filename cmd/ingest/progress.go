package main

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"

	"libris/internal/domain"
)

// progressBar renders ingestion progress snapshots as a terminal bar.
type progressBar struct {
	bar *progressbar.ProgressBar
	out io.Writer
}

func newProgressBar(out io.Writer, description string) *progressBar {
	bar := progressbar.NewOptions(
		-1,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(out, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &progressBar{bar: bar, out: out}
}

// follow consumes updates until the channel closes. The returned channel is
// closed once the bar has rendered its final state.
func (p *progressBar) follow(updates <-chan domain.IngestionProgress) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for snap := range updates {
			p.apply(snap)
		}
	}()
	return done
}

func (p *progressBar) apply(snap domain.IngestionProgress) {
	if snap.Total > 0 && p.bar.GetMax() != snap.Total {
		p.bar.ChangeMax(snap.Total)
	}
	_ = p.bar.Set(snap.Done)

	switch snap.Status {
	case domain.IngestionStatusDone:
		_ = p.bar.Finish()
	case domain.IngestionStatusError:
		_ = p.bar.Clear()
		fmt.Fprintf(p.out, "\ningestion failed: %s\n", snap.Error)
	}
}
