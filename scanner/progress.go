package scanner

import (
	"fmt"
	"io"
	"time"

	"plantfinder/logging"
)

const progressInterval = 500 * time.Millisecond

// NewProgressTracker initializes the progress tracker
func NewProgressTracker(total int, out io.Writer, resultsChan <-chan ProcessImageResult) *ProgressTracker {
	return newProgressTracker(total, out, resultsChan, progressInterval)
}

func newProgressTracker(total int, out io.Writer, resultsChan <-chan ProcessImageResult, interval time.Duration) *ProgressTracker {
	tracker := &ProgressTracker{
		ticker:     time.NewTicker(interval),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
		finished:   make(chan struct{}),
		out:        out,
		totalFiles: total,
	}
	tracker.report.Total = total

	// Start progress display goroutine
	go tracker.displayProgress()

	// Start result processor goroutine
	go tracker.processResults(resultsChan)

	return tracker
}

// displayProgress shows the progress periodically
func (p *ProgressTracker) displayProgress() {
	defer close(p.stopped)

	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			select {
			case <-p.done:
				return
			default:
			}

			p.mu.Lock()
			processed := p.processedLocked()
			if p.report.Failed > 0 {
				fmt.Fprintf(p.out, "\rProgress: %d/%d (Errors: %d)", processed, p.totalFiles, p.report.Failed)
			} else {
				fmt.Fprintf(p.out, "\rProgress: %d/%d", processed, p.totalFiles)
			}
			p.mu.Unlock()
		}
	}
}

// processResults updates the tracker state based on processing results
func (p *ProgressTracker) processResults(resultsChan <-chan ProcessImageResult) {
	defer close(p.finished)

	for result := range resultsChan {
		p.mu.Lock()
		switch result.Action {
		case ActionInserted:
			p.report.Inserted++
		case ActionUpdated:
			p.report.Updated++
		case ActionSkipped:
			p.report.Skipped++
		default:
			p.report.Failed++
		}
		p.mu.Unlock()

		if result.Success() {
			logging.LogImageProcessed(result.Path, true, "")
		} else if result.Error != nil {
			logging.LogImageProcessed(result.Path, false, result.Error.Error())
		}
	}
}

func (p *ProgressTracker) processedLocked() int {
	return p.report.Inserted + p.report.Updated + p.report.Skipped + p.report.Failed
}

// Stop waits for the results channel to drain, then ends the progress display.
// Nothing is written to the output once Stop returns. The results channel must be
// closed before calling Stop.
func (p *ProgressTracker) Stop() SeedReport {
	<-p.finished
	p.ticker.Stop()
	close(p.done)
	<-p.stopped

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.report
}

// PrintStartupInfo displays information about the run before starting
func PrintStartupInfo(out io.Writer, total int, options SeedOptions) {
	fmt.Fprintf(out, "Starting plant seeding...\nPlants to process: %d\n", total)
	fmt.Fprintf(out, "Force rewrite mode: %v\n", options.ForceRewrite)

	if options.DebugMode {
		fmt.Fprintf(out, "Debug mode: enabled\n")
		logging.DebugLog("Found %d plants in manifest %s", total, options.ManifestPath)
	}
}

// PrintCompletionStats displays statistics after seeding completes
func PrintCompletionStats(out io.Writer, report SeedReport, options SeedOptions) {
	if options.DebugMode {
		logging.DebugLog("Seeding completed in %v. Inserted: %d, Updated: %d, Skipped: %d, Errors: %d",
			report.Elapsed, report.Inserted, report.Updated, report.Skipped, report.Failed)
	}

	fmt.Fprintln(out, "\nSeeding complete.")
	fmt.Fprintf(out, "Processed %d plants in %v.\n", report.Total, report.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "Inserted: %d, updated: %d, skipped: %d\n", report.Inserted, report.Updated, report.Skipped)

	if report.Failed > 0 {
		fmt.Fprintf(out, "Encountered %d errors during seeding.\n", report.Failed)
		fmt.Fprintln(out, "Check the log file for details.")
	}
}
