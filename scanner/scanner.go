// Package scanner seeds the reference plant table from a manifest of plants and
// their photographs.
package scanner

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"plantfinder/imageprocessor"
	"plantfinder/logging"
	"plantfinder/signalhandler"
)

type loadedImage struct {
	path string
	data []byte
	err  error
}

// SeedFromManifest loads every plant listed in the manifest and stores it. Images
// are read and checked in parallel; rows are written one transaction each, in
// manifest order, so ids follow the manifest.
func SeedFromManifest(ctx context.Context, db PlantWriter, options SeedOptions) (SeedReport, error) {
	manifest, err := LoadManifest(options.ManifestPath)
	if err != nil {
		return SeedReport{}, err
	}

	out := options.Output
	if out == nil {
		out = os.Stdout
	}
	if options.Hasher == nil {
		options.Hasher = imageprocessor.NewAverageHasher()
	}
	if options.MaxWorkers < 1 {
		options.MaxWorkers = signalhandler.GetOptimalProcs()
	}

	total := len(manifest.Plants)
	PrintStartupInfo(out, total, options)

	resultsChan := make(chan ProcessImageResult, 100)
	tracker := NewProgressTracker(total, out, resultsChan)

	startTime := time.Now()
	images := loadImages(ctx, manifest, options)

	var runErr error
	for i, entry := range manifest.Plants {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		img := images[i]
		if img.err != nil {
			resultsChan <- ProcessImageResult{Path: img.path, Name: entry.Name, Error: img.err}
			continue
		}
		resultsChan <- storePlant(ctx, db, img.path, toPlant(entry, img.data), options)
	}

	close(resultsChan)
	report := tracker.Stop()
	report.Elapsed = time.Since(startTime)

	PrintCompletionStats(out, report, options)
	return report, runErr
}

// loadImages reads and hashes every manifest image with at most MaxWorkers in flight.
// The returned slice is indexed like manifest.Plants.
func loadImages(ctx context.Context, manifest *Manifest, options SeedOptions) []loadedImage {
	images := make([]loadedImage, len(manifest.Plants))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, options.MaxWorkers) // Limit concurrent goroutines

	for i, entry := range manifest.Plants {
		path := resolveImagePath(options.ManifestPath, entry.Image)
		if err := ctx.Err(); err != nil {
			images[i] = loadedImage{path: path, err: err}
			continue
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			images[i] = loadImage(path, options)
		}(i, path)
	}

	wg.Wait()
	return images
}

// loadImage reads one image and makes sure it can be hashed, so that every seeded
// plant is a usable match candidate
func loadImage(path string, options SeedOptions) (img loadedImage) {
	img.path = path

	defer func() {
		if r := recover(); r != nil {
			stackTrace := debug.Stack()
			logging.LogError("Panic during image loading: %v, file: %s\nStack trace: %s", r, path, string(stackTrace))
			img = loadedImage{path: path, err: fmt.Errorf("panic during image loading: %v", r)}
		}
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		img.err = fmt.Errorf("cannot read image %s: %w", path, err)
		return img
	}

	hash, err := options.Hasher.Hash(data)
	if err != nil {
		img.err = fmt.Errorf("cannot hash image %s: %w", path, err)
		return img
	}

	if options.DebugMode {
		logging.DebugLog("Loaded %s (%d bytes, hash %016x)", path, len(data), hash.GetHash())
	}

	img.data = data
	return img
}
