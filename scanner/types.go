package scanner

import (
	"io"
	"sync"
	"time"

	"plantfinder/imageprocessor"
)

// SeedOptions defines the options for seeding reference plants
type SeedOptions struct {
	ManifestPath string
	ForceRewrite bool // overwrite plants that already exist by name
	DebugMode    bool
	MaxWorkers   int                   // Optional worker limit
	Hasher       imageprocessor.Hasher // Optional, validates that images can be hashed
	Output       io.Writer             // Optional progress output, defaults to stdout
}

// Manifest is the YAML document listing reference plants
type Manifest struct {
	Plants []ManifestPlant `yaml:"plants"`
}

// ManifestPlant is one reference plant. Image is relative to the manifest file.
type ManifestPlant struct {
	Name                 string   `yaml:"name"`
	ScientificName       string   `yaml:"scientific_name"`
	CommonNames          []string `yaml:"common_names"`
	MedicinalProperties  string   `yaml:"medicinal_properties"`
	GrowingConditions    string   `yaml:"growing_conditions"`
	HarvestingGuidelines string   `yaml:"harvesting_guidelines"`
	Precautions          string   `yaml:"precautions"`
	Image                string   `yaml:"image"`
}

// Action is what seeding did with one manifest entry
type Action int

const (
	ActionFailed Action = iota
	ActionInserted
	ActionUpdated
	ActionSkipped
)

// ProcessImageResult holds the result of seeding one plant
type ProcessImageResult struct {
	Path    string
	Name    string
	Action  Action
	PlantID int64
	Error   error
}

// Success reports whether the entry ended up in the database
func (r ProcessImageResult) Success() bool {
	return r.Action != ActionFailed
}

// SeedReport summarises a finished seeding run
type SeedReport struct {
	Total    int
	Inserted int
	Updated  int
	Skipped  int
	Failed   int
	Elapsed  time.Duration
}

// ProgressTracker tracks progress of the seed operation
type ProgressTracker struct {
	report     SeedReport
	ticker     *time.Ticker
	done       chan struct{}
	stopped    chan struct{}
	finished   chan struct{}
	out        io.Writer
	mu         sync.Mutex
	totalFiles int
}
