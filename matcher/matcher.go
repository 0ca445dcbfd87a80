// Package matcher finds the reference plant whose image is perceptually closest to an
// uploaded image.
package matcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/corona10/goimagehash"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"plantfinder/imageprocessor"
	"plantfinder/types"
)

// DefaultThreshold is the distance a match must stay strictly below
const DefaultThreshold = 10

// Reasons reported when no plant is returned
const (
	ReasonUnprocessable = "Could not process the uploaded image"
	ReasonNoMatch       = "No matching plant found or match quality too low."
)

// NoInformation replaces missing descriptive text in a match
const NoInformation = "No information available"

// Outcome discriminates a Result
type Outcome int

const (
	// Matched means Result.Plant holds the best candidate
	Matched Outcome = iota
	// Unprocessable means the uploaded bytes could not be hashed
	Unprocessable
	// NoMatch means no candidate was close enough
	NoMatch
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case Unprocessable:
		return "unprocessable"
	case NoMatch:
		return "no_match"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the outcome of a search. System failures are reported separately as an
// error, never through Result.
type Result struct {
	Outcome Outcome
	Plant   *types.PlantMatch
	Reason  string
	// Scanned counts candidates that were hashed successfully
	Scanned int
	// Skipped counts candidates whose stored image could not be hashed
	Skipped int
}

// CandidateSource streams reference plants that have a stored image
type CandidateSource interface {
	EachCandidate(ctx context.Context, fn func(plant types.Plant) error) error
}

// Matcher performs a full scan of the candidate source for every search
type Matcher struct {
	source    CandidateSource
	hasher    imageprocessor.Hasher
	threshold int
	logger    *zap.Logger
}

// New creates a Matcher; a non-positive threshold selects DefaultThreshold
func New(source CandidateSource, hasher imageprocessor.Hasher, threshold int, logger *zap.Logger) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if hasher == nil {
		hasher = imageprocessor.NewAverageHasher()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{
		source:    source,
		hasher:    hasher,
		threshold: threshold,
		logger:    logger,
	}
}

// Threshold returns the distance a match must stay strictly below
func (m *Matcher) Threshold() int {
	return m.threshold
}

// FindBestMatch hashes data and returns the candidate with the smallest Hamming
// distance, provided it is below the threshold. On equal distances the first
// candidate streamed wins.
func (m *Matcher) FindBestMatch(ctx context.Context, data []byte) (Result, error) {
	uploaded, err := m.hasher.Hash(data)
	if err != nil {
		m.logger.Warn("Error computing image hash", zap.Error(err))
		return Result{Outcome: Unprocessable, Reason: ReasonUnprocessable}, nil
	}

	var (
		best        *types.Plant
		minDistance int
		scanned     int
		skipped     int
	)

	err = m.source.EachCandidate(ctx, func(plant types.Plant) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		distance, err := m.distance(uploaded, plant.Image)
		if err != nil {
			skipped++
			m.logger.Warn("Error comparing hash for plant",
				zap.Int64("plant_id", plant.ID), zap.Error(err))
			return nil
		}

		scanned++
		if best == nil || distance < minDistance {
			p := plant
			best = &p
			minDistance = distance
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("cannot scan candidates: %w", err)
	}

	m.logger.Debug("Candidate scan finished",
		zap.Int("scanned", scanned),
		zap.Int("skipped", skipped),
		zap.Int("min_distance", minDistance),
		zap.Bool("found", best != nil))

	if best == nil || minDistance >= m.threshold {
		return Result{Outcome: NoMatch, Reason: ReasonNoMatch, Scanned: scanned, Skipped: skipped}, nil
	}

	return Result{
		Outcome: Matched,
		Plant:   toMatch(best, minDistance),
		Scanned: scanned,
		Skipped: skipped,
	}, nil
}

func (m *Matcher) distance(uploaded *goimagehash.ImageHash, image []byte) (int, error) {
	candidate, err := m.hasher.Hash(image)
	if err != nil {
		return 0, err
	}
	return imageprocessor.CalculateHammingDistance(uploaded, candidate)
}

func toMatch(p *types.Plant, distance int) *types.PlantMatch {
	return &types.PlantMatch{
		ID:                   p.ID,
		Name:                 p.Name,
		ScientificName:       p.ScientificName,
		CommonNames:          SplitCommonNames(lo.FromPtr(p.CommonNames)),
		MedicinalProperties:  orNoInformation(p.MedicinalProperties),
		GrowingConditions:    orNoInformation(p.GrowingConditions),
		HarvestingGuidelines: orNoInformation(p.HarvestingGuidelines),
		Precautions:          orNoInformation(p.Precautions),
		Confidence:           distance,
	}
}

// SplitCommonNames splits the stored comma separated list; empty input gives an empty list
func SplitCommonNames(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

func orNoInformation(s *string) string {
	if v := lo.FromPtr(s); v != "" {
		return v
	}
	return NoInformation
}
