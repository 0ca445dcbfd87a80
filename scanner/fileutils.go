package scanner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"plantfinder/imageprocessor"
	"plantfinder/types"
)

// LoadManifest reads and validates a plant manifest
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read manifest %s: %w", path, err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("cannot parse manifest %s: %w", path, err)
	}

	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return &manifest, nil
}

// Validate checks that every entry is named, has an image, and that names are unique
func (m *Manifest) Validate() error {
	if len(m.Plants) == 0 {
		return errors.New("no plants listed")
	}

	for i, p := range m.Plants {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("plant #%d has no name", i+1)
		}
		if p.Image == "" {
			return fmt.Errorf("plant %s has no image", p.Name)
		}
		if !imageprocessor.IsImageFile(p.Image) {
			return fmt.Errorf("plant %s: unsupported image format %s", p.Name, filepath.Ext(p.Image))
		}
	}

	dupes := lo.FindDuplicatesBy(m.Plants, func(p ManifestPlant) string { return p.Name })
	if len(dupes) > 0 {
		names := lo.Map(dupes, func(p ManifestPlant, _ int) string { return p.Name })
		return fmt.Errorf("duplicate plant names: %s", strings.Join(names, ", "))
	}
	return nil
}

// resolveImagePath makes a manifest image path absolute against the manifest directory
func resolveImagePath(manifestPath, image string) string {
	if filepath.IsAbs(image) {
		return image
	}
	return filepath.Join(filepath.Dir(manifestPath), image)
}

// toPlant converts a manifest entry into a storable row. Common names are stored
// comma separated, matching how they are split back when a match is reported.
func toPlant(entry ManifestPlant, image []byte) types.Plant {
	names := lo.FilterMap(entry.CommonNames, func(n string, _ int) (string, bool) {
		n = strings.TrimSpace(n)
		return n, n != ""
	})

	return types.Plant{
		Name:                 strings.TrimSpace(entry.Name),
		ScientificName:       optional(entry.ScientificName),
		CommonNames:          optional(strings.Join(names, ",")),
		MedicinalProperties:  optional(entry.MedicinalProperties),
		GrowingConditions:    optional(entry.GrowingConditions),
		HarvestingGuidelines: optional(entry.HarvestingGuidelines),
		Precautions:          optional(entry.Precautions),
		Image:                image,
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
