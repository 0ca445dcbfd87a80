package types

import "time"

// Plant is a reference row of the plants table
type Plant struct {
	ID                   int64      `db:"id" json:"id"`
	Name                 string     `db:"name" json:"name"`
	ScientificName       *string    `db:"scientific_name" json:"scientific_name"`
	CommonNames          *string    `db:"common_names" json:"common_names"`
	MedicinalProperties  *string    `db:"medicinal_properties" json:"medicinal_properties"`
	GrowingConditions    *string    `db:"growing_conditions" json:"growing_conditions"`
	HarvestingGuidelines *string    `db:"harvesting_guidelines" json:"harvesting_guidelines"`
	Precautions          *string    `db:"precautions" json:"precautions"`
	Image                []byte     `db:"image" json:"-"`
	LastShownDate        *time.Time `db:"last_shown_date" json:"last_shown_date"`
}

// PlantSummary is the short listing form of a plant
type PlantSummary struct {
	ID               int64   `db:"id" json:"id"`
	Name             string  `db:"name" json:"name"`
	ScientificName   *string `db:"scientific_name" json:"scientific_name"`
	CommonNames      *string `db:"common_names" json:"common_names"`
	ShortDescription *string `db:"short_description" json:"short_description"`
}

// PlantMatch holds the descriptive fields of the best match and its distance
type PlantMatch struct {
	ID                   int64    `json:"id"`
	Name                 string   `json:"plant_name"`
	ScientificName       *string  `json:"scientific_name"`
	CommonNames          []string `json:"common_names"`
	MedicinalProperties  string   `json:"medicinal_properties"`
	GrowingConditions    string   `json:"growing_conditions"`
	HarvestingGuidelines string   `json:"harvesting_guidelines"`
	Precautions          string   `json:"precautions"`
	Confidence           int      `json:"confidence"`
}
