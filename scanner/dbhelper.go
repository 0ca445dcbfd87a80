package scanner

import (
	"context"
	"fmt"

	"plantfinder/logging"
	"plantfinder/types"
)

// PlantWriter is the part of the store seeding writes through
type PlantWriter interface {
	FindPlantIDByName(ctx context.Context, name string) (int64, bool, error)
	InsertPlant(ctx context.Context, plant types.Plant) (int64, error)
	UpdatePlant(ctx context.Context, id int64, plant types.Plant) error
}

// storePlant inserts the plant, or handles an existing row of the same name:
// it is left alone unless ForceRewrite is set, in which case it is overwritten
func storePlant(ctx context.Context, db PlantWriter, path string, plant types.Plant, options SeedOptions) ProcessImageResult {
	result := ProcessImageResult{Path: path, Name: plant.Name}

	id, exists, err := db.FindPlantIDByName(ctx, plant.Name)
	if err != nil {
		result.Error = fmt.Errorf("database error for %s: %w", plant.Name, err)
		return result
	}

	if exists {
		result.PlantID = id
		if !options.ForceRewrite {
			if options.DebugMode {
				logging.DebugLog("Skipping existing plant: %s (id %d)", plant.Name, id)
			}
			result.Action = ActionSkipped
			return result
		}

		if err := db.UpdatePlant(ctx, id, plant); err != nil {
			result.Error = err
			return result
		}
		result.Action = ActionUpdated
		return result
	}

	id, err = db.InsertPlant(ctx, plant)
	if err != nil {
		result.Error = err
		return result
	}
	result.PlantID = id
	result.Action = ActionInserted
	return result
}
