package importer

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/models"
)

// DedupResult reports a duplicate cleanup.
type DedupResult struct {
	Removed   int
	Remaining int64
}

type duplicateGroup struct {
	Name            string
	MeasurementUnit string
}

// RemoveDuplicateIngredients keeps the lowest id of every duplicated
// (name, unit) pair and deletes the others. Recipe rows pointing at a removed
// ingredient move to the kept one unless the recipe already uses it.
func (im *Importer) RemoveDuplicateIngredients(ctx context.Context) (DedupResult, error) {
	var res DedupResult
	db := im.db.WithContext(ctx)

	var groups []duplicateGroup
	if err := db.Model(&models.Ingredient{}).
		Select("name, measurement_unit").
		Group("name, measurement_unit").
		Having("COUNT(id) > 1").
		Scan(&groups).Error; err != nil {
		return res, errors.Wrap(err, "failed to find duplicate ingredients")
	}

	for _, g := range groups {
		var ids []uint
		if err := db.Model(&models.Ingredient{}).
			Where("name = ? AND measurement_unit = ?", g.Name, g.MeasurementUnit).
			Order("id").
			Pluck("id", &ids).Error; err != nil {
			return res, errors.Wrap(err, "failed to load duplicate ingredients")
		}
		keep, drop := ids[0], ids[1:]

		err := db.Transaction(func(tx *gorm.DB) error {
			// Move amounts to the kept ingredient where the recipe does not list it yet
			for _, id := range drop {
				if err := tx.Exec(`
					UPDATE recipe_ingredients SET ingredient_id = ?
					WHERE ingredient_id = ?
					AND recipe_id NOT IN (SELECT recipe_id FROM recipe_ingredients WHERE ingredient_id = ?)`,
					keep, id, keep).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("ingredient_id IN ?", drop).Delete(&models.RecipeIngredient{}).Error; err != nil {
				return err
			}
			return tx.Where("id IN ?", drop).Delete(&models.Ingredient{}).Error
		})
		if err != nil {
			return res, errors.Wrapf(err, "failed to remove duplicates of %q (%s)", g.Name, g.MeasurementUnit)
		}

		logging.Ctx(ctx).Info().
			Str("name", g.Name).
			Str("unit", g.MeasurementUnit).
			Int("removed", len(drop)).
			Msg("removed duplicate ingredients")
		res.Removed += len(drop)
	}

	if err := db.Model(&models.Ingredient{}).Count(&res.Remaining).Error; err != nil {
		return res, errors.Wrap(err, "failed to count ingredients")
	}
	return res, nil
}
