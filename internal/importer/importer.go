// Package importer loads catalog data from CSV files and cleans up duplicate
// ingredients.
package importer

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/models"
)

// Result counts the rows an import created and skipped.
type Result struct {
	Loaded  int
	Skipped int
}

type Importer struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Importer {
	return &Importer{db: db}
}

// LoadIngredients reads a CSV with a name,m_unit header. Rows whose
// (name, unit) pair already exists are skipped.
func (im *Importer) LoadIngredients(ctx context.Context, r io.Reader) (Result, error) {
	var res Result
	err := readRows(r, []string{"name", "m_unit"}, func(row map[string]string) error {
		ingredient := models.Ingredient{Name: row["name"], MeasurementUnit: row["m_unit"]}
		if ingredient.Name == "" || ingredient.MeasurementUnit == "" {
			return errors.New("name and m_unit must not be empty")
		}

		var count int64
		if err := im.db.WithContext(ctx).Model(&models.Ingredient{}).
			Where("name = ? AND measurement_unit = ?", ingredient.Name, ingredient.MeasurementUnit).
			Count(&count).Error; err != nil {
			return errors.Wrap(err, "failed to look up ingredient")
		}
		if count > 0 {
			res.Skipped++
			return nil
		}

		if err := im.db.WithContext(ctx).Create(&ingredient).Error; err != nil {
			return errors.Wrapf(err, "failed to create ingredient %q", ingredient.Name)
		}
		res.Loaded++
		return nil
	})
	if err != nil {
		return res, err
	}

	logging.Ctx(ctx).Info().Int("loaded", res.Loaded).Int("skipped", res.Skipped).Msg("ingredients imported")
	return res, nil
}

// LoadTags reads a CSV with a name,slug header. Rows with a known slug are
// skipped. Extra columns such as color are ignored.
func (im *Importer) LoadTags(ctx context.Context, r io.Reader) (Result, error) {
	var res Result
	err := readRows(r, []string{"name", "slug"}, func(row map[string]string) error {
		tag := models.Tag{Name: row["name"], Slug: row["slug"]}
		if tag.Name == "" || tag.Slug == "" {
			return errors.New("name and slug must not be empty")
		}

		var count int64
		if err := im.db.WithContext(ctx).Model(&models.Tag{}).Where("slug = ?", tag.Slug).Count(&count).Error; err != nil {
			return errors.Wrap(err, "failed to look up tag")
		}
		if count > 0 {
			res.Skipped++
			return nil
		}

		if err := im.db.WithContext(ctx).Create(&tag).Error; err != nil {
			return errors.Wrapf(err, "failed to create tag %q", tag.Slug)
		}
		res.Loaded++
		return nil
	})
	if err != nil {
		return res, err
	}

	logging.Ctx(ctx).Info().Int("loaded", res.Loaded).Int("skipped", res.Skipped).Msg("tags imported")
	return res, nil
}

// readRows calls fn for every record keyed by the header row, which must
// contain the required columns.
func readRows(r io.Reader, required []string, fn func(map[string]string) error) error {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return errors.New("csv file is empty")
	}
	if err != nil {
		return errors.Wrap(err, "failed to read csv header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	for _, col := range required {
		if !contains(header, col) {
			return errors.Errorf("csv header is missing column %q", col)
		}
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			return errors.Wrapf(err, "failed to read csv line %d", line)
		}

		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = strings.TrimSpace(record[i])
			}
		}
		if err := fn(row); err != nil {
			return errors.Wrapf(err, "line %d", line)
		}
	}
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
