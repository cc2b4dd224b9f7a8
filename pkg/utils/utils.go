package utils

import (
	"context"
	"errors"
	"math"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/wagate/pkg/constant"

	"gorm.io/gorm"
)

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		// variables may come from the container environment instead
		log.Info().Msg(".env file not found, using system environment variables")
	}
}

// Pagination loads one page of item matching query into item and returns the
// page count. An empty result is page 1 of 1; any other page past the end is
// an error.
func Pagination(c context.Context, db *gorm.DB, item interface{}, pageNumber, pageSize int, order string, query interface{}, args ...interface{}) (int, error) {
	if pageSize <= 0 {
		pageSize = 10
	}
	if pageNumber <= 0 {
		return 0, errors.New(constant.INVALID_PAGE_NUMBER)
	}

	var totalCount int64
	if err := db.WithContext(c).Model(item).Where(query, args...).Count(&totalCount).Error; err != nil {
		return 0, err
	}

	totalPages := int(math.Ceil(float64(totalCount) / float64(pageSize)))
	if totalPages == 0 {
		totalPages = 1
	}
	if pageNumber > totalPages {
		return 0, errors.New(constant.PAGE_NUMBER_OUT_OF_RANGE)
	}

	offset := (pageNumber - 1) * pageSize
	q := db.WithContext(c).Where(query, args...)
	if order != "" {
		q = q.Order(order)
	}
	if err := q.Limit(pageSize).Offset(offset).Find(item).Error; err != nil {
		return 0, err
	}
	return totalPages, nil
}
