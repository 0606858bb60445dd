package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Base is embedded by the domain repositories.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB scopes the connection to ctx so cancellation reaches the driver.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		ctx = context.Background()
	}
	return b.db.WithContext(ctx)
}

// Paginate counts the rows matched by query, then loads the page described
// by params into dest. Callers add ordering before calling; the count
// ignores it.
func Paginate[T any](query *gorm.DB, params pagination.Params, dest *[]T) (int64, error) {
	params = params.Normalize()

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, err
	}
	if total == 0 || int64(params.Offset()) >= total {
		*dest = []T{}
		return total, nil
	}
	err := query.Session(&gorm.Session{}).
		Offset(params.Offset()).
		Limit(params.PerPage).
		Find(dest).Error
	return total, err
}

// First loads the first row matched by query, or returns gorm.ErrRecordNotFound.
func First[T any](query *gorm.DB, conds ...any) (*T, error) {
	var row T
	if err := query.First(&row, conds...).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
