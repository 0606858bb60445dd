package repo

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type widget struct {
	ID   uint
	Name string
}

func seedWidgets(t *testing.T, n int) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&widget{}))
	for i := 1; i <= n; i++ {
		require.NoError(t, conn.Create(&widget{Name: fmt.Sprintf("w%02d", i)}).Error)
	}
	return conn
}

func TestBaseDBCarriesContext(t *testing.T) {
	base := NewBase(seedWidgets(t, 0))
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	assert.Equal(t, ctx, base.DB(ctx).Statement.Context)
	assert.NotNil(t, base.DB(nil).Statement.Context)
}

func TestPaginate(t *testing.T) {
	conn := seedWidgets(t, 5)

	cases := []struct {
		params pagination.Params
		names  []string
	}{
		{pagination.Params{Page: 1, PerPage: 2}, []string{"w01", "w02"}},
		{pagination.Params{Page: 3, PerPage: 2}, []string{"w05"}},
		{pagination.Params{Page: 4, PerPage: 2}, []string{}},
		{pagination.Params{Page: 0, PerPage: 10}, []string{"w01", "w02", "w03", "w04", "w05"}},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("page %d of %d", tc.params.Page, tc.params.PerPage), func(t *testing.T) {
			var rows []widget
			total, err := Paginate(conn.Model(&widget{}).Order("name ASC"), tc.params, &rows)
			require.NoError(t, err)
			assert.EqualValues(t, 5, total)

			names := make([]string, 0, len(rows))
			for _, r := range rows {
				names = append(names, r.Name)
			}
			assert.Equal(t, tc.names, names)
		})
	}
}

func TestPaginateAppliesFilters(t *testing.T) {
	conn := seedWidgets(t, 5)

	var rows []widget
	total, err := Paginate(conn.Model(&widget{}).Where("name > ?", "w03").Order("name DESC"), pagination.Params{Page: 1, PerPage: 1}, &rows)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "w05", rows[0].Name)
}

func TestFirst(t *testing.T) {
	conn := seedWidgets(t, 2)

	got, err := First[widget](conn, "name = ?", "w02")
	require.NoError(t, err)
	assert.Equal(t, "w02", got.Name)

	_, err = First[widget](conn.Where("name = ?", "missing"))
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
