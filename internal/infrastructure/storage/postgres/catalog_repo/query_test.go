package catalog_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/internal/core/apperror"
	"stockroom/internal/core/id"
	"stockroom/internal/domain"
	"stockroom/internal/domain/catalogs/location"
	"stockroom/internal/infrastructure/storage/postgres"
)

func testRepo() *BaseCatalogRepo[*location.Location] {
	return NewBaseCatalogRepo(nil,
		Table{Name: "t", Entity: "thing", KeyColumn: "code"},
		[]string{"id", "name", "code", "parent_id", "is_active", "created_at"},
		func() *location.Location { return &location.Location{} },
	)
}

func TestApplyFilter(t *testing.T) {
	repo := testRepo()
	a, b, parent := id.New(), id.New(), id.New()
	active := true

	q := repo.applyFilter(repo.baseSelect(), domain.ListFilter{
		Search:   "dock",
		IDs:      []id.ID{a, b},
		ParentID: &parent,
		IsActive: &active,
	})

	sql, args, err := q.ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id, name, code, parent_id, is_active, created_at FROM t "+
			"WHERE (name ILIKE $1 OR code ILIKE $2) AND id IN ($3,$4) AND parent_id = $5 AND is_active = $6",
		sql)
	assert.Equal(t, []any{"%dock%", "%dock%", a, b, parent, true}, args)
}

func TestApplyFilter_ParentIgnoredWithoutColumn(t *testing.T) {
	repo := NewBaseCatalogRepo(nil,
		Table{Name: "flat", Entity: "flat", KeyColumn: "code"},
		[]string{"id", "name", "code"},
		func() *location.Location { return &location.Location{} },
	)
	parent := id.New()

	sql, args, err := repo.applyFilter(repo.baseSelect(), domain.ListFilter{ParentID: &parent}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name, code FROM flat", sql)
	assert.Empty(t, args)
}

func TestParseOrderBy(t *testing.T) {
	repo := testRepo()

	tests := []struct {
		in   string
		want string
	}{
		{"", "name ASC"},
		{"name", "name ASC"},
		{"-created_at", "created_at DESC"},
		{"code", "code ASC"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := repo.parseOrderBy(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := repo.parseOrderBy("name; DROP TABLE t")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestClearDefaultQuery(t *testing.T) {
	repo := NewLocationRepo(nil)
	keep := id.New()

	sql, args, err := repo.clearDefaultQuery(keep).ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"UPDATE locations SET is_default = $1, version = version + 1, updated_at = now() "+
			"WHERE is_default = $2 AND id <> $3",
		sql)
	assert.Equal(t, []any{false, true, keep}, args)
}

func TestRepositoryColumns(t *testing.T) {
	cols := postgres.ExtractDBColumns[location.Location]()

	assert.Contains(t, cols, "parent_id")
	assert.Contains(t, cols, "is_default")
	assert.Equal(t, "id", cols[0])

	repo := NewProductRepo(nil)
	assert.True(t, repo.hasColumn("sku"))
	assert.True(t, repo.hasColumn("barcode"))
	assert.False(t, repo.hasColumn("parent_id"))
}
