package location_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/internal/core/apperror"
	"stockroom/internal/core/id"
	"stockroom/internal/domain"
	"stockroom/internal/domain/catalogs/location"
	"stockroom/internal/infrastructure/storage/memory"
)

func newService(t *testing.T) (*location.Service, *memory.Repositories) {
	t.Helper()
	repos := memory.NewRepositories()
	return location.NewService(repos.Locations, repos.Store), repos
}

func create(t *testing.T, svc *location.Service, name string, typ location.LocationType, parent *id.ID) *location.Location {
	t.Helper()
	loc := location.NewLocation(name, typ)
	loc.ParentID = parent
	require.NoError(t, svc.Create(context.Background(), loc))
	return loc
}

func TestCreate_GeneratesUniqueCodes(t *testing.T) {
	svc, _ := newService(t)

	first := create(t, svc, "Main Hall", location.TypeWarehouse, nil)
	second := create(t, svc, "Main Hall", location.TypeWarehouse, nil)
	third := create(t, svc, "main-hall", location.TypeWarehouse, nil)

	assert.Equal(t, "WAR-MAIN", first.Code)
	assert.Equal(t, "WAR-MAIN-1", second.Code)
	assert.Equal(t, "WAR-MAIN-2", third.Code)
}

func TestUpdate_KeepsOwnCode(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	loc := create(t, svc, "Main Hall", location.TypeWarehouse, nil)
	loc.Name = "Main Hall East"
	require.NoError(t, svc.Update(ctx, loc))
	assert.Equal(t, "WAR-MAIN", loc.Code)
	assert.Equal(t, 2, loc.Version)
}

func TestSingleDefault(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	a := location.NewLocation("A", location.TypeWarehouse)
	a.IsDefault = true
	require.NoError(t, svc.Create(ctx, a))

	b := location.NewLocation("B", location.TypeWarehouse)
	b.IsDefault = true
	require.NoError(t, svc.Create(ctx, b))

	def, err := svc.GetDefault(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, def.ID)

	storedA, err := svc.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, storedA.IsDefault)

	storedA.IsDefault = true
	require.NoError(t, svc.Update(ctx, storedA))

	res, err := svc.List(ctx, domain.ListFilter{Limit: 10})
	require.NoError(t, err)
	defaults := 0
	for _, l := range res.Items {
		if l.IsDefault {
			defaults++
			assert.Equal(t, a.ID, l.ID)
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestSingleDefault_ConcurrentWriters(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			loc := location.NewLocation(fmt.Sprintf("Dock %d", n), location.TypeWarehouse)
			loc.IsDefault = true
			errs <- svc.Create(ctx, loc)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	res, err := svc.List(ctx, domain.ListFilter{Limit: 100})
	require.NoError(t, err)
	require.Len(t, res.Items, writers)
	defaults := 0
	for _, l := range res.Items {
		if l.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestParentChecks(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	wh := create(t, svc, "Main", location.TypeWarehouse, nil)
	aisle := create(t, svc, "Aisle", location.TypeAisle, &wh.ID)
	shelf := create(t, svc, "Shelf", location.TypeShelf, &aisle.ID)

	t.Run("self parent", func(t *testing.T) {
		b, err := svc.GetByID(ctx, aisle.ID)
		require.NoError(t, err)
		b.ParentID = &b.ID
		err = svc.Update(ctx, b)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("descendant parent", func(t *testing.T) {
		root, err := svc.GetByID(ctx, wh.ID)
		require.NoError(t, err)
		root.ParentID = &shelf.ID
		err = svc.Update(ctx, root)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("missing parent", func(t *testing.T) {
		missing := id.New()
		loc := location.NewLocation("Orphan", location.TypeBin)
		loc.ParentID = &missing
		err := svc.Create(ctx, loc)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	stored, err := svc.GetByID(ctx, aisle.ID)
	require.NoError(t, err)
	assert.Equal(t, wh.ID, *stored.ParentID, "rejected updates must not persist")

	children, err := svc.Children(ctx, wh.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, aisle.ID, children[0].ID)
}

func TestDelete_BlockedByDependents(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	wh := create(t, svc, "Main", location.TypeWarehouse, nil)
	aisle := create(t, svc, "Aisle", location.TypeAisle, &wh.ID)

	err := svc.Delete(ctx, wh.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeConstraint))

	stocked := map[id.ID]bool{aisle.ID: true}
	svc.BlockDeleteWhen("stock levels", func(_ context.Context, locID id.ID) (bool, error) {
		return stocked[locID], nil
	})

	err = svc.Delete(ctx, aisle.ID)
	require.True(t, apperror.HasCode(err, apperror.CodeConstraint))
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, "stock levels", appErr.Details["dependent"])

	delete(stocked, aisle.ID)
	require.NoError(t, svc.Delete(ctx, aisle.ID))
	require.NoError(t, svc.Delete(ctx, wh.ID))

	_, err = svc.GetByID(ctx, wh.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestValidate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	bad := location.NewLocation("X", "attic")
	err := svc.Create(ctx, bad)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	empty := location.NewLocation("", location.TypeBin)
	err = svc.Create(ctx, empty)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestReceivingResolver(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := location.NewReceivingResolver(svc, "").ReceivingLocation(ctx)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))

	_, err = location.NewReceivingResolver(svc, "NOPE").ReceivingLocation(ctx)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))

	dock := location.NewLocation("Dock", location.TypeRoom)
	dock.Code = "DOCK"
	dock.IsActive = false
	require.NoError(t, svc.Create(ctx, dock))
	_, err = location.NewReceivingResolver(svc, "DOCK").ReceivingLocation(ctx)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))

	main := location.NewLocation("Main", location.TypeWarehouse)
	main.IsDefault = true
	require.NoError(t, svc.Create(ctx, main))
	got, err := location.NewReceivingResolver(svc, "").ReceivingLocation(ctx)
	require.NoError(t, err)
	assert.Equal(t, main.ID, got)
}

func TestGenerateCode(t *testing.T) {
	assert.Equal(t, "WAR-MAIN", location.GenerateCode("Main Hall", location.TypeWarehouse))
	assert.Equal(t, "BIN-A1", location.GenerateCode("a-1", location.TypeBin))
	assert.Equal(t, "SHE-", location.GenerateCode("!!", location.TypeShelf))
}
