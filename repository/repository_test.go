package repository

import (
	"context"
	"strings"
	"testing"

	"github.com/camden-git/galacticcensus/database"
	"github.com/camden-git/galacticcensus/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.InitGormDB("file:"+uuid.NewString()+"?mode=memory&cache=shared", zap.NewNop(), gormlogger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateModels(db))
	return db
}

func strPtr(s string) *string { return &s }

func TestReferenceRepository_FindOrCreate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReferenceRepository(db)
	ctx := context.Background()

	t.Run("creates then finds the same entity", func(t *testing.T) {
		first, err := repo.FindOrCreate(ctx, models.KindLocation, "Tatooine")
		require.NoError(t, err)
		second, err := repo.FindOrCreate(ctx, models.KindLocation, "Tatooine")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		var count int64
		db.Model(&models.Location{}).Where("name = ?", "Tatooine").Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("kinds have independent namespaces", func(t *testing.T) {
		_, err := repo.FindOrCreate(ctx, models.KindAffiliation, "Naboo")
		require.NoError(t, err)
		_, err = repo.FindOrCreate(ctx, models.KindLocation, "Naboo")
		require.NoError(t, err)

		var locations, affiliations int64
		db.Model(&models.Location{}).Where("name = ?", "Naboo").Count(&locations)
		db.Model(&models.Affiliation{}).Where("name = ?", "Naboo").Count(&affiliations)
		assert.Equal(t, int64(1), locations)
		assert.Equal(t, int64(1), affiliations)
	})

	t.Run("names are matched exactly", func(t *testing.T) {
		a, err := repo.FindOrCreate(ctx, models.KindAffiliation, "Jedi Order")
		require.NoError(t, err)
		b, err := repo.FindOrCreate(ctx, models.KindAffiliation, "jedi order")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("blank name is a validation error", func(t *testing.T) {
		_, err := repo.FindOrCreate(ctx, models.KindLocation, "")
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Equal(t, "Validation failed: Name can't be blank", err.Error())
	})

	t.Run("unknown kind is rejected", func(t *testing.T) {
		_, err := repo.FindOrCreate(ctx, models.ReferenceKind("planet"), "Hoth")
		assert.Error(t, err)
	})
}

func TestReferenceRepository_RetriesAfterUniqueConflict(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReferenceRepository(db)
	ctx := context.Background()

	// simulate a concurrent writer inserting the row between lookup and insert
	existing := &models.Location{Name: "Kamino", CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, db.Create(existing).Error)

	_, err := repo.insert(ctx, models.KindLocation, "Kamino")
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))

	id, err := repo.FindOrCreate(ctx, models.KindLocation, "Kamino")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, id)
}

func TestReferenceRepository_ListAll(t *testing.T) {
	db := setupTestDB(t)
	refs := NewReferenceRepository(db)
	people := NewPersonRepository(db)
	ctx := context.Background()

	sith, err := refs.FindOrCreate(ctx, models.KindAffiliation, "Sith")
	require.NoError(t, err)
	_, err = refs.FindOrCreate(ctx, models.KindAffiliation, "Jedi Order")
	require.NoError(t, err)
	require.NoError(t, people.Save(ctx, &models.Person{FirstName: "Darth", LastName: strPtr("Vadar")}, nil, []uint{sith}))

	list, err := refs.ListAll(ctx, models.KindAffiliation)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Jedi Order", list[0].Name)
	assert.Equal(t, int64(0), list[0].PeopleCount)
	assert.Equal(t, "Sith", list[1].Name)
	assert.Equal(t, int64(1), list[1].PeopleCount)
}

func TestPersonRepository_SaveAndFindByKey(t *testing.T) {
	db := setupTestDB(t)
	refs := NewReferenceRepository(db)
	repo := NewPersonRepository(db)
	ctx := context.Background()

	deathStar, _ := refs.FindOrCreate(ctx, models.KindLocation, "Death Star")
	tatooine, _ := refs.FindOrCreate(ctx, models.KindLocation, "Tatooine")
	sith, _ := refs.FindOrCreate(ctx, models.KindAffiliation, "Sith")

	vader := &models.Person{FirstName: "Darth", LastName: strPtr("Vadar"), Weapon: strPtr("Lightsaber")}
	require.NoError(t, repo.Save(ctx, vader, []uint{deathStar, tatooine}, []uint{sith}))
	require.NotZero(t, vader.ID)
	assert.NotZero(t, vader.CreatedAt)

	t.Run("finds by exact key", func(t *testing.T) {
		found, err := repo.FindByKey(ctx, "Darth", strPtr("Vadar"))
		require.NoError(t, err)
		assert.Equal(t, vader.ID, found.ID)

		_, err = repo.FindByKey(ctx, "darth", strPtr("Vadar"))
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

		_, err = repo.FindByKey(ctx, "Darth", nil)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("loads associations", func(t *testing.T) {
		loaded, err := repo.GetByID(ctx, vader.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Death Star", "Tatooine"}, loaded.LocationNames())
		assert.Equal(t, []string{"Sith"}, loaded.AffiliationNames())
	})

	t.Run("update replaces association sets and assigns blanks", func(t *testing.T) {
		found, err := repo.FindByKey(ctx, "Darth", strPtr("Vadar"))
		require.NoError(t, err)
		found.Weapon = nil
		found.Vehicle = strPtr("Tie Fighter")

		require.NoError(t, repo.Save(ctx, found, []uint{tatooine, tatooine}, nil))

		loaded, err := repo.GetByID(ctx, vader.ID)
		require.NoError(t, err)
		assert.Nil(t, loaded.Weapon)
		assert.Equal(t, "Tie Fighter", *loaded.Vehicle)
		assert.Equal(t, []string{"Tatooine"}, loaded.LocationNames())
		assert.Empty(t, loaded.Affiliations)

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("single-name people key on a null last name", func(t *testing.T) {
		chewie := &models.Person{FirstName: "Chewbacca"}
		require.NoError(t, repo.Save(ctx, chewie, nil, nil))

		found, err := repo.FindByKey(ctx, "Chewbacca", nil)
		require.NoError(t, err)
		assert.Equal(t, chewie.ID, found.ID)
		assert.Equal(t, "Chewbacca", found.FullName())
	})
}

func TestPersonRepository_SaveValidation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPersonRepository(db)
	ctx := context.Background()

	t.Run("first name is required", func(t *testing.T) {
		err := repo.Save(ctx, &models.Person{}, nil, nil)
		require.Error(t, err)
		assert.Equal(t, "Validation failed: First name can't be blank", err.Error())
	})

	t.Run("overlong fields are rejected", func(t *testing.T) {
		err := repo.Save(ctx, &models.Person{FirstName: "Yoda", Weapon: strPtr(strings.Repeat("x", 256))}, nil, nil)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Contains(t, err.Error(), "Weapon is too long (maximum is 255 characters)")
	})

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPersonRepository_GetByIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPersonRepository(db)
	ctx := context.Background()

	luke := &models.Person{FirstName: "Luke", LastName: strPtr("Skywalker")}
	leia := &models.Person{FirstName: "Leia", LastName: strPtr("Organa")}
	require.NoError(t, repo.Save(ctx, luke, nil, nil))
	require.NoError(t, repo.Save(ctx, leia, nil, nil))

	people, err := repo.GetByIDs(ctx, []uint{leia.ID, 999, luke.ID})
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, "Leia", people[0].FirstName)
	assert.Equal(t, "Luke", people[1].FirstName)

	empty, err := repo.GetByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestImportRunRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewImportRunRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.ImportRun{RunID: "a", Source: "a.csv", Status: models.ImportStatusCompleted, StartedAt: 10, FinishedAt: 11}))
	require.NoError(t, repo.Create(ctx, &models.ImportRun{RunID: "b", Source: "b.csv", Status: models.ImportStatusCompletedWithErrors, Errors: []string{"Row 'x': boom"}, StartedAt: 20, FinishedAt: 21}))

	runs, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].RunID)
	assert.Equal(t, []string{"Row 'x': boom"}, runs[0].Errors)
	assert.Equal(t, []string{}, runs[1].Errors)

	run, err := repo.GetByRunID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a.csv", run.Source)
	assert.Nil(t, run.ArchivePath)

	_, err = repo.GetByRunID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHumanizeField(t *testing.T) {
	assert.Equal(t, "First name", humanizeField("FirstName"))
	assert.Equal(t, "Name", humanizeField("Name"))
}
