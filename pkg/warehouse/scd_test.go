package warehouse

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProduct(name, category string, price float64, rating int64) Row {
	return Row{
		Key: name,
		Attrs: []any{
			sql.NullString{String: category, Valid: true},
			sql.NullFloat64{Float64: price, Valid: true},
			sql.NullInt64{Int64: rating, Valid: true},
		},
	}
}

func activeProductRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"product_name", "category", "price", "carbon_footprint_rating"})
}

func TestSCDLoadRejectsUnkeyedDimension(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewSCDLoader(db, nil).Load(context.Background(), Dimension{Table: "dim_x"}, []Row{{Key: "a"}})
	require.Error(t, err)
}

func TestSCDLoadFirstSightInsertsCurrent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT product_name, category, price, carbon_footprint_rating FROM dim_product WHERE is_current = TRUE").
		WillReturnRows(activeProductRows())
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO dim_product").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := NewSCDLoader(db, nil).Load(context.Background(), ProductDimension,
		[]Row{testProduct("Tote Bag", "Accessories", 150, 2)})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Zero(t, res.Updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSCDLoadUnchangedWritesNothing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM dim_product WHERE is_current = TRUE").
		WillReturnRows(activeProductRows().AddRow("Tote Bag", "Accessories", 150.0, int64(2)))

	res, err := NewSCDLoader(db, nil).Load(context.Background(), ProductDimension,
		[]Row{testProduct("  TOTE BAG ", "Accessories", 150, 2)})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Inserted)
	assert.Zero(t, res.Updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSCDLoadChangedExpiresAndReinserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	loader := NewSCDLoader(db, nil)
	loader.now = func() time.Time { return fixed }

	mock.ExpectQuery("FROM dim_product WHERE is_current = TRUE").
		WillReturnRows(activeProductRows().AddRow("Tote Bag", "Accessories", 150.0, int64(2)))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE dim_product SET is_current = FALSE, effective_end = \? WHERE lower\(trim\(product_name\)\) = \? AND is_current = TRUE`).
		WithArgs(fixed, "tote bag").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO dim_product").
		WithArgs("Tote Bag", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), fixed, Forever, true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := loader.Load(context.Background(), ProductDimension,
		[]Row{testProduct("Tote Bag", "Accessories", 160, 2)})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Zero(t, res.Inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSCDLoadDropsInvalidAndDuplicateKeys(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	res, err := NewSCDLoader(db, nil).Load(context.Background(), ProductDimension, []Row{
		testProduct("nan", "x", 1, 1),
		testProduct("", "x", 1, 1),
		testProduct("NaT", "x", 1, 1),
	})

	require.NoError(t, err)
	assert.Equal(t, 3, res.Dropped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSCDLoadDeduplicatesIncomingBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM dim_product").WillReturnRows(activeProductRows())
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO dim_product").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := NewSCDLoader(db, nil).Load(context.Background(), ProductDimension, []Row{
		testProduct("Tote Bag", "Accessories", 150, 2),
		testProduct("tote bag", "Accessories", 999, 2),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Dropped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "", canonical(nil))
	assert.Equal(t, "x", canonical(" x "))
	assert.Equal(t, "x", canonical([]byte("x")))
	assert.Equal(t, "150", canonical(150.0))
	assert.Equal(t, "150.5", canonical(150.5))
	assert.Equal(t, "7", canonical(int64(7)))
	assert.Equal(t, "true", canonical(true))
	assert.Equal(t, "2026-08-01 00:00:00",
		canonical(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Kitchen", canonical(sql.NullString{String: "Kitchen", Valid: true}))
	assert.Equal(t, "", canonical(sql.NullString{}))
}

func TestAttrsDiffer(t *testing.T) {
	// A DOUBLE scanned back from the warehouse matches the typed value it was
	// written from.
	incoming := []any{sql.NullFloat64{Float64: 250, Valid: true}}
	assert.False(t, attrsDiffer(incoming, []any{250.0}))
	assert.True(t, attrsDiffer(incoming, []any{260.0}))
	assert.True(t, attrsDiffer(incoming, []any{250.0, "extra"}))
}
