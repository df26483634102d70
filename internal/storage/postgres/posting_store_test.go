package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jobharvest/jobharvester/internal/hash/sha256"
	"github.com/jobharvest/jobharvester/internal/scrape"
)

func testRecord(title, company string) scrape.JobRecord {
	return scrape.JobRecord{
		QueryTerm:   "IT Manager",
		QueryCity:   "Saint Paul",
		QueryState:  "MN",
		URL:         "https://www.indeed.com/company/" + company + "/jobs/" + title,
		Source:      scrape.SourceInternal,
		Title:       title,
		Company:     company,
		Description: "does things",
		Date:        time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
	}
}

func expectInsert(mock pgxmock.PgxPoolIface, job scrape.JobRecord) {
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO jobpostings").
		WithArgs(
			job.QueryTerm,
			job.QueryCity,
			job.QueryState,
			job.URL,
			string(job.Source),
			job.Title,
			job.Company,
			job.Description,
			pgxmock.AnyArg(),
			job.Date,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
}

func TestPersistInsertsEachRecordInItsOwnTransaction(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPostingStoreWithPool(mock, "jobpostings", sha256.New(), zap.NewNop())
	require.NoError(t, err)

	jobs := []scrape.JobRecord{
		testRecord("engineer", "acme"),
		testRecord("analyst", "betacorp"),
	}
	for _, job := range jobs {
		expectInsert(mock, job)
	}

	inserted, err := store.Persist(context.Background(), jobs)
	require.NoError(t, err)
	require.Equal(t, 2, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistSkipsDuplicatesAndContinues(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPostingStoreWithPool(mock, "jobpostings", sha256.New(), zap.NewNop())
	require.NoError(t, err)

	first := testRecord("engineer", "acme")
	dup := testRecord("engineer", "acme")
	last := testRecord("analyst", "betacorp")

	expectInsert(mock, first)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO jobpostings").
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode})
	mock.ExpectRollback()
	expectInsert(mock, last)

	inserted, err := store.Persist(context.Background(), []scrape.JobRecord{first, dup, last})
	require.NoError(t, err)
	require.Equal(t, 2, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Re-running an identical batch must be a safe no-op.
func TestPersistSecondRunInsertsNothing(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPostingStoreWithPool(mock, "jobpostings", sha256.New(), zap.NewNop())
	require.NoError(t, err)

	jobs := []scrape.JobRecord{
		testRecord("engineer", "acme"),
		testRecord("analyst", "betacorp"),
	}
	for range jobs {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO jobpostings").
			WillReturnError(&pgconn.PgError{Code: uniqueViolationCode})
		mock.ExpectRollback()
	}

	inserted, err := store.Persist(context.Background(), jobs)
	require.NoError(t, err)
	require.Equal(t, 0, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistConnectivityFailureAbortsRemainingBatch(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPostingStoreWithPool(mock, "jobpostings", sha256.New(), zap.NewNop())
	require.NoError(t, err)

	first := testRecord("engineer", "acme")
	second := testRecord("analyst", "betacorp")

	expectInsert(mock, first)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO jobpostings").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()
	// No expectations for the third record: the batch stops here.

	inserted, err := store.Persist(context.Background(), []scrape.JobRecord{first, second, testRecord("sre", "gamma")})
	require.Error(t, err)
	require.Equal(t, 1, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostingStoreWithPoolValidation(t *testing.T) {
	t.Parallel()

	_, err := NewPostingStoreWithPool(nil, "jobpostings", sha256.New(), nil)
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewPostingStoreWithPool(mock, "job postings; drop table", sha256.New(), nil)
	require.Error(t, err)
}
