package postgres

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobdata-fetcher/internal/jobdata"
)

var testRow = jobdata.Row{
	PKID:        1,
	JobID:       "a1",
	AppName:     "foo",
	State:       "done",
	DateCreated: "2024-01-01",
}

func newMockSink(t *testing.T) (*Sink, pgxmock.PgxConnIface) {
	t.Helper()
	mock, err := pgxmock.NewConn()
	require.NoError(t, err)
	sink, err := NewWithConn(mock)
	require.NoError(t, err)
	return sink, mock
}

func TestInitSchema(t *testing.T) {
	t.Parallel()

	sink, mock := newMockSink(t)
	for range 2 {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS job_data")).
			WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	}

	require.NoError(t, sink.InitSchema(context.Background()))
	require.NoError(t, sink.InitSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInitSchemaError(t *testing.T) {
	t.Parallel()

	sink, mock := newMockSink(t)
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))

	err := sink.InitSchema(context.Background())
	require.ErrorContains(t, err, "create job_data: permission denied")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRow(t *testing.T) {
	t.Parallel()

	sink, mock := newMockSink(t)
	mock.ExpectExec("INSERT INTO job_data").
		WithArgs(testRow.PKID, testRow.JobID, testRow.AppName, testRow.State, testRow.DateCreated).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, sink.Insert(context.Background(), testRow))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertDuplicateKey(t *testing.T) {
	t.Parallel()

	sink, mock := newMockSink(t)
	mock.ExpectExec("INSERT INTO job_data").
		WithArgs(testRow.PKID, testRow.JobID, testRow.AppName, testRow.State, testRow.DateCreated).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, Message: "duplicate key"})

	err := sink.Insert(context.Background(), testRow)
	require.ErrorIs(t, err, jobdata.ErrDuplicateKey)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertOtherError(t *testing.T) {
	t.Parallel()

	sink, mock := newMockSink(t)
	mock.ExpectExec("INSERT INTO job_data").
		WithArgs(testRow.PKID, testRow.JobID, testRow.AppName, testRow.State, testRow.DateCreated).
		WillReturnError(errors.New("conn busy"))

	err := sink.Insert(context.Background(), testRow)
	require.ErrorContains(t, err, "insert pk_id 1: conn busy")
	require.NotErrorIs(t, err, jobdata.ErrDuplicateKey)
}

func TestInsertAcceptsEmptyText(t *testing.T) {
	t.Parallel()

	sink, mock := newMockSink(t)
	row := testRow
	row.State = ""
	mock.ExpectExec("INSERT INTO job_data").
		WithArgs(row.PKID, row.JobID, row.AppName, "", row.DateCreated).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, sink.Insert(context.Background(), row))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertSerializesConcurrentCallers(t *testing.T) {
	t.Parallel()

	sink, mock := newMockSink(t)
	mock.MatchExpectationsInOrder(false)
	const calls = 20
	for range calls {
		mock.ExpectExec("INSERT INTO job_data").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	var wg sync.WaitGroup
	errs := make(chan error, calls)
	for i := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			row := testRow
			row.PKID = int64(i + 1)
			errs <- sink.Insert(context.Background(), row)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClose(t *testing.T) {
	t.Parallel()

	sink, mock := newMockSink(t)
	mock.ExpectClose()

	require.NoError(t, sink.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWithConnRequiresConn(t *testing.T) {
	t.Parallel()

	_, err := NewWithConn(nil)
	require.Error(t, err)
}

func TestConnectRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := Connect(context.Background(), "")
	require.ErrorIs(t, err, jobdata.ErrStoreUnavailable)

	_, err = Connect(context.Background(), "postgres://%zz")
	require.ErrorIs(t, err, jobdata.ErrStoreUnavailable)
}
