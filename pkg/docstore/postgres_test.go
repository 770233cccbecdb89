package docstore

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *PostgresCollection) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock, NewPostgresCollection(mock, "users")
}

func TestInsertOne(t *testing.T) {
	mock, coll := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users" (id, doc)`)).
		WithArgs("u1", `{"email":"a@x.io"}`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "doc"}).AddRow("u1", []byte(`{"email":"a@x.io"}`)))

	rec, err := coll.InsertOne(context.Background(), Record{ID: "u1", Doc: []byte(`{"email":"a@x.io"}`)})

	require.NoError(t, err)
	assert.Equal(t, "u1", rec.ID)
	assert.JSONEq(t, `{"email":"a@x.io"}`, string(rec.Doc))
}

func TestInsertOne_UniqueViolation(t *testing.T) {
	mock, coll := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WithArgs("u2", `{"email":"a@x.io"}`).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"})

	_, err := coll.InsertOne(context.Background(), Record{ID: "u2", Doc: []byte(`{"email":"a@x.io"}`)})

	require.ErrorIs(t, err, ErrConstraint)
	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, "users_email_key", pgErr.ConstraintName)
}

func TestFindOne_ByFieldAndID(t *testing.T) {
	mock, coll := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, doc FROM "users" WHERE id = $1 AND doc @> $2::jsonb ORDER BY created_at, id LIMIT 1`)).
		WithArgs("u1", `{"email":"a@x.io"}`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "doc"}).AddRow("u1", []byte(`{"email":"a@x.io"}`)))

	rec, err := coll.FindOne(context.Background(), Filter{IDField: "u1", "email": "a@x.io"})

	require.NoError(t, err)
	assert.Equal(t, "u1", rec.ID)
}

func TestFindOne_NoRows(t *testing.T) {
	mock, coll := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, doc FROM "users"`)).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := coll.FindOne(context.Background(), Filter{IDField: "missing"})

	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestFind_EmptyFilterReturnsAllInOrder(t *testing.T) {
	mock, coll := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, doc FROM "users" WHERE TRUE ORDER BY created_at, id`)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "doc"}).
			AddRow("a", []byte(`{}`)).
			AddRow("b", []byte(`{}`)))

	recs, err := coll.Find(context.Background(), nil)

	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].ID)
	assert.Equal(t, "b", recs[1].ID)
}

func TestFind_NoMatchIsEmptyNotNil(t *testing.T) {
	mock, coll := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, doc FROM "users"`)).
		WithArgs(`{"userId":"nobody"}`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "doc"}))

	recs, err := coll.Find(context.Background(), Filter{"userId": "nobody"})

	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestFindOneAndUpdate_PatchIsFirstArg(t *testing.T) {
	mock, coll := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "users" SET doc = doc || $1::jsonb`)).
		WithArgs(`{"placeId":"p2"}`, "r1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "doc"}).AddRow("r1", []byte(`{"placeId":"p2"}`)))

	rec, err := coll.FindOneAndUpdate(context.Background(), Filter{IDField: "r1"}, Patch{"placeId": "p2"})

	require.NoError(t, err)
	assert.JSONEq(t, `{"placeId":"p2"}`, string(rec.Doc))
}

func TestFindOneAndDelete_NothingMatched(t *testing.T) {
	mock, coll := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM "users"`)).
		WithArgs("gone").
		WillReturnError(pgx.ErrNoRows)

	_, err := coll.FindOneAndDelete(context.Background(), Filter{IDField: "gone"})

	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestBuildWhere_RejectsNonStringID(t *testing.T) {
	_, _, err := buildWhere(Filter{IDField: 42}, 1)
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, ErrNoDocuments},
		{"unique", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, ErrConstraint},
		{"not null", &pgconn.PgError{Code: pgerrcode.NotNullViolation}, ErrConstraint},
		{"admin shutdown", &pgconn.PgError{Code: pgerrcode.AdminShutdown}, ErrUnavailable},
		{"too many connections", &pgconn.PgError{Code: pgerrcode.TooManyConnections}, ErrUnavailable},
		{"deadline", context.DeadlineExceeded, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classify("op", tt.err), tt.want)
		})
	}

	t.Run("syntax error stays unclassified", func(t *testing.T) {
		err := classify("op", &pgconn.PgError{Code: pgerrcode.SyntaxError})
		for _, sentinel := range []error{ErrNoDocuments, ErrConstraint, ErrUnavailable} {
			assert.False(t, errors.Is(err, sentinel))
		}
	})
}
