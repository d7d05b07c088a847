package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/accountd/internal/common"
	"github.com/dmitrijs2005/accountd/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func testUser() *models.User {
	now := time.Now().UTC()
	return &models.User{
		ID:           "u-1",
		FirstName:    "John",
		LastName:     "Doe",
		Email:        "john@example.com",
		PasswordHash: "hash",
		Level:        "standard",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func userRows(u *models.User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "first_name", "last_name", "email", "password_hash", "level", "created_at", "updated_at"}).
		AddRow(u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.Level, u.CreatedAt, u.UpdatedAt)
}

const (
	insertQ       = `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*first_name,\s*last_name,\s*email,\s*password_hash,\s*level,\s*created_at,\s*updated_at\)`
	selectByIDQ   = `(?s)^SELECT\s+.+\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`
	selectForUpdQ = `(?s)^SELECT\s+.+\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s+FOR\s+UPDATE\s*$`
	selectByMailQ = `(?s)^SELECT\s+.+\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1\s*$`
	updateQ       = `(?s)^UPDATE\s+users\s+SET\s+.+\s+WHERE\s+id\s*=\s*\$6\s*$`
)

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	u := testUser()
	mock.ExpectExec(insertQ).
		WithArgs(u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.Level, u.CreatedAt, u.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "u-1" || got.Email != "john@example.com" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestCreate_UniqueViolation(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	u := testUser()
	mock.ExpectExec(insertQ).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_idx"})

	_, err := repo.Create(context.Background(), u)
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("want common.ErrorAlreadyExists, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), testUser())
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	u := testUser()
	mock.ExpectQuery(selectByIDQ).
		WithArgs("u-1").
		WillReturnRows(userRows(u))

	got, err := repo.GetByID(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.ID != "u-1" || got.PasswordHash != "hash" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectByIDQ).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	u := testUser()
	mock.ExpectQuery(selectByMailQ).
		WithArgs("john@example.com").
		WillReturnRows(userRows(u))

	got, err := repo.GetByEmail(context.Background(), "john@example.com")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	if got.ID != "u-1" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetByEmail_DBErrorIsNotNotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectByMailQ).
		WithArgs("john@example.com").
		WillReturnError(errors.New("scan failed"))

	_, err := repo.GetByEmail(context.Background(), "john@example.com")
	if err == nil || errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("a failed lookup must not read as not-found, got %v", err)
	}
}

func TestUpdate_MergesAndRefreshes(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	u := testUser()

	mock.ExpectBegin()
	mock.ExpectQuery(selectForUpdQ).
		WithArgs("u-1").
		WillReturnRows(userRows(u))
	mock.ExpectExec(updateQ).
		WithArgs("Johnny", u.LastName, u.Email, u.PasswordHash, sqlmock.AnyArg(), u.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	firstName := "Johnny"
	got, err := repo.Update(context.Background(), "u-1", &Patch{FirstName: &firstName})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if got.FirstName != "Johnny" || got.LastName != "Doe" || got.Email != "john@example.com" {
		t.Fatalf("merge wrong: %+v", got)
	}
	if !got.UpdatedAt.After(u.CreatedAt) && !got.UpdatedAt.Equal(u.CreatedAt) {
		t.Fatalf("updatedAt not refreshed: %v", got.UpdatedAt)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdate_NotFoundRollsBack(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(selectForUpdQ).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	firstName := "X"
	_, err := repo.Update(context.Background(), "ghost", &Patch{FirstName: &firstName})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdate_UniqueViolationOnEmailChange(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	u := testUser()

	mock.ExpectBegin()
	mock.ExpectQuery(selectForUpdQ).
		WithArgs("u-1").
		WillReturnRows(userRows(u))
	mock.ExpectExec(updateQ).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_idx"})
	mock.ExpectRollback()

	email := "taken@example.com"
	_, err := repo.Update(context.Background(), "u-1", &Patch{Email: &email})
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("want common.ErrorAlreadyExists, got %v", err)
	}
}
