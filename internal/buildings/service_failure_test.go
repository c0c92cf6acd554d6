package buildings

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	service, err := NewService(ServiceConfig{Database: db})
	require.NoError(t, err)
	return service, mock
}

func TestListDesignersReportsQueryFailure(t *testing.T) {
	service, mock := newMockService(t)
	mock.ExpectQuery("SELECT DISTINCT").WillReturnError(errors.New("connection reset"))

	designers, err := service.ListDesigners(context.Background())
	require.Error(t, err)
	require.Nil(t, designers)

	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	require.Equal(t, "buildings.list_designers.query_failed", serviceErr.Code())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListReportsQueryFailure(t *testing.T) {
	service, mock := newMockService(t)
	mock.ExpectQuery("SELECT .* FROM `buildings`").WillReturnError(errors.New("disk I/O error"))

	_, err := service.List(context.Background())

	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	require.Equal(t, "buildings.list.query_failed", serviceErr.Code())
}

func TestCreateReportsLookupFailureWithoutInsert(t *testing.T) {
	service, mock := newMockService(t)
	mock.ExpectQuery("SELECT count").WillReturnError(errors.New("lock wait timeout"))

	_, err := service.Create(context.Background(), validRequest("building-1", "Gropius"))

	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	require.Equal(t, "buildings.create.query_failed", serviceErr.Code())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMapsDuplicateKeyOnInsertToConflict(t *testing.T) {
	service, mock := newMockService(t)
	mock.ExpectQuery("SELECT count").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `buildings`").
		WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'building-1' for key 'PRIMARY'"})
	mock.ExpectRollback()

	_, err := service.Create(context.Background(), validRequest("building-1", "Gropius"))
	require.ErrorIs(t, err, ErrConflict)

	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	require.Equal(t, "buildings.create.conflict", serviceErr.Code())
	require.NoError(t, mock.ExpectationsWereMet())
}
