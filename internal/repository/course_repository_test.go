package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseListEnrolled(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows([]string{"course_id", "code", "name", "credits", "semester", "teacher_profile_id", "teacher_account_id", "teacher_username", "teacher_first_name", "teacher_last_name", "teacher_email"}).
		AddRow("c1", "CS201", "Data Structures", 4, 3, "tp1", "ta1", "asha", "Asha", "Rao", "asha@example.com")
	mock.ExpectQuery(`FROM enrollments e\s+JOIN courses c`).WithArgs("sp1").WillReturnRows(rows)

	courses, err := repo.ListEnrolled(context.Background(), "sp1")
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "Asha Rao", courses[0].TeacherName())
	assert.Equal(t, 4, courses[0].Credits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseEnrolledStudentAccountIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(`SELECT a.id FROM enrollments e`).WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s1").AddRow("s2"))

	ids, err := repo.EnrolledStudentAccountIDs(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseTeacherAccountID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(`SELECT a.id FROM courses c`).WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("t1"))

	id, err := repo.TeacherAccountID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "t1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}
