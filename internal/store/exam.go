package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/studyloop/internal/errs"
	"github.com/abhisek/studyloop/internal/grading"
)

// ExamRepo implements grading.Repo.
type ExamRepo struct {
	s *Store
}

var _ grading.Repo = (*ExamRepo)(nil)

func (r *ExamRepo) CreateExam(ctx context.Context, exam *grading.Exam) error {
	data, err := json.Marshal(exam)
	if err != nil {
		return fmt.Errorf("marshal exam: %w", err)
	}
	_, err = exec(ctx, r.s.db, builder().Insert(tableExams).
		Columns(colID, colCourseID, colCreatedAt, colData).
		Values(exam.ID, exam.CourseID, exam.CreatedAt.UnixNano(), string(data)))
	if err != nil {
		return fmt.Errorf("insert exam: %w", err)
	}
	return nil
}

func (r *ExamRepo) GetExam(ctx context.Context, examID string) (*grading.Exam, error) {
	return getDoc[grading.Exam](ctx, r.s.db, tableExams, examID)
}

func (r *ExamRepo) ListExams(ctx context.Context, courseID string, limit int) ([]grading.Exam, error) {
	return listDocs[grading.Exam](ctx, r.s.db, newestFirst(tableExams, courseID, limit))
}

func (r *ExamRepo) CreateAttempt(ctx context.Context, a *grading.Attempt) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	_, err = exec(ctx, r.s.db, builder().Insert(tableAttempts).
		Columns(colID, "exam_id", colCourseID, colCreatedAt, "completed", colData).
		Values(a.ID, a.ExamID, a.CourseID, a.StartedAt.UnixNano(), a.Completed(), string(data)))
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (r *ExamRepo) GetAttempt(ctx context.Context, attemptID string) (*grading.Attempt, error) {
	return getDoc[grading.Attempt](ctx, r.s.db, tableAttempts, attemptID)
}

// CompleteAttempt flips the completed flag with a conditional update, so of
// two racing submissions only one sees a changed row. The winner then folds
// its result into the exam stats in the same transaction.
func (r *ExamRepo) CompleteAttempt(ctx context.Context, a *grading.Attempt, update func(*grading.ExamStats)) error {
	const op = "completeAttempt"
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}

	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := exec(ctx, tx, builder().Update(tableAttempts).
			Set("completed", true).
			Set(colData, string(data)).
			Where(entsql.And(
				entsql.EQ(colID, a.ID),
				entsql.EQ("completed", false),
			)))
		if err != nil {
			return fmt.Errorf("complete attempt: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("complete attempt: %w", err)
		}
		if n == 0 {
			return errs.AlreadyCompleted(op, a.ID)
		}

		exam, err := getDoc[grading.Exam](ctx, tx, tableExams, a.ExamID)
		if err != nil {
			return err
		}
		if exam == nil {
			return errs.NotFound(op, "exam %q", a.ExamID)
		}
		update(&exam.Stats)
		return putDoc(ctx, tx, tableExams, exam.ID, exam)
	})
}
