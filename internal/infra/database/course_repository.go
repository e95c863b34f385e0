package database

import (
	"context"
	"database/sql"

	"github.com/xavierca1/nivesh-crm/internal/entity"
)

type CourseRepository struct {
	DB *sql.DB
}

func NewCourseRepository(db *sql.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) Create(ctx context.Context, c *entity.Course) error {
	query := `
		INSERT INTO courses (id, name, price, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.DB.ExecContext(ctx, query, c.ID, c.Name, c.Price, c.CreatedAt)
	return mapError(err)
}

func (r *CourseRepository) List(ctx context.Context) ([]entity.Course, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name, price, created_at FROM courses ORDER BY price, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.Course{}
	for rows.Next() {
		var c entity.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.Price, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
