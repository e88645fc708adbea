package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/noah-isme/tutoring-payments-api/internal/models"
	"github.com/noah-isme/tutoring-payments-api/internal/normalize"
)

// StudentDocumentRepository lists students from the document store.
type StudentDocumentRepository struct {
	store *DocumentStore
}

// NewStudentDocumentRepository constructs a StudentDocumentRepository.
func NewStudentDocumentRepository(store *DocumentStore) *StudentDocumentRepository {
	return &StudentDocumentRepository{store: store}
}

// ListActiveBySchool returns the active students of a school.
func (r *StudentDocumentRepository) ListActiveBySchool(ctx context.Context, schoolID string) ([]models.Student, error) {
	filter := bson.M{"$and": bson.A{
		eitherField("schoolId", "school_id", schoolID),
		bson.M{"status": bson.M{"$in": bson.A{"active", "Active", "ACTIVE"}}},
	}}
	records, err := r.store.Find(ctx, StudentsCollection, filter)
	if err != nil {
		return nil, err
	}
	students := make([]models.Student, 0, len(records))
	for _, record := range records {
		student := normalize.Student(record)
		if student.ID == "" || student.Status != models.StudentStatusActive {
			continue
		}
		if student.SchoolID == "" {
			student.SchoolID = schoolID
		}
		students = append(students, student)
	}
	return students, nil
}
