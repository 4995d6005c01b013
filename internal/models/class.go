package models

// Class represents a cohort of students that receives a set of subjects.
type Class struct {
	ID           string   `json:"id" validate:"required"`
	Name         string   `json:"name" validate:"required"`
	Batch        string   `json:"batch"`
	Semester     int      `json:"semester" validate:"gte=0"`
	Department   string   `json:"department"`
	StudentCount int      `json:"studentCount" validate:"gte=0"`
	SubjectIDs   []string `json:"subjects" validate:"dive,required"`
}
