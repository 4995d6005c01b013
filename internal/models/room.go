package models

// RoomType classifies a teaching space.
type RoomType string

const (
	RoomTypeClassroom  RoomType = "classroom"
	RoomTypeLab        RoomType = "lab"
	RoomTypeAuditorium RoomType = "auditorium"
)

// Room is a bookable teaching space.
type Room struct {
	ID           string             `json:"id" validate:"required"`
	Name         string             `json:"name" validate:"required"`
	Type         RoomType           `json:"type" validate:"required,oneof=classroom lab auditorium"`
	Capacity     int                `json:"capacity" validate:"gt=0"`
	Equipment    []string           `json:"equipment,omitempty"`
	Availability WeeklyAvailability `json:"availability"`
}

// Suits reports whether a subject type may be taught in the room. Lab
// subjects need lab rooms.
func (r Room) Suits(t SubjectType) bool {
	return t != SubjectTypeLab || r.Type == RoomTypeLab
}
