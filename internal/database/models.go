package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Order struct {
	ID              uuid.UUID
	OutletID        uuid.UUID
	OrderNumber     string
	Status          string
	CustomerName    string
	CustomerPhone   string
	CustomerAddress pgtype.Text
	Total           pgtype.Numeric
	Notes           pgtype.Text
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductName string
	Quantity    int32
	UnitPrice   pgtype.Numeric
	Notes       pgtype.Text
}

type Category struct {
	ID        uuid.UUID
	OutletID  uuid.UUID
	Name      string
	SortOrder int32
	IsActive  bool
	CreatedAt time.Time
}

// ScheduleDay is one weekday row of an outlet's opening hours.
// Weekday follows time.Weekday numbering (0 = Sunday).
type ScheduleDay struct {
	OutletID  uuid.UUID
	Weekday   int32
	OpenTime  string
	CloseTime string
	IsOpen    bool
}

type User struct {
	ID           uuid.UUID
	OutletID     uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
}
