package model

import "time"

type Defect struct {
	DefectID   uint64  `gorm:"column:defect_id;primaryKey;autoIncrement"`
	DefectType string  `gorm:"column:defect_type;type:text;not null;index"`
	Confidence float64 `gorm:"column:confidence;not null"`
	ImageRef   string  `gorm:"column:image_ref;type:text;not null"`

	Latitude       *float64 `gorm:"column:latitude"`
	Longitude      *float64 `gorm:"column:longitude"`
	Chainage       *string  `gorm:"column:chainage;type:text"`
	NearestStation *string  `gorm:"column:nearest_station;type:text"`

	Severity        string `gorm:"column:severity;type:text;not null"`
	RootCause       string `gorm:"column:root_cause;type:text;not null"`
	ActionRequired  string `gorm:"column:action_required;type:text;not null"`
	ResolutionSteps string `gorm:"column:resolution_steps;type:text;not null"`

	AssignedStationID *uint64 `gorm:"column:assigned_station_id;index"`

	Status     string     `gorm:"column:status;type:text;not null;default:Open"`
	ResolvedAt *time.Time `gorm:"column:resolved_at"`
	ResolvedBy *uint64    `gorm:"column:resolved_by"`

	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (Defect) TableName() string {
	return "defects"
}
