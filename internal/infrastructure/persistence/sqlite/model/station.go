package model

type Station struct {
	StationID    uint64  `gorm:"column:station_id;primaryKey;autoIncrement"`
	Name         string  `gorm:"column:name;type:text;not null;uniqueIndex"`
	Code         string  `gorm:"column:code;type:text;not null;uniqueIndex"`
	Latitude     float64 `gorm:"column:latitude;not null"`
	Longitude    float64 `gorm:"column:longitude;not null"`
	ContactEmail string  `gorm:"column:contact_email;type:text;not null"`
}

func (Station) TableName() string {
	return "stations"
}
