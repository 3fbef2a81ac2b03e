package model

type User struct {
	UserID       uint64  `gorm:"column:user_id;primaryKey;autoIncrement"`
	Username     string  `gorm:"column:username;type:text;not null;uniqueIndex"`
	PasswordHash string  `gorm:"column:password_hash;type:text;not null"`
	Role         string  `gorm:"column:role;type:text;not null"`
	StationID    *uint64 `gorm:"column:station_id;index"`
}

func (User) TableName() string {
	return "users"
}
