package models

import (
	"time"
)

// Post is an address page in the explorer feed. IDs are assigned by the
// store and only ever grow, which is what the cursor pagination and the
// list-subscription relevance rule both lean on.
type Post struct {
	ID      int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Title   string    `json:"title" gorm:"type:text"`
	Content string    `json:"content" gorm:"type:text"`
	CDate   time.Time `json:"cdate" gorm:"autoCreateTime;not null"`
	MDate   time.Time `json:"mdate" gorm:"autoUpdateTime;not null"`
}

// Transaction belongs to exactly one post and is removed with it.
type Transaction struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	PostID    int64     `json:"postId" gorm:"index;not null"`
	Post      Post      `json:"-" gorm:"foreignKey:PostID;references:ID;constraint:OnDelete:CASCADE;"`
	Content   string    `json:"content" gorm:"type:text"`
	Balance   string    `json:"balance" gorm:"type:text"`
	TimeStamp string    `json:"timeStamp" gorm:"type:text"`
	CDate     time.Time `json:"cdate" gorm:"autoCreateTime;not null"`
	MDate     time.Time `json:"mdate" gorm:"autoUpdateTime;not null"`
}
