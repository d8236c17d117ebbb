package models

import "github.com/google/uuid"

// Team is keyed by a client generated uuid.
type Team struct {
	ID   uuid.UUID `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	Name string    `gorm:"column:name;type:varchar(64)" json:"name"`
}

func (Team) TableName() string {
	return "teams"
}

// NewTeam returns a team with a fresh id.
func NewTeam(name string) Team {
	return Team{ID: uuid.New(), Name: name}
}

// GeneratedTeam is keyed by a store generated id; unsaved teams have ID 0.
type GeneratedTeam struct {
	ID   int64  `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Name string `gorm:"column:name;type:varchar(64)" json:"name"`
}

func (GeneratedTeam) TableName() string {
	return "generated_teams"
}
