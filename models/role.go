package models

// UserRole приходит в JWT claim "role"; пользователи управляются вне сервиса.
type UserRole string

const (
	RoleAdmin       UserRole = "admin"
	RoleOrganizer   UserRole = "organizer"
	RoleScorekeeper UserRole = "scorekeeper"
)
