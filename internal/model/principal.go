package model

import "github.com/google/uuid"

type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"
	UserRoleManager UserRole = "manager"
	UserRoleViewer  UserRole = "viewer"
)

type Principal struct {
	UserID uuid.UUID
	Role   UserRole
}

func (p Principal) IsAdmin() bool {
	return p.Role == UserRoleAdmin
}

// CanEditContracts разрешено администратору и менеджеру
func (p Principal) CanEditContracts() bool {
	return p.Role == UserRoleAdmin || p.Role == UserRoleManager
}

func (p Principal) CanEditReferences() bool {
	return p.IsAdmin()
}
