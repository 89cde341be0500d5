package models

import "time"

const RoleAdmin = "admin"

type Admin struct {
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (a *Admin) FullName() string {
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}
