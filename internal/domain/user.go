package domain

import "context"

type User struct {
	ID    int
	Name  string
	Email string
}

type UserRepository interface {
	GetById(ctx context.Context, id int) (*User, error)
}
