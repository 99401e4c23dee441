package repository

import "github.com/google/uuid"

var newUUID = func() string {
	return uuid.NewString()
}
