package repository

import "github.com/google/uuid"

func uuidFromByte(b byte) uuid.UUID {
	var id uuid.UUID
	id[15] = b
	return id
}
