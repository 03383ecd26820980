package service

import (
	"admin-service/apperr"
	"admin-service/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func parseID(id, what string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("Invalid %s id", what)
	}
	return oid, nil
}

// notFound maps repository.ErrNotFound to a client-facing error and leaves
// other errors as internal.
func notFound(err error, message string) error {
	if repository.IsNotFound(err) {
		return apperr.NotFound("%s", message)
	}
	return err
}
