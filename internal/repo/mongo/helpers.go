package mongo

import (
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// parseObjectID validates the storage identifier format. Handlers map
// the returned malformed-id sentinel of each domain to a 400.
func parseObjectID(id string, malformedErr error) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)

	if err != nil {
		return bson.ObjectID{}, malformedErr
	}

	return oid, nil
}

func isDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

func hexIDs(oids []bson.ObjectID) []string {
	out := make([]string, 0, len(oids))

	for _, oid := range oids {
		out = append(out, oid.Hex())
	}

	return out
}
