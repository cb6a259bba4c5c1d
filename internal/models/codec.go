package models

import (
	"encoding/json"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	keyID      = "id"
	keyMongoID = "_id"
)

func marshalDocJSON(doc Document) ([]byte, error) {
	return json.Marshal(map[string]interface{}(doc))
}

func unmarshalDocJSON(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, NewValidationError("", "malformed document: %v", err)
	}
	return doc, nil
}

// marshalDocBSON stores the identifier under MongoDB's _id key.
func marshalDocBSON(doc Document) ([]byte, error) {
	m := make(bson.M, len(doc))
	for k, v := range doc {
		if k == keyID {
			k = keyMongoID
		}
		m[k] = v
	}
	return bson.Marshal(m)
}

func unmarshalDocBSON(data []byte) (Document, error) {
	var m bson.M
	if err := bson.Unmarshal(data, &m); err != nil {
		return nil, NewValidationError("", "malformed document: %v", err)
	}
	doc := Document(m)
	if id, ok := doc[keyMongoID]; ok {
		delete(doc, keyMongoID)
		if oid, isOID := id.(primitive.ObjectID); isOID {
			id = oid.Hex()
		}
		doc[keyID] = id
	}
	return doc, nil
}
