package dbh

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONField stores a struct as a JSON blob in the database, and presents
// it to gorm and to JSON marshallers as the struct itself.
type JSONField[T any] struct {
	Data T
}

func MakeJSONField[T any](data T) *JSONField[T] {
	return &JSONField[T]{Data: data}
}

func (j *JSONField[T]) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		var empty T
		j.Data = empty
		return nil
	case []byte:
		return json.Unmarshal(v, &j.Data)
	case string:
		return json.Unmarshal([]byte(v), &j.Data)
	}
	return fmt.Errorf("Unsupported source type %T for JSONField", src)
}

func (j JSONField[T]) Value() (driver.Value, error) {
	return json.Marshal(j.Data)
}

func (j JSONField[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.Data)
}

func (j *JSONField[T]) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &j.Data)
}
