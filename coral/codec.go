package coral

import (
	"encoding/json"
)

// Record is any typed value that can live in a service collection.
type Record interface {
	CollectionName() string
	RecordId() string
}

// FieldMap is the generic field name -> value form records travel in.
type FieldMap = map[string]any

// The record codec maps typed records to and from field maps at the session
// boundary. The service only ever sees field maps.

func EncodeRecord(record Record) (FieldMap, error) {
	// a record that cannot marshal is a caller bug, not a decode failure
	recordBytes, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	fields := FieldMap{}
	if err := json.Unmarshal(recordBytes, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func DecodeRecord[T any](fields FieldMap) (T, error) {
	var record T
	fieldsBytes, err := json.Marshal(fields)
	if err != nil {
		return record, NewDecodeError(err)
	}
	if err := json.Unmarshal(fieldsBytes, &record); err != nil {
		return record, NewDecodeError(err)
	}
	return record, nil
}
