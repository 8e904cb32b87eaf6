package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is one structured-data object, decoded with json.Number so that
// numeric text survives until canonicalization.
type Record = map[string]any

// Payload is a decoded module document. It is either ArrayForm or
// SingleRecordForm; the choice is made once by ParsePayload.
type Payload interface {
	// AllRecords returns the records carried by the payload.
	AllRecords() []Record

	payload()
}

// ArrayForm is a JSON array of records. When the last element is exactly
// {"checksum": "<hex>"} it is split off into Checksum.
type ArrayForm struct {
	Records     []Record
	Checksum    string
	HasChecksum bool
}

// AllRecords implements Payload.
func (a ArrayForm) AllRecords() []Record { return a.Records }

func (ArrayForm) payload() {}

// SingleRecordForm is a bare JSON object.
type SingleRecordForm struct {
	Record Record
}

// AllRecords implements Payload.
func (s SingleRecordForm) AllRecords() []Record { return []Record{s.Record} }

func (SingleRecordForm) payload() {}

// DecodeJSON decodes data keeping numbers as json.Number.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return v, nil
}

// ParsePayload decodes data into a Payload. Anything that is neither an
// object nor an array of objects is ModuleStructureInvalid.
func ParsePayload(data []byte) (Payload, error) {
	v, err := DecodeJSON(data)
	if err != nil {
		return nil, NewBenchError(ModuleStructureInvalid, "", "payload is not valid JSON", err)
	}
	return PayloadFromValue(v)
}

// PayloadFromValue classifies an already decoded JSON value.
func PayloadFromValue(v any) (Payload, error) {
	switch t := v.(type) {
	case map[string]any:
		return SingleRecordForm{Record: t}, nil
	case []any:
		return arrayForm(t)
	default:
		return nil, NewBenchError(ModuleStructureInvalid, "",
			fmt.Sprintf("payload is a %T, want array or object", v), nil)
	}
}

func arrayForm(items []any) (ArrayForm, error) {
	var form ArrayForm
	if n := len(items); n > 0 {
		if sum, ok := checksumTrailer(items[n-1]); ok {
			form.Checksum = sum
			form.HasChecksum = true
			items = items[:n-1]
		}
	}

	form.Records = make([]Record, 0, len(items))
	for i, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			return ArrayForm{}, NewBenchError(ModuleStructureInvalid, "",
				fmt.Sprintf("payload element %d is a %T, want object", i, item), nil)
		}
		form.Records = append(form.Records, rec)
	}
	return form, nil
}

// checksumTrailer reports whether v is exactly {"checksum": "<string>"}.
func checksumTrailer(v any) (string, bool) {
	obj, ok := v.(map[string]any)
	if !ok || len(obj) != 1 {
		return "", false
	}
	sum, ok := obj["checksum"].(string)
	return sum, ok
}
