package store

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is a single listing. The id is the only field the store
// interprets; everything else is kept as raw JSON so that whichever
// multilingual representation a writer chose (object-valued fields or
// _en/_ar/_tr suffixed fields) survives round-trips byte for byte.
type Record struct {
	ID     int64
	Fields map[string]json.RawMessage
}

// UnmarshalJSON decodes a listing object, splitting off the id.
func (r *Record) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	if idRaw, ok := raw["id"]; ok {
		id, err := parseID(idRaw)
		if err != nil {
			return err
		}
		r.ID = id
		delete(raw, "id")
	}
	r.Fields = raw
	return nil
}

// MarshalJSON re-assembles the listing object including its id.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.Fields)+1)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["id"] = json.RawMessage(strconv.FormatInt(r.ID, 10))
	return json.Marshal(out)
}

// Clone returns a copy whose field map can be mutated independently.
// Field values are shared and treated as read-only.
func (r Record) Clone() Record {
	fields := make(map[string]json.RawMessage, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return Record{ID: r.ID, Fields: fields}
}

// merged applies patch over the record. Patch fields win; a patch "id"
// is discarded so the stored id never changes.
func (r Record) merged(patch map[string]json.RawMessage) Record {
	out := r.Clone()
	for k, v := range patch {
		if k == "id" {
			continue
		}
		out.Fields[k] = v
	}
	return out
}

func parseID(raw json.RawMessage) (int64, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("record id is not a number: %w", err)
	}
	id, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return 0, fmt.Errorf("record id %q: %w", n.String(), err)
		}
		id = int64(f)
	}
	return id, nil
}
