package loggery

import (
	"encoding/json"
	"time"
)

// Record is one logged event. Records are built once by the publisher
// and never mutated afterwards; everything downstream works on copies.
type Record struct {
	Level   Level
	Time    time.Time
	Message string
	Seq     uint64
}

// wireRecord is the JSON shape records travel in. Timestamps are unix
// milliseconds so every client decodes them the same way.
type wireRecord struct {
	Level   string `json:"level"`
	TS      int64  `json:"ts"`
	Message string `json:"msg"`
	Seq     uint64 `json:"seq"`
}

// MarshalJSON encodes the record in its wire shape.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRecord{
		Level:   r.Level.String(),
		TS:      r.Time.UnixMilli(),
		Message: r.Message,
		Seq:     r.Seq,
	})
}

// UnmarshalJSON decodes the wire shape back into a record. Unknown
// level names fall back to Trace so a stream from a newer writer still
// renders.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Level = ParseLevelDefault(w.Level, LevelTrace)
	r.Time = time.UnixMilli(w.TS)
	r.Message = w.Message
	r.Seq = w.Seq
	return nil
}
