package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Document is the store-facing representation of a record.
type Document map[string]any

// Family names the logical collection a record belongs to.
type Family string

const (
	FamilyRaw       Family = "raw"
	FamilyShots     Family = "shots"
	FamilyShotsMeta Family = "shots_meta"
)

var docNamespace = uuid.MustParse("6f1c8e2a-3b7d-4c5e-9a1f-2d4b6c8e0a13")

// DocID derives a stable identifier so repeated inserts of the same record
// collapse into one row.
func DocID(runID string, family Family, key uint64) string {
	return uuid.NewSHA1(docNamespace, []byte(fmt.Sprintf("%s/%s/%d", runID, family, key))).String()
}

// ToDocument flattens a raw sample; channel values become top-level keys.
func (s RawSample) ToDocument(runID string) Document {
	doc := make(Document, len(s.Values)+3)
	for k, v := range s.Values {
		doc[k] = v
	}
	doc["doc_id"] = DocID(runID, FamilyRaw, s.Seq)
	doc["sequential_number"] = s.Seq
	doc["timestamp"] = s.Timestamp
	return doc
}

// ToDocument flattens a cut-out sample.
func (c CutOutSample) ToDocument(runID string) Document {
	doc := make(Document, len(c.Values)+6)
	for k, v := range c.Values {
		doc[k] = v
	}
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	doc["doc_id"] = DocID(runID, FamilyShots, c.Seq)
	doc["sequential_number"] = c.Seq
	doc["timestamp"] = c.Timestamp
	doc["shot_number"] = c.ShotNumber
	doc["sequential_number_by_shot"] = c.SeqByShot
	doc["tags"] = tags
	return doc
}

// ToDocument renders the shot metadata record.
func (s ShotSummary) ToDocument(runID string) Document {
	var spm any
	if s.SPM != nil {
		spm = *s.SPM
	}
	return Document{
		"doc_id":                    DocID(runID, FamilyShotsMeta, s.ShotNumber),
		"shot_number":               s.ShotNumber,
		"timestamp":                 s.StartTimestamp,
		"end_timestamp":             s.EndTimestamp,
		"num_of_samples_in_cut_out": s.SampleCount,
		"spm":                       spm,
	}
}

// RawSampleFromDocument rebuilds a raw sample read back from the store.
// Keys outside channels are ignored.
func RawSampleFromDocument(doc Document, channels []string) (RawSample, error) {
	seq, err := asUint(doc["sequential_number"])
	if err != nil {
		return RawSample{}, fmt.Errorf("sequential_number: %w", err)
	}
	ts, err := asFloat(doc["timestamp"])
	if err != nil {
		return RawSample{}, fmt.Errorf("timestamp: %w", err)
	}
	values := make(map[string]float64, len(channels))
	for _, ch := range channels {
		raw, ok := doc[ch]
		if !ok {
			continue
		}
		v, err := asFloat(raw)
		if err != nil {
			return RawSample{}, fmt.Errorf("channel %s: %w", ch, err)
		}
		values[ch] = v
	}
	return RawSample{Seq: seq, Timestamp: ts, Values: values}, nil
}

func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func asUint(v any) (uint64, error) {
	switch n := v.(type) {
	case float64:
		return uint64(n), nil
	case int:
		return uint64(n), nil
	case int64:
		return uint64(n), nil
	case uint64:
		return n, nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
