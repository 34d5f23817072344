// If you are AI: This file summarizes capture files for the inspect command.

package capture

import (
	"io"
	"time"
)

// KindStats counts records of one kind.
type KindStats struct {
	Records int   `json:"records"`
	Bytes   int64 `json:"bytes"`
	MinSize int   `json:"min_size"`
	MaxSize int   `json:"max_size"`
}

// Summary describes a whole capture.
type Summary struct {
	Records  int                   `json:"records"`
	Kinds    map[string]*KindStats `json:"kinds"`
	Gaps     int                   `json:"sequence_gaps"`
	First    time.Time             `json:"first"`
	Last     time.Time             `json:"last"`
	Duration time.Duration         `json:"duration"`
}

// Summarize reads every record from r.
// Gaps counts media records whose sequence does not follow the previous one.
func Summarize(r *Reader) (*Summary, error) {
	s := &Summary{Kinds: make(map[string]*KindStats)}
	var lastSeq uint32
	haveSeq := false

	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return s, err
		}
		s.Records++
		if s.First.IsZero() || rec.At.Before(s.First) {
			s.First = rec.At
		}
		if rec.At.After(s.Last) {
			s.Last = rec.At
		}

		k := s.Kinds[rec.Kind]
		if k == nil {
			k = &KindStats{MinSize: rec.Size}
			s.Kinds[rec.Kind] = k
		}
		k.Records++
		k.Bytes += int64(rec.Size)
		k.MinSize = min(k.MinSize, rec.Size)
		k.MaxSize = max(k.MaxSize, rec.Size)

		if rec.Kind != "media" {
			continue
		}
		if haveSeq && rec.Sequence != lastSeq+1 {
			s.Gaps++
		}
		lastSeq, haveSeq = rec.Sequence, true
	}
	if !s.First.IsZero() {
		s.Duration = s.Last.Sub(s.First)
	}
	return s, nil
}
