// If you are AI: This file implements the greedy audio/video stream selection.

package asf

// SelectStreams marks the streams the player will request and returns the
// total bitrate of the selection. A zero maxBitrate means no cap.
//
// Without all, each wanted category keeps one stream chosen in a single pass
// over stream numbers 1..127. The first candidate of a category is always
// taken. A later candidate replaces it when it has a strictly higher bitrate
// and the total stays under the cap, or a strictly lower bitrate while the
// total is over the cap. The pass is greedy and not optimal for the cap.
func SelectStreams(h *Header, maxBitrate int, all, audio, video bool) int {
	if all {
		total := 0
		for i := 1; i < MaxStreams; i++ {
			s := &h.Streams[i]
			s.Selected = s.Category != CategoryUnknown
			if s.Selected && s.Bitrate > 0 {
				total += int(s.Bitrate)
			}
		}
		return total
	}

	for i := range h.Streams {
		h.Streams[i].Selected = false
	}

	current := map[Category]int{}
	total := 0
	for i := 1; i < MaxStreams; i++ {
		s := &h.Streams[i]
		switch s.Category {
		case CategoryAudio:
			if !audio {
				continue
			}
		case CategoryVideo:
			if !video {
				continue
			}
		default:
			continue
		}

		cur, ok := current[s.Category]
		if ok && !replaces(s.Bitrate, h.Streams[cur].Bitrate, total, maxBitrate) {
			continue
		}
		if ok {
			h.Streams[cur].Selected = false
			total -= positive(h.Streams[cur].Bitrate)
		}
		s.Selected = true
		total += positive(s.Bitrate)
		current[s.Category] = i
	}
	return total
}

// replaces reports whether a candidate bitrate should displace the current one.
func replaces(candidate, current int32, total, maxBitrate int) bool {
	if candidate > current {
		return maxBitrate == 0 || total+positive(candidate)-positive(current) < maxBitrate
	}
	if candidate < current {
		return maxBitrate != 0 && total > maxBitrate
	}
	return false
}

// positive returns the bitrate counted toward the total; unknown counts as zero.
func positive(bitrate int32) int {
	if bitrate > 0 {
		return int(bitrate)
	}
	return 0
}

// SelectByIndex selects exactly the listed stream numbers and returns the
// selected total bitrate. Numbers outside 1..127 or with an unknown category
// are ignored.
func SelectByIndex(h *Header, indices []int) int {
	for i := range h.Streams {
		h.Streams[i].Selected = false
	}
	total := 0
	for _, i := range indices {
		if i < 1 || i >= MaxStreams {
			continue
		}
		s := &h.Streams[i]
		if s.Category == CategoryUnknown || s.Selected {
			continue
		}
		s.Selected = true
		total += positive(s.Bitrate)
	}
	return total
}
