package ranger

import "sort"

// scatterBlockSize is the read-block size used while streaming a full
// response body into the per-range buffers.
const scatterBlockSize = 32 * 1024

// scatterFullBody implements FullBodyScatterer (spec.md section 4.5):
// stream the entire response body once and scatter-copy bytes into the
// per-range buffers using a sorted interval index with two monotonically
// advancing cursors. The sorted array + two-cursor approach is the
// alternative spec.md's design notes explicitly endorse in place of the
// original's std::multimap.
func scatterFullBody(req HTTPRequest, inputs []RangeRequest) ([]RangeResult, int64, error) {
	entries := make([]*intervalEntry, len(inputs))
	results := make([]RangeResult, len(inputs))
	for i, in := range inputs {
		results[i].Buffer = in.Buffer
		entries[i] = &intervalEntry{index: i, offset: in.Offset, size: in.Size, buffer: in.Buffer}
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].offset < entries[b].offset })

	start, end := 0, 0
	var pos uint64
	buf := make([]byte, scatterBlockSize)

	for {
		n, err := req.ReadBlock(buf)
		if err != nil {
			return nil, 0, errTransport(err)
		}
		if n == 0 {
			break
		}
		block := buf[:n]

		// Advance start: entries fully past the current window drop out.
		for start < len(entries) && pos > entries[start].offset+entries[start].size {
			start++
		}
		// Advance end: entries whose range has begun enter the window.
		for end < len(entries) && pos+uint64(n) > entries[end].offset {
			end++
		}

		for _, e := range entries[start:end] {
			if e.bytesWritten >= e.size {
				continue
			}
			writeCursor := e.offset + e.bytesWritten
			if writeCursor < pos || writeCursor >= pos+uint64(n) {
				continue
			}
			readOffsetInBlock := writeCursor - pos
			remaining := e.size - e.bytesWritten
			avail := uint64(n) - readOffsetInBlock
			copyLen := remaining
			if avail < copyLen {
				copyLen = avail
			}
			copy(e.buffer[e.bytesWritten:e.bytesWritten+copyLen], block[readOffsetInBlock:readOffsetInBlock+copyLen])
			e.bytesWritten += copyLen
			results[e.index].Size = e.bytesWritten
		}

		pos += uint64(n)
	}

	var total int64
	for _, e := range entries {
		total += int64(e.bytesWritten)
	}
	return results, total, nil
}
