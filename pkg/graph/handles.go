package graph

import (
	"fmt"
	"strconv"
	"strings"
)

// InputHandle builds the canonical handle id for input port i.
func InputHandle(i int) string {
	return fmt.Sprintf("in_%d", i)
}

// OutputHandle builds the canonical handle id for output port i.
func OutputHandle(i int) string {
	return fmt.Sprintf("out_%d", i)
}

// HandleIndex parses the zero-based port index encoded as the numeric
// suffix of a handle id, e.g. "in_3" -> 3. A missing, non-numeric or
// negative suffix resolves to index 0 so malformed handles degrade to the
// first port instead of failing the run.
func HandleIndex(handle string) int {
	sep := strings.LastIndexByte(handle, '_')
	if sep < 0 || sep == len(handle)-1 {
		return 0
	}
	idx, err := strconv.Atoi(handle[sep+1:])
	if err != nil || idx < 0 {
		return 0
	}
	return idx
}
