package documents

import (
	"fmt"
	"strconv"
	"strings"
)

const codeSuffixWidth = 4

// nextInSeries computes the successor of the greatest existing code in a
// series. An empty lastCode starts the series at 0001. A malformed suffix
// also restarts the series rather than failing the whole posting.
func nextInSeries(lastCode, prefix string) string {
	if lastCode == "" || !strings.HasPrefix(lastCode, prefix) {
		return prefix + fmt.Sprintf("%0*d", codeSuffixWidth, 1)
	}
	suffix := strings.TrimPrefix(lastCode, prefix)
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return prefix + fmt.Sprintf("%0*d", codeSuffixWidth, 1)
	}
	return prefix + fmt.Sprintf("%0*d", codeSuffixWidth, n+1)
}
