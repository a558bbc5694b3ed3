package downloader

import "bytes"

// MaxLineBytes bounds a single output line.
const MaxLineBytes = 1024 * 1024

// ScanOutputLines is a bufio.SplitFunc that ends a line at '\n' or '\r'.
// The tool redraws its progress bar in place with carriage returns, so a
// plain line scanner would only see the bar once the download finished.
func ScanOutputLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
