// Package participants reads participant lists.
package participants

import (
	"bufio"
	"io"
	"os"
)

// maxLineBytes bounds a single line of the list
const maxLineBytes = 1 << 20

// Read loads the participant list at path.
// Each line is one name; an empty line is an empty name.
func Read(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		msg := "failed to open participant list"
		if os.IsNotExist(err) {
			msg = "participant list not found"
		}
		return nil, &ReadError{Path: path, Message: msg, Cause: err}
	}
	defer func() { _ = f.Close() }()

	names, err := Parse(f)
	if err != nil {
		return nil, &ReadError{Path: path, Message: "failed to read participant list", Cause: err}
	}
	return names, nil
}

// Parse splits r into names, one per line. Trailing "\n" and "\r\n" are
// stripped and a final newline does not add an empty entry. No other
// trimming happens.
func Parse(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)

	names := []string{}
	for scanner.Scan() {
		names = append(names, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return names, nil
}
