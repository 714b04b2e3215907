package io

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const (
	COMMENT = "#" // Starts a comment in a program image.
)

// Load reads a `.ls8` program image.
//
// Each line holds one or more memory cells as 8-digit binary literals
// separated by spaces, optionally followed by a '#' comment. Blank and
// comment-only lines are skipped.
// The cells are returned in file order, to be placed from address 0.
func Load(input io.Reader) (data []byte, err error) {
	scanner := bufio.NewScanner(input)

	var lineno int
	for scanner.Scan() {
		text := scanner.Text()
		lineno++

		line, _, _ := strings.Cut(text, COMMENT)
		line = strings.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		for _, word := range strings.Fields(line) {
			if len(word) != 8 {
				err = &ErrSyntax{LineNo: lineno, Line: text, Err: ErrNotBinary}
				return
			}

			var value uint64
			value, err = strconv.ParseUint(word, 2, 8)
			if err != nil {
				err = &ErrSyntax{LineNo: lineno, Line: text, Err: ErrNotBinary}
				return
			}

			data = append(data, byte(value))
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if len(data) == 0 {
		err = ErrProgramEmpty
		return
	}

	return
}

// LoadFile reads a `.ls8` program image from a file.
func LoadFile(path string) (data []byte, err error) {
	inf, err := os.Open(path)
	if err != nil {
		return
	}
	defer inf.Close()

	data, err = Load(inf)
	if err != nil {
		err = fmt.Errorf("%v: %w", path, err)
	}
	return
}

// Save writes data as a `.ls8` program image, one cell per line.
// comment, if not nil, supplies an optional comment for each address.
func Save(output io.Writer, data []byte, comment func(addr int) string) (err error) {
	wr := bufio.NewWriter(output)
	for addr, value := range data {
		line := fmt.Sprintf("%08b", value)
		if comment != nil {
			text := comment(addr)
			if len(text) != 0 {
				line += " " + COMMENT + " " + text
			}
		}
		_, err = fmt.Fprintln(wr, line)
		if err != nil {
			return
		}
	}

	err = wr.Flush()
	return
}
