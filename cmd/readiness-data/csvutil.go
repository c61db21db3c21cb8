package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

func openCSV(path string) (*csv.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	br := bufio.NewReader(f)
	br = stripUTF8BOM(br)

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	return r, f.Close, nil
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}

func readHeader(r *csv.Reader, expected []string) error {
	h, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return fmt.Errorf("missing header")
		}
		return err
	}
	if len(h) != len(expected) {
		return fmt.Errorf("expected header %v, got %v", expected, h)
	}
	for i, col := range expected {
		if strings.TrimSpace(strings.ToLower(h[i])) != col {
			return fmt.Errorf("expected header column %q at position %d, got %q", col, i, h[i])
		}
	}
	return nil
}
