package database

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseThreadsTSV reads tab separated "tag, post_id, title" rows. A first
// row whose post_id column is literally "post_id" is treated as a header.
// Blank lines are skipped.
func ParseThreadsTSV(r io.Reader) ([]Thread, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var threads []Thread
	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", row, err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) < 3 {
			return nil, fmt.Errorf("row %d: expected 3 columns (tag, post_id, title), got %d", row, len(record))
		}

		postField := strings.TrimSpace(record[1])
		if row == 1 && postField == "post_id" {
			continue
		}
		postID, err := strconv.ParseInt(postField, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid post_id %q: %w", row, postField, err)
		}

		threads = append(threads, Thread{
			Tag:    strings.TrimSpace(record[0]),
			PostID: postID,
			Title:  strings.TrimSpace(strings.Join(record[2:], " ")),
		})
	}
	return threads, nil
}
