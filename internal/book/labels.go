package book

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// Labels maps lower-cased subjects to display labels
type Labels map[string]string

// LoadLabels reads display labels from a CSV file. The subject column may be
// named "subject" or "topic", the label column "label" or "name". An optional
// "aliases" column lists further subjects, separated by "|", that share the
// label. Lines starting with '#' are comments. An empty path or a missing
// file yields no overrides.
func LoadLabels(path string) (Labels, error) {
	labels := make(Labels)
	if strings.TrimSpace(path) == "" {
		return labels, nil
	}

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return labels, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err == io.EOF {
		return labels, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	for i := range headers {
		headers[i] = normalizeSubject(headers[i])
	}

	subjectCol := column(headers, "subject", "topic")
	labelCol := column(headers, "label", "name")
	aliasCol := column(headers, "aliases")
	if subjectCol == -1 || labelCol == -1 {
		return nil, fmt.Errorf("read %s: need subject and label columns, got %v", path, headers)
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		label := strings.TrimSpace(field(record, labelCol))
		if label == "" {
			continue
		}
		subjects := []string{field(record, subjectCol)}
		if aliasCol != -1 {
			subjects = append(subjects, strings.Split(field(record, aliasCol), "|")...)
		}
		for _, s := range subjects {
			if s = normalizeSubject(s); s != "" {
				labels[s] = label
			}
		}
	}

	return labels, nil
}

// Label returns the display label for genre. Subjects such as
// "Monsters -- Fiction" fall back to their main heading before the
// title-cased form is used.
func (l Labels) Label(genre string) string {
	key := normalizeSubject(genre)
	if mapped, ok := l[key]; ok {
		return mapped
	}
	if head, _, found := strings.Cut(key, " -- "); found {
		if mapped, ok := l[strings.TrimSpace(head)]; ok {
			return mapped
		}
	}
	return GenreLabel(genre)
}

func normalizeSubject(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// column returns the index of the first header matching one of names
func column(headers []string, names ...string) int {
	for _, name := range names {
		if i := slices.Index(headers, name); i != -1 {
			return i
		}
	}
	return -1
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}
