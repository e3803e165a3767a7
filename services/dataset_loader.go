package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/itish2003/semsearch/models"
)

// Required CSV columns.
const (
	ColumnQuery  = "Query"
	ColumnAnswer = "Answer"
)

// DatasetLoader parses uploaded CSV files into bounded datasets.
type DatasetLoader struct {
	maxRows         int
	namespaceLength int
	logger          *zap.Logger
}

// NewDatasetLoader creates a loader keeping at most maxRows rows and deriving
// namespaces from the first namespaceLength characters of the file name.
func NewDatasetLoader(maxRows, namespaceLength int, logger *zap.Logger) *DatasetLoader {
	return &DatasetLoader{
		maxRows:         maxRows,
		namespaceLength: namespaceLength,
		logger:          logger.Named("loader"),
	}
}

// Load parses r as CSV with a header row containing Query and Answer columns.
// Rows beyond the limit are dropped; ids are zero-based row positions.
func (l *DatasetLoader) Load(r io.Reader, filename string) (*models.Dataset, error) {
	namespace, err := l.Namespace(filename)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %s is empty", ErrMalformedInput, filename)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: could not parse header of %s: %v", ErrMalformedInput, filename, err)
	}

	queryCol, answerCol := -1, -1
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch name {
		case ColumnQuery:
			queryCol = i
		case ColumnAnswer:
			answerCol = i
		}
	}
	if queryCol < 0 || answerCol < 0 {
		return nil, fmt.Errorf("%w: %s must have %q and %q columns", ErrMalformedInput, filename, ColumnQuery, ColumnAnswer)
	}

	records := make([]models.Record, 0, l.maxRows)
	dropped := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: could not parse %s: %v", ErrMalformedInput, filename, err)
		}
		if len(records) >= l.maxRows {
			dropped++
			continue
		}
		records = append(records, models.Record{
			ID:     strconv.Itoa(len(records)),
			Query:  row[queryCol],
			Answer: row[answerCol],
		})
	}

	if dropped > 0 {
		l.logger.Debug("dropped rows beyond limit",
			zap.String("file", filename),
			zap.Int("max_rows", l.maxRows),
			zap.Int("dropped", dropped))
	}
	l.logger.Info("dataset loaded",
		zap.String("file", filename),
		zap.String("namespace", namespace),
		zap.Int("rows", len(records)))

	return models.NewDataset(filename, namespace, records, dropped), nil
}

// Namespace derives the index namespace from the first characters of the file
// name. Files sharing that prefix share a namespace.
func (l *DatasetLoader) Namespace(filename string) (string, error) {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("%w: file name is required", ErrMalformedInput)
	}
	runes := []rune(base)
	if len(runes) > l.namespaceLength {
		runes = runes[:l.namespaceLength]
	}
	return string(runes), nil
}
