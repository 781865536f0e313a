package dataset

import (
	"bufio"
	"errors"
	"fmt"

	"manhole-tracker/core/record"
	"manhole-tracker/core/utils"
)

// ErrPersistence matches every error returned by Save and SaveActive.
var ErrPersistence = errors.New("dataset: persistence failed")

// PersistenceError reports a failed save. The previous file is left untouched.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("save dataset %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrPersistence) hold.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// Save atomically writes every record of ds in canonical order.
func Save(path string, ds *record.Dataset, format Format) error {
	return write(path, ds.Sorted(), format)
}

// SaveActive atomically writes only the active records of ds.
func SaveActive(path string, ds *record.Dataset, format Format) error {
	return write(path, ds.Active(), format)
}

// Encode renders records in the given format without touching the filesystem.
func Encode(w *bufio.Writer, records []*record.Record, format Format) error {
	if format == FormatArray {
		return encodeArray(w, records)
	}
	return encodeLines(w, records)
}

func write(path string, records []*record.Record, format Format) error {
	err := utils.WriteFileAtomic(path, 0o644, func(w *bufio.Writer) error {
		return Encode(w, records, format)
	})
	if err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	return nil
}

// MarshalJSON is called directly: json.Marshal would re-escape <, > and &.
func encodeLines(w *bufio.Writer, records []*record.Record) error {
	for _, r := range records {
		line, err := r.MarshalJSON()
		if err != nil {
			return fmt.Errorf("encode record %s: %w", r.ID, err)
		}
		if _, err := w.Write(line); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

func encodeArray(w *bufio.Writer, records []*record.Record) error {
	if len(records) == 0 {
		_, err := w.WriteString("[]\n")
		return err
	}
	if _, err := w.WriteString("[\n"); err != nil {
		return err
	}
	for i, r := range records {
		line, err := r.MarshalJSON()
		if err != nil {
			return fmt.Errorf("encode record %s: %w", r.ID, err)
		}
		if _, err := w.WriteString("  "); err != nil {
			return err
		}
		if _, err := w.Write(line); err != nil {
			return err
		}
		sep := ",\n"
		if i == len(records)-1 {
			sep = "\n"
		}
		if _, err := w.WriteString(sep); err != nil {
			return err
		}
	}
	_, err := w.WriteString("]\n")
	return err
}
