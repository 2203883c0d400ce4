package fileutil

import (
	"bytes"
	"encoding/json"
	"os"
)

func EncodeJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// AppendJSONL appends one line per record to path, creating it if needed.
func AppendJSONL[T any](path string, records ...T) error {
	data, err := EncodeJSONL(records)
	if err != nil {
		return err
	}
	if err := EnsureDir(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
