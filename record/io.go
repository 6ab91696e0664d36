package record

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Format is an on-disk dataset layout.
type Format string

const (
	FormatAuto  Format = ""
	FormatJSONL Format = "jsonl" // one object per line
	FormatJSON  Format = "json"  // a single array of objects
)

// Dataset is the result of reading a record source.
type Dataset struct {
	// Fields holds every field name in order of first appearance; the
	// identifier key is not included.
	Fields  []string
	Records []*Record
	IDKey   string
}

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".jsonl", ".ndjson":
		return FormatJSONL
	default:
		return FormatAuto
	}
}

// ReadFile reads a dataset from path.
func ReadFile(path, idKey string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	ds, err := Read(f, FormatFromPath(path), idKey)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ds, nil
}

// Read decodes records from r. Records without an identifier under idKey get
// their zero-based position in the stream.
func Read(r io.Reader, format Format, idKey string) (*Dataset, error) {
	if idKey == "" {
		idKey = DefaultIDKey
	}
	br := bufio.NewReader(r)
	if format == FormatAuto {
		format = sniff(br)
	}

	ds := &Dataset{IDKey: idKey}
	seen := make(map[string]bool)
	dec := json.NewDecoder(br)
	dec.UseNumber()

	if format == FormatJSON {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return ds, nil
			}
			return nil, err
		}
		if d, ok := tok.(json.Delim); !ok || d != '[' {
			return nil, fmt.Errorf("expected a JSON array of records")
		}
	}

	for pos := int64(0); ; pos++ {
		if format == FormatJSON && !dec.More() {
			break
		}
		keys, vals, err := decodeObject(dec)
		if err == io.EOF && format != FormatJSON {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", pos, err)
		}

		rec := &Record{ID: pos, Fields: make(map[string]Value, len(keys))}
		for _, k := range keys {
			raw := vals[k]
			if k == idKey {
				id, err := parseID(raw)
				if err != nil {
					return nil, fmt.Errorf("record %d: %w", pos, err)
				}
				rec.ID = id
				continue
			}
			var v Value
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, fmt.Errorf("record %d field %q: %w", pos, k, err)
			}
			rec.Fields[k] = v
			if !seen[k] {
				seen[k] = true
				ds.Fields = append(ds.Fields, k)
			}
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

// sniff peeks at the first non-space byte: '[' means a JSON array.
func sniff(br *bufio.Reader) Format {
	for i := 1; ; i++ {
		b, err := br.Peek(i)
		if err != nil || len(b) < i {
			return FormatJSONL
		}
		switch c := b[i-1]; c {
		case ' ', '\t', '\r', '\n':
			continue
		case '[':
			return FormatJSON
		default:
			return FormatJSONL
		}
	}
}

// decodeObject reads one JSON object keeping its key order.
func decodeObject(dec *json.Decoder) ([]string, map[string]json.RawMessage, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected a JSON object, got %v", tok)
	}
	var keys []string
	vals := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected an object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, err
		}
		if _, dup := vals[key]; !dup {
			keys = append(keys, key)
		}
		vals[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, vals, nil
}

func parseID(raw json.RawMessage) (int64, error) {
	s := strings.Trim(string(bytes.TrimSpace(raw)), `"`)
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("identifier %s is not an integer", string(raw))
	}
	return id, nil
}

// Encode renders rec as a JSON object with fields in the given order and the
// identifier last.
func Encode(rec *Record, fields []string, idKey string) ([]byte, error) {
	if idKey == "" {
		idKey = DefaultIDKey
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	writeKV := func(k string, v any) error {
		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		return nil
	}
	for _, f := range fields {
		v, ok := rec.Fields[f]
		if !ok {
			continue
		}
		if err := writeKV(f, v); err != nil {
			return nil, err
		}
	}
	if err := writeKV(idKey, rec.ID); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Write encodes records to w in the given format.
func Write(w io.Writer, format Format, records []*Record, fields []string, idKey string) error {
	bw := bufio.NewWriter(w)
	if format == FormatJSON {
		bw.WriteString("[\n")
	}
	for i, rec := range records {
		b, err := Encode(rec, fields, idKey)
		if err != nil {
			return fmt.Errorf("record %d: %w", rec.ID, err)
		}
		if format == FormatJSON {
			bw.WriteString("  ")
		}
		bw.Write(b)
		if format == FormatJSON && i < len(records)-1 {
			bw.WriteByte(',')
		}
		bw.WriteByte('\n')
	}
	if format == FormatJSON {
		bw.WriteString("]\n")
	}
	return bw.Flush()
}

// WriteFile writes records to path, picking the format from the extension
// (JSONL when unknown).
func WriteFile(path string, records []*Record, fields []string, idKey string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	format := FormatFromPath(path)
	if format == FormatAuto {
		format = FormatJSONL
	}
	if err := Write(f, format, records, fields, idKey); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
