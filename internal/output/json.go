package output

import (
	"bufio"
	"encoding/json"
	"io"
)

// JSONWriter writes the report as one JSON document.
type JSONWriter struct {
	w      *bufio.Writer
	pretty bool
	indent string
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{
		w:      bufio.NewWriter(w),
		pretty: pretty,
		indent: indent,
	}
}

// WriteReport encodes r followed by a newline.
func (w *JSONWriter) WriteReport(r *Report) error {
	var output []byte
	var err error

	if w.pretty {
		output, err = json.MarshalIndent(r, "", w.indent)
	} else {
		output, err = json.Marshal(r)
	}
	if err != nil {
		return err
	}

	if _, err := w.w.Write(output); err != nil {
		return err
	}
	if _, err := w.w.WriteString("\n"); err != nil {
		return err
	}
	return w.w.Flush()
}

// JSONLWriter writes newline-delimited JSON (JSONL): one line per document,
// one per failure, then a summary line.
type JSONLWriter struct {
	w *bufio.Writer
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return &JSONLWriter{
		w: bufio.NewWriter(w),
	}
}

// WriteReport writes every record of r as its own line.
func (w *JSONLWriter) WriteReport(r *Report) error {
	for _, record := range r.Records() {
		if err := w.writeLine(record); err != nil {
			return err
		}
	}
	return w.w.Flush()
}

func (w *JSONLWriter) writeLine(data any) error {
	output, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(output); err != nil {
		return err
	}
	_, err = w.w.WriteString("\n")
	return err
}
