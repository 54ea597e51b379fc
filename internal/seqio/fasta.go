// Package seqio reads FASTA sequence files.
package seqio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Record is one FASTA entry.
type Record struct {
	Name        string
	Description string
	Seq         string
}

// Reader parses FASTA records from a stream.
type Reader struct {
	sc      *bufio.Scanner
	line    int
	pending string // header read ahead of the current record
	hasNext bool
}

// NewReader returns a Reader over r. Lines longer than 16 MiB are rejected.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &Reader{sc: sc}
}

// Read returns the next record, or io.EOF after the last one.
func (r *Reader) Read() (Record, error) {
	header := r.pending
	found := r.hasNext
	r.pending, r.hasNext = "", false

	for !found && r.sc.Scan() {
		r.line++
		text := strings.TrimSpace(r.sc.Text())
		if text == "" {
			continue
		}
		if !strings.HasPrefix(text, ">") {
			return Record{}, fmt.Errorf("line %d: sequence data before first header", r.line)
		}
		header, found = text, true
	}
	if !found {
		if err := r.sc.Err(); err != nil {
			return Record{}, fmt.Errorf("failed to read FASTA: %w", err)
		}
		return Record{}, io.EOF
	}

	rec := parseHeader(header)
	var seq strings.Builder
	for r.sc.Scan() {
		r.line++
		text := strings.TrimSpace(r.sc.Text())
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, ">") {
			r.pending, r.hasNext = text, true
			break
		}
		seq.WriteString(strings.Join(strings.Fields(text), ""))
	}
	if err := r.sc.Err(); err != nil {
		return Record{}, fmt.Errorf("failed to read FASTA: %w", err)
	}
	rec.Seq = seq.String()
	return rec, nil
}

func parseHeader(line string) Record {
	fields := strings.TrimSpace(strings.TrimPrefix(line, ">"))
	name, desc, _ := strings.Cut(fields, " ")
	if i := strings.IndexByte(name, '\t'); i >= 0 {
		name, desc = name[:i], name[i+1:]+" "+desc
	}
	return Record{Name: name, Description: strings.TrimSpace(desc)}
}

// ReadAll reads every record from r.
func ReadAll(r io.Reader) ([]Record, error) {
	fr := NewReader(r)
	var recs []Record
	for {
		rec, err := fr.Read()
		if err == io.EOF {
			return recs, nil
		}
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
}

// ReadFile reads every record in the named file.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sequence file: %w", err)
	}
	defer f.Close()

	recs, err := ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

// Write writes records in FASTA format with lines of width residues.
func Write(w io.Writer, recs []Record, width int) error {
	if width < 1 {
		width = 60
	}
	bw := bufio.NewWriter(w)
	for _, rec := range recs {
		if rec.Description != "" {
			fmt.Fprintf(bw, ">%s %s\n", rec.Name, rec.Description)
		} else {
			fmt.Fprintf(bw, ">%s\n", rec.Name)
		}
		for i := 0; i < len(rec.Seq); i += width {
			end := min(i+width, len(rec.Seq))
			bw.WriteString(rec.Seq[i:end])
			bw.WriteByte('\n')
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write FASTA: %w", err)
	}
	return nil
}
