// Package importer reads raw job postings from exports and documents and restructures them
// into canonical fields.
package importer

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/hyperjump/jobnorm/internal/models"
)

// ErrUnsupportedFormat is returned by LoadFile for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// fieldTerminator is appended to every copied source value.
const fieldTerminator = ` \\`

// fieldMapping lists source keys and the canonical field they feed, in the order values are
// appended.
var fieldMapping = []struct {
	source, field string
}{
	{"pdate", "date"},
	{"company", "company"},
	{"com", "company"},
	{"pos", "title"},
	{"pos2", "title"},
	{"posth", "title"},
	{"desc", "desc"},
	{"resp", "desc"},
	{"req", "desc"},
	{"func", "desc"},
	{"skill_pref", "desc"},
	{"skill_req", "desc"},
	{"edu", "qualification"},
	{"qual", "qualification"},
	{"district", "location"},
	{"loc_det", "location"},
	{"province", "location"},
	{"com_loc", "location"},
	{"loc", "location"},
	{"location", "location"},
	{"exp_req", "experience"},
	{"exp_pref", "experience"},
	{"exp", "experience"},
	{"age", "age"},
	{"amnt", "amount"},
	{"benef", "benefits"},
	{"sal", "salary"},
	{"sex", "gender"},
}

// Fields returns the canonical field names in sorted order.
func Fields() []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range fieldMapping {
		if !seen[m.field] {
			seen[m.field] = true
			out = append(out, m.field)
		}
	}
	sort.Strings(out)
	return out
}

func field(p *models.Posting, name string) *string {
	switch name {
	case "date":
		return &p.Date
	case "company":
		return &p.Company
	case "title":
		return &p.Title
	case "desc":
		return &p.Desc
	case "qualification":
		return &p.Qualification
	case "location":
		return &p.Location
	case "experience":
		return &p.Experience
	case "age":
		return &p.Age
	case "amount":
		return &p.Amount
	case "benefits":
		return &p.Benefits
	case "salary":
		return &p.Salary
	case "gender":
		return &p.Gender
	}
	return nil
}

// ReadRaw decodes raw postings. The input may be a JSON array of objects or a stream of
// JSON objects written back to back, one per line or not.
func ReadRaw(r io.Reader) ([]map[string]any, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read raw postings: %w", err)
	}

	dec := json.NewDecoder(br)
	dec.UseNumber()

	if first == '[' {
		var docs []map[string]any
		if err := dec.Decode(&docs); err != nil {
			return nil, fmt.Errorf("decode posting array: %w", err)
		}
		return docs, nil
	}

	var docs []map[string]any
	for {
		var doc map[string]any
		err := dec.Decode(&doc)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode posting %d: %w", len(docs)+1, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

// stringify renders a decoded JSON value. Null yields ok=false.
func stringify(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			if s, ok := stringify(e); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " "), true
	default:
		return fmt.Sprint(x), true
	}
}

// Restructure maps raw records onto canonical posting fields. Every present source value
// is appended to its field followed by " \\", so fields fed by several source keys keep
// all of them. Missing fields stay empty and the date is normalized. A "label" key is
// copied as is. Postings without an "id" get a fresh UUID.
func Restructure(raw []map[string]any) []*models.Posting {
	out := make([]*models.Posting, 0, len(raw))
	for _, doc := range raw {
		p := &models.Posting{}
		for _, m := range fieldMapping {
			v, ok := doc[m.source]
			if !ok {
				continue
			}
			s, ok := stringify(v)
			if !ok {
				continue
			}
			f := field(p, m.field)
			*f += s + fieldTerminator
		}
		p.Date = NormalizeDate(p.Date)
		if label, ok := stringify(doc["label"]); ok {
			p.Label = label
		}
		if id, ok := stringify(doc["id"]); ok && id != "" {
			p.ID = id
		} else {
			p.ID = uuid.NewString()
		}
		out = append(out, p)
	}
	return out
}

// FromDocument builds a raw record from an extracted document: the file base name becomes
// the position title and the text the description.
func FromDocument(name, text string) map[string]any {
	base := filepath.Base(name)
	return map[string]any{
		"pos":  strings.TrimSuffix(base, filepath.Ext(base)),
		"desc": text,
	}
}

// LoadFile reads postings from path, dispatching on its extension.
func LoadFile(path string) ([]*models.Posting, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, err
	}
	return Restructure(raw), nil
}

// LoadRaw reads raw records from path without restructuring them.
func LoadRaw(path string) ([]map[string]any, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json", ".jsonl":
		return ReadRaw(bytes.NewReader(content))
	case ".xlsx":
		return ReadExcel(bytes.NewReader(content))
	}

	var text string
	switch ext {
	case ".pdf":
		text, err = ReadPDF(content)
	case ".docx":
		text, err = ReadDOCX(content)
	case ".txt", ".md":
		text = readPlain(content)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	return []map[string]any{FromDocument(path, text)}, nil
}
