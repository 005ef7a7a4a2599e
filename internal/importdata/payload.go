// Package importdata assembles the payload of a Relatics Import call: the
// data file (or generated XML table), optional attached documents, zip
// packaging, and the base64 encoding the webservice expects in the Data
// argument.
package importdata

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/beevik/etree"
)

// ErrUnsupportedExtension indicates a data file whose extension is not in
// SupportedExtensions. Use errors.Is() to check for it.
var ErrUnsupportedExtension = errors.New("unsupported data file extension")

// DefaultBasename is used for the Filename argument when the caller does not
// supply one. It ends up in the "Imported file" column of the import log.
const DefaultBasename = "go-relatics"

// SupportedExtensions lists the data file types the Relatics import accepts.
var SupportedExtensions = []string{"xlsx", "xlsm", "xlsb", "xls", "csv"}

// Row is a single import row: column name to cell value.
type Row map[string]string

// Payload is the assembled Data/Filename pair of an Import call.
type Payload struct {
	basename  string
	extension string
	data      []byte

	// sourceName is the on-disk name of a file-based payload. Inside a
	// documents archive the data file keeps this name even when the
	// reported filename is overridden.
	sourceName string
}

// FromRows builds a payload from in-memory rows. Each row becomes a Row
// element whose attributes are the column values:
//
//	<Import><Row name="Object 1" description="..."/></Import>
//
// Attributes are written in sorted column order so the generated document is
// deterministic.
func FromRows(rows []Row) (*Payload, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows supplied")
	}

	doc := etree.NewDocument()
	root := doc.CreateElement("Import")

	for _, row := range rows {
		elem := root.CreateElement("Row")

		columns := make([]string, 0, len(row))
		for column := range row {
			columns = append(columns, column)
		}
		sort.Strings(columns)

		for _, column := range columns {
			elem.CreateAttr(column, row[column])
		}
	}

	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize import rows: %w", err)
	}

	return &Payload{
		basename:  DefaultBasename,
		extension: "xml",
		data:      data,
	}, nil
}

// FromFile builds a payload from a data file on disk. The file extension
// must be one of SupportedExtensions.
func FromFile(path string) (*Payload, error) {
	if path == "" {
		return nil, fmt.Errorf("no data file supplied")
	}

	extension := strings.TrimPrefix(filepath.Ext(path), ".")
	if !isSupportedExtension(extension) {
		return nil, fmt.Errorf("%w %q (supported: %s)",
			ErrUnsupportedExtension, extension, strings.Join(SupportedExtensions, ", "))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}

	return &Payload{
		basename:   cleanBasename(path),
		extension:  strings.ToLower(extension),
		data:       data,
		sourceName: filepath.Base(path),
	}, nil
}

func isSupportedExtension(extension string) bool {
	for _, supported := range SupportedExtensions {
		if strings.EqualFold(extension, supported) {
			return true
		}
	}
	return false
}

// cleanBasename strips any directory part and extension from a filename.
func cleanBasename(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SetBasename overrides the filename reported to Relatics. Any path and
// extension are stripped; the extension is always derived from the payload
// contents.
func (p *Payload) SetBasename(name string) {
	if name == "" {
		return
	}
	p.basename = cleanBasename(name)
}

// Filename returns the name sent in the Filename argument.
func (p *Payload) Filename() string {
	return p.basename + "." + p.extension
}

// Bytes returns the raw payload contents.
func (p *Payload) Bytes() []byte {
	return p.data
}

// Encode returns the payload as the base64 string sent in the Data argument.
func (p *Payload) Encode() string {
	return base64.StdEncoding.EncodeToString(p.data)
}

// AttachDocuments packs the payload and the given document files into a zip
// archive: documents under Documents/<basename>, the data file at the root.
// The payload extension becomes "zip". Relatics resolves import references
// against the Documents/ folder.
func (p *Payload) AttachDocuments(paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	var buf bytes.Buffer
	archive := zip.NewWriter(&buf)

	for _, path := range paths {
		contents, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read document: %w", err)
		}

		entry, err := archive.Create("Documents/" + filepath.Base(path))
		if err != nil {
			return fmt.Errorf("failed to add document to archive: %w", err)
		}
		if _, err := entry.Write(contents); err != nil {
			return fmt.Errorf("failed to write document to archive: %w", err)
		}
	}

	dataName := p.sourceName
	if dataName == "" {
		dataName = p.Filename()
	}
	entry, err := archive.Create(dataName)
	if err != nil {
		return fmt.Errorf("failed to add data file to archive: %w", err)
	}
	if _, err := entry.Write(p.data); err != nil {
		return fmt.Errorf("failed to write data file to archive: %w", err)
	}

	if err := archive.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}

	p.data = buf.Bytes()
	p.extension = "zip"
	return nil
}

// WriteDebugCopy writes the payload to the temp directory and returns the
// path. Used to inspect generated zip archives.
func (p *Payload) WriteDebugCopy() (string, error) {
	path := filepath.Join(os.TempDir(), p.Filename())
	if err := os.WriteFile(path, p.data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write debug copy: %w", err)
	}
	return path, nil
}
