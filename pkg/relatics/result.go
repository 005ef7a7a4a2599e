package relatics

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// MessageStatus is the status of a single entry in an import log.
type MessageStatus string

// The statuses Relatics assigns to import log messages.
const (
	MessageProgress MessageStatus = "Progress"
	MessageComment  MessageStatus = "Comment"
	MessageSuccess  MessageStatus = "Success"
	MessageWarning  MessageStatus = "Warning"
	MessageError    MessageStatus = "Error"
)

// ElementAction is what an import did to a single element.
type ElementAction string

// The actions Relatics reports for changed elements.
const (
	ElementAdded   ElementAction = "Add"
	ElementUpdated ElementAction = "Update"
)

// Progress messages that carry counters; the values after the prefixes feed
// the row tracking and totals below.
const (
	rowPrefix     = "Processing row :"
	totalPrefix   = "Total rows imported:"
	elapsedPrefix = "Total time (ms):"
)

// ExportResult is the parsed result of a GetResult call.
type ExportResult struct {
	// Data is the report element returned by the operation, with the
	// Documents node (if any) removed.
	Data *etree.Element

	// Documents maps the filename of each document attached to the report
	// to its contents.
	Documents map[string][]byte
}

// XML serializes the report data with indentation.
func (r *ExportResult) XML() string {
	if r.Data == nil {
		return ""
	}
	doc := etree.NewDocument()
	doc.SetRoot(r.Data.Copy())
	doc.Indent(2)
	out, err := doc.WriteToString()
	if err != nil {
		return ""
	}
	return out
}

// parseExportResult interprets a GetResultResponse element.
func parseExportResult(response *etree.Element) (*ExportResult, error) {
	payload := firstChild(response, "GetResultResult")
	if payload == nil {
		return nil, fmt.Errorf("%w: missing GetResultResult", ErrUnrecognizedResponse)
	}

	if err := exportError(payload); err != nil {
		return nil, err
	}

	report := firstChild(payload, "Report")
	if report == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnrecognizedResponse, elementText(payload))
	}

	result := &ExportResult{Documents: map[string][]byte{}}

	// Documents come back as a single base64 encoded zip inside the report.
	if docs := firstChild(report, "Documents"); docs != nil {
		extracted, err := extractDocuments(docs.Text())
		if err != nil {
			return nil, err
		}
		result.Documents = extracted
		report.RemoveChild(docs)
	}

	result.Data = report
	return result, nil
}

func extractDocuments(encoded string) (map[string][]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode documents attachment: %w", err)
	}

	reader, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to open documents archive: %w", err)
	}

	documents := make(map[string][]byte, len(reader.File))
	for _, file := range reader.File {
		entry, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open document %s: %w", file.Name, err)
		}
		contents, err := io.ReadAll(entry)
		_ = entry.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read document %s: %w", file.Name, err)
		}
		documents[file.Name] = contents
	}
	return documents, nil
}

// ImportMessage is one entry of the import log.
type ImportMessage struct {
	// Time is the clock time of the entry, as reported ("21:52:34").
	Time string

	Status  MessageStatus
	Message string

	// Row is the data row being processed when the message was logged;
	// zero for messages before the first row.
	Row int
}

// ImportElement is an element the import added or updated.
type ImportElement struct {
	Action     ElementAction
	ID         string
	ForeignKey string
}

// ImportResult is the parsed result of an import call.
type ImportResult struct {
	Messages []ImportMessage
	Elements []ImportElement

	// TotalRows is the row count the import reported, zero when absent.
	TotalRows int

	// Elapsed is the total import time the import reported, zero when
	// absent.
	Elapsed time.Duration
}

// MessagesByStatus returns the log messages with the given status.
func (r *ImportResult) MessagesByStatus(status MessageStatus) []ImportMessage {
	var matched []ImportMessage
	for _, message := range r.Messages {
		if message.Status == status {
			matched = append(matched, message)
		}
	}
	return matched
}

// ProgressMessages returns all progress messages.
func (r *ImportResult) ProgressMessages() []ImportMessage { return r.MessagesByStatus(MessageProgress) }

// CommentMessages returns all comment messages.
func (r *ImportResult) CommentMessages() []ImportMessage { return r.MessagesByStatus(MessageComment) }

// SuccessMessages returns all success messages.
func (r *ImportResult) SuccessMessages() []ImportMessage { return r.MessagesByStatus(MessageSuccess) }

// WarningMessages returns all warning messages.
func (r *ImportResult) WarningMessages() []ImportMessage { return r.MessagesByStatus(MessageWarning) }

// ErrorMessages returns all error messages.
func (r *ImportResult) ErrorMessages() []ImportMessage { return r.MessagesByStatus(MessageError) }

// ElementsByAction returns the changed elements with the given action.
func (r *ImportResult) ElementsByAction(action ElementAction) []ImportElement {
	var matched []ImportElement
	for _, element := range r.Elements {
		if element.Action == action {
			matched = append(matched, element)
		}
	}
	return matched
}

// AddedElements returns the elements the import created.
func (r *ImportResult) AddedElements() []ImportElement { return r.ElementsByAction(ElementAdded) }

// UpdatedElements returns the elements the import updated.
func (r *ImportResult) UpdatedElements() []ImportElement { return r.ElementsByAction(ElementUpdated) }

// parseImportResult interprets an ImportResponse element.
func parseImportResult(response *etree.Element) (*ImportResult, error) {
	payload := firstChild(response, "ImportResult")
	if payload == nil {
		return nil, fmt.Errorf("%w: missing ImportResult", ErrUnrecognizedResponse)
	}

	if err := exportError(payload); err != nil {
		return nil, err
	}

	log := firstChild(payload, "Import")
	if log == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnrecognizedResponse, elementText(payload))
	}

	result := &ImportResult{}

	row := 0
	for _, entry := range log.ChildElements() {
		switch entry.Tag {
		case "Message":
			message := ImportMessage{
				Time:    entry.SelectAttrValue("Time", ""),
				Status:  MessageStatus(entry.SelectAttrValue("Result", "")),
				Message: entry.Text(),
			}

			if message.Status == MessageProgress {
				if value, ok := cutCounter(message.Message, rowPrefix); ok {
					row = value
				} else if value, ok := cutCounter(message.Message, totalPrefix); ok {
					result.TotalRows = value
				} else if value, ok := cutCounter(message.Message, elapsedPrefix); ok {
					result.Elapsed = time.Duration(value) * time.Millisecond
				}
			}

			message.Row = row
			result.Messages = append(result.Messages, message)

		case "Elements":
			for _, element := range entry.ChildElements() {
				result.Elements = append(result.Elements, ImportElement{
					Action:     ElementAction(element.SelectAttrValue("Action", "")),
					ID:         element.SelectAttrValue("ID", ""),
					ForeignKey: element.SelectAttrValue("ForeignKey", ""),
				})
			}
		}
	}

	return result, nil
}

// cutCounter extracts the integer following a counter prefix in a progress
// message.
func cutCounter(message, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(message, prefix)
	if !ok {
		return 0, false
	}
	value, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return 0, false
	}
	return value, true
}

// exportError maps the <Export Error="..."> error shape, shared by both
// operations, to a *ServiceError.
func exportError(payload *etree.Element) error {
	export := firstChild(payload, "Export")
	if export == nil {
		return nil
	}
	return &ServiceError{Message: export.SelectAttrValue("Error", "")}
}

// firstChild returns the first child element with the given local name.
func firstChild(parent *etree.Element, tag string) *etree.Element {
	if parent == nil {
		return nil
	}
	for _, child := range parent.ChildElements() {
		if child.Tag == tag {
			return child
		}
	}
	return nil
}

// elementText renders an element for error messages.
func elementText(element *etree.Element) string {
	doc := etree.NewDocument()
	doc.SetRoot(element.Copy())
	out, err := doc.WriteToString()
	if err != nil {
		return element.Tag
	}
	return strings.TrimSpace(out)
}
