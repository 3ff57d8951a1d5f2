package normalize

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/buger/jsonparser"

	"github.com/sagar-developer08/idp/internal/domain/document"
)

// ErrNotObject is returned when a record is not a JSON object.
var ErrNotObject = errors.New("record is not a JSON object")

// DefaultAccuracy is used when the backend omits an accuracy field.
const DefaultAccuracy = 100

type statusMapping struct {
	status   document.Status
	progress int
}

// statusCodes maps backend status codes; anything else is Uploading at 0.
var statusCodes = map[string]statusMapping{
	"PROCESSED": {document.StatusComplete, document.MaxProgress},
	"UPLOADED":  {document.StatusProcessing, 50},
}

var (
	docIDFields         = []accessor{at("document_id"), at("id")}
	docNameFields       = []accessor{at("document_name"), at("name"), at("file_name")}
	docExtFields        = []accessor{at("file_extension")}
	docCreatedFields    = []accessor{at("created_timestamp"), at("created_at"), at("uploaded_at")}
	docStatusCodeFields = []accessor{at("status_code")}
	docStatusNameFields = []accessor{at("status_name")}
	docExtractionFields = []accessor{at("textract_accuracy"), at("extraction_accuracy")}
	docSegmentFields    = []accessor{at("segmentation_accuracy")}
	docStoragePath      = []accessor{at("storage_path")}
	docFileType         = []accessor{at("file_type")}
	docSizeFields       = []accessor{at("file_size"), at("size")}
)

// MapStatus derives the UI status and progress from a backend status code.
func MapStatus(code string) (document.Status, int) {
	if m, ok := statusCodes[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return m.status, m.progress
	}
	return document.StatusUploading, 0
}

// DocumentSummary maps a document-listing record to a registry Document.
func DocumentSummary(raw []byte) (document.Document, error) {
	if !isObject(raw) {
		return document.Document{}, ErrNotObject
	}

	id, _ := stringOf(raw, docIDFields)
	code, _ := stringOf(raw, docStatusCodeFields)
	status, progress := MapStatus(code)

	d := document.Document{
		ID:                   id,
		ServerID:             id,
		Status:               status,
		Progress:             progress,
		ExtractionAccuracy:   accuracyOr(raw, docExtractionFields, DefaultAccuracy),
		SegmentationAccuracy: accuracyOr(raw, docSegmentFields, DefaultAccuracy),
		Source:               document.SourceServer,
	}
	d.Name, _ = stringOf(raw, docNameFields)
	d.FileExtension, _ = stringOf(raw, docExtFields)
	d.StatusName, _ = stringOf(raw, docStatusNameFields)
	d.StoragePath, _ = stringOf(raw, docStoragePath)
	d.FileType, _ = stringOf(raw, docFileType)
	if size, ok := numberOf(raw, docSizeFields); ok && size > 0 {
		d.Size = int64(size)
	}
	d.UploadedAt = timestampOf(raw, docCreatedFields)
	return d, nil
}

// DocumentList maps a full listing response. Both {"documents": [...]} and a bare array are accepted.
// Records without an identifier and repeated identifiers are skipped.
func DocumentList(raw []byte) ([]document.Document, error) {
	items, err := arrayItems(raw, "documents")
	if err != nil {
		return nil, err
	}

	docs := make([]document.Document, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		d, err := DocumentSummary(item)
		if err != nil || d.ID == "" {
			continue
		}
		if _, dup := seen[d.ID]; dup {
			continue
		}
		seen[d.ID] = struct{}{}
		docs = append(docs, d)
	}
	return docs, nil
}

// arrayItems returns the elements of the array under key, or of raw itself when it is an array.
func arrayItems(raw []byte, key string) ([][]byte, error) {
	_, typ, _, err := jsonparser.Get(raw)
	if err != nil {
		return nil, err
	}

	switch typ {
	case jsonparser.Array:
	case jsonparser.Object:
		v, vt, _, gerr := jsonparser.Get(raw, key)
		if gerr != nil || vt == jsonparser.Null {
			return nil, nil
		}
		if vt != jsonparser.Array {
			return nil, errors.New(key + " is not an array")
		}
		raw = v
	default:
		return nil, ErrNotObject
	}

	var items [][]byte
	var itemErr error
	_, err = jsonparser.ArrayEach(raw, func(value []byte, _ jsonparser.ValueType, _ int, err error) {
		if err != nil {
			itemErr = err
			return
		}
		items = append(items, value)
	})
	if err != nil {
		return nil, err
	}
	if itemErr != nil {
		return nil, itemErr
	}
	return items, nil
}

func accuracyOr(raw []byte, accs []accessor, def float64) float64 {
	if v, ok := numberOf(raw, accs); ok {
		return Percent(v)
	}
	return def
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// timestampOf parses RFC 3339 and common SQL timestamp layouts, or unix seconds/milliseconds.
func timestampOf(raw []byte, accs []accessor) time.Time {
	v, typ, ok := first(raw, accs)
	if !ok {
		return time.Time{}
	}
	if typ == jsonparser.Number {
		n, err := jsonparser.ParseFloat(v)
		if err != nil {
			return time.Time{}
		}
		return unixTime(n)
	}

	s := strings.TrimSpace(scalarString(v, typ))
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return unixTime(n)
	}
	return time.Time{}
}

func unixTime(n float64) time.Time {
	if n > 1e12 {
		return time.UnixMilli(int64(n)).UTC()
	}
	return time.Unix(int64(n), 0).UTC()
}
