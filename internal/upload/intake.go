// Package upload implements the upload intake: it streams multipart form
// submissions, validates each file part against its slot policy, and writes
// accepted files flat into a single upload directory.
//
// Stored names are `{field}-{epochMillis}{ext}`. Two uploads of the same field
// within the same millisecond map to the same name and the later one wins;
// this is a known weak invariant and is not guarded against. Files are
// filtered by extension only, no content sniffing or scanning is done.
package upload

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dharsanguruparan/HoloHeri/internal/domain"
	"github.com/dharsanguruparan/HoloHeri/internal/metrics"
	"github.com/dharsanguruparan/HoloHeri/internal/model"
)

// maxFieldBytes bounds a single text field of a multipart form.
const maxFieldBytes = 10 << 20

// Reference points at one accepted file inside the upload directory.
type Reference struct {
	Field      model.MediaField
	StoredName string
	Size       int64
}

// Form is a parsed submission. A key present in Values was sent by the
// client, even if its value is empty.
type Form struct {
	Values map[string]string
	Files  map[model.MediaField]Reference
}

func newForm() *Form {
	return &Form{
		Values: make(map[string]string),
		Files:  make(map[model.MediaField]Reference),
	}
}

// StoredNames maps each uploaded slot to its stored file name.
func (f *Form) StoredNames() map[model.MediaField]string {
	out := make(map[model.MediaField]string, len(f.Files))
	for field, ref := range f.Files {
		out[field] = ref.StoredName
	}
	return out
}

// Intake receives uploads into dir.
type Intake struct {
	dir      string
	maxBytes int64
	slots    map[model.MediaField]Slot
	now      func() time.Time
}

// New creates an Intake. maxBytes bounds the whole request body.
func New(dir string, maxBytes int64) *Intake {
	return &Intake{
		dir:      dir,
		maxBytes: maxBytes,
		slots:    Slots,
		now:      time.Now,
	}
}

// Dir returns the upload directory.
func (in *Intake) Dir() string {
	return in.dir
}

// Parse reads the request body. Multipart bodies may carry files; JSON and
// urlencoded bodies carry text fields only (used by partial updates). If Parse
// fails after some files were written, those files are removed again.
func (in *Intake) Parse(w http.ResponseWriter, r *http.Request) (*Form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, in.maxBytes)
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch contentType {
	case "multipart/form-data":
		return in.parseMultipart(r)
	case "application/json":
		return in.parseJSON(r)
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, in.readError(err)
		}
		form := newForm()
		for key, values := range r.PostForm {
			if len(values) > 0 {
				form.Values[key] = values[0]
			}
		}
		return form, nil
	case "":
		return newForm(), nil
	default:
		metrics.UploadsRejected.WithLabelValues("content_type").Inc()
		return nil, &domain.UnsupportedMediaTypeError{Message: fmt.Sprintf("Unsupported content type %q", contentType)}
	}
}

// CheckRequired reports a missing file for any required slot. Partial updates
// skip it, so only creation enforces it.
func (in *Intake) CheckRequired(form *Form) error {
	for _, field := range model.MediaFields {
		slot, ok := in.slots[field]
		if !ok || !slot.Required {
			continue
		}
		if _, ok := form.Files[field]; !ok {
			metrics.UploadsRejected.WithLabelValues("missing_file").Inc()
			return &domain.ValidationError{Message: fmt.Sprintf("A %s file is required for %s", slot.Kind, field)}
		}
	}
	return nil
}

// Discard removes every file written for form.
func (in *Intake) Discard(form *Form) {
	if form == nil {
		return
	}
	for _, ref := range form.Files {
		_ = os.Remove(filepath.Join(in.dir, ref.StoredName))
	}
}

func (in *Intake) parseMultipart(r *http.Request) (*Form, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, &domain.ValidationError{Message: "expecting multipart form"}
	}
	form := newForm()
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			in.Discard(form)
			return nil, in.readError(err)
		}
		err = in.consume(form, part)
		part.Close()
		if err != nil {
			in.Discard(form)
			return nil, err
		}
	}
	return form, nil
}

func (in *Intake) consume(form *Form, part *multipart.Part) error {
	name := part.FormName()
	if name == "" {
		return nil
	}
	if part.FileName() == "" {
		if declaresFilename(part) {
			// A file input submitted with nothing selected.
			return nil
		}
		data, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
		if err != nil {
			return in.readError(err)
		}
		if len(data) > maxFieldBytes {
			return &domain.ValidationError{Message: fmt.Sprintf("Field %q is too large", name)}
		}
		form.Values[name] = string(data)
		return nil
	}

	slot, ok := in.slots[model.MediaField(name)]
	if !ok {
		metrics.UploadsRejected.WithLabelValues("unexpected_field").Inc()
		return &domain.ValidationError{Message: fmt.Sprintf("Unexpected field %q", name)}
	}
	if _, dup := form.Files[slot.Field]; dup {
		metrics.UploadsRejected.WithLabelValues("unexpected_field").Inc()
		return &domain.ValidationError{Message: fmt.Sprintf("Unexpected field %q: only one file is accepted", name)}
	}
	if !slot.Allows(part.FileName()) {
		metrics.UploadsRejected.WithLabelValues("media_type").Inc()
		return &domain.UnsupportedMediaTypeError{Field: name, Message: slot.rejectMessage()}
	}
	ref, err := in.store(slot, part)
	if err != nil {
		return err
	}
	form.Files[slot.Field] = *ref
	metrics.UploadsAccepted.WithLabelValues(string(slot.Field)).Inc()
	metrics.UploadBytes.WithLabelValues(string(slot.Field)).Observe(float64(ref.Size))
	return nil
}

func (in *Intake) store(slot Slot, part *multipart.Part) (*Reference, error) {
	if err := os.MkdirAll(in.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	ext := filepath.Ext(part.FileName())
	name := fmt.Sprintf("%s-%d%s", slot.Field, in.now().UnixMilli(), ext)
	path := filepath.Join(in.dir, name)
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	written, err := io.CopyBuffer(dst, part, make([]byte, 32*1024))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, in.readError(err)
	}
	return &Reference{Field: slot.Field, StoredName: name, Size: written}, nil
}

func (in *Intake) parseJSON(r *http.Request) (*Form, error) {
	var raw map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return newForm(), nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, in.readError(err)
		}
		return nil, &domain.ValidationError{Message: "Invalid JSON body"}
	}
	form := newForm()
	for key, v := range raw {
		form.Values[key] = stringify(v)
	}
	return form, nil
}

// readError classifies an error hit while reading the body or writing a file.
func (in *Intake) readError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		metrics.UploadsRejected.WithLabelValues("too_large").Inc()
		return &domain.PayloadTooLargeError{
			Limit:   tooLarge.Limit,
			Message: "File too large: request body exceeds " + humanize.IBytes(uint64(tooLarge.Limit)),
		}
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return fmt.Errorf("write upload: %w", err)
	}
	return &domain.ValidationError{Message: "failed to read upload: " + err.Error()}
}

func declaresFilename(part *multipart.Part) bool {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return false
	}
	_, ok := params["filename"]
	return ok
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case []any:
		items := make([]string, 0, len(val))
		for _, item := range val {
			items = append(items, stringify(item))
		}
		return strings.Join(items, ",")
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
