package upload

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/HoloHeri/internal/domain"
	"github.com/dharsanguruparan/HoloHeri/internal/model"
)

type filePart struct {
	field, name, content string
}

func multipartRequest(t *testing.T, values map[string]string, files ...filePart) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		w, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/sites", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newTestIntake(t *testing.T, maxBytes int64) *Intake {
	t.Helper()
	in := New(filepath.Join(t.TempDir(), "uploads"), maxBytes)
	in.now = func() time.Time { return time.UnixMilli(1738229000000) }
	return in
}

func TestParseAcceptsImageAndModel(t *testing.T) {
	in := newTestIntake(t, 1<<20)
	req := multipartRequest(t,
		map[string]string{"title": "Hampi", "tags": "temple, vijayanagara"},
		filePart{"thumb", "photo.PNG", "png-bytes"},
		filePart{"glb", "model.glb", "glb-bytes"},
	)

	form, err := in.Parse(httptest.NewRecorder(), req)
	require.NoError(t, err)

	assert.Equal(t, "Hampi", form.Values["title"])
	assert.Equal(t, "temple, vijayanagara", form.Values["tags"])
	require.Len(t, form.Files, 2)

	thumb := form.Files[model.FieldThumb]
	assert.Equal(t, "thumb-1738229000000.PNG", thumb.StoredName)
	assert.Equal(t, int64(len("png-bytes")), thumb.Size)
	data, err := os.ReadFile(filepath.Join(in.Dir(), thumb.StoredName))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	assert.Equal(t, "glb-1738229000000.glb", form.Files[model.FieldGLB].StoredName)
	assert.Equal(t, map[model.MediaField]string{
		model.FieldThumb: "thumb-1738229000000.PNG",
		model.FieldGLB:   "glb-1738229000000.glb",
	}, form.StoredNames())
}

func TestParseRejectsWrongExtensionForModel(t *testing.T) {
	in := newTestIntake(t, 1<<20)
	req := multipartRequest(t, nil, filePart{"glb", "model.txt", "not a model"})

	_, err := in.Parse(httptest.NewRecorder(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedMediaType))
	assert.Equal(t, http.StatusUnsupportedMediaType, domain.StatusCode(err))
}

func TestParseRejectsModelInImageSlot(t *testing.T) {
	in := newTestIntake(t, 1<<20)
	req := multipartRequest(t, nil, filePart{"newSitePhoto", "model.glb", "x"})

	_, err := in.Parse(httptest.NewRecorder(), req)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedMediaType))
}

func TestParseRejectsSecondFileForSameField(t *testing.T) {
	in := newTestIntake(t, 1<<20)
	req := multipartRequest(t, nil,
		filePart{"thumb", "a.jpg", "a"},
		filePart{"thumb", "b.jpg", "b"},
	)

	_, err := in.Parse(httptest.NewRecorder(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	// The first file was written and must be cleaned up again.
	entries, _ := os.ReadDir(in.Dir())
	assert.Empty(t, entries)
}

func TestParseRejectsUnknownFileField(t *testing.T) {
	in := newTestIntake(t, 1<<20)
	req := multipartRequest(t, nil, filePart{"avatar", "a.jpg", "a"})

	_, err := in.Parse(httptest.NewRecorder(), req)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestParseRejectsOversizedBody(t *testing.T) {
	in := newTestIntake(t, 512)
	req := multipartRequest(t, nil, filePart{"thumb", "big.jpg", strings.Repeat("x", 4096)})

	_, err := in.Parse(httptest.NewRecorder(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPayloadTooLarge))
	assert.Equal(t, http.StatusRequestEntityTooLarge, domain.StatusCode(err))

	entries, _ := os.ReadDir(in.Dir())
	assert.Empty(t, entries)
}

func TestParseSkipsEmptyFileInput(t *testing.T) {
	in := newTestIntake(t, 1<<20)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "Konark"))
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="thumb"; filename=""`)
	h.Set("Content-Type", "application/octet-stream")
	_, err := mw.CreatePart(h)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/sites", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	form, err := in.Parse(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Empty(t, form.Files)
	_, present := form.Values["thumb"]
	assert.False(t, present)
}

func TestParseJSONBody(t *testing.T) {
	in := newTestIntake(t, 1<<20)
	req := httptest.NewRequest(http.MethodPut, "/sites/1",
		strings.NewReader(`{"location":"New City","tags":["a","b"],"featured":true}`))
	req.Header.Set("Content-Type", "application/json")

	form, err := in.Parse(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"location": "New City", "tags": "a,b", "featured": "true"}, form.Values)
	assert.Empty(t, form.Files)
}

func TestParseInvalidJSON(t *testing.T) {
	in := newTestIntake(t, 1<<20)
	req := httptest.NewRequest(http.MethodPut, "/sites/1", strings.NewReader(`{"location":`))
	req.Header.Set("Content-Type", "application/json")

	_, err := in.Parse(httptest.NewRecorder(), req)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestParseRejectsUnknownContentType(t *testing.T) {
	in := newTestIntake(t, 1<<20)
	req := httptest.NewRequest(http.MethodPost, "/sites", strings.NewReader("x"))
	req.Header.Set("Content-Type", "text/plain")

	_, err := in.Parse(httptest.NewRecorder(), req)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedMediaType))
}

func TestSlotAllows(t *testing.T) {
	glb := Slots[model.FieldGLB]
	assert.True(t, glb.Allows("model.glb"))
	assert.True(t, glb.Allows("scene.GLTF"))
	assert.False(t, glb.Allows("model.txt"))
	assert.False(t, glb.Allows("model"))

	thumb := Slots[model.FieldThumb]
	for _, name := range []string{"photo.png", "a.JPG", "b.jpeg", "c.webp", "d.gif"} {
		assert.True(t, thumb.Allows(name), name)
	}
	assert.False(t, thumb.Allows("photo.bmp"))
}

func TestSlotRejectMessage(t *testing.T) {
	assert.Equal(t, "Only .glb or .gltf files are allowed for models!", Slots[model.FieldGLB].rejectMessage())
	assert.Equal(t, "Only image files are allowed!", Slots[model.FieldOldSitePhoto].rejectMessage())
}

func TestCheckRequired(t *testing.T) {
	in := newTestIntake(t, 1<<20)
	form, err := in.Parse(httptest.NewRecorder(), multipartRequest(t, map[string]string{"title": "Hampi"}))
	require.NoError(t, err)
	assert.NoError(t, in.CheckRequired(form), "no slot is required by default")

	slots := make(map[model.MediaField]Slot, len(Slots))
	for field, slot := range Slots {
		slots[field] = slot
	}
	glb := slots[model.FieldGLB]
	glb.Required = true
	slots[model.FieldGLB] = glb
	in.slots = slots

	err = in.CheckRequired(form)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Equal(t, "A model file is required for glb", err.Error())

	form, err = in.Parse(httptest.NewRecorder(), multipartRequest(t, nil, filePart{"glb", "hampi.glb", "glb"}))
	require.NoError(t, err)
	assert.NoError(t, in.CheckRequired(form))
}
