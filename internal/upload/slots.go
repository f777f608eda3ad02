package upload

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dharsanguruparan/HoloHeri/internal/model"
)

// Slot is the policy for one named file part.
type Slot struct {
	Field             model.MediaField
	AllowedExtensions []string
	// Required slots must carry a file when a site is created.
	Required bool
	// Kind names the media in rejection messages.
	Kind string
}

const (
	kindImage = "image"
	kindModel = "model"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

// Slots is the fixed set of upload slots. No slot is required; a site may be
// created without any media.
var Slots = map[model.MediaField]Slot{
	model.FieldThumb:        {Field: model.FieldThumb, AllowedExtensions: imageExtensions, Kind: kindImage},
	model.FieldGLB:          {Field: model.FieldGLB, AllowedExtensions: []string{".glb", ".gltf"}, Kind: kindModel},
	model.FieldOldSitePhoto: {Field: model.FieldOldSitePhoto, AllowedExtensions: imageExtensions, Kind: kindImage},
	model.FieldNewSitePhoto: {Field: model.FieldNewSitePhoto, AllowedExtensions: imageExtensions, Kind: kindImage},
}

// Allows reports whether filename's extension is accepted by the slot.
// The comparison is case-insensitive.
func (s Slot) Allows(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return false
	}
	for _, allowed := range s.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// rejectMessage is returned when a file's extension is not allowed.
func (s Slot) rejectMessage() string {
	if s.Kind == kindImage {
		return "Only image files are allowed!"
	}
	return fmt.Sprintf("Only %s files are allowed for %ss!", strings.Join(s.AllowedExtensions, " or "), s.Kind)
}
