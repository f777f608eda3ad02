// Package model contains simple struct definitions shared across packages.
package model

import (
	"time"
)

// MediaField names one of the fixed upload slots of a site. The string value
// is both the multipart field name and the JSON key on Site.
type MediaField string

const (
	FieldThumb        MediaField = "thumb"
	FieldGLB          MediaField = "glb"
	FieldOldSitePhoto MediaField = "oldSitePhoto"
	FieldNewSitePhoto MediaField = "newSitePhoto"
)

// MediaFields lists every media slot in a stable order.
var MediaFields = []MediaField{FieldThumb, FieldGLB, FieldOldSitePhoto, FieldNewSitePhoto}

// Site is the only persisted entity. Media fields hold either "" (absent) or a
// URL/path produced by the upload pipeline; they are never null on the wire.
type Site struct {
	ID       string   `json:"_id"`
	Title    string   `json:"title"`
	Location string   `json:"location"`
	Summary  string   `json:"summary"`
	Tags     []string `json:"tags"`

	History          string `json:"history"`
	Architecture     string `json:"architecture"`
	Conservation     string `json:"conservation"`
	ModernRelevance  string `json:"modernRelevance"`
	OldStructureDesc string `json:"oldStructureDesc"`
	NewStructureDesc string `json:"newStructureDesc"`

	Thumb        string `json:"thumb"`
	GLB          string `json:"glb"`
	OldSitePhoto string `json:"oldSitePhoto"`
	NewSitePhoto string `json:"newSitePhoto"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Media returns the value stored in the given media slot.
func (s *Site) Media(field MediaField) string {
	switch field {
	case FieldThumb:
		return s.Thumb
	case FieldGLB:
		return s.GLB
	case FieldOldSitePhoto:
		return s.OldSitePhoto
	case FieldNewSitePhoto:
		return s.NewSitePhoto
	}
	return ""
}

// SetMedia overwrites the given media slot. Unknown slots are ignored.
func (s *Site) SetMedia(field MediaField, value string) {
	switch field {
	case FieldThumb:
		s.Thumb = value
	case FieldGLB:
		s.GLB = value
	case FieldOldSitePhoto:
		s.OldSitePhoto = value
	case FieldNewSitePhoto:
		s.NewSitePhoto = value
	}
}

// Clone returns a deep copy so stores can hand out records without sharing
// the tags slice.
func (s *Site) Clone() *Site {
	c := *s
	c.Tags = append([]string(nil), s.Tags...)
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return &c
}

// SiteFilter describes one page of a listing query. Tag is an exact match on
// one element of Tags; Query is a full-text search.
type SiteFilter struct {
	Tag   string
	Query string
	Skip  int
	Limit int
}
