package domain

// Patch is the partial output of one stage. Nil fields are left untouched when
// applied; collections are all-or-nothing.
type Patch struct {
	ContentType  *string
	Title        *string
	Description  *string
	Summary      *string
	ImageURL     *string
	FaviconURL   *string
	Tags         []Tag
	ColorPalette []string
	Sentiment    *Sentiment

	// SetTags and SetPalette distinguish "write an empty collection" from "no change".
	SetTags    bool
	SetPalette bool
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// WithTags sets the tag set as a single unit.
func (p Patch) WithTags(tags []Tag) Patch {
	p.Tags = append([]Tag(nil), tags...)
	if p.Tags == nil {
		p.Tags = []Tag{}
	}
	p.SetTags = true
	return p
}

// WithPalette sets the palette as a single unit.
func (p Patch) WithPalette(colors []string) Patch {
	p.ColorPalette = append([]string(nil), colors...)
	if p.ColorPalette == nil {
		p.ColorPalette = []string{}
	}
	p.SetPalette = true
	return p
}

// Empty reports whether applying p changes nothing.
func (p Patch) Empty() bool {
	return p.ContentType == nil && p.Title == nil && p.Description == nil &&
		p.Summary == nil && p.ImageURL == nil && p.FaviconURL == nil &&
		!p.SetTags && !p.SetPalette && p.Sentiment == nil
}

// Merge overlays other onto p; fields set in other win.
func (p Patch) Merge(other Patch) Patch {
	if other.ContentType != nil {
		p.ContentType = other.ContentType
	}
	if other.Title != nil {
		p.Title = other.Title
	}
	if other.Description != nil {
		p.Description = other.Description
	}
	if other.Summary != nil {
		p.Summary = other.Summary
	}
	if other.ImageURL != nil {
		p.ImageURL = other.ImageURL
	}
	if other.FaviconURL != nil {
		p.FaviconURL = other.FaviconURL
	}
	if other.SetTags {
		p = p.WithTags(other.Tags)
	}
	if other.SetPalette {
		p = p.WithPalette(other.ColorPalette)
	}
	if other.Sentiment != nil {
		s := *other.Sentiment
		p.Sentiment = &s
	}
	return p
}

// Apply returns a copy of item with the patch applied.
func (p Patch) Apply(item ContentItem) ContentItem {
	if p.ContentType != nil {
		item.ContentType = *p.ContentType
	}
	if p.Title != nil {
		item.Title = *p.Title
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Summary != nil {
		item.Summary = *p.Summary
	}
	if p.ImageURL != nil {
		item.ImageURL = *p.ImageURL
	}
	if p.FaviconURL != nil {
		item.FaviconURL = *p.FaviconURL
	}
	if p.SetTags {
		item.Tags = append([]Tag{}, p.Tags...)
	}
	if p.SetPalette {
		item.ColorPalette = append([]string{}, p.ColorPalette...)
	}
	if p.Sentiment != nil {
		s := *p.Sentiment
		item.Sentiment = &s
	}
	return item
}
