package model

// DocumentCategory is static reference data describing one category slot
// (e.g., national_id_front). Read-only from the pipeline's perspective.
type DocumentCategory struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	RequiredForRole string   `json:"required_for_role"`
	AllowedFormats  []string `json:"allowed_formats"`
	MaxSizeMB       int      `json:"max_size_mb"`
	IsActive        bool     `json:"is_active"`
}

// MaxSizeBytes returns the category's size cap in bytes. Zero means no cap.
func (c *DocumentCategory) MaxSizeBytes() int64 {
	return int64(c.MaxSizeMB) * 1024 * 1024
}

// AllowsFormat reports whether the given file extension (without the leading
// dot, lower-case) is accepted for this category. An empty allow-list accepts
// everything.
func (c *DocumentCategory) AllowsFormat(ext string) bool {
	if len(c.AllowedFormats) == 0 {
		return true
	}
	for _, f := range c.AllowedFormats {
		if f == ext {
			return true
		}
	}
	return false
}
