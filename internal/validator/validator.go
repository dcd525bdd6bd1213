package validator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"trustdocs/internal/model"
)

// Rules carries the per-category constraints a document is validated against.
type Rules struct {
	Category         model.DocumentCategory
	OriginalFilename string
	DeclaredMime     string
}

// Report is the validator's verdict. Score is 0-100; the intake pipeline
// rejects below its acceptance threshold.
type Report struct {
	Score           int               `json:"score"`
	Confidence      float64           `json:"confidence"`
	ExtractedFields map[string]string `json:"extracted_fields,omitempty"`
	Errors          []string          `json:"errors,omitempty"`
	Warnings        []string          `json:"warnings,omitempty"`
}

// Validator performs structural/format/content checks. Implementations must
// not mutate any stored state.
type Validator interface {
	Validate(ctx context.Context, data []byte, rules Rules) (Report, error)
}

const (
	errorPenalty   = 40
	warningPenalty = 10
)

// ContentValidator is the default Validator implementation.
type ContentValidator struct{}

func NewContentValidator() *ContentValidator {
	return &ContentValidator{}
}

var _ Validator = (*ContentValidator)(nil)

// Validate runs the format and content checks and produces a scored report.
func (v *ContentValidator) Validate(ctx context.Context, data []byte, rules Rules) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	rep := Report{Score: 100, Confidence: 1.0, ExtractedFields: map[string]string{}}
	fail := func(msg string) {
		rep.Errors = append(rep.Errors, msg)
		rep.Score -= errorPenalty
	}
	warn := func(msg string) {
		rep.Warnings = append(rep.Warnings, msg)
		rep.Score -= warningPenalty
		rep.Confidence -= 0.05
	}

	if len(data) == 0 {
		fail("content is empty")
	}

	cat := rules.Category
	if cap := cat.MaxSizeBytes(); cap > 0 && int64(len(data)) > cap {
		fail(fmt.Sprintf("content exceeds category limit of %d MB", cat.MaxSizeMB))
	}

	ext := Extension(rules.OriginalFilename)
	if ext == "" {
		warn("filename has no extension")
	} else if !cat.AllowsFormat(ext) {
		fail(fmt.Sprintf("format %q not allowed for category %s", ext, cat.ID))
	}

	detected := http.DetectContentType(data)
	if base, _, err := mime.ParseMediaType(detected); err == nil {
		detected = base
	}
	rep.ExtractedFields["detected_mime"] = detected
	if rules.DeclaredMime != "" && !mimeMatches(rules.DeclaredMime, detected) {
		warn(fmt.Sprintf("declared mime %q does not match detected %q", rules.DeclaredMime, detected))
	}

	if len(data) > 0 && len(data) < 1024 {
		warn("content suspiciously small for a document")
	}

	sum := sha256.Sum256(data)
	rep.ExtractedFields["content_hash"] = hex.EncodeToString(sum[:])
	rep.ExtractedFields["file_extension"] = ext
	rep.ExtractedFields["size_bytes"] = strconv.Itoa(len(data))

	if rep.Score < 0 {
		rep.Score = 0
	}
	if rep.Confidence < 0 {
		rep.Confidence = 0
	}
	return rep, nil
}

// Extension returns the lower-case filename extension without the leading dot.
func Extension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 || i == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

func mimeMatches(declared, detected string) bool {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if base, _, err := mime.ParseMediaType(declared); err == nil {
		declared = base
	}
	if declared == detected {
		return true
	}
	// DetectContentType cannot distinguish many document formats and falls
	// back to octet-stream or text/plain; do not punish those.
	return detected == "application/octet-stream" || detected == "text/plain"
}
