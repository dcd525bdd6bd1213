package scanner

import (
	"bytes"
	"context"
)

// eicarMarker is the standard antivirus test string.
const eicarMarker = `X5O!P%@AP[4\PZX54(P^)7CC)7}$EICAR-STANDARD-ANTIVIRUS-TEST-FILE!$H+H*`

type signature struct {
	name    string
	pattern []byte
	// prefix restricts the match to the start of the content (magic bytes).
	prefix bool
}

var signatures = []signature{
	{name: "eicar_test_file", pattern: []byte(eicarMarker)},
	{name: "windows_executable", pattern: []byte("MZ"), prefix: true},
	{name: "elf_executable", pattern: []byte{0x7f, 'E', 'L', 'F'}, prefix: true},
	{name: "shell_script", pattern: []byte("#!"), prefix: true},
	{name: "embedded_script", pattern: []byte("<script")},
	{name: "office_macro", pattern: []byte("vbaProject.bin")},
}

// SignatureScanner is a byte-signature threat scanner. It is the default
// Scanner implementation; deployments with a dedicated scanning engine swap in
// their own.
type SignatureScanner struct{}

func NewSignatureScanner() *SignatureScanner {
	return &SignatureScanner{}
}

var _ Scanner = (*SignatureScanner)(nil)

// Scan checks the content against the known signature set. Document uploads
// are bounded by category size caps, so a full-content scan is acceptable.
func (s *SignatureScanner) Scan(ctx context.Context, data []byte) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	lower := bytes.ToLower(data)
	var threats []string
	for _, sig := range signatures {
		if sig.prefix {
			if bytes.HasPrefix(data, sig.pattern) {
				threats = append(threats, sig.name)
			}
			continue
		}
		needle := sig.pattern
		haystack := data
		// Case-insensitive match for textual signatures.
		if sig.name == "embedded_script" {
			needle = bytes.ToLower(sig.pattern)
			haystack = lower
		}
		if bytes.Contains(haystack, needle) {
			threats = append(threats, sig.name)
		}
	}

	return Result{Clean: len(threats) == 0, Threats: threats}, nil
}
