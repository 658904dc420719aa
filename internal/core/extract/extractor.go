// Package extract turns uploaded files into plain text. The uploaded temp
// file is always removed afterwards, whatever the outcome.
package extract

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv"
	"github.com/gabriel-vasile/mimetype"
)

// allowedExtensions is checked before anything is written to disk.
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".doc":  true,
	".docx": true,
}

// AllowedFilename reports whether the declared filename carries a supported
// extension. The actual content type is still sniffed after the write.
func AllowedFilename(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return allowedExtensions[ext]
}

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract sniffs the real content type of the file at path and extracts its
// plain text. The file is deleted before Extract returns, on every path.
// Unsupported types and extraction failures yield empty text with the
// detected type; the caller decides whether that is fatal.
func (e *Extractor) Extract(path string) (text string, contentType string, err error) {
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Printf("extract: failed to clean up temp file %s: %v", path, rmErr)
		}
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}

	mtype := mimetype.Detect(data)
	contentType = mtype.String()

	switch {
	case mtype.Is("application/pdf"):
		text, err = convert(data, "application/pdf")
	case mtype.Is("application/vnd.openxmlformats-officedocument.wordprocessingml.document"):
		text, err = convert(data, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	case mtype.Is("application/msword"):
		text, err = convert(data, "application/msword")
	case mtype.Is("text/plain") || strings.HasPrefix(contentType, "text/plain"):
		text = decodeText(data)
	default:
		log.Printf("extract: unsupported content type %s for %s", contentType, path)
		return "", contentType, nil
	}

	if err != nil {
		log.Printf("extract: extraction failed for %s (%s): %v", path, contentType, err)
		return "", contentType, err
	}
	return strings.TrimSpace(text), contentType, nil
}

func convert(data []byte, mimeType string) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(data), mimeType, false)
	if err != nil {
		return "", err
	}
	return res.Body, nil
}

// decodeText reads the bytes as UTF-8, falling back to Latin-1 when the
// content is not valid UTF-8.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}
