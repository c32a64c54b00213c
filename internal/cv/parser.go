package cv

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv"
)

// ErrEmptyDocument is returned when a file parses but yields no text.
var ErrEmptyDocument = errors.New("no text could be extracted")

type Parser struct {
	tempDir string
}

type ParsedDocument struct {
	Filename string
	FileType string
	FileSize int64
	FullText string
}

// NewParser returns a parser that stages uploads under tempDir. An empty
// tempDir means os.TempDir().
func NewParser(tempDir string) *Parser {
	return &Parser{
		tempDir: tempDir,
	}
}

// SupportedType reports whether filename has an extension ParseFile handles.
func SupportedType(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".docx", ".doc", ".rtf", ".odt", ".txt":
		return true
	}
	return false
}

// ParseFile extracts text from PDF/DOC/DOCX/TXT files
func (p *Parser) ParseFile(filename string, reader io.Reader) (*ParsedDocument, error) {
	fileType := strings.ToLower(filepath.Ext(filename))
	var text string
	var size int64

	switch fileType {
	case ".txt":
		content, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to read text file: %w", err)
		}
		if !utf8.Valid(content) {
			return nil, fmt.Errorf("text file is not valid UTF-8")
		}
		size = int64(len(content))
		text = string(content)
	case ".pdf", ".docx", ".doc", ".rtf", ".odt":
		// docconv picks its converter from the extension, so the upload is
		// staged on disk under its original suffix.
		if p.tempDir != "" {
			if err := os.MkdirAll(p.tempDir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create temp dir: %w", err)
			}
		}
		file, err := os.CreateTemp(p.tempDir, "upload-*"+fileType)
		if err != nil {
			return nil, fmt.Errorf("failed to create file: %w", err)
		}
		defer os.Remove(file.Name())

		size, err = io.Copy(file, reader)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to save file: %w", err)
		}

		res, err := docconv.ConvertPath(file.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to parse document: %w", err)
		}
		text = res.Body
	default:
		return nil, fmt.Errorf("unsupported file type: %q", fileType)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyDocument
	}

	return &ParsedDocument{
		Filename: filename,
		FileType: fileType,
		FileSize: size,
		FullText: text,
	}, nil
}
