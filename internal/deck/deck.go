package deck

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"investorbase/internal/util"
)

var ErrNoExtractableText = errors.New("no extractable text in deck")

// Deck is the text content of a pitch-deck PDF.
type Deck struct {
	DeckID  string
	Text    string
	Excerpt string
}

// FromBytes extracts plain text from a PDF. The deck id is the content hash,
// so uploading the same file twice yields the same id.
func FromBytes(b []byte, excerptRunes int) (Deck, error) {
	r, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return Deck{}, fmt.Errorf("open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return Deck{}, fmt.Errorf("extract pdf text: %w", err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, plain); err != nil {
		return Deck{}, fmt.Errorf("read extracted text: %w", err)
	}
	text := util.SanitizeText(strings.TrimSpace(buf.String()))
	if text == "" {
		return Deck{}, ErrNoExtractableText
	}
	return Deck{
		DeckID:  util.SHA256Hex(b),
		Text:    text,
		Excerpt: Excerpt(text, excerptRunes),
	}, nil
}

// Excerpt returns the leading part of the deck text, cut on a word boundary,
// at most maxRunes long plus an ellipsis.
func Excerpt(text string, maxRunes int) string {
	text = util.NormalizeWhitespace(text)
	if maxRunes <= 0 || text == "" {
		return ""
	}
	chunks := util.ChunkText(text, maxRunes, 0)
	if len(chunks) == 0 {
		return ""
	}
	if len(chunks) == 1 {
		return chunks[0]
	}
	return chunks[0] + "..."
}

// Archive keeps the uploaded PDF under root/<companyID>/ and returns its path.
// Only the base of filename is used.
func Archive(root, companyID, filename string, b []byte) (string, error) {
	dir := util.SafeJoin(root, companyID)
	if err := util.EnsureDir(dir); err != nil {
		return "", err
	}
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) || !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name = "deck.pdf"
	}
	path := util.SafeJoin(dir, name)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write deck: %w", err)
	}
	return path, nil
}
