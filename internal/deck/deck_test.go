package deck

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExcerptCutsOnWordBoundary(t *testing.T) {
	text := "Acme builds   payment rails\nfor small merchants across Latin America."
	require.Equal(t, "Acme builds payment...", Excerpt(text, 22))
	require.Equal(t, "Acme builds payment rails for small merchants across Latin America.", Excerpt(text, 500))
	require.Empty(t, Excerpt(text, 0))
	require.Empty(t, Excerpt("  \n ", 10))
}

func TestFromBytesRejectsNonPDF(t *testing.T) {
	_, err := FromBytes([]byte("not a pdf"), 100)
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), "open pdf"))
}

func TestArchiveStripsDirectories(t *testing.T) {
	root := t.TempDir()
	path, err := Archive(root, "../co-1", "../../evil/pitch.PDF", []byte("%PDF-1.4"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "co-1", "pitch.PDF"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4", string(b))

	path, err = Archive(root, "co-1", "notes.txt", nil)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "co-1", "deck.pdf"), path)
}
