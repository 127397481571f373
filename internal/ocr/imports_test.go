package ocr

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// packageImports lists the imports of the non-test files in dir.
func packageImports(t *testing.T, dir string) map[string]bool {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	imports := map[string]bool{}
	fset := token.NewFileSet()
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		require.NoError(t, err)
		for _, imp := range f.Imports {
			path, err := strconv.Unquote(imp.Path.Value)
			require.NoError(t, err)
			imports[path] = true
		}
	}
	return imports
}

func TestTesseractStaysOutOfPureGoPackages(t *testing.T) {
	for _, dir := range []string{".", "../parser"} {
		imports := packageImports(t, dir)
		require.NotEmpty(t, imports, dir)
		assert.False(t, imports["github.com/otiai10/gosseract/v2"], "%s imports gosseract", dir)
		assert.False(t, imports["document-oracle/internal/ocr/tesseract"], "%s imports the tesseract client", dir)
	}
	assert.True(t, packageImports(t, "tesseract")["github.com/otiai10/gosseract/v2"])
}
