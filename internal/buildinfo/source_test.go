package buildinfo

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringIncludesVersion(t *testing.T) {
	require.Contains(t, String(), "routeopt "+Version)
	require.Equal(t, Version, Info()["version"])
}

// Every Go file in the module uses tab indentation and multi-line blocks,
// matching gofmt output.
func TestSourceLayout(t *testing.T) {
	root := filepath.Join("..", "..")
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || name == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		checkLayout(t, path)
		return nil
	})
	require.NoError(t, err)
}

func checkLayout(t *testing.T, path string) {
	t.Helper()
	src, err := os.ReadFile(path)
	require.NoError(t, err)
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	require.NoError(t, err)

	line := func(p token.Pos) int { return fset.Position(p).Line }
	inRaw := map[int]bool{}
	ast.Inspect(f, func(n ast.Node) bool {
		var body *ast.BlockStmt
		switch n := n.(type) {
		case *ast.BasicLit:
			if n.Kind == token.STRING && strings.HasPrefix(n.Value, "`") {
				for l := line(n.Pos()) + 1; l <= line(n.End()); l++ {
					inRaw[l] = true
				}
			}
		case *ast.IfStmt:
			body = n.Body
		case *ast.ForStmt:
			body = n.Body
		case *ast.RangeStmt:
			body = n.Body
		case *ast.SwitchStmt:
			body = n.Body
		case *ast.TypeSwitchStmt:
			body = n.Body
		case *ast.SelectStmt:
			body = n.Body
		}
		if body != nil && len(body.List) > 0 && line(body.Lbrace) == line(body.Rbrace) {
			t.Errorf("%s:%d: block body on one line", path, line(body.Lbrace))
		}
		return true
	})

	for i, l := range strings.Split(string(src), "\n") {
		if !inRaw[i+1] && strings.HasPrefix(l, " ") {
			t.Errorf("%s:%d: indented with spaces", path, i+1)
		}
	}
}
