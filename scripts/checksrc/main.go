// If you are AI: This script checks Go sources for the file header banner, doc
// comments on exported functions and the per-file line limit.
// Usage: go run ./scripts/checksrc [-max-lines N] <directory>

package main

import (
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const banner = "// If you are AI:"

func main() {
	maxLines := flag.Int("max-lines", 300, "Maximum lines per non-test file")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-max-lines N] <directory>\n", os.Args[0])
		os.Exit(1)
	}

	failures, err := check(flag.Arg(0), *maxLines)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error walking directory: %v\n", err)
		os.Exit(1)
	}
	if len(failures) > 0 {
		fmt.Fprintf(os.Stderr, "Source violations:\n")
		for _, f := range failures {
			fmt.Fprintf(os.Stderr, "  %s\n", f)
		}
		os.Exit(1)
	}
}

// check walks root and returns one message per violation. Directories whose
// names start with "_" or "." are skipped, as the go tool does.
func check(root string, maxLines int) ([]string, error) {
	var failures []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") ||
				name == "vendor" || name == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		failures = append(failures, checkFile(path, data, maxLines)...)
		return nil
	})
	return failures, err
}

func checkFile(path string, data []byte, maxLines int) []string {
	var failures []string
	content := string(data)
	if !strings.HasPrefix(content, banner) {
		failures = append(failures, fmt.Sprintf("%s: missing %q header", path, banner))
	}
	if strings.HasSuffix(path, "_test.go") {
		return failures
	}
	if lines := strings.Count(content, "\n"); lines > maxLines {
		failures = append(failures, fmt.Sprintf("%s: %d lines (max %d)", path, lines, maxLines))
	}

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, content, parser.ParseComments)
	if err != nil {
		return append(failures, fmt.Sprintf("%s: %v", path, err))
	}
	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || !fn.Name.IsExported() {
			continue
		}
		if fn.Doc == nil || len(fn.Doc.List) == 0 {
			pos := fset.Position(fn.Pos())
			failures = append(failures, fmt.Sprintf("%s:%d: exported function %s missing comment", path, pos.Line, fn.Name.Name))
		}
	}
	return failures
}
