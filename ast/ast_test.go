package ast_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/caffeineduck/wexpr/ast"
	"github.com/google/go-cmp/cmp"
)

func TestWalkOrders(t *testing.T) {
	root := ast.Sample()

	var pre, post []string
	ast.Walk(root, ast.PreOrder, func(n ast.Node) error {
		pre = append(pre, label(n))
		return nil
	})
	ast.Walk(root, ast.PostOrder, func(n ast.Node) error {
		post = append(post, label(n))
		return nil
	})

	wantPre := []string{"add", "print", "add", "10", "mul", "2", "5", "30"}
	wantPost := []string{"10", "2", "5", "mul", "add", "print", "30", "add"}

	if diff := cmp.Diff(wantPre, pre); diff != "" {
		t.Errorf("pre-order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantPost, post); diff != "" {
		t.Errorf("post-order mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkStopsOnError(t *testing.T) {
	stop := errors.New("stop")
	visited := 0
	err := ast.Walk(ast.Sample(), ast.PreOrder, func(n ast.Node) error {
		visited++
		if visited == 3 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected stop error, got %v", err)
	}
	if visited != 3 {
		t.Errorf("expected 3 visits, got %d", visited)
	}
}

func TestWalkDeepTree(t *testing.T) {
	var root ast.Node = ast.Num(1)
	for i := 0; i < 200000; i++ {
		root = ast.Add(root, ast.Num(1))
	}
	if got := ast.Count(root); got != 400001 {
		t.Errorf("expected 400001 nodes, got %d", got)
	}
}

func TestWalkSkipsMissingChildren(t *testing.T) {
	root := &ast.Binary{Op: ast.OpAdd, Left: ast.Num(1)}
	if got := ast.Count(root); got != 2 {
		t.Errorf("expected 2 nodes, got %d", got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"42", "42"},
		{"-7", "-7"},
		{"1 + 2 + 3", "1 + 2 + 3"},
		{"1 + (2 + 3)", "1 + (2 + 3)"},
		{"2 * 3 + 4", "2 * 3 + 4"},
		{"2 * (3 + 4)", "2 * (3 + 4)"},
		{"print(10 + 2 * 5) + 30", "print(10 + 2 * 5) + 30"},
		{"  print ( print(1) )  ", "print(print(1))"},
		{"((5))", "5"},
	}

	for _, tt := range tests {
		n, err := ast.Parse(tt.src)
		if err != nil {
			t.Errorf("Parse(%q): unexpected error: %v", tt.src, err)
			continue
		}
		if got := ast.Format(n); got != tt.want {
			t.Errorf("Format(Parse(%q)) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestParseSampleShape(t *testing.T) {
	n, err := ast.Parse("print(10 + 2 * 5) + 30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(ast.Sample(), n); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"",
		"1 +",
		"(1 + 2",
		"foo(1)",
		"print 1",
		"1 2",
		"99999999999",
		"1 - 2",
	}

	for _, src := range tests {
		_, err := ast.Parse(src)
		var syn *ast.SyntaxError
		if !errors.As(err, &syn) {
			t.Errorf("Parse(%q): expected SyntaxError, got %v", src, err)
		}
	}
}

func TestDecodeDocumentYAML(t *testing.T) {
	doc := `
add:
  - print:
      add: [10, {mul: [2, 5]}]
  - 30
`
	n, err := ast.DecodeDocument([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(ast.Sample(), n); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeDocumentJSON(t *testing.T) {
	doc := `{"add": [{"print": {"add": [10, {"mul": [2, 5]}]}}, 30]}`
	n, err := ast.DecodeDocument([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ast.Format(n); got != "print(10 + 2 * 5) + 30" {
		t.Errorf("unexpected tree %q", got)
	}
}

func TestDecodeDocumentErrors(t *testing.T) {
	tests := []struct {
		doc  string
		want string
	}{
		{"", "empty document"},
		{"add: [1]", "exactly two operands"},
		{"sub: [1, 2]", "unknown node kind"},
		{"hello", "expected 32-bit integer"},
		{"[1, 2]", "unexpected sequence"},
		{"{add: [1, 2], mul: [3, 4]}", "single-key mapping"},
	}

	for _, tt := range tests {
		_, err := ast.DecodeDocument([]byte(tt.doc))
		if err == nil {
			t.Errorf("DecodeDocument(%q): expected error", tt.doc)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("DecodeDocument(%q): error %q should contain %q", tt.doc, err, tt.want)
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	exprPath := filepath.Join(dir, "tree.expr")
	os.WriteFile(exprPath, []byte("print(3) * 4\n"), 0o644)

	yamlPath := filepath.Join(dir, "tree.yaml")
	os.WriteFile(yamlPath, []byte("mul: [{print: 3}, 4]\n"), 0o644)

	for _, path := range []string{exprPath, yamlPath} {
		n, err := ast.LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile(%s): %v", path, err)
		}
		if got := ast.Format(n); got != "print(3) * 4" {
			t.Errorf("LoadFile(%s) = %q", path, got)
		}
	}

	if _, err := ast.LoadFile(filepath.Join(dir, "missing.expr")); err == nil {
		t.Error("expected error for missing file")
	}
}

func label(n ast.Node) string {
	switch n := n.(type) {
	case *ast.Number:
		return ast.Format(n)
	case *ast.Binary:
		return n.Op.String()
	case *ast.Print:
		return "print"
	}
	return "?"
}
