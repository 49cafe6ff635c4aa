// Package testutil holds test helpers that enforce the layering between the
// public contract packages (pkg/...), the dataset modules (plugins/...) and
// the implementation packages (internal/...).
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// Module is the import path prefix of this repository.
const Module = "sitereport"

// AssertNoTransitiveDependency runs `go list -deps` on pattern and fails t when
// any dependency matches forbidden.
func AssertNoTransitiveDependency(t testing.TB, pattern string, forbidden func(path string) bool, reason string) {
	t.Helper()
	viols, out, err := transitiveDependencyViolations(pattern, forbidden)
	if err != nil {
		t.Fatalf("go list failed: %v\n%s", err, string(out))
	}
	failIfViolations(t, "forbidden transitive dependency detected", reason, viols)
}

// AssertNoDirectImports parses the non-test .go files in dir and fails t when
// an import matches forbidden. Build tags are ignored.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	failIfViolations(t, "forbidden direct imports detected", reason, viols)
}

// InternalImportForbidden matches the module's own internal packages.
func InternalImportForbidden(path string) bool {
	return strings.HasPrefix(path, Module+"/internal/")
}

// PluginImportForbidden matches the dataset module packages.
func PluginImportForbidden(path string) bool {
	return path == Module+"/plugins" || strings.HasPrefix(path, Module+"/plugins/")
}

// AnyOf matches a path when one of the predicates does.
func AnyOf(predicates ...func(string) bool) func(string) bool {
	return func(path string) bool {
		for _, p := range predicates {
			if p(path) {
				return true
			}
		}
		return false
	}
}

// Except wraps forbidden so the listed paths are always allowed.
func Except(forbidden func(string) bool, allowed ...string) func(string) bool {
	return func(path string) bool {
		for _, a := range allowed {
			if path == a {
				return false
			}
		}
		return forbidden(path)
	}
}

var goListDeps = func(pattern string) ([]byte, error) {
	cmd := exec.Command("go", "list", "-deps", pattern)
	return cmd.CombinedOutput()
}

func transitiveDependencyViolations(pattern string, forbidden func(path string) bool) ([]string, []byte, error) {
	out, err := goListDeps(pattern)
	if err != nil {
		return nil, out, err
	}
	var viols []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && forbidden(line) {
			viols = append(viols, line)
		}
	}
	return viols, out, nil
}

func directImportViolations(dir string, forbidden func(importPath string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range file.Imports {
			ip := strings.Trim(imp.Path.Value, "\"")
			if forbidden(ip) {
				viols = append(viols, ip+" (in "+name+")")
			}
		}
	}
	sort.Strings(viols)
	return viols, nil
}

type fatalLogger interface {
	Fatalf(format string, args ...any)
}

func failIfViolations(t fatalLogger, headline, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("%s (%s):\n%s", headline, reason, strings.Join(viols, "\n"))
	}
}
