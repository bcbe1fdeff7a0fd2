package main

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"strconv"
)

// fixImports reparses src after splicing and reconciles its import block:
// it adds strconv/scanerr/unicode-utf8 imports the generated code now
// needs, and drops the reparse marker-package import once no call site
// references it anymore. This is the generator-tool equivalent of running
// goimports after a source rewrite, scoped to the one package this tool
// actually introduces or removes references to.
func fixImports(path string, src []byte) ([]byte, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("reparsing after splice: %w", err)
	}

	used := usedQualifiers(file)

	needed := map[string]string{} // local name -> import path
	if used["strconv"] {
		needed["strconv"] = "strconv"
	}
	if used["scanerr"] {
		needed["scanerr"] = scanerrPkgPath
	}
	if used["utf8"] {
		needed["utf8"] = "unicode/utf8"
	}

	removeUnusedImport(file, reparsePkgPath, used)
	addMissingImports(file, needed)

	var buf bytes.Buffer
	if err := format.Node(&buf, fset, file); err != nil {
		return nil, fmt.Errorf("formatting after import fixup: %w", err)
	}
	return buf.Bytes(), nil
}

// usedQualifiers collects every identifier used as the package qualifier
// in a selector expression (pkg.Ident), which is what determines whether
// an import is still referenced after the splice.
func usedQualifiers(file *ast.File) map[string]bool {
	used := map[string]bool{}
	ast.Inspect(file, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		if ident, ok := sel.X.(*ast.Ident); ok {
			used[ident.Name] = true
		}
		return true
	})
	return used
}

func removeUnusedImport(file *ast.File, pkgPath string, used map[string]bool) {
	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.IMPORT {
			continue
		}
		var kept []ast.Spec
		for _, spec := range genDecl.Specs {
			importSpec := spec.(*ast.ImportSpec)
			path, err := strconv.Unquote(importSpec.Path.Value)
			if err != nil || path != pkgPath {
				kept = append(kept, spec)
				continue
			}
			alias := importSpec.Name
			localName := "reparse"
			if alias != nil {
				localName = alias.Name
			}
			if used[localName] {
				kept = append(kept, spec) // still referenced elsewhere in the file
			}
		}
		genDecl.Specs = kept
	}
}

func addMissingImports(file *ast.File, needed map[string]string) {
	for local, path := range needed {
		if hasImport(file, path) {
			continue
		}
		spec := &ast.ImportSpec{Path: &ast.BasicLit{Kind: token.STRING, Value: strconv.Quote(path)}}
		attachImport(file, spec, local, path)
	}
}

func hasImport(file *ast.File, path string) bool {
	for _, imp := range file.Imports {
		if p, err := strconv.Unquote(imp.Path.Value); err == nil && p == path {
			return true
		}
	}
	return false
}

// attachImport appends spec to the file's existing import block, creating
// one right after the package clause if the file had no imports at all.
func attachImport(file *ast.File, spec *ast.ImportSpec, local, path string) {
	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if ok && genDecl.Tok == token.IMPORT {
			genDecl.Specs = append(genDecl.Specs, spec)
			file.Imports = append(file.Imports, spec)
			return
		}
	}

	genDecl := &ast.GenDecl{Tok: token.IMPORT, Lparen: token.NoPos, Specs: []ast.Spec{spec}}
	file.Decls = append([]ast.Decl{genDecl}, file.Decls...)
	file.Imports = append(file.Imports, spec)
}
