package main

import (
	"github.com/reparse-dev/reparse/internal/cache"
	"github.com/reparse-dev/reparse/internal/compile"
)

func canonicalInput(pattern, inputExpr string, decls []compile.CaptureDecl) cache.CanonicalInput {
	in := cache.CanonicalInput{Pattern: pattern, InputExpr: inputExpr}
	for _, d := range decls {
		in.Decls = append(in.Decls, cache.CanonicalDecl{Name: d.Name, GoType: d.GoType, Slice: d.Slice})
	}
	return in
}
