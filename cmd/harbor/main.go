// Package main is the single-binary entrypoint for Harbor.
package main

import "github.com/ij369/ipa-harbor-sub000/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
