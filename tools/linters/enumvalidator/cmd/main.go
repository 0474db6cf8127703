package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"pipemail.dev/triage/tools/linters/enumvalidator"
)

func main() {
	singlechecker.Main(enumvalidator.Analyzer)
}
