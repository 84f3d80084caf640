package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"pulseboard.app/ingest/tools/linters/enumvalidator"
)

func main() {
	singlechecker.Main(enumvalidator.Analyzer)
}
