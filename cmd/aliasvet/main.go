// Command aliasvet reports redundant loads found by the alias analysis.
//
// Usage:
//
//	aliasvet ./...
//
// Or as a vet tool:
//
//	go vet -vettool=$(which aliasvet) ./...
package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/BarrensZeppelin/alias/aliasanalyzer"
)

func main() {
	singlechecker.Main(aliasanalyzer.Analyzer)
}
