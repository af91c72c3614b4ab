// Command fhirpath is the CLI driver around the fhirpath package
// (spec.md §1 lists the command-line driver as an external collaborator
// of the core, not part of it — this is that collaborator).
package main

import (
	"context"
	"fmt"
	"os"

	"fhirpath"
	"fhirpath/repl"
	"fhirpath/value"
)

func main() {
	// fhirpath [resource.json] [expression]
	// - no args: REPL against an empty input collection
	// - one arg: REPL with that JSON file loaded as the evaluation root
	// - two args: evaluate the expression once against the loaded resource and exit
	switch len(os.Args) {
	case 1:
		repl.Start(os.Stdin, os.Stdout, nil)
	case 2:
		root := loadResource(os.Args[1])
		repl.Start(os.Stdin, os.Stdout, root)
	default:
		root := loadResource(os.Args[1])
		runExpression(os.Args[2], root)
	}
}

func loadResource(path string) value.Collection {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading resource: %s\n", err)
		os.Exit(1)
	}
	root, err := value.FromJSON(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing resource JSON: %s\n", err)
		os.Exit(1)
	}
	return root
}

func runExpression(expr string, root value.Collection) {
	result, err := fhirpath.EvaluateString(context.Background(), expr, root, fhirpath.Config{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	for _, v := range result {
		fmt.Println(v.String())
	}
}
