package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"fhirpath/value"
)

func runSession(t *testing.T, input string, root value.Collection) string {
	t.Helper()
	var out bytes.Buffer
	Start(strings.NewReader(input), &out, root)
	return out.String()
}

func TestReplEvaluatesSimpleExpression(t *testing.T) {
	out := runSession(t, "1 + 1\n.exit\n", nil)
	assert.Contains(t, out, "2")
}

func TestReplNavigatesLoadedResource(t *testing.T) {
	patient := value.Map{Fields: map[string]value.Collection{
		"active": value.Single(value.Boolean(true)),
	}}
	out := runSession(t, "active\n.exit\n", value.Single(patient))
	assert.Contains(t, out, "true")
}

func TestReplReportsSyntaxErrors(t *testing.T) {
	out := runSession(t, "1 +\n.exit\n", nil)
	assert.Contains(t, out, "ERROR")
}

func TestReplPrintsEmptyForEmptyResult(t *testing.T) {
	out := runSession(t, "{}\n.exit\n", nil)
	assert.Contains(t, out, "{}")
}

func TestReplDebugTogglePrintsAST(t *testing.T) {
	out := runSession(t, ".debug\n1 + 2\n.exit\n", nil)
	assert.Contains(t, out, "AST")
}

func TestReplUnknownCommandIsReported(t *testing.T) {
	out := runSession(t, ".bogus\n.exit\n", nil)
	assert.Contains(t, out, "Unknown command")
}
