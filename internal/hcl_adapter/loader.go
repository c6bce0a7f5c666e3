package hcl_adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/tempogrid/internal/ctxlog"
	"github.com/specialistvlad/tempogrid/internal/document"
	"github.com/zclconf/go-cty/cty"
)

// ErrProgramBlock is returned when a file does not hold exactly one program
// block.
var ErrProgramBlock = errors.New("expected exactly one program block")

// Loader is the HCL implementation of the document.Loader interface.
type Loader struct {
	// vars are values supplied from outside the file. They take precedence
	// over the defaults declared in variable blocks.
	vars map[string]cty.Value
}

// NewLoader creates a new HCL document loader. Each raw value is parsed with
// ParseVar.
func NewLoader(vars map[string]string) *Loader {
	l := &Loader{vars: make(map[string]cty.Value, len(vars))}
	for name, raw := range vars {
		l.vars[name] = ParseVar(raw)
	}
	return l
}

// Decode implements document.Loader.
func (l *Loader) Decode(ctx context.Context, filename string, src []byte) (*document.Document, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Decoding HCL document.", "file", filename, "bytes", len(src))

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var vroot variablesRoot
	diags = gohcl.DecodeBody(file.Body, nil, &vroot)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode variables in %s: %w", filename, diags)
	}

	evalCtx, err := l.evalContext(vroot.Variables)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	var root programRoot
	diags = gohcl.DecodeBody(vroot.Remain, evalCtx, &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}
	if len(root.Programs) != 1 {
		return nil, fmt.Errorf("%w in %s, found %d", ErrProgramBlock, filename, len(root.Programs))
	}

	doc := translateProgram(root.Programs[0])
	logger.Debug("HCL decoding complete.", "program", doc.ProgramID, "tracks", len(doc.Tracks), "resources", len(doc.ResourceConstraints))
	return doc, nil
}

// evalContext exposes the variables under the "var" namespace.
func (l *Loader) evalContext(declared []*variableBlock) (*hcl.EvalContext, error) {
	values := make(map[string]cty.Value, len(declared)+len(l.vars))
	for _, v := range declared {
		if v.Default.IsNull() {
			continue
		}
		values[v.Name] = v.Default
	}
	for name, v := range l.vars {
		values[name] = v
	}
	for _, v := range declared {
		if _, ok := values[v.Name]; !ok {
			return nil, fmt.Errorf("variable %q has no default and no value was supplied", v.Name)
		}
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"var": cty.ObjectVal(values),
		},
	}, nil
}

// ParseVar converts a command-line value into a cty value: numbers and
// booleans are recognized, anything else is a string.
func ParseVar(raw string) cty.Value {
	switch raw {
	case "true":
		return cty.True
	case "false":
		return cty.False
	}
	if n, err := cty.ParseNumberVal(raw); err == nil {
		return n
	}
	return cty.StringVal(raw)
}
