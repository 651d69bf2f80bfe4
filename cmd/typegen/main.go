// Command typegen parses the Go event structs and generates the TypeScript
// declarations used by the browser client. Run from the project root:
//
//	go run ./cmd/typegen -out web/src/types/generated.ts
//
// Every struct with a GetId method becomes an interface plus an entry in the
// EventPayloads map keyed by its event id.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// structInfo stores parsed information about a Go struct.
type structInfo struct {
	name    string
	eventID string // value returned by GetId, empty for plain structs
	fields  []fieldInfo
	pkg     string
}

// fieldInfo stores parsed information about a struct field.
type fieldInfo struct {
	jsonName string
	goType   string
	optional bool
}

// typeMapping maps Go type strings to TypeScript type strings.
var typeMapping = map[string]string{
	"string":                 "string",
	"int":                    "number",
	"int32":                  "number",
	"int64":                  "number",
	"uint":                   "number",
	"uint8":                  "number",
	"float32":                "number",
	"float64":                "number",
	"bool":                   "boolean",
	"any":                    "unknown",
	"interface{}":            "unknown",
	"json.RawMessage":        "unknown",
	"map[string]string":      "Record<string, string>",
	"map[string]interface{}": "Record<string, unknown>",
}

// typeOverrides replaces the inferred TS type of a named Go type.
var typeOverrides = map[string]string{
	"MessageType": "EventId | 'protocol.error'",
}

// sourceDirs are scanned relative to the project root.
var sourceDirs = []string{
	"core",
	"protocol",
	"events/chat",
	"events/stt",
	"events/tts",
	"events/ui",
}

// plainStructs are generated even though they are not events.
var plainStructs = []string{"Source", "Message", "Envelope", "ErrorPayload"}

// requiredFields lists fields that are always present on the wire even
// though they carry omitempty.
var requiredFields = map[string]map[string]bool{
	"PlaybackStateChangedEvent": {"state": true},
}

type generator struct {
	structs     map[string]*structInfo
	typeAliases map[string]string
	constValues map[string][]string
}

func newGenerator() *generator {
	return &generator{
		structs:     map[string]*structInfo{},
		typeAliases: map[string]string{},
		constValues: map[string][]string{},
	}
}

func main() {
	outPath := flag.String("out", "web/src/types/generated.ts", "output TypeScript file path")
	flag.Parse()

	root, err := os.Getwd()
	if err != nil {
		fatal("getwd: %v", err)
	}

	out, err := generate(root)
	if err != nil {
		fatal("%v", err)
	}

	absOut := *outPath
	if !filepath.IsAbs(absOut) {
		absOut = filepath.Join(root, absOut)
	}
	if err := os.MkdirAll(filepath.Dir(absOut), 0o755); err != nil {
		fatal("mkdir: %v", err)
	}
	if err := os.WriteFile(absOut, out, 0o644); err != nil {
		fatal("write: %v", err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d bytes)\n", absOut, len(out))
}

// generate parses sourceDirs under root and returns the TypeScript output.
func generate(root string) ([]byte, error) {
	g := newGenerator()
	for _, rel := range sourceDirs {
		if err := g.parseDir(filepath.Join(root, rel), rel); err != nil {
			return nil, fmt.Errorf("parse %s: %w", rel, err)
		}
	}

	var buf bytes.Buffer
	buf.WriteString("// Code generated by cmd/typegen; DO NOT EDIT.\n")
	buf.WriteString("// Source: Go structs from " + strings.Join(sourceDirs, ", ") + "\n\n")

	for _, name := range plainStructs {
		si, ok := g.structs[name]
		if !ok {
			return nil, fmt.Errorf("struct %q not found", name)
		}
		g.writeInterface(&buf, si)
	}

	events := g.events()
	for _, si := range events {
		g.writeInterface(&buf, si)
	}
	writeEventMap(&buf, events)
	return buf.Bytes(), nil
}

// events returns every struct with an event id, sorted by id.
func (g *generator) events() []*structInfo {
	var out []*structInfo
	for _, si := range g.structs {
		if si.eventID != "" {
			out = append(out, si)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].eventID < out[j].eventID })
	return out
}

// parseDir parses all non-test .go files in a directory.
func (g *generator) parseDir(dir, rel string) error {
	fset := token.NewFileSet()
	notTest := func(fi os.FileInfo) bool { return !strings.HasSuffix(fi.Name(), "_test.go") }
	pkgs, err := parser.ParseDir(fset, dir, notTest, 0)
	if err != nil {
		return err
	}

	ids := map[string]string{}
	for _, pkg := range pkgs {
		for _, file := range pkg.Files {
			for _, decl := range file.Decls {
				switch d := decl.(type) {
				case *ast.GenDecl:
					g.parseGenDecl(d, rel)
				case *ast.FuncDecl:
					if recv, id, ok := getIDMethod(d); ok {
						ids[recv] = id
					}
				}
			}
		}
	}
	for recv, id := range ids {
		if si, ok := g.structs[recv]; ok && si.pkg == rel {
			si.eventID = id
		}
	}
	return nil
}

func (g *generator) parseGenDecl(decl *ast.GenDecl, rel string) {
	switch decl.Tok {
	case token.TYPE:
		for _, spec := range decl.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			// Named types such as `type Role string`.
			if ident, ok := ts.Type.(*ast.Ident); ok {
				g.typeAliases[ts.Name.Name] = ident.Name
				continue
			}
			st, ok := ts.Type.(*ast.StructType)
			if !ok {
				continue
			}
			if _, exists := g.structs[ts.Name.Name]; exists {
				continue
			}
			g.structs[ts.Name.Name] = parseStruct(ts.Name.Name, st, rel)
		}

	case token.CONST:
		// `const RoleUser Role = "user"` turns Role into a union.
		for _, spec := range decl.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok || vs.Type == nil || len(vs.Values) == 0 {
				continue
			}
			typeName := typeExprToString(vs.Type)
			for _, val := range vs.Values {
				lit, ok := val.(*ast.BasicLit)
				if !ok || lit.Kind != token.STRING {
					continue
				}
				s, err := strconv.Unquote(lit.Value)
				if err != nil {
					continue
				}
				g.constValues[typeName] = append(g.constValues[typeName], s)
			}
		}
	}
}

// getIDMethod matches `func (e *T) GetId() string { return "id" }`.
func getIDMethod(fn *ast.FuncDecl) (recv, id string, ok bool) {
	if fn.Name.Name != "GetId" || fn.Recv == nil || len(fn.Recv.List) != 1 || fn.Body == nil {
		return "", "", false
	}
	recv = strings.TrimPrefix(typeExprToString(fn.Recv.List[0].Type), "*")
	if len(fn.Body.List) != 1 {
		return "", "", false
	}
	ret, isRet := fn.Body.List[0].(*ast.ReturnStmt)
	if !isRet || len(ret.Results) != 1 {
		return "", "", false
	}
	lit, isLit := ret.Results[0].(*ast.BasicLit)
	if !isLit || lit.Kind != token.STRING {
		return "", "", false
	}
	id, err := strconv.Unquote(lit.Value)
	if err != nil {
		return "", "", false
	}
	return recv, id, true
}

// parseStruct extracts the JSON-visible fields of a struct.
func parseStruct(name string, st *ast.StructType, pkg string) *structInfo {
	si := &structInfo{name: name, pkg: pkg}
	for _, field := range st.Fields.List {
		if field.Tag == nil || len(field.Names) == 0 {
			continue
		}
		tag := reflect.StructTag(strings.Trim(field.Tag.Value, "`"))
		parts := strings.Split(tag.Get("json"), ",")
		jsonName := parts[0]
		if jsonName == "" || jsonName == "-" {
			continue
		}

		omitempty := false
		for _, p := range parts[1:] {
			if p == "omitempty" {
				omitempty = true
			}
		}
		_, isPointer := field.Type.(*ast.StarExpr)

		si.fields = append(si.fields, fieldInfo{
			jsonName: jsonName,
			goType:   typeExprToString(field.Type),
			optional: omitempty || isPointer,
		})
	}
	return si
}

// typeExprToString converts an AST type expression to a string representation.
func typeExprToString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + typeExprToString(t.X)
	case *ast.ArrayType:
		return "[]" + typeExprToString(t.Elt)
	case *ast.MapType:
		return "map[" + typeExprToString(t.Key) + "]" + typeExprToString(t.Value)
	case *ast.SelectorExpr:
		return typeExprToString(t.X) + "." + t.Sel.Name
	case *ast.InterfaceType:
		return "interface{}"
	default:
		return "unknown"
	}
}

// resolveType converts a Go type string to a TypeScript type string.
func (g *generator) resolveType(goType string) string {
	clean := strings.TrimPrefix(goType, "*")

	if ts, ok := typeMapping[clean]; ok {
		return ts
	}
	if strings.HasPrefix(clean, "[]") {
		return g.resolveType(clean[2:]) + "[]"
	}
	if strings.HasPrefix(clean, "map[") {
		return "Record<string, unknown>"
	}

	// core.Message -> Message
	if idx := strings.LastIndex(clean, "."); idx >= 0 {
		clean = clean[idx+1:]
	}
	if ts, ok := typeOverrides[clean]; ok {
		return ts
	}
	if _, ok := g.structs[clean]; ok {
		return clean
	}
	if vals, ok := g.constValues[clean]; ok && len(vals) > 0 {
		return buildUnionLiteral(vals)
	}
	if underlying, ok := g.typeAliases[clean]; ok {
		return g.resolveType(underlying)
	}
	return "unknown"
}

// buildUnionLiteral returns a TS inline union type from string values.
func buildUnionLiteral(vals []string) string {
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = "'" + v + "'"
	}
	return strings.Join(quoted, " | ")
}

func (g *generator) writeInterface(buf *bytes.Buffer, si *structInfo) {
	if si.eventID != "" {
		fmt.Fprintf(buf, "/** Event %q, from %s.%s */\n", si.eventID, si.pkg, si.name)
	} else {
		fmt.Fprintf(buf, "/** Generated from Go struct: %s.%s */\n", si.pkg, si.name)
	}
	if len(si.fields) == 0 {
		fmt.Fprintf(buf, "export type %s = Record<string, never>\n\n", si.name)
		return
	}
	fmt.Fprintf(buf, "export interface %s {\n", si.name)
	for _, f := range si.fields {
		opt := ""
		if f.optional && !requiredFields[si.name][f.jsonName] {
			opt = "?"
		}
		fmt.Fprintf(buf, "  %s%s: %s\n", f.jsonName, opt, g.resolveType(f.goType))
	}
	buf.WriteString("}\n\n")
}

// writeEventMap emits the event id union and the id -> payload map.
func writeEventMap(buf *bytes.Buffer, events []*structInfo) {
	ids := make([]string, len(events))
	for i, si := range events {
		ids[i] = si.eventID
	}
	buf.WriteString("export type EventId =\n  | " + strings.Join(quoteAll(ids), "\n  | ") + "\n\n")

	buf.WriteString("export interface EventPayloads {\n")
	for _, si := range events {
		fmt.Fprintf(buf, "  '%s': %s\n", si.eventID, si.name)
	}
	buf.WriteString("}\n\n")

	buf.WriteString("export type TypedEnvelope<K extends EventId = EventId> = {\n")
	buf.WriteString("  type: K\n")
	buf.WriteString("  payload?: EventPayloads[K]\n")
	buf.WriteString("}\n")
}

func quoteAll(vals []string) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = "'" + v + "'"
	}
	return out
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "typegen: "+format+"\n", args...)
	os.Exit(1)
}
