// Package surface extracts the import/export surface syntax from a module's
// raw source text and strips it out, leaving source the base-language parser
// can consume unmodified.
package surface

import (
	"fmt"
	"strings"
)

type Binding struct {
	Name  string
	Alias string // equals Name when no "as" rename appears
}

type Import struct {
	SourceSpecifier string
	Bindings        []Binding
}

type Export struct {
	Names []string
}

type Result struct {
	Imports    []Import
	Exports    []Export
	CleanedSrc string
}

type Error struct {
	Line int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Extract recognizes the following surface grammar:
//
//	import NAME [as ALIAS] { , NAME [as ALIAS] } from "SPECIFIER"
//	export local function NAME ( … ) … end
//	export local NAME { , NAME } [ = RHS { , RHS } ]
//
// Exports without "local" are a syntax error. cleaned_src has the "import"
// lines removed and the "export" keyword stripped, preserving byte
// positions of surrounding code as closely as a line-oriented scan allows.
func Extract(src string) (*Result, error) {
	lines := strings.Split(src, "\n")
	var out []string
	res := &Result{}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "import "):
			imp, err := parseImportLine(trimmed, i+1)
			if err != nil {
				return nil, err
			}
			res.Imports = append(res.Imports, *imp)
			out = append(out, "")

		case strings.HasPrefix(trimmed, "export "):
			rest := strings.TrimPrefix(trimmed, "export ")
			rest = strings.TrimLeft(rest, " \t")
			if !strings.HasPrefix(rest, "local ") {
				return nil, &Error{Line: i + 1, Msg: `export must be followed by "local"`}
			}
			names, err := exportedNames(rest, i+1)
			if err != nil {
				return nil, err
			}
			res.Exports = append(res.Exports, Export{Names: names})

			// Strip only the "export " keyword; keep the rest of the line
			// (the local declaration) so the base parser still sees it and
			// byte offsets past this point are preserved.
			idx := strings.Index(line, "export ")
			cleaned := line[:idx] + line[idx+len("export "):]
			out = append(out, cleaned)

		default:
			out = append(out, line)
		}
	}

	res.CleanedSrc = strings.Join(out, "\n")
	return res, nil
}

// parseImportLine handles: import NAME [as ALIAS] {, NAME [as ALIAS]} from "SPEC"
func parseImportLine(line string, lineNo int) (*Import, error) {
	rest := strings.TrimPrefix(line, "import ")
	fromIdx := strings.LastIndex(rest, " from ")
	if fromIdx < 0 {
		return nil, &Error{Line: lineNo, Msg: `expected "from" in import declaration`}
	}
	bindingsPart := rest[:fromIdx]
	specPart := strings.TrimSpace(rest[fromIdx+len(" from "):])

	spec, err := unquote(specPart, lineNo)
	if err != nil {
		return nil, err
	}

	var bindings []Binding
	for _, field := range strings.Split(bindingsPart, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		parts := strings.Fields(field)
		switch len(parts) {
		case 1:
			bindings = append(bindings, Binding{Name: parts[0], Alias: parts[0]})
		case 3:
			if parts[1] != "as" {
				return nil, &Error{Line: lineNo, Msg: `expected "as" in import binding`}
			}
			bindings = append(bindings, Binding{Name: parts[0], Alias: parts[2]})
		default:
			return nil, &Error{Line: lineNo, Msg: `malformed import binding`}
		}
	}
	if len(bindings) == 0 {
		return nil, &Error{Line: lineNo, Msg: `import declares no bindings`}
	}

	return &Import{SourceSpecifier: spec, Bindings: bindings}, nil
}

func unquote(s string, lineNo int) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", &Error{Line: lineNo, Msg: "import specifier must be a quoted string"}
	}
	return s[1 : len(s)-1], nil
}

// exportedNames handles the two forms following "export local":
//
//	function NAME(...)
//	NAME {, NAME} [= ...]
func exportedNames(afterExport string, lineNo int) ([]string, error) {
	rest := strings.TrimPrefix(afterExport, "local ")
	rest = strings.TrimLeft(rest, " \t")

	if strings.HasPrefix(rest, "function ") {
		rest = strings.TrimPrefix(rest, "function ")
		rest = strings.TrimLeft(rest, " \t")
		name := scanIdentifier(rest)
		if name == "" {
			return nil, &Error{Line: lineNo, Msg: "expected function name after export local function"}
		}
		return []string{name}, nil
	}

	// "NAME {, NAME} [= ...]" — only the name list before "=" matters.
	if eq := strings.Index(rest, "="); eq >= 0 {
		rest = rest[:eq]
	}
	var names []string
	for _, part := range strings.Split(rest, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, &Error{Line: lineNo, Msg: "export local declares no names"}
	}
	return names, nil
}

func scanIdentifier(s string) string {
	end := 0
	for end < len(s) {
		c := s[end]
		isAlpha := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isDigit := c >= '0' && c <= '9'
		if end == 0 && !isAlpha {
			break
		}
		if !isAlpha && !isDigit {
			break
		}
		end++
	}
	return s[:end]
}
