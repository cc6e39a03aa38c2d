package manifest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseError describes a syntax error with its position in the manifest.
type ParseError struct {
	File string
	Line int
	Msg  string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	name := e.File
	if name == "" {
		name = "manifest"
	}
	return fmt.Sprintf("%s:%d: %s", name, e.Line, e.Msg)
}

// ParseFile reads and parses the manifest at path.
func ParseFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	m, err := Parse(f, path)
	if err != nil {
		return nil, err
	}
	m.Path = path
	return m, nil
}

// Parse parses a manifest from r. The name is used in error positions only.
//
// The format is line oriented: `[Section]` headers switch sections, `;`
// starts a comment line, blank lines are skipped. [Setup] lines are
// `Key=Value` pairs; entry sections ([Files], [Icons], [Tasks]) use
// parameterized lines of the form
//
//	Source: "assets\*"; DestDir: "{app}\assets"; Flags: recursesubdirs
func Parse(r io.Reader, name string) (*Manifest, error) {
	m := &Manifest{}
	section := ""

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}

		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return nil, &ParseError{File: name, Line: lineNo, Msg: "unterminated section header"}
			}
			section = strings.TrimSpace(line[1 : len(line)-1])
			switch section {
			case SectionSetup, SectionFiles, SectionIcons, SectionTasks:
			default:
				return nil, &ParseError{File: name, Line: lineNo, Msg: fmt.Sprintf("unknown section %q", section)}
			}
			continue
		}

		var err error
		switch section {
		case SectionSetup:
			err = parseSetupLine(&m.Setup, line, name, lineNo)
		case SectionFiles:
			err = parseFileLine(m, line, name, lineNo)
		case SectionIcons:
			err = parseIconLine(m, line, name, lineNo)
		case SectionTasks:
			err = parseTaskLine(m, line, name, lineNo)
		default:
			err = &ParseError{File: name, Line: lineNo, Msg: "directive outside of any section"}
		}
		if err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return m, nil
}

// parseSetupLine handles a Key=Value line in [Setup].
func parseSetupLine(s *AppSettings, line, file string, lineNo int) error {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return &ParseError{File: file, Line: lineNo, Msg: "expected Key=Value"}
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	switch key {
	case "AppName":
		s.AppName = value
	case "AppVersion":
		s.AppVersion = value
	case "DefaultDirName":
		s.DefaultDirName = value
	case "DefaultGroupName":
		s.DefaultGroupName = value
	case "UninstallDisplayIcon":
		s.UninstallDisplayIcon = value
	case "OutputDir":
		s.OutputDir = value
	case "OutputBaseFilename":
		s.OutputBaseFilename = value
	case "Compression":
		c, err := ParseCompression(value)
		if err != nil {
			return &ParseError{File: file, Line: lineNo, Msg: err.Error()}
		}
		s.Compression = c
	default:
		return &ParseError{File: file, Line: lineNo, Msg: fmt.Sprintf("unknown [Setup] key %q", key)}
	}
	return nil
}

// parseFileLine handles one [Files] entry.
func parseFileLine(m *Manifest, line, file string, lineNo int) error {
	params, err := parseParams(line, file, lineNo)
	if err != nil {
		return err
	}

	rule := FileRule{Line: lineNo}
	for key, value := range params {
		switch key {
		case "Source":
			rule.Source = value
		case "DestDir":
			rule.DestDir = value
		case "Flags":
			for _, flag := range strings.Fields(value) {
				switch strings.ToLower(flag) {
				case "ignoreversion":
					rule.IgnoreVersion = true
				case "recursesubdirs":
					rule.RecurseSubdirs = true
				default:
					return &ParseError{File: file, Line: lineNo, Msg: fmt.Sprintf("unknown file flag %q", flag)}
				}
			}
		default:
			return &ParseError{File: file, Line: lineNo, Msg: fmt.Sprintf("unknown [Files] parameter %q", key)}
		}
	}
	if rule.Source == "" {
		return &ParseError{File: file, Line: lineNo, Msg: "[Files] entry is missing Source"}
	}
	if rule.DestDir == "" {
		return &ParseError{File: file, Line: lineNo, Msg: "[Files] entry is missing DestDir"}
	}
	m.Files = append(m.Files, rule)
	return nil
}

// parseIconLine handles one [Icons] entry.
func parseIconLine(m *Manifest, line, file string, lineNo int) error {
	params, err := parseParams(line, file, lineNo)
	if err != nil {
		return err
	}

	sc := Shortcut{Line: lineNo}
	for key, value := range params {
		switch key {
		case "Name":
			sc.Name = value
		case "Filename":
			sc.Target = value
		case "Tasks":
			sc.Tasks = strings.Fields(value)
		default:
			return &ParseError{File: file, Line: lineNo, Msg: fmt.Sprintf("unknown [Icons] parameter %q", key)}
		}
	}
	if sc.Name == "" {
		return &ParseError{File: file, Line: lineNo, Msg: "[Icons] entry is missing Name"}
	}
	if sc.Target == "" {
		return &ParseError{File: file, Line: lineNo, Msg: "[Icons] entry is missing Filename"}
	}
	m.Icons = append(m.Icons, sc)
	return nil
}

// parseTaskLine handles one [Tasks] entry.
func parseTaskLine(m *Manifest, line, file string, lineNo int) error {
	params, err := parseParams(line, file, lineNo)
	if err != nil {
		return err
	}

	task := Task{Line: lineNo}
	for key, value := range params {
		switch key {
		case "Name":
			task.Name = value
		case "Description":
			task.Description = value
		case "GroupDescription":
			task.GroupDescription = value
		default:
			return &ParseError{File: file, Line: lineNo, Msg: fmt.Sprintf("unknown [Tasks] parameter %q", key)}
		}
	}
	if task.Name == "" {
		return &ParseError{File: file, Line: lineNo, Msg: "[Tasks] entry is missing Name"}
	}
	m.Tasks = append(m.Tasks, task)
	return nil
}

// parseParams splits a parameterized entry line into its Key: value pairs.
// Values may be double-quoted; quotes are required when the value contains
// a semicolon. A doubled quote inside a quoted value escapes it.
func parseParams(line, file string, lineNo int) (map[string]string, error) {
	params := make(map[string]string)
	rest := line
	for rest != "" {
		key, after, ok := strings.Cut(rest, ":")
		if !ok {
			return nil, &ParseError{File: file, Line: lineNo, Msg: fmt.Sprintf("expected parameter, got %q", rest)}
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, &ParseError{File: file, Line: lineNo, Msg: "empty parameter name"}
		}
		if _, dup := params[key]; dup {
			return nil, &ParseError{File: file, Line: lineNo, Msg: fmt.Sprintf("duplicate parameter %q", key)}
		}

		value, remainder, err := scanValue(strings.TrimLeft(after, " \t"))
		if err != nil {
			return nil, &ParseError{File: file, Line: lineNo, Msg: err.Error()}
		}
		params[key] = value
		rest = strings.TrimSpace(remainder)
	}
	return params, nil
}

// scanValue reads one parameter value, quoted or bare, and returns the text
// after the separating semicolon.
func scanValue(s string) (value, rest string, err error) {
	if strings.HasPrefix(s, `"`) {
		var b strings.Builder
		i := 1
		for i < len(s) {
			if s[i] != '"' {
				b.WriteByte(s[i])
				i++
				continue
			}
			if i+1 < len(s) && s[i+1] == '"' {
				b.WriteByte('"')
				i += 2
				continue
			}
			// Closing quote. Consume an optional separator.
			rest = strings.TrimSpace(s[i+1:])
			rest = strings.TrimPrefix(rest, ";")
			return b.String(), rest, nil
		}
		return "", "", fmt.Errorf("unterminated quoted value")
	}

	if i := strings.IndexByte(s, ';'); i >= 0 {
		return strings.TrimSpace(s[:i]), s[i+1:], nil
	}
	return strings.TrimSpace(s), "", nil
}
