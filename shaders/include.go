package shaders

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const maxIncludeDepth = 50

var (
	includeRegexp       = regexp.MustCompile(`^#include "([^"]+)"$`)
	lineDirectiveRegexp = regexp.MustCompile(`^\s*#\s*line\s+([0-9]+)\b`)
)

const headerSuffix = ".h.glsl"

// ResolveIncludes replaces every `#include "<name>.h.glsl"` line in src with
// the referenced header, bracketing each splice with #line directives so the
// GL compiler reports errors against the original files. Headers may include
// further headers; the chain is limited to maxIncludeDepth, which also
// terminates include cycles.
func ResolveIncludes(s *Sources, src, filename string) (string, error) {
	return resolveIncludes(s, src, filename, nil)
}

func resolveIncludes(s *Sources, src, filename string, chain []string) (string, error) {
	if len(chain) > maxIncludeDepth {
		return "", fmt.Errorf("%w: include recursion depth exceeded %d: %s",
			ErrShaderInclude, maxIncludeDepth, strings.Join(append(chain, filename), " -> "))
	}

	var out strings.Builder
	headerNumber := 1
	lineNumber := 0
	for _, line := range strings.Split(strings.TrimRight(src, "\n"), "\n") {
		lineNumber++
		if !strings.HasPrefix(strings.TrimSpace(line), `#include "`) {
			out.WriteString(line)
			out.WriteByte('\n')
			continue
		}
		m := includeRegexp.FindStringSubmatch(line)
		if m == nil {
			return "", fmt.Errorf("%w: %s:%d: syntax error in #include directive", ErrShaderInclude, filename, lineNumber)
		}
		includeName := m[1]
		if !strings.HasSuffix(includeName, headerSuffix) {
			return "", fmt.Errorf("%w: %s:%d: file to include must have suffix %q",
				ErrShaderInclude, filename, lineNumber, headerSuffix)
		}
		header, err := s.Get(includeName)
		if err != nil {
			return "", fmt.Errorf("%s:%d: %w", filename, lineNumber, err)
		}
		resolved, err := resolveIncludes(s, header, includeName, append(chain, filename))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&out, "#line 1 %d // %s\n", headerNumber, includeName)
		headerNumber++
		out.WriteString(resolved)
		fmt.Fprintf(&out, "#line %d 0 // %s\n", lineNumber+1, filename)
	}
	return out.String(), nil
}

// FilesToLinkWith scans a main fragment source for `#include "X.h.glsl"`
// directives and returns the sorted set of companion "X.frag" sources that
// exist in the table. The constants header is declaration-only and has no
// companion. The scan follows companions recursively so that helpers of
// helpers are linked too.
func FilesToLinkWith(s *Sources, filename string) ([]string, error) {
	set := map[string]bool{}
	if err := collectLinkSet(s, filename, set, 0); err != nil {
		return nil, err
	}
	delete(set, filename)
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func collectLinkSet(s *Sources, filename string, set map[string]bool, depth int) error {
	if depth > maxIncludeDepth {
		return fmt.Errorf("%w: companion scan recursion depth exceeded %d at %q",
			ErrShaderInclude, maxIncludeDepth, filename)
	}
	src, err := s.Get(filename)
	if err != nil {
		return err
	}
	for _, line := range strings.Split(src, "\n") {
		m := includeRegexp.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil || !strings.HasSuffix(m[1], headerSuffix) {
			continue
		}
		headerName := m[1]
		if headerName == ConstantsHeaderName {
			continue
		}
		companion := strings.TrimSuffix(headerName, headerSuffix) + ".frag"
		if !s.Has(companion) || set[companion] {
			continue
		}
		set[companion] = true
		if companion == filename {
			continue
		}
		if err := collectLinkSet(s, companion, set, depth+1); err != nil {
			return err
		}
	}
	return nil
}
