package loupe

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mgreer/loupe/internal/extract"
)

// paramSpec is one entry of a target parameter list, parsed from "name" or
// "name=defaultExpr".
type paramSpec struct {
	Name       string
	Default    string
	HasDefault bool
}

func parseParamSpecs(specs []string) ([]paramSpec, error) {
	out := make([]paramSpec, 0, len(specs))
	for _, raw := range specs {
		name, def, found := strings.Cut(raw, "=")
		name = strings.TrimSpace(name)
		if !identifierRe.MatchString(name) {
			return nil, fmt.Errorf("loupe: invalid parameter spec %q", raw)
		}
		p := paramSpec{Name: name}
		if found {
			p.Default = strings.TrimSpace(def)
			p.HasDefault = true
			if p.Default == "" {
				return nil, fmt.Errorf("loupe: empty default in parameter spec %q", raw)
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// Migrate rewrites every call site of functionName against a new parameter
// list. Each spec is "name" or "name=defaultExpr".
//
// The current parameter list is taken from the first definition found in
// sorted path order. Duplicate definitions are not disambiguated; with
// shadowed names the chosen signature may be the wrong one.
//
// Positional arguments are recomputed position by position: a new parameter
// matching an old parameter at position j carries the call's j-th positional
// argument when present, otherwise the spec default, otherwise a null
// placeholder. A parameter with no old-name match gets its default or the
// placeholder. Keyword arguments are preserved verbatim after the
// positionals, and a parameter the call already passes by keyword is not
// re-supplied positionally. Calls using *args / **kwargs style unpacking
// are reported as errors and left untouched. Only the parenthesis span of
// each call changes.
func (e *Engine) Migrate(ctx context.Context, functionName string, newParamSpecs []string, dryRun bool) (*MigrationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !identifierRe.MatchString(functionName) {
		return nil, fmt.Errorf("loupe: invalid identifier %q", functionName)
	}
	specs, err := parseParamSpecs(newParamSpecs)
	if err != nil {
		return nil, err
	}

	files, err := e.sourceFiles()
	if err != nil {
		return nil, fmt.Errorf("loupe: enumerate files: %w", err)
	}

	oldParams, defFile, err := e.findDefinition(files, functionName)
	if err != nil {
		return nil, err
	}
	e.log.Debug("migrating signature",
		"function", functionName, "definition", defFile, "old_params", oldParams)

	res := &MigrationResult{}
	needle := []byte(functionName)
	for _, rel := range files {
		abs := filepath.Join(e.root, rel)
		content, err := os.ReadFile(abs)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: read: %v", rel, err))
			continue
		}
		if !bytes.Contains(content, needle) {
			continue
		}

		parser, ok := extract.ForPath(rel)
		if !ok {
			continue
		}
		scanner, ok := parser.(extract.CallScanner)
		if !ok {
			continue
		}

		rewritten, edits := rewriteCallSites(content, scanner, functionName, rel, oldParams, specs, res)
		if len(edits) == 0 {
			continue
		}
		res.Edits = append(res.Edits, edits...)

		if dryRun {
			continue
		}
		if err := writePreservingMode(abs, rewritten); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: write: %v", rel, err))
		}
	}

	res.Applied = !dryRun && len(res.Errors) == 0
	return res, nil
}

// findDefinition extracts the parameter names of the first definition of
// name, scanning files in their already-sorted order.
func (e *Engine) findDefinition(files []string, name string) ([]string, string, error) {
	for _, rel := range files {
		content, err := os.ReadFile(filepath.Join(e.root, rel))
		if err != nil {
			continue
		}
		parser, ok := extract.ForPath(rel)
		if !ok {
			continue
		}
		table, _ := parser.Extract(content, rel)
		for _, fn := range table.Functions {
			if fn.Name == name {
				return fn.Params, rel, nil
			}
		}
	}
	return nil, "", fmt.Errorf("loupe: no definition of %q found", name)
}

// rewriteCallSites rewrites the matched calls in one file. Each site is
// rewritten at most once, innermost and rightmost first, so a nested call
// is migrated before the call enclosing it. Splices inside an enclosing
// site shift its closing parenthesis and stale its captured arguments;
// the offsets are adjusted in place and the arguments re-scanned from the
// mutated buffer. Unrewritable sites are recorded on res.
func rewriteCallSites(content []byte, scanner extract.CallScanner, name, rel string, oldParams []string, specs []paramSpec, res *MigrationResult) ([]byte, []Edit) {
	placeholder := "null"
	if strings.EqualFold(filepath.Ext(rel), ".py") {
		placeholder = "None"
	}

	sites := scanner.CallSites(content, name)
	sort.Slice(sites, func(i, j int) bool { return sites[i].OpenByte > sites[j].OpenByte })

	out := content
	var edits []Edit
	stale := make([]bool, len(sites))
	for i := range sites {
		site := &sites[i]
		if site.OpenByte < 0 || site.CloseByte >= len(out) || site.OpenByte >= site.CloseByte {
			continue
		}

		args := site.Args
		if stale[i] {
			args = nil
			for _, s := range scanner.CallSites(out, name) {
				if s.OpenByte == site.OpenByte {
					args = s.Args
					break
				}
			}
			if args == nil {
				res.Errors = append(res.Errors,
					fmt.Sprintf("%s:%d: call changed shape during rewrite; not rewritten", rel, site.Line))
				continue
			}
		}

		newArgs, ok := recomputeArgs(args, oldParams, specs, placeholder)
		if !ok {
			res.Errors = append(res.Errors,
				fmt.Sprintf("%s:%d: call uses argument unpacking; not rewritten", rel, site.Line))
			continue
		}

		oldInner := string(out[site.OpenByte+1 : site.CloseByte])
		if newArgs == oldInner || newArgs == strings.TrimSpace(oldInner) {
			continue
		}

		lineStart := bytes.LastIndexByte(out[:site.OpenByte], '\n') + 1
		edits = append(edits, Edit{
			File:     rel,
			Line:     1 + bytes.Count(out[:site.OpenByte], []byte("\n")),
			StartCol: site.OpenByte - lineStart + 1,
			EndCol:   site.OpenByte - lineStart + 1 + len(oldInner),
			OldText:  oldInner,
			NewText:  newArgs,
			Context:  strings.TrimSpace(lineAt(out, lineStart)),
		})

		var buf bytes.Buffer
		buf.Grow(len(out) + len(newArgs) - len(oldInner))
		buf.Write(out[:site.OpenByte+1])
		buf.WriteString(newArgs)
		buf.Write(out[site.CloseByte:])
		out = buf.Bytes()

		// Pending sites open earlier in the file. One whose span is still
		// open at our opening parenthesis encloses this call.
		delta := len(newArgs) - len(oldInner)
		for j := i + 1; j < len(sites); j++ {
			if sites[j].CloseByte > site.OpenByte {
				sites[j].CloseByte += delta
				stale[j] = true
			}
		}
	}

	sort.Slice(edits, func(i, j int) bool {
		if edits[i].Line != edits[j].Line {
			return edits[i].Line < edits[j].Line
		}
		return edits[i].StartCol < edits[j].StartCol
	})
	return out, edits
}

// recomputeArgs builds the replacement argument text for one call. Returns
// false when the call unpacks arguments and cannot be rewritten safely.
func recomputeArgs(args []extract.CallArg, oldParams []string, specs []paramSpec, placeholder string) (string, bool) {
	var positionals []string
	var keywords []extract.CallArg
	for _, a := range args {
		if a.Splat {
			return "", false
		}
		if a.Keyword != "" {
			keywords = append(keywords, a)
			continue
		}
		positionals = append(positionals, a.Text)
	}

	byKeyword := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		byKeyword[k.Keyword] = true
	}
	oldIndex := make(map[string]int, len(oldParams))
	for j, p := range oldParams {
		oldIndex[p] = j
	}

	var parts []string
	for _, spec := range specs {
		if byKeyword[spec.Name] {
			continue
		}
		if j, ok := oldIndex[spec.Name]; ok && j < len(positionals) {
			parts = append(parts, positionals[j])
			continue
		}
		if spec.HasDefault {
			parts = append(parts, spec.Default)
			continue
		}
		parts = append(parts, placeholder)
	}
	for _, k := range keywords {
		parts = append(parts, k.Keyword+"="+k.Text)
	}
	return strings.Join(parts, ", "), true
}

func lineAt(content []byte, start int) string {
	end := bytes.IndexByte(content[start:], '\n')
	if end < 0 {
		return string(content[start:])
	}
	return string(content[start : start+end])
}
