package extract

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

func init() {
	Register(".py", &pythonParser{})
	Register(".pyi", &pythonParser{})
}

// pythonParser walks the tree-sitter Python grammar. It is the one exact
// parser in the registry; everything else is lexical approximation.
type pythonParser struct{}

func (p *pythonParser) Capability() Capability { return Exact }

func parsePython(content []byte) *sitter.Tree {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil
	}
	return tree
}

// Extract walks the parse tree and records functions (including methods),
// classes, module-level assignments, and imports, plus every identifier
// occurrence tagged by syntactic role. Unparseable input yields an empty
// table, never an error.
func (p *pythonParser) Extract(content []byte, path string) (*FileSymbolTable, []Occurrence) {
	table := &FileSymbolTable{Path: path}
	tree := parsePython(content)
	if tree == nil {
		return table, nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return table, nil
	}

	p.collectDeclarations(root, content, table)

	var occs []Occurrence
	collectPythonOccurrences(root, content, path, &occs)
	return table, occs
}

// collectDeclarations walks the whole tree so that methods and nested
// functions land in the table alongside top-level definitions.
func (p *pythonParser) collectDeclarations(node *sitter.Node, src []byte, table *FileSymbolTable) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "function_definition":
			if fn := pythonFunction(child, src, nil); fn != nil {
				table.Functions = append(table.Functions, *fn)
			}
			p.collectDeclarations(child, src, table)
		case "class_definition":
			if cls := pythonClass(child, src); cls != nil {
				table.Classes = append(table.Classes, *cls)
			}
			p.collectDeclarations(child, src, table)
		case "decorated_definition":
			decorators := pythonDecorators(child, src)
			if def := child.ChildByFieldName("definition"); def != nil {
				switch def.Type() {
				case "function_definition":
					if fn := pythonFunction(def, src, decorators); fn != nil {
						table.Functions = append(table.Functions, *fn)
					}
					p.collectDeclarations(def, src, table)
				case "class_definition":
					if cls := pythonClass(def, src); cls != nil {
						table.Classes = append(table.Classes, *cls)
					}
					p.collectDeclarations(def, src, table)
				}
			}
		case "expression_statement":
			// Module-level assignments only: methods and locals are not
			// declarations of the file table.
			if node.Type() == "module" {
				p.collectAssignment(child, src, table)
			}
		case "import_statement":
			pythonImport(child, src, table)
		case "import_from_statement":
			pythonImportFrom(child, src, table)
		default:
			p.collectDeclarations(child, src, table)
		}
	}
}

func (p *pythonParser) collectAssignment(stmt *sitter.Node, src []byte, table *FileSymbolTable) {
	if stmt.ChildCount() == 0 {
		return
	}
	expr := stmt.Child(0)
	if expr == nil || expr.Type() != "assignment" {
		return
	}
	left := expr.ChildByFieldName("left")
	if left == nil || left.Type() != "identifier" {
		return
	}
	v := Variable{
		Name: left.Content(src),
		Line: int(expr.StartPoint().Row) + 1,
	}
	if right := expr.ChildByFieldName("right"); right != nil {
		v.Value = truncate(collapseSpace(right.Content(src)), valueMaxLen)
	}
	if ann := expr.ChildByFieldName("type"); ann != nil {
		v.Annotation = collapseSpace(ann.Content(src))
	}
	table.Variables = append(table.Variables, v)
}

func pythonFunction(node *sitter.Node, src []byte, decorators []string) *Function {
	name := node.ChildByFieldName("name")
	if name == nil {
		return nil
	}
	fn := &Function{
		Name:       name.Content(src),
		StartLine:  int(node.StartPoint().Row) + 1,
		EndLine:    int(node.EndPoint().Row) + 1,
		Decorators: decorators,
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		fn.Params = pythonParamNames(params, src)
	}
	if body := node.ChildByFieldName("body"); body != nil {
		fn.Doc = truncate(pythonDocstring(body, src), docMaxLen)
	}
	// The async keyword is an unnamed child of function_definition.
	for i := 0; i < int(node.ChildCount()); i++ {
		if c := node.Child(i); c != nil && c.Type() == "async" {
			fn.IsAsync = true
			break
		}
	}
	return fn
}

// pythonParamNames returns ordered parameter names, unwrapping defaults,
// annotations, and splat patterns down to the bare identifier.
func pythonParamNames(params *sitter.Node, src []byte) []string {
	var names []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		child := params.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "identifier":
			names = append(names, child.Content(src))
		case "default_parameter", "typed_default_parameter":
			if n := child.ChildByFieldName("name"); n != nil {
				names = append(names, n.Content(src))
			}
		case "typed_parameter":
			if n := firstChildOfType(child, "identifier"); n != nil {
				names = append(names, n.Content(src))
			}
		case "list_splat_pattern":
			if n := firstChildOfType(child, "identifier"); n != nil {
				names = append(names, "*"+n.Content(src))
			}
		case "dictionary_splat_pattern":
			if n := firstChildOfType(child, "identifier"); n != nil {
				names = append(names, "**"+n.Content(src))
			}
		}
	}
	return names
}

func pythonClass(node *sitter.Node, src []byte) *Class {
	name := node.ChildByFieldName("name")
	if name == nil {
		return nil
	}
	cls := &Class{
		Name:      name.Content(src),
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
	}
	if supers := node.ChildByFieldName("superclasses"); supers != nil {
		for i := 0; i < int(supers.NamedChildCount()); i++ {
			arg := supers.NamedChild(i)
			if arg == nil {
				continue
			}
			switch arg.Type() {
			case "identifier", "attribute":
				cls.Bases = append(cls.Bases, arg.Content(src))
			}
		}
	}
	if body := node.ChildByFieldName("body"); body != nil {
		cls.Doc = truncate(pythonDocstring(body, src), docMaxLen)
		for i := 0; i < int(body.NamedChildCount()); i++ {
			stmt := body.NamedChild(i)
			if stmt == nil {
				continue
			}
			def := stmt
			if stmt.Type() == "decorated_definition" {
				def = stmt.ChildByFieldName("definition")
			}
			if def != nil && def.Type() == "function_definition" {
				if n := def.ChildByFieldName("name"); n != nil {
					cls.Methods = append(cls.Methods, n.Content(src))
				}
			}
		}
	}
	return cls
}

func pythonDecorators(node *sitter.Node, src []byte) []string {
	var decorators []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil || child.Type() != "decorator" {
			continue
		}
		// Skip the leading "@".
		text := strings.TrimPrefix(child.Content(src), "@")
		decorators = append(decorators, collapseSpace(text))
	}
	return decorators
}

// pythonDocstring returns the leading string expression of a block, with
// quotes stripped.
func pythonDocstring(body *sitter.Node, src []byte) string {
	if body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first == nil || first.Type() != "expression_statement" || first.ChildCount() == 0 {
		return ""
	}
	str := first.Child(0)
	if str == nil || str.Type() != "string" {
		return ""
	}
	return strings.TrimSpace(strings.Trim(str.Content(src), "\"'"))
}

func pythonImport(node *sitter.Node, src []byte, table *FileSymbolTable) {
	line := int(node.StartPoint().Row) + 1
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			mod := child.Content(src)
			table.Imports = append(table.Imports, Import{
				Name: mod, Module: mod, Line: line, Kind: "import",
			})
		case "aliased_import":
			var mod, alias string
			if n := child.ChildByFieldName("name"); n != nil {
				mod = n.Content(src)
			}
			if a := child.ChildByFieldName("alias"); a != nil {
				alias = a.Content(src)
			}
			if alias == "" {
				alias = mod
			}
			table.Imports = append(table.Imports, Import{
				Name: alias, Module: mod, Line: line, Kind: "import",
			})
		}
	}
}

func pythonImportFrom(node *sitter.Node, src []byte, table *FileSymbolTable) {
	line := int(node.StartPoint().Row) + 1
	var module string
	if mod := node.ChildByFieldName("module_name"); mod != nil {
		module = mod.Content(src)
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		// The module itself also appears as a named child; skip it.
		if sameSpan(child, node.ChildByFieldName("module_name")) {
			continue
		}
		switch child.Type() {
		case "dotted_name", "identifier":
			table.Imports = append(table.Imports, Import{
				Name: child.Content(src), Module: module, Line: line, Kind: "from",
			})
		case "aliased_import":
			alias := ""
			if a := child.ChildByFieldName("alias"); a != nil {
				alias = a.Content(src)
			} else if n := child.ChildByFieldName("name"); n != nil {
				alias = n.Content(src)
			}
			if alias != "" {
				table.Imports = append(table.Imports, Import{
					Name: alias, Module: module, Line: line, Kind: "from",
				})
			}
		case "wildcard_import":
			table.Imports = append(table.Imports, Import{
				Name: "*", Module: module, Line: line, Kind: "from",
			})
		}
	}
}

// collectPythonOccurrences classifies every identifier leaf by its parent
// context. Identifiers inside import statements, parameter bindings, and
// keyword-argument names are declarations or labels, not symbol uses, and
// are skipped.
func collectPythonOccurrences(node *sitter.Node, src []byte, path string, out *[]Occurrence) {
	if node.Type() == "identifier" {
		if kind, ok := classifyPythonIdentifier(node); ok {
			*out = append(*out, Occurrence{
				File: path,
				Line: int(node.StartPoint().Row) + 1,
				Kind: kind,
				Name: node.Content(src),
			})
		}
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child != nil {
			collectPythonOccurrences(child, src, path, out)
		}
	}
}

func classifyPythonIdentifier(id *sitter.Node) (OccurrenceKind, bool) {
	parent := id.Parent()
	if parent == nil {
		return KindRef, true
	}
	switch parent.Type() {
	case "function_definition", "class_definition":
		if sameSpan(id, parent.ChildByFieldName("name")) {
			return KindDefinition, true
		}
	case "call":
		if sameSpan(id, parent.ChildByFieldName("function")) {
			return KindCall, true
		}
	case "attribute":
		if sameSpan(id, parent.ChildByFieldName("attribute")) {
			if gp := parent.Parent(); gp != nil && gp.Type() == "call" &&
				sameSpan(parent, gp.ChildByFieldName("function")) {
				return KindCall, true
			}
			return KindAttr, true
		}
	case "assignment", "augmented_assignment":
		if sameSpan(id, parent.ChildByFieldName("left")) {
			return KindStore, true
		}
	case "pattern_list", "tuple_pattern":
		if gp := parent.Parent(); gp != nil &&
			(gp.Type() == "assignment" || gp.Type() == "augmented_assignment") &&
			sameSpan(parent, gp.ChildByFieldName("left")) {
			return KindStore, true
		}
	case "keyword_argument":
		if sameSpan(id, parent.ChildByFieldName("name")) {
			return "", false
		}
	case "parameters", "default_parameter", "typed_parameter",
		"typed_default_parameter", "lambda_parameters",
		"list_splat_pattern", "dictionary_splat_pattern":
		return "", false
	case "dotted_name", "aliased_import", "import_statement",
		"import_from_statement", "relative_import":
		return "", false
	case "for_statement":
		if sameSpan(id, parent.ChildByFieldName("left")) {
			return KindStore, true
		}
	}
	return KindRef, true
}

// IdentifierTokens re-tokenizes the source and returns every identifier
// token whose text equals name. Matches inside strings and comments are
// impossible: those are distinct token kinds in the grammar.
func (p *pythonParser) IdentifierTokens(content []byte, name string) []Token {
	tree := parsePython(content)
	if tree == nil {
		return nil
	}
	defer tree.Close()

	var tokens []Token
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "identifier" {
			if n.Content(content) == name {
				tokens = append(tokens, Token{
					Line:     int(n.StartPoint().Row) + 1,
					StartCol: int(n.StartPoint().Column),
					EndCol:   int(n.EndPoint().Column),
				})
			}
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if child := n.Child(i); child != nil {
				walk(child)
			}
		}
	}
	walk(tree.RootNode())
	return tokens
}

// CallSites finds every call whose callee name equals name, bare or as the
// leaf of a member access.
func (p *pythonParser) CallSites(content []byte, name string) []CallSite {
	tree := parsePython(content)
	if tree == nil {
		return nil
	}
	defer tree.Close()

	var sites []CallSite
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "call" {
			if callee := n.ChildByFieldName("function"); callee != nil &&
				calleeName(callee, content) == name {
				if args := n.ChildByFieldName("arguments"); args != nil {
					sites = append(sites, CallSite{
						Line:      int(n.StartPoint().Row) + 1,
						OpenByte:  int(args.StartByte()),
						CloseByte: int(args.EndByte()) - 1,
						Args:      pythonCallArgs(args, content),
					})
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if child := n.Child(i); child != nil {
				walk(child)
			}
		}
	}
	walk(tree.RootNode())
	return sites
}

func calleeName(callee *sitter.Node, src []byte) string {
	switch callee.Type() {
	case "identifier":
		return callee.Content(src)
	case "attribute":
		if leaf := callee.ChildByFieldName("attribute"); leaf != nil {
			return leaf.Content(src)
		}
	}
	return ""
}

func pythonCallArgs(args *sitter.Node, src []byte) []CallArg {
	var out []CallArg
	for i := 0; i < int(args.NamedChildCount()); i++ {
		child := args.NamedChild(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		arg := CallArg{Text: child.Content(src)}
		switch child.Type() {
		case "keyword_argument":
			if n := child.ChildByFieldName("name"); n != nil {
				arg.Keyword = n.Content(src)
			}
			if v := child.ChildByFieldName("value"); v != nil {
				arg.Text = v.Content(src)
			}
		case "list_splat", "dictionary_splat":
			arg.Splat = true
		}
		out = append(out, arg)
	}
	return out
}

func firstChildOfType(node *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child != nil && child.Type() == typ {
			return child
		}
	}
	return nil
}

// sameSpan reports whether two nodes address the same byte range. Node
// handles are transient, so identity is by position.
func sameSpan(a, b *sitter.Node) bool {
	return a != nil && b != nil && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
