package scriptrule

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/jward/archlint/internal/rules"
)

// buildGlobals constructs the globals one script evaluation sees. Each run
// closes over its own file's source and collector, so concurrent files
// never share state.
func (r *Rule) buildGlobals(root *sitter.Node, vc *rules.VisitContext, c *collector) map[string]any {
	src := vc.Source.Content
	return map[string]any{
		"file_path": vc.Source.Path,
		"module":    vc.Source.Module,
		"is_test":   vc.Source.IsTest,
		"is_demo":   vc.Source.IsDemoOrScript,
		"source":    string(src),
		"root":      mustProxy(root),
		"node_text": makeNodeTextFn(src),
		"query":     makeQueryFn(src),
		"report":    makeReportFn(c),
	}
}

// makeReportFn builds report(line, message), which records one violation
// against the file under evaluation.
func makeReportFn(c *collector) *object.Builtin {
	return object.NewBuiltin("report", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("report", 2, len(args))
		}
		lineObj, ok := args[0].(*object.Int)
		if !ok {
			return object.Errorf("report: line must be an int, got %s", args[0].Type())
		}
		msgObj, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("report: message must be a string, got %s", args[1].Type())
		}
		c.add(int(lineObj.Value()), msgObj.Value())
		return object.Nil
	})
}

// makeNodeTextFn builds node_text(node), returning the source text a node
// spans. Needed host-side: the proxy layer cannot hand node.Content the
// []byte it wants.
func makeNodeTextFn(src []byte) *object.Builtin {
	return object.NewBuiltin("node_text", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_text", 1, len(args))
		}
		node, errObj := nodeArg("node_text", args[0])
		if errObj != nil {
			return errObj
		}
		return object.NewString(node.Content(src))
	})
}

// makeQueryFn builds query(pattern, node), running a tree-sitter query and
// returning one map per match. Keys are capture names mapping to proxied
// nodes; a "_line" key carries the 1-indexed line of the first capture so
// scripts can feed report() directly.
func makeQueryFn(src []byte) *object.Builtin {
	return object.NewBuiltin("query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("query", 2, len(args))
		}
		patternStr, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("query: pattern must be a string, not %s", args[0].Type())
		}
		node, errObj := nodeArg("query", args[1])
		if errObj != nil {
			return errObj
		}

		q, err := sitter.NewQuery([]byte(patternStr.Value()), python.GetLanguage())
		if err != nil {
			return object.Errorf("query: bad pattern: %v", err)
		}
		defer q.Close()

		cursor := sitter.NewQueryCursor()
		defer cursor.Close()
		cursor.Exec(q, node)

		var results []object.Object
		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			match = cursor.FilterPredicates(match, src)

			matchMap := make(map[string]object.Object)
			for _, capture := range match.Captures {
				name := q.CaptureNameForId(capture.Index)
				nodeP, err := object.NewProxy(capture.Node)
				if err != nil {
					return object.Errorf("query: cannot proxy capture %q: %v", name, err)
				}
				matchMap[name] = nodeP
			}
			if len(match.Captures) > 0 {
				matchMap["_line"] = object.NewInt(int64(match.Captures[0].Node.StartPoint().Row) + 1)
			}
			results = append(results, object.NewMap(matchMap))
		}

		if results == nil {
			results = []object.Object{}
		}
		return object.NewList(results)
	})
}

// nodeArg unwraps a proxied *sitter.Node argument.
func nodeArg(fn string, arg object.Object) (*sitter.Node, object.Object) {
	proxy, ok := arg.(*object.Proxy)
	if !ok {
		return nil, object.Errorf("%s: expected proxy (Node), got %s", fn, arg.Type())
	}
	node, ok := proxy.Interface().(*sitter.Node)
	if !ok {
		return nil, object.Errorf("%s: expected *sitter.Node, got %T", fn, proxy.Interface())
	}
	return node, nil
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("scriptrule: proxy error: %v", err))
	}
	return p
}
