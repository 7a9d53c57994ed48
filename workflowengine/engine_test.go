package workflowengine

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/novaroute/router/catalog"
	"github.com/novaroute/router/simplerouter"
	"github.com/novaroute/router/types"
)

func TestExpandTemplate_DefinedValueSubstituted(t *testing.T) {
	got := expandTemplate("summarize {{topic}} for {{audience}}", map[string]string{
		"topic": "quarterly results", "audience": "investors",
	}, zap.NewNop())

	want := "summarize quarterly results for investors"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExpandTemplate_UndefinedLeftLiteral(t *testing.T) {
	got := expandTemplate("draft {{missing}}", map[string]string{}, zap.NewNop())
	if got != "draft {{missing}}" {
		t.Fatalf("got %q, want placeholder left untouched", got)
	}
}

func TestExpandTemplate_NoPlaceholders(t *testing.T) {
	got := expandTemplate("plain prompt", map[string]string{"unused": "x"}, zap.NewNop())
	if got != "plain prompt" {
		t.Fatalf("got %q, want unchanged", got)
	}
}

// TestExpandTemplate_EveryDefinedNameSubstituted implements spec.md §8
// property 5: for any set of variable names with values, a template built
// entirely from `{{name}}` placeholders over those names expands to the
// concatenation of the values, in order, with no placeholder syntax left.
func TestExpandTemplate_EveryDefinedNameSubstituted(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 5).Draw(t, "n")
		names := make([]string, n)
		vars := map[string]string{}
		var template, want string
		for i := 0; i < n; i++ {
			name := fmt.Sprintf("v%d_%s", i, rapid.StringMatching(`[a-z]{1,6}`).Draw(t, fmt.Sprintf("name_%d", i)))
			value := rapid.StringMatching(`[a-zA-Z0-9 ]{0,10}`).Draw(t, fmt.Sprintf("value_%d", i))
			names[i] = name
			vars[name] = value
			template += "{{" + name + "}}"
			want += value
		}

		got := expandTemplate(template, vars, zap.NewNop())
		if got != want {
			t.Fatalf("expandTemplate(%q) = %q, want %q", template, got, want)
		}
	})
}

// TestExpandTemplate_UndefinedNamesNeverSubstituted is property 5's
// complementary half: a placeholder whose name is absent from the context
// always survives expansion verbatim.
func TestExpandTemplate_UndefinedNamesNeverSubstituted(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "name")
		template := "{{" + name + "}}"

		got := expandTemplate(template, map[string]string{}, zap.NewNop())
		if got != template {
			t.Fatalf("expandTemplate(%q) = %q, want unchanged", template, got)
		}
	})
}

func TestExecute_EmptyExpandedPromptFailsBeforeDispatch(t *testing.T) {
	calls := 0
	router := routerFunc(func(ctx context.Context, req simplerouter.SimpleRequest) types.RouterResponse {
		calls++
		return types.RouterResponse{Success: true, Results: map[string]types.MediaResult{"result": {Text: "ok"}}}
	})

	e := New(router, zap.NewNop())
	spec := catalog.WorkflowSpec{
		Steps: []catalog.WorkflowStep{
			{ID: "s1", Worker: "text-gen", PromptTemplate: "{{blank}}", OutputKey: "out"},
		},
	}

	resp := e.Execute(context.Background(), spec, map[string]string{"blank": ""}, types.RequestConstraints{})

	if resp.Success {
		t.Fatalf("expected failure for an empty expanded prompt, got success")
	}
	if calls != 0 {
		t.Fatalf("router.Route was called %d times, want 0 (blank prompt must not dispatch)", calls)
	}
}

type routerFunc func(ctx context.Context, req simplerouter.SimpleRequest) types.RouterResponse

func (f routerFunc) Route(ctx context.Context, req simplerouter.SimpleRequest) types.RouterResponse {
	return f(ctx, req)
}
