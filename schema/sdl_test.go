package schema

import (
	"strings"
	"testing"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/autogql/autogql/entity"
)

func TestRenderSDLParses(t *testing.T) {
	sdl, err := RenderSDL(blogSet(), true)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	parsed, gqlErr := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: sdl})
	if gqlErr != nil {
		t.Fatalf("invalid SDL: %v\n%s", gqlErr, sdl)
	}
	if parsed.Query == nil || parsed.Mutation == nil || parsed.Subscription == nil {
		t.Fatalf("missing root types in rendered SDL")
	}
	if parsed.Types["User"] == nil || parsed.Types["UserInput"] == nil || parsed.Types["UserResultSet"] == nil {
		t.Fatalf("missing entity types in rendered SDL")
	}
}

func TestRenderSDLOmitsSensitiveAndSubscription(t *testing.T) {
	sdl, err := RenderSDL(blogSet(), false)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(sdl, "password") {
		t.Fatalf("sensitive attribute leaked into SDL:\n%s", sdl)
	}
	if strings.Contains(sdl, "type Subscription") {
		t.Fatalf("subscription root rendered without opt-in")
	}
}

func TestRenderSDLDeterministic(t *testing.T) {
	first, err := RenderSDL(blogSet(), true)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	second, err := RenderSDL(blogSet(), true)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if first != second {
		t.Fatalf("SDL output not deterministic")
	}
}

func TestRenderSDLRejectsInvalidSet(t *testing.T) {
	set := entity.Collect(entity.New("Broken", entity.String("name")))
	if _, err := RenderSDL(set, false); err == nil {
		t.Fatalf("expected validation error")
	}
}
