package customs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/graphql-go/graphql"
)

func writeDescriptor(t *testing.T, dir, kind, file, content string) {
	t.Helper()
	sub := filepath.Join(dir, kind)
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", sub, err)
	}
	if err := os.WriteFile(filepath.Join(sub, file), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", file, err)
	}
}

func TestDirProviderLoadsDescriptors(t *testing.T) {
	dir := t.TempDir()
	registry := NewRegistry()
	registry.Register("top-users", func(p graphql.ResolveParams) (any, error) {
		return nil, nil
	})

	writeDescriptor(t, dir, "query", "topUsers.yaml", "resolver: top-users\nentity: User\n")
	writeDescriptor(t, dir, "query", "named.yaml", "name: activeUsers\nresolver: top-users\nentity: User\n")

	provider := DirProvider{Dir: dir, Registry: registry}
	named, err := provider.ListResolvers(KindQuery)
	if err != nil {
		t.Fatalf("ListResolvers: %v", err)
	}
	if len(named) != 2 {
		t.Fatalf("got %d resolvers, want 2", len(named))
	}
	// Sorted by file name: named.yaml then topUsers.yaml.
	if named[0].Name != "activeUsers" {
		t.Fatalf("declared name not honoured: %q", named[0].Name)
	}
	if named[1].Name != "topUsers" {
		t.Fatalf("file base name not used as fallback: %q", named[1].Name)
	}
	if named[1].Entity != "User" || named[1].Resolver == nil {
		t.Fatalf("descriptor not fully resolved: %+v", named[1])
	}
}

func TestDirProviderMissingDirIsEmpty(t *testing.T) {
	provider := DirProvider{Dir: filepath.Join(t.TempDir(), "absent"), Registry: NewRegistry()}
	named, err := provider.ListResolvers(KindMutation)
	if err != nil || len(named) != 0 {
		t.Fatalf("ListResolvers = (%v, %v), want empty", named, err)
	}
}

func TestDirProviderRejectsUnregisteredResolver(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, "mutation", "broken.yaml", "resolver: nope\n")

	provider := DirProvider{Dir: dir, Registry: NewRegistry()}
	_, err := provider.ListResolvers(KindMutation)
	if err == nil || !strings.Contains(err.Error(), "not registered") {
		t.Fatalf("expected unregistered resolver error, got %v", err)
	}
}

func TestDirProviderRejectsMalformedDescriptor(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, "query", "bad.yaml", "{not yaml\n")

	provider := DirProvider{Dir: dir, Registry: NewRegistry()}
	if _, err := provider.ListResolvers(KindQuery); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestStaticProvider(t *testing.T) {
	p := Static{Query: []Named{{Name: "x"}}}
	named, err := p.ListResolvers(KindQuery)
	if err != nil || len(named) != 1 || named[0].Name != "x" {
		t.Fatalf("ListResolvers = (%v, %v)", named, err)
	}
	if _, err := p.ListResolvers(Kind("bogus")); err == nil {
		t.Fatal("expected unknown kind error")
	}
}
