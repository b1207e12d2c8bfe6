package analysis

import (
	"reflect"
	"testing"
)

func TestFilterRolesDropsHallucinatedRefs(t *testing.T) {
	projects := []Project{{Name: "a"}, {Name: "b"}}
	roles := []Role{
		{Title: "Engineer", Projects: []string{"a", "c"}},
	}

	kept, dropped := FilterRoles(roles, projects)
	if len(kept) != 1 {
		t.Fatalf("kept %d roles, want 1", len(kept))
	}
	if !reflect.DeepEqual(kept[0].Projects, []string{"a"}) {
		t.Errorf("projects = %v, want [a]", kept[0].Projects)
	}
	if !reflect.DeepEqual(dropped, []string{"c"}) {
		t.Errorf("dropped = %v, want [c]", dropped)
	}
}

func TestFilterRolesSecondaryKeyMatch(t *testing.T) {
	projects := []Project{{Name: "svc-a", FullName: "ada/svc-a"}}
	roles := []Role{
		{Title: "Engineer", Projects: []string{"ADA/SVC-A"}},
	}

	kept, dropped := FilterRoles(roles, projects)
	if len(dropped) != 0 {
		t.Fatalf("dropped = %v, want none", dropped)
	}
	// Output carries the canonical input name, not the model's spelling.
	if !reflect.DeepEqual(kept[0].Projects, []string{"svc-a"}) {
		t.Errorf("projects = %v, want [svc-a]", kept[0].Projects)
	}
}

func TestFilterRolesCrossRoleDedup(t *testing.T) {
	projects := []Project{{Name: "a"}, {Name: "b"}}
	roles := []Role{
		{Title: "First", Projects: []string{"a", "b"}},
		{Title: "Second", Projects: []string{"a"}},
	}

	kept, _ := FilterRoles(roles, projects)
	// First assignment wins; the second role loses its only project and is
	// dropped entirely.
	if len(kept) != 1 {
		t.Fatalf("kept %d roles, want 1", len(kept))
	}
	if kept[0].Title != "First" {
		t.Errorf("surviving role = %q", kept[0].Title)
	}
}

func TestFilterRolesDropsFullyHallucinatedRole(t *testing.T) {
	projects := []Project{{Name: "a"}}
	roles := []Role{
		{Title: "Real", Projects: []string{"a"}},
		{Title: "Invented", Projects: []string{"ghost", "phantom"}},
	}

	kept, dropped := FilterRoles(roles, projects)
	if len(kept) != 1 || kept[0].Title != "Real" {
		t.Fatalf("kept = %+v", kept)
	}
	if len(dropped) != 2 {
		t.Errorf("dropped = %v, want 2 refs", dropped)
	}
}
