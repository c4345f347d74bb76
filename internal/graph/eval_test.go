package graph

import "testing"

func TestEvaluateDefaultDeny(t *testing.T) {
	g := New()
	u, _ := g.CreateUser("alice")

	dec, err := g.Evaluate(u.EntityID, "/api/data", "GET")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if dec.Allowed {
		t.Fatal("expected fail-closed deny with no matching rules")
	}
	if dec.MatchedEntityID != 0 {
		t.Fatalf("default deny should not report a matched entity, got %d", dec.MatchedEntityID)
	}
}

func TestEvaluateDirectGrant(t *testing.T) {
	g := New()
	u, _ := g.CreateUser("alice")
	mustOK(t, g.AddAccess(u.EntityID, "default", "/api/data", "GET", true))

	dec, err := g.Evaluate(u.EntityID, "/api/data", "GET")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !dec.Allowed || dec.MatchedEntityID != u.EntityID {
		t.Fatalf("expected allow via own entity, got %s", dec)
	}
}

func TestEvaluateExactMatchOnly(t *testing.T) {
	g := New()
	u, _ := g.CreateUser("alice")
	mustOK(t, g.AddAccess(u.EntityID, "default", "/api/data", "GET", true))

	for _, tc := range []struct{ uri, verb string }{
		{"/api/data/", "GET"},
		{"/api", "GET"},
		{"/api/data", "POST"},
	} {
		dec, err := g.Evaluate(u.EntityID, tc.uri, tc.verb)
		if err != nil {
			t.Fatalf("evaluate %s %s: %v", tc.verb, tc.uri, err)
		}
		if dec.Allowed {
			t.Errorf("expected deny for non-exact match %s %s", tc.verb, tc.uri)
		}
	}
}

func TestEvaluateDenyOverridesInheritedGrant(t *testing.T) {
	g := New()
	u, _ := g.CreateUser("alice")
	grp, _ := g.CreateGroup("engineering")
	mustOK(t, g.AddUserToGroup(u.ID, grp.ID))

	// Grant via group membership, explicit deny directly on the user.
	mustOK(t, g.AddAccess(grp.EntityID, "default", "/api/data", "GET", true))
	mustOK(t, g.AddAccess(u.EntityID, "default", "/api/data", "GET", false))

	dec, err := g.Evaluate(u.EntityID, "/api/data", "GET")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if dec.Allowed {
		t.Fatal("explicit deny on the user must override the group grant")
	}
	if dec.MatchedEntityID != u.EntityID {
		t.Fatalf("deny should be attributed to the user entity, got %d", dec.MatchedEntityID)
	}
}

func TestEvaluateInheritsThroughGroupAncestry(t *testing.T) {
	// Scenario from the hierarchy contract: user in child group C, role R on
	// parent group P, grant on R. The user inherits the grant through the
	// C -> P ancestry and P's role.
	g := New()
	p, _ := g.CreateGroup("p")
	c, _ := g.CreateGroup("c")
	r, _ := g.CreateRole("r")
	u, _ := g.CreateUser("u")

	mustOK(t, g.AddGroupToGroup(p.ID, c.ID))
	mustOK(t, g.AddRoleToGroup(r.ID, p.ID))
	mustOK(t, g.AddUserToGroup(u.ID, c.ID))
	mustOK(t, g.AddAccess(r.EntityID, "default", "/api/data", "GET", true))

	dec, err := g.Evaluate(u.EntityID, "/api/data", "GET")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !dec.Allowed {
		t.Fatalf("expected inherited allow, got %s", dec)
	}
	if dec.MatchedEntityID != r.EntityID {
		t.Fatalf("expected grant attributed to role entity %d, got %d", r.EntityID, dec.MatchedEntityID)
	}
}

func TestEvaluateDenyAnywhereInClosureWins(t *testing.T) {
	g := New()
	p, _ := g.CreateGroup("p")
	c, _ := g.CreateGroup("c")
	u, _ := g.CreateUser("u")

	mustOK(t, g.AddGroupToGroup(p.ID, c.ID))
	mustOK(t, g.AddUserToGroup(u.ID, c.ID))

	mustOK(t, g.AddAccess(u.EntityID, "default", "/api/data", "GET", true))
	mustOK(t, g.AddAccess(p.EntityID, "default", "/api/data", "GET", false))

	dec, err := g.Evaluate(u.EntityID, "/api/data", "GET")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if dec.Allowed {
		t.Fatal("deny on an ancestor group must override a direct grant")
	}
}

func TestEvaluateGroupSubject(t *testing.T) {
	g := New()
	p, _ := g.CreateGroup("p")
	c, _ := g.CreateGroup("c")
	r, _ := g.CreateRole("r")

	mustOK(t, g.AddGroupToGroup(p.ID, c.ID))
	mustOK(t, g.AddRoleToGroup(r.ID, p.ID))
	mustOK(t, g.AddAccess(r.EntityID, "default", "/api/data", "GET", true))

	dec, err := g.Evaluate(c.EntityID, "/api/data", "GET")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !dec.Allowed {
		t.Fatalf("group subject should inherit via ancestry, got %s", dec)
	}
}

func TestEvaluateRoleSubjectIgnoresUnrelatedGrants(t *testing.T) {
	g := New()
	r, _ := g.CreateRole("reader")
	other, _ := g.CreateRole("writer")
	mustOK(t, g.AddAccess(other.EntityID, "default", "/api/data", "GET", true))

	dec, err := g.Evaluate(r.EntityID, "/api/data", "GET")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if dec.Allowed {
		t.Fatal("role closure is the role itself; unrelated grants must not leak")
	}
}

func TestEvaluateUnknownEntity(t *testing.T) {
	g := New()
	if _, err := g.Evaluate(42, "/api/data", "GET"); err == nil {
		t.Fatal("expected error for unknown entity")
	}
}
