package graph

import "fmt"

// Decision is the outcome of a permission check plus the entity and scheme
// that produced it, for audit trails. MatchedEntityID is zero when the
// decision is the fail-closed default.
type Decision struct {
	Allowed         bool
	MatchedEntityID int64
	MatchedScheme   string
}

// Evaluate answers whether the entity may perform verb on uri.
//
// The check collects the closure of entities relevant to the subject: the
// entity itself; for a user, every group it belongs to and every ancestor of
// those groups, plus every role assigned to the user or attached to a group in
// that closure; for a group, its ancestor groups and their attached roles.
// Permissions flow upward from child membership to parent-group grants.
//
// URI and verb match exactly. An explicit deny anywhere in the closure
// overrides any number of grants, and the default with no matching rule at
// all is deny.
//
// Evaluate reads the graph without mutating it.
func (g *Graph) Evaluate(entityID int64, uri, verb string) (Decision, error) {
	subject, err := g.Entity(entityID)
	if err != nil {
		return Decision{}, err
	}

	closure := g.closureEntities(subject)

	var granted *UriAccess
	var grantedBy *Entity
	var grantedScheme string
	for _, e := range closure {
		for _, s := range e.Schemes {
			for i := range s.Access {
				a := &s.Access[i]
				if a.URI != uri || a.Verb != verb {
					continue
				}
				if a.Deny {
					return Decision{Allowed: false, MatchedEntityID: e.ID, MatchedScheme: s.Name}, nil
				}
				if a.Grant && granted == nil {
					granted = a
					grantedBy = e
					grantedScheme = s.Name
				}
			}
		}
	}

	if granted != nil {
		return Decision{Allowed: true, MatchedEntityID: grantedBy.ID, MatchedScheme: grantedScheme}, nil
	}
	return Decision{Allowed: false}, nil
}

// closureEntities returns the entities consulted when evaluating a check for
// the subject: itself, its ancestor groups, and the roles reachable from any
// of them.
func (g *Graph) closureEntities(subject *Entity) []*Entity {
	entities := []*Entity{subject}
	seen := map[int64]struct{}{subject.ID: {}}

	appendEntity := func(id int64) {
		if _, ok := seen[id]; ok {
			return
		}
		if e, ok := g.entities[id]; ok {
			seen[id] = struct{}{}
			entities = append(entities, e)
		}
	}

	var groupClosure map[int64]*Group
	roleIDs := make(idSet)

	switch subject.Type {
	case EntityTypeUser:
		u := g.users[subject.OwnerID]
		if u == nil {
			return entities
		}
		groupClosure = g.ancestorGroups(u.GroupIDs())
		for id := range u.roles {
			roleIDs.add(id)
		}
	case EntityTypeGroup:
		groupClosure = g.ancestorGroups([]int64{subject.OwnerID})
		// The subject group is already in the result as itself.
		delete(groupClosure, subject.OwnerID)
	case EntityTypeRole:
		return entities
	}

	for _, grp := range groupClosure {
		appendEntity(grp.EntityID)
		for id := range grp.roles {
			roleIDs.add(id)
		}
	}
	if subject.Type == EntityTypeGroup {
		if grp := g.groups[subject.OwnerID]; grp != nil {
			for id := range grp.roles {
				roleIDs.add(id)
			}
		}
	}
	for id := range roleIDs {
		if r, ok := g.roles[id]; ok {
			appendEntity(r.EntityID)
		}
	}
	return entities
}

// String renders the decision for logs.
func (d Decision) String() string {
	if d.Allowed {
		return fmt.Sprintf("allow (entity=%d scheme=%q)", d.MatchedEntityID, d.MatchedScheme)
	}
	if d.MatchedEntityID != 0 {
		return fmt.Sprintf("deny (entity=%d scheme=%q)", d.MatchedEntityID, d.MatchedScheme)
	}
	return "deny (default)"
}
