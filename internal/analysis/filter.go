package analysis

import "strings"

// FilterRoles removes project references the model invented and collapses
// duplicate cross-role assignments so each project backs at most one role
// (first assignment wins). References are matched against the input set by
// exact name or by full name ("owner/name", or its trailing segment),
// case-insensitively; the canonical input name is kept in the output.
//
// Returned dropped holds the references that were removed — callers log them
// as warnings so the correction is never silent. A role left with no backing
// projects is dropped entirely: it has no provenance the response can claim.
func FilterRoles(roles []Role, projects []Project) (kept []Role, dropped []string) {
	canonical := make(map[string]string, len(projects)*3)
	for _, p := range projects {
		if p.Name != "" {
			canonical[strings.ToLower(p.Name)] = p.Name
		}
		if p.FullName != "" {
			canonical[strings.ToLower(p.FullName)] = p.Name
			if idx := strings.LastIndex(p.FullName, "/"); idx >= 0 {
				canonical[strings.ToLower(p.FullName[idx+1:])] = p.Name
			}
		}
	}

	assigned := make(map[string]bool)
	kept = make([]Role, 0, len(roles))
	for _, role := range roles {
		verified := make([]string, 0, len(role.Projects))
		for _, ref := range role.Projects {
			name, ok := canonical[strings.ToLower(strings.TrimSpace(ref))]
			if !ok {
				dropped = append(dropped, ref)
				continue
			}
			if assigned[name] {
				continue
			}
			assigned[name] = true
			verified = append(verified, name)
		}
		if len(verified) == 0 {
			continue
		}
		role.Projects = verified
		kept = append(kept, role)
	}
	return kept, dropped
}
