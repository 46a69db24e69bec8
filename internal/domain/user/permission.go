package user

import "strings"

const (
	// WildcardSuffix marks a prefix requirement: "job_positions.*" is met by
	// any permission starting with "job_positions.".
	WildcardSuffix = "*"
	// AlternativeSeparator joins alternatives within one group.
	AlternativeSeparator = "|"
)

// Requirement is a declared permission requirement. Every group must be met;
// a group is met when any one of its alternatives matches.
type Requirement struct {
	Groups [][]string
}

// ParseRequirement builds a Requirement from '|'-delimited groups. Blank
// alternatives and empty groups are dropped.
func ParseRequirement(groups ...string) Requirement {
	var req Requirement
	for _, g := range groups {
		var names []string
		for _, name := range strings.Split(g, AlternativeSeparator) {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		if len(names) > 0 {
			req.Groups = append(req.Groups, names)
		}
	}
	return req
}

// Names returns every permission name the requirement mentions, in order.
func (r Requirement) Names() []string {
	var out []string
	for _, g := range r.Groups {
		out = append(out, g...)
	}
	return out
}

// SatisfiedBy evaluates the requirement against p's assignments. Role
// bypasses are the caller's concern.
func (r Requirement) SatisfiedBy(p *Principal) bool {
	for _, group := range r.Groups {
		if !groupSatisfied(group, p) {
			return false
		}
	}
	return true
}

func groupSatisfied(group []string, p *Principal) bool {
	for _, name := range group {
		if prefix, ok := strings.CutSuffix(name, WildcardSuffix); ok {
			if p.HasPermissionPrefix(prefix) {
				return true
			}
			continue
		}
		if p.HasPermission(name) {
			return true
		}
	}
	return false
}
