package relation

import "sort"

// Grouping partitions instances into groups that denote the same real
// world entity pair.
type Grouping struct {
	// InstanceGroup maps an instance id to its group id.
	InstanceGroup map[int]int
	// Groups maps a group id to its members, in input order.
	Groups map[int][]*Instance
	// Order lists the group ids in ascending order.
	Order []int
}

type matchRecord struct {
	start int
	end   int
}

func (m matchRecord) improvedBy(start, end int) bool {
	return start > m.start && end > m.end
}

// GroupInstances merges instances whose endpoints share normalized entity
// identifiers. Every instance starts in its own group, numbered by input
// position. Each instance then adopts the current group of the same-label
// instance whose identifier overlap strictly improves both the start and
// the end overlap of its best match so far. For symmetric relations a
// swapped overlap (start against end) is also accepted when the direct
// overlap did not just match.
//
// The result is greedy and depends on the input order; callers must pass
// instances in a stable order.
func GroupInstances(instances []*Instance, symmetric bool) *Grouping {
	n := len(instances)
	starts := make([]map[string]struct{}, n)
	ends := make([]map[string]struct{}, n)
	group := make([]int, n)
	for i, inst := range instances {
		starts[i] = inst.StartIDs()
		ends[i] = inst.EndIDs()
		group[i] = i
	}

	for a := range instances {
		best := matchRecord{}
		for b := range instances {
			if a == b || instances[a].Label != instances[b].Label {
				continue
			}

			matched := false
			ss := intersectionSize(starts[a], starts[b])
			ee := intersectionSize(ends[a], ends[b])
			if ss > 0 && ee > 0 && best.improvedBy(ss, ee) {
				best = matchRecord{start: ss, end: ee}
				group[a] = group[b]
				matched = true
			}

			if !symmetric || matched {
				continue
			}

			// The swapped overlap is recorded with a's end against b's
			// start in the start slot.
			es := intersectionSize(ends[a], starts[b])
			se := intersectionSize(starts[a], ends[b])
			if es > 0 && se > 0 && best.improvedBy(es, se) {
				best = matchRecord{start: es, end: se}
				group[a] = group[b]
			}
		}
	}

	g := &Grouping{
		InstanceGroup: make(map[int]int, n),
		Groups:        make(map[int][]*Instance),
	}
	for i, inst := range instances {
		gid := group[i]
		g.InstanceGroup[inst.ID] = gid
		if _, ok := g.Groups[gid]; !ok {
			g.Order = append(g.Order, gid)
		}
		g.Groups[gid] = append(g.Groups[gid], inst)
	}
	sort.Ints(g.Order)

	return g
}

// Members returns the instances of group gid.
func (g *Grouping) Members(gid int) []*Instance {
	return g.Groups[gid]
}

// Len returns the number of groups.
func (g *Grouping) Len() int {
	return len(g.Order)
}
