package diskarc

// HealthReport summarizes the result of CheckHealth by naming specific
// problem nodes rather than returning a bare pass/fail, per SPEC_FULL.md's
// supplemented health-check report.
type HealthReport struct {
	Dangling     []*DiskArcNode
	Closed       []*DiskArcNode
	BrokenParent []*DiskArcNode
}

// OK reports whether h found no problems at all.
func (h HealthReport) OK() bool {
	return len(h.Dangling) == 0 && len(h.Closed) == 0 && len(h.BrokenParent) == 0
}

// CheckHealth walks root's subtree verifying no stream is closed, no
// child dangles (its Parent pointer does not match the node that actually
// holds it in Children), and no parent link is broken (the reverse
// mismatch), per spec.md §4.5.
func CheckHealth(root *DiskArcNode) HealthReport {
	var report HealthReport
	var walk func(n *DiskArcNode)
	walk = func(n *DiskArcNode) {
		if n.closed {
			report.Closed = append(report.Closed, n)
		}
		if n.parent != nil {
			linked := false
			for _, sib := range n.parent.children {
				if sib == n {
					linked = true
					break
				}
			}
			if !linked {
				report.BrokenParent = append(report.BrokenParent, n)
			}
		}
		for _, c := range n.children {
			if c.parent != n {
				report.Dangling = append(report.Dangling, c)
				continue
			}
			walk(c)
		}
	}
	walk(root)
	return report
}
