package conceptgraph

import "sort"

// derivePaths grows one chain from every root that has dependents. Each step
// moves to the dependent with the most remaining descendants (ties broken by
// lexically smaller ID), so the chains approximate the longest informative
// routes without enumerating every path. Chains are ordered by length
// descending, then by first node ID, and truncated to maxPaths.
func derivePaths(idx *index, maxPaths int) []LearningPath {
	if maxPaths <= 0 {
		maxPaths = DefaultMaxPaths
	}
	if !idx.hasPrereq {
		return []LearningPath{}
	}

	weight := idx.descendantCounts()

	var paths []LearningPath
	for _, root := range idx.roots() {
		if len(idx.dependents[root]) == 0 {
			continue
		}
		path := LearningPath{root}
		for cur := root; ; {
			next, ok := heaviest(idx.dependents[cur], weight)
			if !ok {
				break
			}
			path = append(path, next)
			cur = next
		}
		paths = append(paths, path)
	}

	sort.SliceStable(paths, func(i, j int) bool {
		if len(paths[i]) != len(paths[j]) {
			return len(paths[i]) > len(paths[j])
		}
		return paths[i][0] < paths[j][0]
	})

	if len(paths) > maxPaths {
		paths = paths[:maxPaths]
	}
	return paths
}

// heaviest picks the candidate with the largest weight. Candidates arrive
// sorted, so the first maximum is also the lexically smallest.
func heaviest(candidates []string, weight map[string]int) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if weight[c] > weight[best] {
			best = c
		}
	}
	return best, true
}

// learningOrder returns every concept in topological order.
func learningOrder(idx *index) LearningPath {
	out := make(LearningPath, len(idx.topoOrder))
	copy(out, idx.topoOrder)
	return out
}
