package search

import "sort"

// highScore is the relevance floor for guaranteed round-one picks.
const highScore = 0.7

// maxRounds guards the round-robin loop against pathological category
// distributions.
const maxRounds = 10

// SelectDiverse picks up to maxDocs results balancing relevance against
// category spread. Round one takes the strongest hits, round two takes
// one document per (vendor, doc_type) category round-robin, round three
// backfills by score.
func SelectDiverse(results []DocResult, maxDocs int) []DocResult {
	if maxDocs <= 0 || len(results) <= maxDocs {
		return results
	}

	picked := make([]DocResult, 0, maxDocs)
	used := map[string]bool{}

	// Round 1: up to half the budget goes to high-relevance documents in
	// rank order.
	for _, r := range results {
		if len(picked) >= maxDocs/2 {
			break
		}
		if r.Score > highScore {
			picked = append(picked, r)
			used[r.DocID] = true
		}
	}

	// Round 2: one document per category per pass, categories in sorted
	// order so selection is deterministic.
	byCategory := map[string][]DocResult{}
	for _, r := range results {
		if used[r.DocID] {
			continue
		}
		key := r.Vendor + "/" + r.DocType
		byCategory[key] = append(byCategory[key], r)
	}
	categories := make([]string, 0, len(byCategory))
	for k := range byCategory {
		categories = append(categories, k)
	}
	sort.Strings(categories)

	for round := 0; len(picked) < maxDocs && round < maxRounds; round++ {
		advanced := false
		for _, cat := range categories {
			if len(picked) >= maxDocs {
				break
			}
			pool := byCategory[cat]
			if len(pool) == 0 {
				continue
			}
			picked = append(picked, pool[0])
			used[pool[0].DocID] = true
			byCategory[cat] = pool[1:]
			advanced = true
		}
		if !advanced {
			break
		}
	}

	// Round 3: backfill by score.
	for _, r := range results {
		if len(picked) >= maxDocs {
			break
		}
		if !used[r.DocID] {
			picked = append(picked, r)
			used[r.DocID] = true
		}
	}
	return picked
}
