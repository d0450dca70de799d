package domain

// DistractorsPerCard is the number of wrong answers generated for each card.
const DistractorsPerCard = 3

// DistractorSet maps a card id to exactly DistractorsPerCard wrong answers,
// or to an empty list when the caller must supply its own fallback.
type DistractorSet map[string][]string

// EmptyDistractors returns a set with an empty list for every id.
func EmptyDistractors(ids []string) DistractorSet {
	set := make(DistractorSet, len(ids))
	for _, id := range ids {
		set[id] = []string{}
	}
	return set
}

// Missing returns the ids that have no key in the set.
func (s DistractorSet) Missing(ids []string) []string {
	var missing []string
	for _, id := range ids {
		if _, ok := s[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
