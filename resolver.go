package main

import (
	"strings"
)

// Keyword pairs may be joined by a half- or full-width plus, or either
// comma variant, since players type on both Chinese and Latin layouts.
var keywordDelimiters = []string{"+", "＋", ",", "，"}

// splitKeyword normalizes raw input into exactly two non-empty parts.
func splitKeyword(raw string) (string, string, bool) {
	trimmed := strings.TrimSpace(raw)

	for _, delim := range keywordDelimiters {
		parts := strings.Split(trimmed, delim)
		if len(parts) != 2 {
			continue
		}

		p1 := strings.TrimSpace(parts[0])
		p2 := strings.TrimSpace(parts[1])
		if p1 == "" || p2 == "" {
			continue
		}

		return p1, p2, true
	}

	return "", "", false
}

// candidateKeys lists catalog keys to try, in resolution order: both
// orderings of the pair itself, then each part combined with the actor's
// concealed animal, then the animal/cage combinations when the cage is
// named. Once the caged player has been freed, cage keys switch to their
// continuation variant; the suffix is decided by unlock state, never
// guessed both ways.
func candidateKeys(p1, p2, animal string, cageFreed bool) []string {
	keys := []string{
		p1 + "+" + p2,
		p2 + "+" + p1,
		animal + "+" + p1,
		p1 + "+" + animal,
		animal + "+" + p2,
		p2 + "+" + animal,
	}

	if p1 == cageToken || p2 == cageToken {
		keys = append(keys,
			animal+"+"+cageToken,
			cageToken+"+"+animal,
		)
	}

	if cageFreed {
		for i, key := range keys {
			if strings.Contains(key, cageToken) {
				keys[i] = key + continuationSuffix
			}
		}
	}

	return keys
}

// resolveKeyword maps raw player input to a catalog entry. The first
// candidate hit wins; a miss consumes nothing.
func resolveKeyword(raw, animal string, cageFreed bool) (CatalogEntry, error) {
	p1, p2, ok := splitKeyword(raw)
	if !ok {
		return CatalogEntry{}, errInvalidKeyword
	}

	for _, key := range candidateKeys(p1, p2, animal, cageFreed) {
		if entry, found := lookupEffect(key); found {
			return entry, nil
		}
	}

	return CatalogEntry{}, errNoSuchCombination
}
