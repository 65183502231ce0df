package document

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/davinel000/highlighter-server/internal/tokenizer"
)

// Range is a contiguous inclusive span of token indices sharing one color.
// Ranges are derived from votes, never stored.
type Range struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Color string `json:"color"`
}

// Phrase is a contiguous same-color run of non-break tokens, normalized to
// lowercase and aggregated across the clients who produced it.
type Phrase struct {
	Text    string   `json:"text"`
	Color   string   `json:"color"`
	Clients []string `json:"clients"`
	Count   int      `json:"count"`
}

// topColorAt picks the color with the most distinct client votes at one
// position. Clients are visited in sorted order and the first color to reach
// the running maximum wins, which makes ties deterministic.
func topColorAt(bucket map[string]string) string {
	if len(bucket) == 0 {
		return ""
	}
	clients := make([]string, 0, len(bucket))
	for clientID := range bucket {
		clients = append(clients, clientID)
	}
	sort.Strings(clients)

	counts := make(map[string]int, len(bucket))
	best := ""
	bestCount := 0
	for _, clientID := range clients {
		color := bucket[clientID]
		if color == "" {
			continue
		}
		counts[color]++
		if counts[color] > bestCount {
			bestCount = counts[color]
			best = color
		}
	}
	return best
}

// RangesFromVotes merges consecutive positions sharing the same top color
// into inclusive ranges. Positions without votes break any in-progress run.
func RangesFromVotes(votes []map[string]string) []Range {
	var ranges []Range
	total := len(votes)
	i := 0
	for i < total {
		color := topColorAt(votes[i])
		if color == "" {
			i++
			continue
		}
		j := i
		for j+1 < total && topColorAt(votes[j+1]) == color {
			j++
		}
		ranges = append(ranges, Range{Start: i, End: j, Color: color})
		i = j + 1
	}
	return ranges
}

// ClientRanges returns one client's contiguous same-color runs. Break tokens
// never appear in a range and always end the current run.
func ClientRanges(tokens []string, votes []map[string]string, clientID string) []Range {
	var res []Range
	limit := len(tokens)
	if len(votes) < limit {
		limit = len(votes)
	}
	idx := 0
	for idx < limit {
		color := votes[idx][clientID]
		if color == "" || tokenizer.IsBreakToken(tokens[idx]) {
			idx++
			continue
		}
		start := idx
		j := idx + 1
		for j < limit && !tokenizer.IsBreakToken(tokens[j]) && votes[j][clientID] == color {
			j++
		}
		res = append(res, Range{Start: start, End: j - 1, Color: color})
		idx = j
	}
	return res
}

// HashID returns the truncated hex digest used in place of raw client ids
// in phrase aggregation output.
func HashID(value string) string {
	sum := sha1.Sum([]byte(value))
	return hex.EncodeToString(sum[:])[:10]
}

// PhrasesAggregated computes every client's contiguous same-color runs,
// normalizes each run to lowercase space-joined text, and groups identical
// (text, color) pairs across clients. Output is sorted by text then color.
func PhrasesAggregated(tokens []string, votes []map[string]string) []Phrase {
	n := len(tokens)
	if len(votes) < n {
		n = len(votes)
	}
	clientSet := make(map[string]bool)
	for idx := 0; idx < n; idx++ {
		for clientID := range votes[idx] {
			clientSet[clientID] = true
		}
	}

	type key struct {
		text  string
		color string
	}
	byKey := make(map[key]map[string]bool)
	for clientID := range clientSet {
		hashed := HashID(clientID)
		i := 0
		for i < n {
			if tokenizer.IsBreakToken(tokens[i]) {
				i++
				continue
			}
			color := votes[i][clientID]
			if color == "" {
				i++
				continue
			}
			start := i
			j := i + 1
			for j < n && !tokenizer.IsBreakToken(tokens[j]) && votes[j][clientID] == color {
				j++
			}
			text := strings.TrimSpace(strings.Join(tokens[start:j], " "))
			if text != "" {
				k := key{text: strings.ToLower(text), color: color}
				if byKey[k] == nil {
					byKey[k] = make(map[string]bool)
				}
				byKey[k][hashed] = true
			}
			i = j
		}
	}

	result := make([]Phrase, 0, len(byKey))
	for k, members := range byKey {
		if k.text == "" {
			continue
		}
		clients := make([]string, 0, len(members))
		for hashed := range members {
			clients = append(clients, hashed)
		}
		sort.Strings(clients)
		result = append(result, Phrase{
			Text:    k.text,
			Color:   k.color,
			Clients: clients,
			Count:   len(clients),
		})
	}
	sort.Slice(result, func(a, b int) bool {
		if result[a].Text != result[b].Text {
			return result[a].Text < result[b].Text
		}
		return result[a].Color < result[b].Color
	})
	return result
}
