package gmanhole

import "regexp"

type pattern struct {
	re    *regexp.Regexp
	label string
}

func patterns(pairs ...string) []pattern {
	out := make([]pattern, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, pattern{re: regexp.MustCompile(pairs[i]), label: pairs[i+1]})
	}
	return out
}

var characterPatterns = patterns(
	`アムロ`, "アムロ",
	`シャア`, "シャア",
	`カミーユ`, "カミーユ",
	`セイラ`, "セイラ",
	`ブライト`, "ブライト",
	`リュウ`, "リュウ",
	`ガルマ`, "ガルマ",
	`ハマーン`, "ハマーン",
	`ジュドー`, "ジュドー",
	`フリーダム`, "フリーダム",
	`ストライク`, "ストライク",
	`キラ`, "キラ",
	`ラクス`, "ラクス",
	`刹那`, "刹那",
	`バナージ`, "バナージ",
	`リディ`, "リディ",
)

// Ordered from most to least specific; the first match wins.
var seriesPatterns = patterns(
	`機動戦士ガンダムUC|ガンダムユニコーン`, "機動戦士ガンダムUC",
	`機動戦士ガンダムSEED|ガンダムSEED`, "機動戦士ガンダムSEED",
	`機動戦士ガンダム00|ガンダム00`, "機動戦士ガンダム00",
	`機動戦士ガンダムTHE ORIGIN|ガンダムTHE ORIGIN`, "機動戦士ガンダムTHE ORIGIN",
	`機動戦士ガンダム(?:$|[^\p{L}\p{N}_])`, "機動戦士ガンダム",
)
