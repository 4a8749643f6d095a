package community

import (
	"sort"
	"strings"

	a "github.com/petar-dambovaliev/aho-corasick"
)

// Tag vocabularies detected in submitted prompt text.
var vocabularies = map[string][]string{
	"camera": {
		"dolly", "tracking shot", "crane shot", "pan", "tilt", "close-up", "close up",
		"wide shot", "aerial", "drone", "handheld", "pov", "zoom", "steadicam", "over the shoulder",
	},
	"lighting": {
		"golden hour", "blue hour", "backlit", "rim light", "neon", "soft light",
		"hard light", "volumetric", "silhouette", "candlelight", "chiaroscuro",
	},
	"audio": {
		"dialogue", "voiceover", "voice over", "ambient", "soundtrack", "music",
		"sound effect", "sfx", "whisper", "narration",
	},
	"style": {
		"cinematic", "anime", "documentary", "noir", "vintage", "photorealistic",
		"hyperrealistic", "claymation", "watercolor", "cyberpunk", "film grain",
	},
	"motion": {
		"slow motion", "timelapse", "time-lapse", "hyperlapse", "tracking", "orbit",
		"fast cut", "whip pan", "freeze frame",
	},
}

var (
	keywordToTag = func() map[string]string {
		m := make(map[string]string)
		for tag, words := range vocabularies {
			for _, w := range words {
				m[w] = tag
			}
		}
		return m
	}()

	tagMatcher = func() a.AhoCorasick {
		builder := a.NewAhoCorasickBuilder(a.Opts{
			AsciiCaseInsensitive: true,
			MatchOnlyWholeWords:  true,
			MatchKind:            a.LeftMostLongestMatch,
		})
		return builder.Build(keywords())
	}()
)

func keywords() []string {
	out := make([]string, 0, len(keywordToTag))
	for w := range keywordToTag {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// DetectTags scans text once and returns the vocabulary tags it mentions, sorted.
func DetectTags(text string) []string {
	text = strings.ToLower(text)
	seen := make(map[string]bool)
	for _, m := range tagMatcher.FindAll(text) {
		if tag, ok := keywordToTag[text[m.Start():m.End()]]; ok {
			seen[tag] = true
		}
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// MergeTags lowercases, trims and dedupes user tags, then appends detected
// tags that are not already present.
func MergeTags(user, detected []string) []string {
	seen := make(map[string]bool, len(user)+len(detected))
	out := make([]string, 0, len(user)+len(detected))
	for _, list := range [][]string{user, detected} {
		for _, t := range list {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
