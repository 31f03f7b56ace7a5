// Package cascade loads layered configuration into a Go struct.
//
// A Loader holds sources in priority order, lowest first; later sources override earlier ones key by key. Keys are dot-separated and case-insensitive
// ("largediff.maxblocks" sets field LargeDiff.MaxBlocks). A field's key comes from its `cascade` tag, then its `json` tag, then its name.
//
//	var cfg Config
//	l := cascade.New().
//		WithDefaults(map[string]any{"maxhistory": 100}).
//		WithJSONFile("~/.blockdiff/config.json").
//		WithNearestJSONFile(".blockdiff/config.json", "").
//		WithNearestDotEnv(".env", "", envKeys).
//		WithEnv(envKeys)
//	err := l.StrictlyLoad(&cfg)
//	src := l.Provenance("maxhistory") // which source won
//
// Missing or unreadable files are skipped. A file that exists but does not parse, or a value that cannot be coerced to its field's type, is an error. Unknown keys are ignored.
package cascade
