// Package namegen generates readable random player names for players
// created without an explicit display name.
package namegen

import (
	"fmt"
	"math/rand/v2"
)

var adjectives = []string{
	"amber", "bold", "brave", "bright", "calm", "clever", "cosmic", "crimson",
	"daring", "eager", "fierce", "gentle", "golden", "hidden", "jolly", "keen",
	"lively", "lucky", "mighty", "nimble", "polar", "proud", "quick", "quiet",
	"rapid", "royal", "silent", "silver", "solar", "swift", "vivid", "wild",
}

var nouns = []string{
	"badger", "condor", "coyote", "dolphin", "falcon", "ferret", "fox",
	"gecko", "heron", "ibex", "jackal", "kestrel", "lemur", "lynx", "marmot",
	"marten", "otter", "owl", "panther", "puffin", "raven", "salmon", "stoat",
	"swallow", "tiger", "viper", "walrus", "weasel", "wolf", "wombat",
}

// New returns a random "adjective-noun-NN" name, e.g. "swift-otter-42".
func New() string {
	adj := adjectives[rand.IntN(len(adjectives))]
	noun := nouns[rand.IntN(len(nouns))]
	return fmt.Sprintf("%s-%s-%d", adj, noun, rand.IntN(100))
}
