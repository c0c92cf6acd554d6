package images

import (
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const shortIDLength = 8

var adjectives = []string{
	"ancient", "bold", "calm", "dark", "elegant",
	"fierce", "gentle", "hidden", "icy", "jazzy",
	"kind", "lofty", "misty", "noble", "ornate",
	"peaceful", "quiet", "radiant", "silent", "tall",
	"urban", "vast", "warm", "young", "zealous",
}

var nouns = []string{
	"arch", "bridge", "castle", "dome", "entrance",
	"facade", "garden", "hall", "interior", "junction",
	"keep", "lobby", "mansion", "nook", "obelisk",
	"palace", "quarter", "roof", "spire", "tower",
	"vault", "wall", "yard", "zone", "balcony",
}

// filenamePattern bounds accepted blob keys so they are safe as object keys.
var filenamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// GenerateName returns a readable blob key of the form adjective-noun-shortid.
// Collisions are not retried.
func GenerateName() string {
	adjective := adjectives[rand.IntN(len(adjectives))]
	noun := nouns[rand.IntN(len(nouns))]
	shortID := strings.ReplaceAll(uuid.NewString(), "-", "")[:shortIDLength]
	return adjective + "-" + noun + "-" + shortID
}

func validFilename(name string) bool {
	if strings.Contains(name, "..") {
		return false
	}
	return filenamePattern.MatchString(name)
}
