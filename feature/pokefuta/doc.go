// Package pokefuta is the source adapter for the Pokémon manhole ("Pokéfuta")
// detail pages.
//
// Each manhole has a modal page at <base>/desc/<id>/?is_modal=1. The adapter
// reads the coordinates from the first Google Maps link, the title from the first
// heading and the pokémon names from the encyclopedia links. A page without
// coordinates holds no record.
package pokefuta
