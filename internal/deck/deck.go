// Package deck supplies the universe of drawable cards and placeable scene
// objects. Data tables are embedded YAML; the 89 image cards are generated
// from their asset naming scheme. Asset existence is never validated.
package deck

import (
	_ "embed"
	"fmt"
	"math/rand"

	"gopkg.in/yaml.v3"

	"github.com/user/mindmirror/internal/types"
)

//go:embed data/words.yaml
var wordsYAML []byte

//go:embed data/scenes.yaml
var scenesYAML []byte

//go:embed data/toys.yaml
var toysYAML []byte

// imageCount is the number of image cards (assets 0.jpg through 88.jpg).
const imageCount = 89

// Scene is one sandplay backdrop.
type Scene struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Toy is one placeable sandplay object.
type Toy struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
}

type wordEntry struct {
	Index int    `yaml:"index"`
	Text  string `yaml:"text"`
}

// Deck holds the loaded card, scene and toy tables.
type Deck struct {
	images []types.CardImage
	words  []types.CardWord
	scenes []Scene
	toys   []Toy

	sceneByID map[string]Scene
	toyByID   map[string]Toy
}

// Load parses the embedded data tables.
func Load() (*Deck, error) {
	d := &Deck{
		sceneByID: make(map[string]Scene),
		toyByID:   make(map[string]Toy),
	}

	var words []wordEntry
	if err := yaml.Unmarshal(wordsYAML, &words); err != nil {
		return nil, fmt.Errorf("parse words table: %w", err)
	}
	for _, w := range words {
		d.words = append(d.words, types.CardWord{
			ID:   fmt.Sprintf("word-%d", w.Index),
			Text: w.Text,
		})
	}

	if err := yaml.Unmarshal(scenesYAML, &d.scenes); err != nil {
		return nil, fmt.Errorf("parse scenes table: %w", err)
	}
	for _, s := range d.scenes {
		d.sceneByID[s.ID] = s
	}

	if err := yaml.Unmarshal(toysYAML, &d.toys); err != nil {
		return nil, fmt.Errorf("parse toys table: %w", err)
	}
	for _, t := range d.toys {
		d.toyByID[t.ID] = t
	}

	for i := 0; i < imageCount; i++ {
		d.images = append(d.images, types.CardImage{
			ID:  fmt.Sprintf("img-%d", i),
			URL: fmt.Sprintf("/cards/image-card/%d.jpg", i),
		})
	}

	return d, nil
}

// DrawCombination picks a random image+word pair.
func (d *Deck) DrawCombination() types.CardCombination {
	return types.CardCombination{
		Image: d.images[rand.Intn(len(d.images))],
		Word:  d.words[rand.Intn(len(d.words))],
	}
}

// Images returns all image cards.
func (d *Deck) Images() []types.CardImage { return d.images }

// Words returns all word cards.
func (d *Deck) Words() []types.CardWord { return d.words }

// Scenes returns all sandplay scenes.
func (d *Deck) Scenes() []Scene { return d.scenes }

// Toys returns the toy catalog.
func (d *Deck) Toys() []Toy { return d.toys }

// Scene looks up a scene by id.
func (d *Deck) Scene(id string) (Scene, bool) {
	s, ok := d.sceneByID[id]
	return s, ok
}

// Toy looks up a toy by id.
func (d *Deck) Toy(id string) (Toy, bool) {
	t, ok := d.toyByID[id]
	return t, ok
}
