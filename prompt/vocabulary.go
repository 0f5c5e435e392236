package prompt

// Options offered to clients. The composer accepts any string; these are
// the values the bundled templates were written for.
var (
	DesignStyles = []string{
		"Modern", "Rustic", "Bohemian", "Classic", "Cozy", "Minimalist", "Industrial",
		"Scandinavian", "Traditional", "Contemporary", "Mediterranean", "Japandi", "Tropical",
	}

	ColorTones = []string{
		"Ivory", "Pearl", "Alabaster", "Neutral",
		"Ash", "Stone", "Charcoal", "Slate",
		"Vanilla Latte", "Taupe", "Earthy", "Walnut",
		"Blush", "Rose", "Crimson", "Rust",
		"Warm", "Amber", "Gold", "Ochre",
		"Mint", "Olive", "Sage", "Forest",
		"Sky", "Cool", "Denim", "Navy",
		"Lavender", "Lilac", "Plum", "Eggplant",
	}
)

// Options is the catalogue returned to clients.
type Options struct {
	InteriorRooms []string `json:"interior_rooms"`
	ExteriorAreas []string `json:"exterior_areas"`
	DesignStyles  []string `json:"design_styles"`
	ColorTones    []string `json:"color_tones"`
}

// Options lists the room types known to the composer's table along with
// the bundled style and tone vocabulary.
func (c *Composer) Options() Options {
	interior, exterior := c.templates.RoomTypes()
	return Options{
		InteriorRooms: interior,
		ExteriorAreas: exterior,
		DesignStyles:  DesignStyles,
		ColorTones:    ColorTones,
	}
}
