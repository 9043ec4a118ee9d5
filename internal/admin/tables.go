package admin

type Enchantment struct {
	Name     string `json:"name"`
	MaxLevel int    `json:"max_level"`
}

// Category groups the enchantments that apply to one kind of item.
type Category struct {
	Name         string        `json:"name"`
	Enchantments []Enchantment `json:"enchantments"`
}

type Gamemode struct {
	Name string `json:"name"`
	Code int    `json:"code"`
}

var categories = []Category{
	{Name: "all", Enchantments: []Enchantment{
		{"mending", 1}, {"unbreaking", 3},
	}},
	{Name: "armor", Enchantments: []Enchantment{
		{"aqua_affinity", 1}, {"blast_protection", 4}, {"fire_protection", 4}, {"protection", 4}, {"thorns", 3},
	}},
	{Name: "swords", Enchantments: []Enchantment{
		{"bane_of_arthropods", 5}, {"fire_aspect", 2}, {"knockback", 2}, {"sharpness", 5}, {"smite", 5},
	}},
	{Name: "bows", Enchantments: []Enchantment{
		{"flame", 1}, {"infinity", 1}, {"power", 5}, {"punch", 2},
	}},
	{Name: "tridents", Enchantments: []Enchantment{
		{"channeling", 1}, {"loyalty", 3}, {"riptide", 3},
	}},
	{Name: "tools", Enchantments: []Enchantment{
		{"efficiency", 5}, {"fortune", 3}, {"silk_touch", 1},
	}},
}

var effects = []string{
	"speed", "slowness", "haste", "mining_fatigue", "strength", "instant_health",
	"instant_damage", "jump_boost", "regeneration", "resistance", "fire_resistance",
	"water_breathing", "invisibility", "blindness", "night_vision", "hunger",
	"weakness", "poison", "wither", "health_boost", "absorption", "saturation",
}

var gamemodes = []Gamemode{
	{"survival", 0},
	{"creative", 1},
	{"adventure", 2},
}

// Commands that take nothing but the player name.
var simpleCommands = []string{"op", "deop", "kick", "ban", "kill", "clear", "difficulty", "summon"}

// commands is the menu order shown to operators.
var commands = []string{
	"op", "deop", "kick", "ban", "teleport", "give", "kill", "effect",
	"gamemode", "clear", "difficulty", "summon", "enchant",
}

func Categories() []Category {
	out := make([]Category, len(categories))
	for i, c := range categories {
		out[i] = Category{Name: c.Name, Enchantments: append([]Enchantment(nil), c.Enchantments...)}
	}
	return out
}

func Effects() []string { return append([]string(nil), effects...) }

func Gamemodes() []Gamemode { return append([]Gamemode(nil), gamemodes...) }

func Commands() []string { return append([]string(nil), commands...) }

func category(name string) (Category, bool) {
	for _, c := range categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

func isEffect(name string) bool {
	for _, e := range effects {
		if e == name {
			return true
		}
	}
	return false
}

func isSimple(command string) bool {
	for _, c := range simpleCommands {
		if c == command {
			return true
		}
	}
	return false
}
