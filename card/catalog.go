package card

const stylePrefix = "Professional 2D digital game art, culinary theme, vibrant colors, clean studio lighting, centered composition, high detail: "

const (
	IngredientCopies = 3
	WildCopies       = 2
	OrderCopies      = 1
)

var ingredients = []Card{
	ingredient("i1", "Beras", RankD),
	ingredient("i2", "Telur", RankD),
	ingredient("i3", "Saus", RankD),
	ingredient("i4", "Sayuran", RankC),
	ingredient("i5", "Tomat", RankC),
	ingredient("i6", "Jeruk", RankC),
	ingredient("i7", "Ikan", RankB),
	ingredient("i8", "Keju", RankB),
	ingredient("i9", "Bumbu Kari", RankB),
	ingredient("i10", "Adonan Pizza", RankB),
	ingredient("i11", "Madu", RankA),
	ingredient("i12", "Lemon", RankA),
	ingredient("i13", "Susu & Krim", RankA),
	ingredient("i14", "Es Batu", RankA),
	ingredient("i15", "Matcha", RankS),
}

var wilds = []Card{
	wild("w1", "Golden Apron", EffectWildcard, "Gunakan sebagai bahan apa saja!", ""),
	wild("w2", "Wild West", EffectShowdown, "Duel! Ambil 2 kartu lawan jika menang.", ""),
	wild("w3", "Rat Attack", EffectSabotage, "Lawan buang 1 bahan terakhir yang diambil.", ""),
	wild("w4", "Power Outage", EffectStun, "Hentikan masakan lawan selama 1 giliran.", ""),
	wild("w5", "Recipe Swap", EffectChaos, "Tukar kartu pesanan yang tersedia.", ""),
	wild("w6", "Saus Tumpah", EffectTargeted, "Pilih lawan, buang semua kartu Saus miliknya.", "Saus"),
	wild("w7", "Laris Manis", EffectBuff, "Ambil 2 kartu bahan tambahan gratis.", ""),
}

var orders = []Card{
	order("o1", "Orange Juice", ClassEasy, "USA", "Jeruk", "Es Batu"),
	order("o2", "Sushi Nigiri", ClassEasy, "Japan", "Beras", "Ikan"),
	order("o3", "Telur Gulung", ClassEasy, "Indonesia", "Telur", "Saus"),
	order("o4", "Hachimi", ClassMedium, "Japan", "Madu", "Es Batu", "Lemon"),
	order("o5", "Pizza Margherita", ClassMedium, "Italy", "Adonan Pizza", "Tomat", "Keju"),
	order("o6", "Chakalaka", ClassMedium, "South Africa", "Sayuran", "Bumbu Kari"),
	order("o7", "Matcha Frappe", ClassHard, "Japan", "Matcha", "Susu & Krim", "Es Batu"),
	order("o8", "Shakshouka", ClassHard, "Tunisia", "Telur", "Tomat", "Sayuran"),
}

var prompts = map[string]string{
	"i1":  "A bowl of high-quality raw white rice grains",
	"i2":  "Two organic brown eggs, one slightly cracked",
	"i3":  "A glass bottle of rich red tomato sauce",
	"i4":  "A bundle of fresh green leafy vegetables and carrots",
	"i5":  "A ripe, juicy red tomato with a green stem",
	"i6":  "A fresh whole orange and a slice next to it",
	"i7":  "A fresh salmon fillet on a wooden board",
	"i8":  "A wedge of swiss cheese with holes",
	"i9":  "A small bowl of golden yellow curry powder",
	"i10": "A ball of fresh pizza dough on a floured surface",
	"i11": "A glass jar of golden honey with a wooden dipper",
	"i12": "A bright yellow lemon cut in half",
	"i13": "A glass bottle of milk and a swirl of thick cream",
	"i14": "Shiny crystal clear ice cubes in a glass",
	"i15": "A bowl of vibrant green matcha powder with a bamboo whisk",
	"w1":  "A glowing golden chef apron floating in the air",
	"w2":  "Two crossed chef knives in a western desert sunset",
	"w3":  "A cute but mischievous cartoon rat holding a wooden spoon",
	"w4":  "A kitchen stove with sparks and a broken lightbulb icon",
	"w5":  "Two floating recipe scrolls swapping places magically",
	"w6":  "A spilled bottle of red sauce on a white kitchen counter",
	"w7":  "A line of happy customers waiting at a kitchen window",
	"o1":  "A glass of freshly squeezed orange juice with ice",
	"o2":  "Two pieces of salmon nigiri sushi on a black plate",
	"o3":  "A stack of Indonesian style egg rolls on a wooden stick",
	"o4":  "A refreshing Japanese honey lemon drink with ice",
	"o5":  "A fresh pizza with tomato sauce, melted mozzarella and basil",
	"o6":  "A bowl of spicy South African vegetable relish",
	"o7":  "A creamy green matcha frappe with whipped cream",
	"o8":  "Poached eggs in a simmering tomato and vegetable sauce in a pan",
}

var classRewards = map[OrderClass]struct{ points, taps int }{
	ClassEasy:   {10, 5},
	ClassMedium: {20, 10},
	ClassHard:   {40, 15},
}

func ingredient(id, name string, rank Rank) Card {
	return Card{TemplateID: id, Name: name, Kind: KindIngredient, Rank: rank, LockedBy: NoOwner}
}

func wild(id, name string, effect Effect, desc, target string) Card {
	return Card{TemplateID: id, Name: name, Kind: KindWild, Effect: effect, Description: desc, Target: target, LockedBy: NoOwner}
}

func order(id, name string, class OrderClass, origin string, needs ...string) Card {
	r := classRewards[class]
	return Card{
		TemplateID:   id,
		Name:         name,
		Kind:         KindOrder,
		Class:        class,
		Ingredients:  needs,
		Points:       r.points,
		TapsRequired: r.taps,
		Origin:       origin,
		LockedBy:     NoOwner,
	}
}

// Ingredients returns copies of the ingredient templates.
func Ingredients() List { return templates(ingredients) }

// Wilds returns copies of the wild templates.
func Wilds() List { return templates(wilds) }

// Orders returns copies of the order templates.
func Orders() List { return templates(orders) }

func templates(src []Card) List {
	out := make(List, len(src))
	for i, c := range src {
		out[i] = c.Clone()
		out[i].ID = c.TemplateID
	}
	return out
}

// Lookup 按模板 ID 查找
func Lookup(templateID string) (Card, bool) {
	for _, set := range [][]Card{ingredients, wilds, orders} {
		for _, c := range set {
			if c.TemplateID == templateID {
				out := c.Clone()
				out.ID = templateID
				return out, true
			}
		}
	}
	return Card{}, false
}

// IsIngredientName reports whether name belongs to a catalog ingredient.
func IsIngredientName(name string) bool {
	for _, c := range ingredients {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Prompt returns the art prompt for a template id, or "" when unknown.
func Prompt(templateID string) string {
	subject, ok := prompts[TemplateOf(templateID)]
	if !ok {
		return ""
	}
	return stylePrefix + subject
}

// StandardDeck 标准牌堆: 每种食材 3 张, 每种万能牌 2 张 (未洗牌)
func StandardDeck() List {
	out := make(List, 0, len(ingredients)*IngredientCopies+len(wilds)*WildCopies)
	for _, c := range ingredients {
		for n := 1; n <= IngredientCopies; n++ {
			out = append(out, copyOf(c, n))
		}
	}
	for _, c := range wilds {
		for n := 1; n <= WildCopies; n++ {
			out = append(out, copyOf(c, n))
		}
	}
	return out
}

// StandardOrders 订单牌堆 (未洗牌)
func StandardOrders() List {
	out := make(List, 0, len(orders)*OrderCopies)
	for _, c := range orders {
		for n := 1; n <= OrderCopies; n++ {
			out = append(out, copyOf(c, n))
		}
	}
	return out
}
