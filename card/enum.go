package card

import "fmt"

// Kind 牌的类别
type Kind byte

const (
	KindInvalid    Kind = 0
	KindIngredient Kind = 1
	KindWild       Kind = 2
	KindOrder      Kind = 3
)

var KindDictionary = map[Kind]string{
	KindIngredient: "INGREDIENT",
	KindWild:       "WILD",
	KindOrder:      "ORDER",
}

// Rank 食材稀有度 D < C < B < A < S
type Rank byte

const (
	RankNone Rank = 0
	RankD    Rank = 1
	RankC    Rank = 2
	RankB    Rank = 3
	RankA    Rank = 4
	RankS    Rank = 5
)

var RankDictionary = map[Rank]string{
	RankD: "D",
	RankC: "C",
	RankB: "B",
	RankA: "A",
	RankS: "S",
}

// Effect 万能牌效果. The set is closed: resolvers switch over every value.
type Effect byte

const (
	EffectNone     Effect = 0
	EffectWildcard Effect = 1
	EffectStun     Effect = 2
	EffectSabotage Effect = 3
	EffectBuff     Effect = 4
	EffectChaos    Effect = 5
	EffectTargeted Effect = 6
	EffectShowdown Effect = 7
)

var EffectDictionary = map[Effect]string{
	EffectWildcard: "WILDCARD",
	EffectStun:     "STUN",
	EffectSabotage: "SABOTAGE",
	EffectBuff:     "BUFF",
	EffectChaos:    "CHAOS",
	EffectTargeted: "TARGETED",
	EffectShowdown: "SHOWDOWN",
}

// OrderClass 订单难度
type OrderClass byte

const (
	ClassNone   OrderClass = 0
	ClassEasy   OrderClass = 1
	ClassMedium OrderClass = 2
	ClassHard   OrderClass = 3
)

var OrderClassDictionary = map[OrderClass]string{
	ClassEasy:   "EASY",
	ClassMedium: "MEDIUM",
	ClassHard:   "HARD",
}

func (k Kind) String() string       { return nameOr(KindDictionary, k) }
func (r Rank) String() string       { return nameOr(RankDictionary, r) }
func (e Effect) String() string     { return nameOr(EffectDictionary, e) }
func (c OrderClass) String() string { return nameOr(OrderClassDictionary, c) }

func (k Kind) MarshalText() ([]byte, error)       { return marshalName(KindDictionary, k) }
func (r Rank) MarshalText() ([]byte, error)       { return marshalName(RankDictionary, r) }
func (e Effect) MarshalText() ([]byte, error)     { return marshalName(EffectDictionary, e) }
func (c OrderClass) MarshalText() ([]byte, error) { return marshalName(OrderClassDictionary, c) }

func (k *Kind) UnmarshalText(b []byte) error       { return unmarshalName(KindDictionary, b, k) }
func (r *Rank) UnmarshalText(b []byte) error       { return unmarshalName(RankDictionary, b, r) }
func (e *Effect) UnmarshalText(b []byte) error     { return unmarshalName(EffectDictionary, b, e) }
func (c *OrderClass) UnmarshalText(b []byte) error { return unmarshalName(OrderClassDictionary, b, c) }

// ParseEffect maps an upper-case effect name to its value.
func ParseEffect(name string) (Effect, error) {
	var e Effect
	err := e.UnmarshalText([]byte(name))
	return e, err
}

func nameOr[T ~byte](dict map[T]string, v T) string {
	if s, ok := dict[v]; ok {
		return s
	}
	if v == 0 {
		return "NONE"
	}
	return fmt.Sprintf("UNKNOWN(%d)", byte(v))
}

func marshalName[T ~byte](dict map[T]string, v T) ([]byte, error) {
	if v == 0 {
		return []byte("NONE"), nil
	}
	s, ok := dict[v]
	if !ok {
		return nil, fmt.Errorf("card: unknown enum value %d", byte(v))
	}
	return []byte(s), nil
}

func unmarshalName[T ~byte](dict map[T]string, b []byte, out *T) error {
	name := string(b)
	if name == "" || name == "NONE" {
		*out = 0
		return nil
	}
	for v, s := range dict {
		if s == name {
			*out = v
			return nil
		}
	}
	return fmt.Errorf("card: unknown name %q", name)
}
