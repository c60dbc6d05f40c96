package card

import (
	"fmt"
	"strings"
)

// NoOwner marks an order that sits in the market unclaimed.
const NoOwner = -1

// Card 一张实体牌
//
// 同一模板可以发出多张副本: TemplateID 表示逻辑身份, ID 在整局游戏内唯一
// (格式 "<templateId>#<copy>").
type Card struct {
	ID           string     `json:"id"`
	TemplateID   string     `json:"templateId"`
	Name         string     `json:"name"`
	Kind         Kind       `json:"kind"`
	Rank         Rank       `json:"rank,omitempty"`
	Effect       Effect     `json:"effect,omitempty"`
	Description  string     `json:"description,omitempty"`
	Target       string     `json:"target,omitempty"`
	Class        OrderClass `json:"class,omitempty"`
	Ingredients  []string   `json:"ingredients,omitempty"`
	Points       int        `json:"points,omitempty"`
	TapsRequired int        `json:"tapsRequired,omitempty"`
	Origin       string     `json:"origin,omitempty"`
	LockedBy     int        `json:"lockedBy"`
}

func (c Card) String() string {
	if c.ID == "" {
		return "Invalid"
	}
	return fmt.Sprintf("%s(%s)", c.Name, c.ID)
}

func (c Card) IsIngredient() bool { return c.Kind == KindIngredient }

func (c Card) IsWild() bool { return c.Kind == KindWild }

func (c Card) IsOrder() bool { return c.Kind == KindOrder }

// IsWildcard reports whether the card can stand in for any ingredient.
func (c Card) IsWildcard() bool {
	return c.Kind == KindWild && c.Effect == EffectWildcard
}

func (c Card) Locked() bool {
	return c.Kind == KindOrder && c.LockedBy != NoOwner
}

// Clone 深拷贝 (Ingredients 切片不共享)
func (c Card) Clone() Card {
	if c.Ingredients != nil {
		c.Ingredients = append([]string(nil), c.Ingredients...)
	}
	return c
}

// copyOf stamps a template with its per-game instance id.
func copyOf(tpl Card, n int) Card {
	out := tpl.Clone()
	out.ID = InstanceID(tpl.TemplateID, n)
	return out
}

// InstanceID 生成实例 ID, 例如 "i6#2"
func InstanceID(templateID string, n int) string {
	return fmt.Sprintf("%s#%d", templateID, n)
}

// TemplateOf recovers the template id from an instance id.
func TemplateOf(id string) string {
	if i := strings.IndexByte(id, '#'); i >= 0 {
		return id[:i]
	}
	return id
}
