package card

import "math/rand"

// List 有序牌列. The head (index 0) is the top of a pile, the tail is the most recent card in a hand.
type List []Card

func (ds List) Count() int {
	return len(ds)
}

// Clone 深拷贝
func (ds List) Clone() List {
	if ds == nil {
		return nil
	}
	out := make(List, len(ds))
	for i, c := range ds {
		out[i] = c.Clone()
	}
	return out
}

func (ds List) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(ds), func(i, j int) {
		ds[i], ds[j] = ds[j], ds[i]
	})
}

func (ds *List) Add(cards ...Card) {
	*ds = append(*ds, cards...)
}

// PopFront 从顶部取最多 size 张; 不足时返回剩余全部
func (ds *List) PopFront(size int) List {
	if size <= 0 || len(*ds) == 0 {
		return nil
	}
	if size > len(*ds) {
		size = len(*ds)
	}
	cards := make(List, size)
	copy(cards, (*ds)[:size])
	*ds = (*ds)[size:]
	return cards
}

// PopBack 取出最后一张
func (ds *List) PopBack() (Card, bool) {
	n := len(*ds)
	if n == 0 {
		return Card{}, false
	}
	c := (*ds)[n-1]
	*ds = (*ds)[:n-1]
	return c, true
}

// Index returns the position of the card with the given instance id, or -1.
func (ds List) Index(id string) int {
	for i, c := range ds {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (ds List) Find(id string) (Card, bool) {
	if i := ds.Index(id); i >= 0 {
		return ds[i], true
	}
	return Card{}, false
}

// Remove 按实例 ID 移除一张
func (ds *List) Remove(id string) (Card, bool) {
	i := ds.Index(id)
	if i < 0 {
		return Card{}, false
	}
	c := (*ds)[i]
	*ds = append((*ds)[:i:i], (*ds)[i+1:]...)
	return c, true
}

// Take removes every listed id and returns the removed cards in the order of ids.
// Nothing is removed unless all ids are present and distinct.
func (ds *List) Take(ids []string) (List, bool) {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, false
		}
		if ds.Index(id) < 0 {
			return nil, false
		}
		seen[id] = struct{}{}
	}
	out := make(List, 0, len(ids))
	for _, id := range ids {
		c, _ := ds.Remove(id)
		out = append(out, c)
	}
	return out, true
}

// Extract removes and returns every card for which match is true.
func (ds *List) Extract(match func(Card) bool) List {
	var out List
	kept := (*ds)[:0:0]
	for _, c := range *ds {
		if match(c) {
			out = append(out, c)
			continue
		}
		kept = append(kept, c)
	}
	*ds = kept
	return out
}

func (ds List) Names() []string {
	out := make([]string, len(ds))
	for i, c := range ds {
		out[i] = c.Name
	}
	return out
}

func (ds List) IDs() []string {
	out := make([]string, len(ds))
	for i, c := range ds {
		out[i] = c.ID
	}
	return out
}

// CountByTemplate 统计每个模板的张数
func (ds List) CountByTemplate() map[string]int {
	out := make(map[string]int, len(ds))
	for _, c := range ds {
		out[c.TemplateID]++
	}
	return out
}
