package dashboard

// Category owns an ordered list of item names.
type Category struct {
	Name  string   `json:"name" yaml:"name"`
	Items []string `json:"items" yaml:"items"`
}

// Taxonomy is the ordered category sequence of the loaded dataset. Order is
// the server's and is kept for presentation.
type Taxonomy struct {
	Categories []Category `json:"categories" yaml:"categories"`
}

// NewTaxonomy copies the categories so later mutation by the caller is not observed.
func NewTaxonomy(categories ...Category) Taxonomy {
	out := make([]Category, len(categories))
	for i, c := range categories {
		out[i] = Category{Name: c.Name, Items: append([]string(nil), c.Items...)}
	}
	return Taxonomy{Categories: out}
}

// Len returns the number of categories.
func (t Taxonomy) Len() int {
	return len(t.Categories)
}

// Names returns the category names in order.
func (t Taxonomy) Names() []string {
	out := make([]string, len(t.Categories))
	for i, c := range t.Categories {
		out[i] = c.Name
	}
	return out
}

// Category returns the category at index.
func (t Taxonomy) Category(index int) (Category, bool) {
	if index < 0 || index >= len(t.Categories) {
		return Category{}, false
	}
	return t.Categories[index], true
}

// IndexOf finds a category by name.
func (t Taxonomy) IndexOf(name string) (int, bool) {
	for i, c := range t.Categories {
		if c.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Contains reports whether item belongs to the category at index.
func (t Taxonomy) Contains(index int, item string) bool {
	cat, ok := t.Category(index)
	if !ok {
		return false
	}
	for _, candidate := range cat.Items {
		if candidate == item {
			return true
		}
	}
	return false
}
