package schema

import "fmt"

// Kind names a container variant in schema files.
type Kind string

const (
	KindLabeled Kind = "labeled"
	KindRooms   Kind = "rooms"
)

// Default output names of a rooms container.
const (
	DefaultStoreysField = "Storeys"
	DefaultAreaField    = "Floor Area (m^2)"
)

// Header is the part of a container shared by every variant: where the box
// is, how its title is verified, and how its entries are enumerated.
type Header struct {
	Name  string   `json:"name" yaml:"name" validate:"required"`
	Label string   `json:"label,omitempty" yaml:"label,omitempty"` // expected title text, empty skips verification
	Box   Locator  `json:"box" yaml:"box"`
	Title *Locator `json:"title,omitempty" yaml:"title,omitempty"`
	List  string   `json:"list,omitempty" yaml:"list,omitempty"` // entries live in the first element of this kind
	Entry string   `json:"entry" yaml:"entry" validate:"required"`
}

// Container is a bounded subtree producing several output values.
// It is either a LabeledContainer or a RoomContainer.
type Container interface {
	Head() Header
	// Outputs lists the record keys the container produces.
	Outputs() []string
	isContainer()
}

// LabeledContainer matches entries to outputs by comparing label text.
type LabeledContainer struct {
	Header
	Entries []LabeledField `json:"entries" yaml:"entries" validate:"required,min=1,dive"`
}

func (c LabeledContainer) Head() Header { return c.Header }

func (c LabeledContainer) Outputs() []string {
	names := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		names[i] = e.OutputName()
	}
	return names
}

func (LabeledContainer) isContainer() {}

// RoomContainer holds a uniform, unlabeled room listing from which the
// storey count and floor area are derived.
type RoomContainer struct {
	Header
	Rooms RoomSchema `json:"rooms" yaml:"rooms"`
}

func (c RoomContainer) Head() Header { return c.Header }

func (c RoomContainer) Outputs() []string {
	return []string{c.Rooms.StoreysName(), c.Rooms.AreaName()}
}

func (RoomContainer) isContainer() {}

// RoomSchema describes the fixed-depth descent from an entry to the node
// holding its level and area. Path has one locator per intermediate depth.
type RoomSchema struct {
	Path         []Locator `json:"path,omitempty" yaml:"path,omitempty" validate:"dive"`
	Level        Locator   `json:"level" yaml:"level"`
	Area         Locator   `json:"area" yaml:"area"`
	StoreysField string    `json:"storeys_field,omitempty" yaml:"storeys_field,omitempty"`
	AreaField    string    `json:"area_field,omitempty" yaml:"area_field,omitempty"`
}

// Depth is the number of levels from an entry down to its leaf, inclusive.
func (r RoomSchema) Depth() int { return len(r.Path) + 1 }

// StoreysName returns the output name of the storey count.
func (r RoomSchema) StoreysName() string {
	if r.StoreysField != "" {
		return r.StoreysField
	}
	return DefaultStoreysField
}

// AreaName returns the output name of the floor area.
func (r RoomSchema) AreaName() string {
	if r.AreaField != "" {
		return r.AreaField
	}
	return DefaultAreaField
}

// containerDoc is the file form of a container; Kind selects the variant.
type containerDoc struct {
	Kind    Kind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Header  `yaml:",inline"`
	Entries []LabeledField `json:"entries,omitempty" yaml:"entries,omitempty"`
	Rooms   *RoomSchema    `json:"rooms,omitempty" yaml:"rooms,omitempty"`
}

func (d containerDoc) container() (Container, error) {
	switch d.Kind {
	case KindLabeled, "":
		if d.Rooms != nil {
			return nil, fmt.Errorf("container %q: labeled container cannot declare rooms", d.Name)
		}
		return LabeledContainer{Header: d.Header, Entries: d.Entries}, nil
	case KindRooms:
		if d.Rooms == nil {
			return nil, fmt.Errorf("container %q: rooms container needs a rooms block", d.Name)
		}
		if len(d.Entries) > 0 {
			return nil, fmt.Errorf("container %q: rooms container cannot declare labeled entries", d.Name)
		}
		return RoomContainer{Header: d.Header, Rooms: *d.Rooms}, nil
	default:
		return nil, fmt.Errorf("container %q: unknown kind %q (use %q or %q)", d.Name, d.Kind, KindLabeled, KindRooms)
	}
}

func docOf(c Container) containerDoc {
	switch v := c.(type) {
	case LabeledContainer:
		return containerDoc{Kind: KindLabeled, Header: v.Header, Entries: v.Entries}
	case RoomContainer:
		rooms := v.Rooms
		return containerDoc{Kind: KindRooms, Header: v.Header, Rooms: &rooms}
	default:
		return containerDoc{Header: c.Head()}
	}
}
