package document

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Document is one world document held by a collection. The fixed header
// fields (_id, name, folder, sort) drive directory listings; everything
// schema-specific lives in System.
type Document struct {
	ID        string                 `json:"_id"`
	Name      string                 `json:"name"`
	Folder    string                 `json:"folder,omitempty"`
	Sort      int                    `json:"sort"`
	System    map[string]interface{} `json:"system"`
	UpdatedAt time.Time              `json:"updated_at"`
}

func New(id, name string, system map[string]interface{}) *Document {
	if system == nil {
		system = make(map[string]interface{})
	}
	return &Document{
		ID:        id,
		Name:      name,
		System:    system,
		UpdatedAt: time.Now().UTC(),
	}
}

// FromData builds a document from a wire payload. The payload must carry
// an "_id"; header fields are lifted out and the rest becomes System.
func FromData(data map[string]interface{}) (*Document, error) {
	id, _ := data["_id"].(string)
	if id == "" {
		return nil, fmt.Errorf("document data missing _id")
	}
	doc := New(id, "", nil)
	for key, value := range data {
		doc.assign(key, value)
	}
	return doc, nil
}

func (d *Document) assign(key string, value interface{}) {
	switch key {
	case "_id":
		// identity is fixed at creation
	case "name":
		if s, ok := value.(string); ok {
			d.Name = s
		}
	case "folder":
		if s, ok := value.(string); ok {
			d.Folder = s
		} else if value == nil {
			d.Folder = ""
		}
	case "sort":
		switch n := value.(type) {
		case float64:
			d.Sort = int(n)
		case int:
			d.Sort = n
		}
	default:
		d.System[key] = value
	}
}

// ApplyDiff merges changed fields into the document. Nested maps merge
// recursively; any other value replaces. Reports whether anything changed.
func (d *Document) ApplyDiff(changes map[string]interface{}) bool {
	changed := false
	for key, value := range changes {
		switch key {
		case "_id":
			continue
		case "name", "folder", "sort":
			before := struct {
				name, folder string
				sort         int
			}{d.Name, d.Folder, d.Sort}
			d.assign(key, value)
			if before.name != d.Name || before.folder != d.Folder || before.sort != d.Sort {
				changed = true
			}
		default:
			if next, ok := value.(map[string]interface{}); ok {
				if current, exists := d.System[key].(map[string]interface{}); exists {
					if mergeMaps(current, next) {
						changed = true
					}
					continue
				}
			}
			if current, exists := d.System[key]; !exists || !reflect.DeepEqual(current, value) {
				d.System[key] = value
				changed = true
			}
		}
	}
	if changed {
		d.UpdatedAt = time.Now().UTC()
	}
	return changed
}

func mergeMaps(dst, src map[string]interface{}) bool {
	changed := false
	for key, value := range src {
		if next, ok := value.(map[string]interface{}); ok {
			if current, exists := dst[key].(map[string]interface{}); exists {
				if mergeMaps(current, next) {
					changed = true
				}
				continue
			}
		}
		if current, exists := dst[key]; !exists || !reflect.DeepEqual(current, value) {
			dst[key] = value
			changed = true
		}
	}
	return changed
}

// Get resolves a value from the document. Dotted paths descend into
// System ("attributes.hp.value").
func (d *Document) Get(key string) (interface{}, bool) {
	switch key {
	case "_id":
		return d.ID, true
	case "name":
		return d.Name, true
	case "folder":
		return d.Folder, true
	case "sort":
		return d.Sort, true
	}
	if !strings.Contains(key, ".") {
		val, exists := d.System[key]
		return val, exists
	}
	current := interface{}(d.System)
	for _, part := range strings.Split(key, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		val, exists := m[part]
		if !exists {
			return nil, false
		}
		current = val
	}
	return current, true
}

// ToData flattens the document back to its wire shape.
func (d *Document) ToData() map[string]interface{} {
	data := make(map[string]interface{}, len(d.System)+4)
	for key, value := range d.System {
		data[key] = value
	}
	data["_id"] = d.ID
	data["name"] = d.Name
	if d.Folder != "" {
		data["folder"] = d.Folder
	}
	data["sort"] = d.Sort
	return data
}

// Clone returns a deep copy, used when handing documents to observers
// that must not see later mutations.
func (d *Document) Clone() *Document {
	raw, _ := json.Marshal(d.System)
	var system map[string]interface{}
	json.Unmarshal(raw, &system)
	if system == nil {
		system = make(map[string]interface{})
	}
	clone := *d
	clone.System = system
	return &clone
}
