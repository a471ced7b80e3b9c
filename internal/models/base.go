package models

// Base carries the store-assigned document id.
type Base struct {
	ID string `bson:"_id,omitempty" json:"id,omitempty"`
}

func (m *Base) SetID(id string) {
	m.ID = id
}
