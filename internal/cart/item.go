package cart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ItemID identifies catalog entries. Clients send either strings or numbers; both are
// coerced to their string form so 1 and "1" are the same item.
type ItemID string

func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ItemID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("item id must be a string or number: %w", err)
	}
	*id = ItemID(canonicalNumber(n))
	return nil
}

func (id ItemID) String() string {
	return string(id)
}

func canonicalNumber(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if f, err := n.Float64(); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return n.String()
}

// AddOn is an optional extra attached to a cart line.
type AddOn struct {
	ID    ItemID `json:"id"`
	Name  string `json:"name,omitempty"`
	Price string `json:"price,omitempty"`
}

// Item is one cart line. Price is the catalog display string.
type Item struct {
	ID       ItemID  `json:"id" validate:"required"`
	Name     string  `json:"name" validate:"required"`
	Image    string  `json:"image"`
	Price    string  `json:"price"`
	Quantity int     `json:"quantity"`
	IsRent   bool    `json:"isRent,omitempty"`
	AddOns   []AddOn `json:"addOns,omitempty"`
}

func (i Item) clone() Item {
	if i.AddOns != nil {
		i.AddOns = append([]AddOn(nil), i.AddOns...)
	}
	return i
}
