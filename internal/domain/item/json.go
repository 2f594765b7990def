package item

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// ErrInvalidJSON is returned when the payload is not well-formed JSON.
var ErrInvalidJSON = errors.New("invalid json")

// MissingFieldError reports a required key absent from a JSON object.
type MissingFieldError struct {
	Object string
	Field  string
}

func (e *MissingFieldError) Error() string {
	return "decode " + e.Object + ": missing required field " + e.Field
}

// DecodeList decodes the item list envelope:
//
//	{"items": [{"id": "1", "name": "Widget", "imageUrl": "...", "price": 9.99, "discount": 0}]}
//
// Keys other than "items" are skipped.
func DecodeList(data []byte) (List, error) {
	if !jx.Valid(data) {
		return List{}, ErrInvalidJSON
	}

	var (
		list     List
		hasItems bool
	)
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			hasItems = true
			list.Items = []Item{}
			return d.Arr(func(d *jx.Decoder) error {
				it, err := decodeItem(d)
				if err != nil {
					return errors.Wrapf(err, "item %d", len(list.Items))
				}
				list.Items = append(list.Items, it)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return List{}, errors.Wrap(err, "decode item list")
	}

	if !hasItems {
		return List{}, &MissingFieldError{Object: "item list", Field: "items"}
	}
	return list, nil
}

// Decode decodes a single item object.
func Decode(data []byte) (Item, error) {
	if !jx.Valid(data) {
		return Item{}, ErrInvalidJSON
	}
	return decodeItem(jx.DecodeBytes(data))
}

// item fields, used as a bitmask to track which required keys were seen.
const (
	fieldID uint8 = 1 << iota
	fieldName
	fieldImageURL
	fieldPrice
	fieldDiscount

	allFields = fieldID | fieldName | fieldImageURL | fieldPrice | fieldDiscount
)

var fieldNames = []struct {
	bit  uint8
	name string
}{
	{fieldID, "id"},
	{fieldName, "name"},
	{fieldImageURL, "imageUrl"},
	{fieldPrice, "price"},
	{fieldDiscount, "discount"},
}

func decodeItem(d *jx.Decoder) (Item, error) {
	var (
		it   Item
		seen uint8
	)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			seen |= fieldID
			it.ID, err = d.Str()
		case "name":
			seen |= fieldName
			it.Name, err = d.Str()
		case "imageUrl":
			seen |= fieldImageURL
			it.ImageURL, err = d.Str()
		case "price":
			seen |= fieldPrice
			it.Price, err = decodeDecimal(d)
		case "discount":
			seen |= fieldDiscount
			it.Discount, err = decodeDecimal(d)
		default:
			return d.Skip()
		}
		return errors.Wrapf(err, "field %q", key)
	}); err != nil {
		return Item{}, err
	}

	if seen != allFields {
		for _, f := range fieldNames {
			if seen&f.bit == 0 {
				return Item{}, &MissingFieldError{Object: "item", Field: f.name}
			}
		}
	}
	return it, nil
}

// decodeDecimal accepts both JSON numbers and numeric strings.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.Number, jx.String:
	default:
		return decimal.Decimal{}, errors.Errorf("unexpected %s, want number", d.Next())
	}

	raw, err := d.Raw()
	if err != nil {
		return decimal.Decimal{}, err
	}

	var v decimal.Decimal
	if err := v.UnmarshalJSON(raw); err != nil {
		return decimal.Decimal{}, err
	}
	return v, nil
}
