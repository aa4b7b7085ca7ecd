package main

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/coupon"
)

// decodeCoupon parses one NDJSON coupon record. Records are active unless
// isActive is false; usage counters are never imported.
func decodeCoupon(line []byte) (coupon.Coupon, error) {
	c := coupon.Coupon{Active: true}
	err := jx.DecodeBytes(line).ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "code":
			var s string
			s, err = d.Str()
			c.Code = coupon.NormalizeCode(s)
		case "title":
			c.Title, err = d.Str()
		case "description":
			c.Description, err = d.Str()
		case "image":
			c.Image, err = d.Str()
		case "discountType":
			var s string
			s, err = d.Str()
			c.DiscountType = coupon.DiscountType(s)
		case "discountValue":
			c.DiscountValue, err = decodeDecimal(d)
		case "maxDiscount":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var v decimal.Decimal
			v, err = decodeDecimal(d)
			c.MaxDiscount = decimal.NewNullDecimal(v)
		case "minOrderValue":
			c.MinOrderValue, err = decodeDecimal(d)
		case "usageLimit":
			c.UsageLimit, err = d.Int()
		case "expiresAt":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var s string
			if s, err = d.Str(); err == nil {
				var t time.Time
				t, err = time.Parse(time.RFC3339, s)
				c.ExpiresAt = &t
			}
		case "isActive":
			c.Active, err = d.Bool()
		default:
			return d.Skip()
		}
		return errors.Wrap(err, string(key))
	})
	if err != nil {
		return coupon.Coupon{}, err
	}
	return c, nil
}

// decodeDecimal accepts a JSON number or a numeric string.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(n.String())
}
