package customer

// Normalize returns the canonical form of r: the encoded suffix is stripped
// from Address.StreetName and its attributes are promoted onto the record.
// A nil record yields nil. Records without a marker are returned as an
// unchanged copy, so Normalize is idempotent.
func Normalize(r *Record) *Record {
	if r == nil {
		return nil
	}
	out := *r
	if out.Products != nil {
		out.Products = append([]string(nil), out.Products...)
	}

	street, segments, ok := SplitEncoded(out.Address.StreetName)
	if !ok {
		return &out
	}
	out.Address.StreetName = street
	DecodeAttributes(&out.Attributes, segments)
	return &out
}

// NormalizeAll normalizes every record in rs.
func NormalizeAll(rs []Record) []Record {
	out := make([]Record, 0, len(rs))
	for i := range rs {
		out = append(out, *Normalize(&rs[i]))
	}
	return out
}
