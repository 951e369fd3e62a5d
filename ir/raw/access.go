package raw

// Typed accessors. All of them resolve indirect references and tolerate a nil
// Document, in which case references resolve to nothing.

// Dict resolves o to a dictionary. A stream yields its dictionary.
func (d *Document) Dict(o Object) (*DictObj, bool) {
	switch v := d.Resolve(o).(type) {
	case *DictObj:
		return v, v != nil
	case *StreamObj:
		if v == nil || v.Dict == nil {
			return nil, false
		}
		return v.Dict, true
	}
	return nil, false
}

// Stream resolves o to a stream.
func (d *Document) Stream(o Object) (*StreamObj, bool) {
	s, ok := d.Resolve(o).(*StreamObj)
	return s, ok && s != nil
}

// Array resolves o to an array.
func (d *Document) Array(o Object) (*ArrayObj, bool) {
	a, ok := d.Resolve(o).(*ArrayObj)
	return a, ok && a != nil
}

// Name resolves o to a name value.
func (d *Document) Name(o Object) (string, bool) {
	n, ok := d.Resolve(o).(NameObj)
	return n.Val, ok
}

// Number resolves o to a float.
func (d *Document) Number(o Object) (float64, bool) {
	n, ok := d.Resolve(o).(NumberObj)
	return n.Float(), ok
}

// Int resolves o to an integer.
func (d *Document) Int(o Object) (int, bool) {
	n, ok := d.Resolve(o).(NumberObj)
	return int(n.Int()), ok
}

// String resolves o to string bytes.
func (d *Document) String(o Object) ([]byte, bool) {
	s, ok := d.Resolve(o).(StringObj)
	return s.Bytes, ok
}

// DictEntry resolves key in dict to a dictionary.
func (d *Document) DictEntry(dict *DictObj, key string) (*DictObj, bool) {
	o, ok := dict.Get(key)
	if !ok {
		return nil, false
	}
	return d.Dict(o)
}

// NameEntry resolves key in dict to a name.
func (d *Document) NameEntry(dict *DictObj, key string) (string, bool) {
	o, ok := dict.Get(key)
	if !ok {
		return "", false
	}
	return d.Name(o)
}

// NumberEntry resolves key in dict to a number.
func (d *Document) NumberEntry(dict *DictObj, key string) (float64, bool) {
	o, ok := dict.Get(key)
	if !ok {
		return 0, false
	}
	return d.Number(o)
}

// ArrayEntry resolves key in dict to an array.
func (d *Document) ArrayEntry(dict *DictObj, key string) (*ArrayObj, bool) {
	o, ok := dict.Get(key)
	if !ok {
		return nil, false
	}
	return d.Array(o)
}

// Floats resolves every item of an array to a number. Non-numeric items
// make the conversion fail.
func (d *Document) Floats(o Object) ([]float64, bool) {
	arr, ok := d.Array(o)
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, arr.Len())
	for _, item := range arr.Items {
		f, ok := d.Number(item)
		if !ok {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}
