package jsarray

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// CollatorComparator returns a comparator for Sort and ToSorted that orders
// the string forms of the elements like localeCompare does for tag.
// Undefined values never reach a comparator.
func CollatorComparator(tag language.Tag, opts ...collate.Option) *Function {
	c := collate.New(tag, opts...)
	return NewFunction("compare", func(_ Value, args ...Value) (Value, error) {
		a := norm.NFC.String(arg(args, 0).String())
		b := norm.NFC.String(arg(args, 1).String())
		return valueInt(c.CompareString(a, b)), nil
	})
}

// NumericComparator orders elements by their numeric values, like (a, b) => a - b.
func NumericComparator() *Function {
	return NewFunction("compare", func(_ Value, args ...Value) (Value, error) {
		return floatToValue(arg(args, 0).ToFloat() - arg(args, 1).ToFloat()), nil
	})
}
