package extractor

import (
	"github.com/Lulzx/zpdf/raw"
	"github.com/Lulzx/zpdf/strutil"
)

// FieldType classifies AcroForm fields.
type FieldType int

const (
	FieldUnknown FieldType = iota
	FieldText
	FieldCheckbox
	FieldRadio
	FieldChoice
	FieldSignature
	FieldButton
)

// FormField is one terminal AcroForm field with its fully qualified
// name.
type FormField struct {
	Name    string
	Value   string
	Type    FieldType
	Rect    [4]float64
	HasRect bool
}

const maxFieldDepth = 32

// button field flags
const (
	flagRadio      = 1 << 15
	flagPushbutton = 1 << 16
)

// FormFields walks /AcroForm /Fields, joining partial names with
// dots and descending into kids.
func (e *Extractor) FormFields() []FormField {
	acro := raw.DerefDict(e.src, lookupIn(e.catalog, "AcroForm"))
	if acro == nil {
		return nil
	}
	fields := raw.DerefArray(e.src, acro.Lookup("Fields"))
	if fields == nil {
		return nil
	}
	var out []FormField
	for _, item := range fields.Items {
		e.walkField(item, "", FieldUnknown, 0, &out)
	}
	return out
}

func (e *Extractor) walkField(obj raw.Object, parentName string, inheritedType FieldType, depth int, out *[]FormField) {
	if depth > maxFieldDepth {
		return
	}
	dict := raw.DerefDict(e.src, obj)
	if dict == nil {
		return
	}
	name := parentName
	if partial, ok := raw.DictString(e.src, dict, "T"); ok {
		decoded := strutil.DecodeTextString(partial)
		if name == "" {
			name = decoded
		} else {
			name = name + "." + decoded
		}
	}
	ftype := inheritedType
	if ft, ok := raw.DictName(e.src, dict, "FT"); ok {
		ftype = e.fieldType(ft, dict)
	}
	kids := raw.DerefArray(e.src, dict.Lookup("Kids"))
	if kids != nil && kids.Len() > 0 && !isWidgetOnly(e.src, kids) {
		for _, kid := range kids.Items {
			e.walkField(kid, name, ftype, depth+1, out)
		}
		return
	}
	field := FormField{Name: name, Type: ftype}
	field.Value = e.fieldValue(dict)
	if rect, ok := raw.Rect(e.src, dict.Lookup("Rect")); ok {
		field.Rect = rect
		field.HasRect = true
	} else if kids != nil && kids.Len() > 0 {
		if widget := raw.DerefDict(e.src, kids.At(0)); widget != nil {
			if rect, ok := raw.Rect(e.src, widget.Lookup("Rect")); ok {
				field.Rect = rect
				field.HasRect = true
			}
		}
	}
	*out = append(*out, field)
}

// isWidgetOnly reports whether every kid is a widget annotation
// rather than a child field: those merge into the parent.
func isWidgetOnly(src Source, kids *raw.Array) bool {
	for _, kid := range kids.Items {
		d := raw.DerefDict(src, kid)
		if d == nil {
			continue
		}
		if _, hasT := d.Get("T"); hasT {
			return false
		}
		if _, hasFT := d.Get("FT"); hasFT {
			return false
		}
	}
	return true
}

func (e *Extractor) fieldType(ft string, dict *raw.Dict) FieldType {
	switch ft {
	case "Tx":
		return FieldText
	case "Ch":
		return FieldChoice
	case "Sig":
		return FieldSignature
	case "Btn":
		flags, _ := raw.DictInt(e.src, dict, "Ff")
		switch {
		case flags&flagPushbutton != 0:
			return FieldButton
		case flags&flagRadio != 0:
			return FieldRadio
		default:
			return FieldCheckbox
		}
	}
	return FieldUnknown
}

func (e *Extractor) fieldValue(dict *raw.Dict) string {
	switch v := raw.Deref(e.src, dict.Lookup("V")).(type) {
	case raw.String:
		return strutil.DecodeTextString(v.V)
	case raw.Name:
		return v.V
	case *raw.Array:
		if v.Len() > 0 {
			if b, ok := raw.AsString(raw.Deref(e.src, v.At(0))); ok {
				return strutil.DecodeTextString(b)
			}
		}
	}
	return ""
}
