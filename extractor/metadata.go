package extractor

import (
	"github.com/Lulzx/zpdf/raw"
	"github.com/Lulzx/zpdf/strutil"
)

// Metadata holds the trailer /Info fields, text-string decoded.
type Metadata struct {
	Title        string
	Author       string
	Subject      string
	Keywords     string
	Creator      string
	Producer     string
	CreationDate string
	ModDate      string
}

// DocumentMetadata reads the /Info dictionary; absent keys stay
// empty.
func (e *Extractor) DocumentMetadata(trailer *raw.Dict) Metadata {
	var md Metadata
	info := raw.DerefDict(e.src, lookupIn(trailer, "Info"))
	if info == nil {
		return md
	}
	get := func(key string) string {
		if b, ok := raw.DictString(e.src, info, key); ok {
			return strutil.DecodeTextString(b)
		}
		return ""
	}
	md.Title = get("Title")
	md.Author = get("Author")
	md.Subject = get("Subject")
	md.Keywords = get("Keywords")
	md.Creator = get("Creator")
	md.Producer = get("Producer")
	md.CreationDate = get("CreationDate")
	md.ModDate = get("ModDate")
	return md
}
