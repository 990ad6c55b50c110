package edgedupe

import (
	"bytes"
	"strings"

	"github.com/bep/imagemeta"
)

// Attribution holds the credit fields embedded in an image, if any.
type Attribution struct {
	Artist    string // EXIF Artist or IPTC By-line
	Copyright string // EXIF Copyright or IPTC CopyrightNotice
	Credit    string // IPTC Credit
}

// String renders the attribution as a short credit line, or "" when empty.
func (a *Attribution) String() string {
	if a == nil {
		return ""
	}
	var parts []string
	if a.Artist != "" {
		parts = append(parts, "by "+a.Artist)
	}
	if a.Copyright != "" {
		parts = append(parts, a.Copyright)
	}
	if a.Credit != "" && a.Credit != a.Artist {
		parts = append(parts, "credit: "+a.Credit)
	}
	return strings.Join(parts, " · ")
}

// wantedTags maps (source, tag-name) → true for every tag we care about.
var wantedTags = map[imagemeta.Source]map[string]bool{
	imagemeta.IPTC: {
		"CopyrightNotice": true,
		"Credit":          true,
		"Byline":          true,
	},
	imagemeta.EXIF: {
		"Copyright": true,
		"Artist":    true,
	},
}

// ExtractAttribution parses EXIF/IPTC credit fields from raw image bytes.
// Returns nil if the data is empty, cannot be parsed or carries no credit.
// Never returns an error: attribution is decoration on a forwarded post.
func ExtractAttribution(data []byte) *Attribution {
	if len(data) == 0 {
		return nil
	}

	attr := &Attribution{}
	found := false

	_, err := imagemeta.Decode(imagemeta.Options{
		R:       bytes.NewReader(data),
		Sources: imagemeta.EXIF | imagemeta.IPTC,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			if tags, ok := wantedTags[ti.Source]; ok {
				return tags[ti.Tag]
			}
			return false
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			s := strings.TrimSpace(tagValueString(ti.Value))
			if s == "" {
				return nil
			}
			switch ti.Tag {
			case "Artist", "Byline":
				if attr.Artist == "" {
					attr.Artist = s
				}
			case "Copyright", "CopyrightNotice":
				if attr.Copyright == "" {
					attr.Copyright = s
				}
			case "Credit":
				attr.Credit = s
			default:
				return nil
			}
			found = true
			return nil
		},
	})

	if err != nil || !found {
		return nil
	}
	return attr
}

// tagValueString extracts a string from a tag value.
// Values may be string or []string (from repeated IPTC records).
func tagValueString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		if len(val) > 0 {
			return val[0]
		}
		return ""
	case []any:
		if len(val) > 0 {
			if s, ok := val[0].(string); ok {
				return s
			}
		}
		return ""
	default:
		return ""
	}
}
