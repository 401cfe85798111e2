package diskhost

import (
	"fmt"
	"path"
	"strings"

	"github.com/stackvity/fsaccess/internal/blob"
	"github.com/stackvity/fsaccess/internal/modern"
)

// validateAccept rejects picker types a browser would reject: media types
// that are not "type/subtype" and extensions that do not start with a dot.
func validateAccept(types []modern.AcceptType, excludeAcceptAll bool) error {
	if excludeAcceptAll && len(types) == 0 {
		return fmt.Errorf("%w: excluding the accept-all option needs at least one type", ErrTypeMismatch)
	}
	for _, t := range types {
		for mt, exts := range t.Accept {
			major, minor, ok := strings.Cut(mt, "/")
			if !ok || major == "" || minor == "" {
				return fmt.Errorf("%w: invalid media type '%s'", ErrTypeMismatch, mt)
			}
			for _, ext := range exts {
				if !strings.HasPrefix(ext, ".") {
					return fmt.Errorf("%w: extension '%s' must start with '.'", ErrTypeMismatch, ext)
				}
			}
		}
	}
	return nil
}

// accepts reports whether a file called name with media type typ is allowed
// by types. Wildcards are honored in either half of a media type.
func accepts(types []modern.AcceptType, name, typ string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, t := range types {
		for mt, exts := range t.Accept {
			for _, e := range exts {
				if strings.ToLower(e) == ext {
					return true
				}
			}
			if len(exts) == 0 && matchType(mt, typ) {
				return true
			}
			if mt != blob.WildcardType && matchType(mt, typ) {
				return true
			}
		}
	}
	return false
}

func matchType(pattern, typ string) bool {
	if pattern == blob.WildcardType {
		return true
	}
	pMajor, pMinor, _ := strings.Cut(pattern, "/")
	major, minor, _ := strings.Cut(typ, "/")
	return (pMajor == "*" || pMajor == major) && (pMinor == "*" || pMinor == minor)
}
