// File: internal/browser/storage.go
package browser

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// jsReadStorage renders a script that dumps one DOM storage area to a map.
// The try/catch covers SecurityError and storage-disabled pages.
func jsReadStorage(storageType string) string {
	return fmt.Sprintf(`(function() {
        let items = {};
        try {
            const s = window.%s;
            if (s) {
                for (let i = 0; i < s.length; i++) {
                    const k = s.key(i);
                    if (k) { items[k] = s.getItem(k); }
                }
            }
        } catch (e) { /* SecurityError or storage disabled */ }
        return items;
    })()`, storageType)
}

// jsWriteStorage renders a script that loads the given items into one DOM
// storage area on the current origin.
func jsWriteStorage(storageType string, items map[string]string) string {
	encoded, err := jsoniter.MarshalToString(items)
	if err != nil {
		encoded = "{}"
	}
	return fmt.Sprintf(`(function() {
        try {
            const s = window.%s;
            const items = %s;
            if (s && items) {
                for (const k of Object.keys(items)) { s.setItem(k, items[k]); }
            }
        } catch (e) { /* SecurityError or storage disabled */ }
        return true;
    })()`, storageType, encoded)
}
