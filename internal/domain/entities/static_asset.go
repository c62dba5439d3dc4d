package entities

import (
	"path"
	"strings"
)

// staticAssetExtensions are file types the frontend serves as static files
var staticAssetExtensions = map[string]bool{
	".js": true, ".mjs": true, ".css": true, ".map": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true, ".webp": true, ".avif": true, ".ico": true,
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
	".txt": true, ".xml": true, ".webmanifest": true, ".pdf": true,
	".mp4": true, ".webm": true, ".mp3": true,
}

// IsStaticAsset reports whether the last segment of p names a static file
// by its extension. Dotted segments such as "jane.doe" or "v1.2" are not assets.
func IsStaticAsset(p string) bool {
	return staticAssetExtensions[strings.ToLower(path.Ext(p))]
}
